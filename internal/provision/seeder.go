package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jbweber/bedrock/internal/config"
)

// Seeder pushes development credentials into a Store.
type Seeder struct {
	store   Store
	creds   DeveloperCredentials
	cfg     config.Developer
	log     logrus.FieldLogger
	allowed bool
}

// SeederOption configures a Seeder.
type SeederOption func(*Seeder)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) SeederOption {
	return func(s *Seeder) {
		s.log = log
	}
}

// NewSeeder creates a seeder writing creds to store.
func NewSeeder(store Store, creds DeveloperCredentials, cfg config.Developer, opts ...SeederOption) *Seeder {
	s := &Seeder{
		store:   store,
		creds:   creds,
		cfg:     cfg,
		log:     logrus.StandardLogger(),
		allowed: developerBuild,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed stores the injected entropy and root of trust.
//
// Seeding is a no-op when developer mode is disabled. Entropy is skipped when
// the device has hardware entropy. A value the store already holds counts as
// success, so repeated flashes are harmless. Any other store error finalizes
// the store and is returned.
//
// Returns ErrDeveloperModeUnavailable from binaries built without the devmode tag.
func (s *Seeder) Seed(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Debug("Developer mode disabled, skipping credential seeding")
		return nil
	}
	if !s.allowed {
		return ErrDeveloperModeUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	needEntropy := !s.cfg.HardwareEntropy
	if err := s.creds.Validate(needEntropy); err != nil {
		return fmt.Errorf("invalid developer credentials: %w", err)
	}

	if needEntropy {
		if err := s.set(KindEntropy, s.creds.Entropy, s.store.SetEntropy); err != nil {
			return err
		}
	} else {
		s.log.Info("Hardware entropy available, skipping entropy seeding")
	}

	if err := s.set(KindRootOfTrust, s.creds.RootOfTrust, s.store.SetRootOfTrust); err != nil {
		return err
	}

	s.log.WithField("fingerprint", Fingerprint(s.creds.RootOfTrust)).
		Warn("Using injected root of trust, not suitable for production use")
	return nil
}

func (s *Seeder) set(kind string, data []byte, setFn func([]byte) error) error {
	log := s.log.WithField("item", kind)

	err := setFn(data)
	switch {
	case err == nil:
		log.WithField("fingerprint", Fingerprint(data)).Info("Seeded credential")
		return nil
	case errors.Is(err, ErrAlreadySet):
		log.Info("Credential already set")
		return nil
	}

	log.WithError(err).Error("Failed to seed credential, finalizing store")
	if ferr := s.store.Finalize(); ferr != nil {
		log.WithError(ferr).Warn("Failed to finalize store")
	}
	return fmt.Errorf("failed to set %s: %w", kind, err)
}
