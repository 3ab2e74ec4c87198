// Package provision seeds development credentials into the device
// provisioning subsystem.
//
// Seeding pushes injected entropy and a root of trust into a Store. It only
// runs in binaries built with the devmode build tag; release builds return
// ErrDeveloperModeUnavailable. Credential material is never compiled in: it is
// generated or read from a seed image and handed to the Seeder.
package provision

import (
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	// EntropySize is the length of injected entropy in bytes.
	EntropySize = 48

	// RootOfTrustSize is the length of the root of trust in bytes.
	RootOfTrustSize = 16
)

// Item kinds stored by the provisioning subsystem.
const (
	KindEntropy     = "entropy"
	KindRootOfTrust = "root-of-trust"
)

var (
	// ErrAlreadySet is returned by a Store when the value was set before.
	ErrAlreadySet = errors.New("value already set")

	// ErrFinalized is returned by a Store after Finalize.
	ErrFinalized = errors.New("store finalized")

	// ErrDeveloperModeUnavailable is returned when seeding is requested from a
	// binary built without the devmode tag.
	ErrDeveloperModeUnavailable = errors.New("developer mode not available in this build (rebuild with -tags devmode)")
)

// Store is the provisioning subsystem that receives seeded credentials.
type Store interface {
	// SetEntropy stores the entropy seed. Returns ErrAlreadySet if present.
	SetEntropy(data []byte) error

	// SetRootOfTrust stores the root of trust. Returns ErrAlreadySet if present.
	SetRootOfTrust(data []byte) error

	// Finalize shuts the store down.
	Finalize() error
}

// DeveloperCredentials is the injected development credential material.
type DeveloperCredentials struct {
	Entropy     []byte
	RootOfTrust []byte
}

// Validate checks the credential sizes. Entropy is only checked when needed,
// i.e. when the device lacks a hardware entropy source.
func (c *DeveloperCredentials) Validate(needEntropy bool) error {
	if needEntropy && len(c.Entropy) != EntropySize {
		return fmt.Errorf("entropy must be %d bytes, got %d", EntropySize, len(c.Entropy))
	}
	if len(c.RootOfTrust) != RootOfTrustSize {
		return fmt.Errorf("root of trust must be %d bytes, got %d", RootOfTrustSize, len(c.RootOfTrust))
	}
	return nil
}

// Fingerprint returns a short, non-reversible identifier for secret material,
// suitable for logs: the first 8 bytes of its BLAKE2b-256 digest in hex.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
