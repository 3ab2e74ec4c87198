package boot

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/config"
	"github.com/jbweber/bedrock/internal/disk"
	"github.com/jbweber/bedrock/internal/loader"
	"github.com/jbweber/bedrock/internal/naming"
	"github.com/jbweber/bedrock/internal/provision"
	"github.com/jbweber/bedrock/internal/seed"
	"github.com/jbweber/bedrock/internal/status"
	"github.com/jbweber/bedrock/internal/storage"
)

// DefaultLayoutName names the layout used when no layout file is given.
const DefaultLayoutName = "default"

// Options configures a bring-up operation.
type Options struct {
	// LayoutPath is the StorageLayout file. Empty selects the built-in
	// default: one filesystem over the whole device mounted at /fs1.
	LayoutPath string

	// ImagePath is the block device image.
	ImagePath string

	// SeedImage overrides spec.developer.seedImage.
	SeedImage string

	// StoreDir keeps provisioning items in a host directory instead of on
	// the primary filesystem.
	StoreDir string

	// StatusPath receives the layout with its observed status after Run.
	StatusPath string

	// ForceDeveloper enables credential seeding regardless of the layout.
	ForceDeveloper bool

	// Logger defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

// seederFactory builds the seeder once storage is online.
type seederFactory func() (seeder, error)

// Run brings storage online as described by the layout and, in developer
// mode, seeds development credentials into the provisioning store.
//
// This orchestrates the whole bring-up:
//  1. Load and validate the layout (or use the default)
//  2. Initialize the block device and mount or create every filesystem
//  3. Seed entropy and root of trust when developer mode is enabled
//  4. Record phase, conditions and the partition report in status
//
// The layout is returned whenever it could be loaded, including on failure.
func Run(ctx context.Context, opts Options) (*v1alpha1.StorageLayout, error) {
	log := opts.logger()

	sl, cfg, err := loadLayout(opts)
	if err != nil {
		return nil, err
	}

	image := disk.NewImage(opts.ImagePath)
	defer closeImage(image, log)

	sm, err := newManager(image, cfg, log)
	if err != nil {
		return sl, fmt.Errorf("failed to create storage manager: %w", err)
	}

	newSeeder := func() (seeder, error) {
		store, err := openStore(sm, opts.StoreDir)
		if err != nil {
			return nil, err
		}
		creds, err := loadCredentials(sl.GetSeedImage(), log)
		if err != nil {
			return nil, err
		}
		return provision.NewSeeder(store, creds, cfg.Developer, provision.WithLogger(log)), nil
	}

	runErr := runWithDeps(ctx, sl, cfg.Developer, sm, newSeeder, log)

	if opts.StatusPath != "" {
		if err := loader.SaveToFile(sl, opts.StatusPath); err != nil {
			if runErr == nil {
				return sl, fmt.Errorf("failed to save status: %w", err)
			}
			log.WithError(err).Warn("Failed to save status")
		}
	}

	return sl, runErr
}

// runWithDeps runs bring-up with injected dependencies.
// This allows for testing by accepting interfaces instead of concrete types.
func runWithDeps(ctx context.Context, sl *v1alpha1.StorageLayout, dev config.Developer, sm storageManager, newSeeder seederFactory, log logrus.FieldLogger) error {
	if err := status.TransitionToInitializing(sl); err != nil {
		return err
	}
	log = log.WithField("layout", sl.Name)

	log.Info("Bringing storage online")
	if err := initStorage(ctx, sl, sm); err != nil {
		return err
	}

	if dev.Enabled {
		log.Info("Developer mode enabled, seeding credentials")
		if err := seedCredentials(ctx, sl, newSeeder); err != nil {
			return err
		}
	} else {
		status.RemoveCondition(sl, v1alpha1.ConditionCredentialsSeeded)
	}

	if err := status.TransitionToReady(sl); err != nil {
		return err
	}
	log.Info("Storage ready")
	return nil
}

// initStorage runs storage Init and records the outcome in status.
func initStorage(ctx context.Context, sl *v1alpha1.StorageLayout, sm storageManager) error {
	err := sm.Init(ctx)
	status.ApplyPartitions(sl, sm.Capacity(), sm.Partitions())

	switch {
	case err == nil:
		status.MarkDeviceReady(sl)
		status.MarkPartitionsMounted(sl)
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status.TransitionToFailed(sl, "Canceled", err.Error())
	case errors.Is(err, storage.ErrDeviceInit):
		status.MarkDeviceFailed(sl, err)
	default:
		status.MarkDeviceReady(sl)
		status.MarkMountFailed(sl, err)
	}
	return fmt.Errorf("failed to initialize storage: %w", err)
}

// seedCredentials builds the seeder, seeds and records the outcome in status.
func seedCredentials(ctx context.Context, sl *v1alpha1.StorageLayout, newSeeder seederFactory) error {
	s, err := newSeeder()
	if err == nil {
		err = s.Seed(ctx)
	}
	if err != nil {
		status.MarkSeedFailed(sl, err)
		return fmt.Errorf("failed to seed credentials: %w", err)
	}

	status.MarkCredentialsSeeded(sl)
	return nil
}

// Reformat brings storage online and then destroys and re-creates every
// configured filesystem, primary first.
//
// The returned layout carries the partition report after the reformat.
func Reformat(ctx context.Context, opts Options) (*v1alpha1.StorageLayout, error) {
	log := opts.logger()

	sl, cfg, err := loadLayout(opts)
	if err != nil {
		return nil, err
	}

	image := disk.NewImage(opts.ImagePath)
	defer closeImage(image, log)

	sm, err := newManager(image, cfg, log)
	if err != nil {
		return sl, fmt.Errorf("failed to create storage manager: %w", err)
	}

	return sl, reformatWithDeps(ctx, sl, sm, log)
}

// reformatWithDeps reformats storage with injected dependencies.
func reformatWithDeps(ctx context.Context, sl *v1alpha1.StorageLayout, sm storageManager, log logrus.FieldLogger) error {
	if err := status.TransitionToInitializing(sl); err != nil {
		return err
	}

	if err := initStorage(ctx, sl, sm); err != nil {
		return err
	}

	log.WithField("layout", sl.Name).Warn("Reformatting storage, all data will be lost")
	err := sm.ReformatStorage(ctx)
	status.ApplyPartitions(sl, sm.Capacity(), sm.Partitions())
	if err != nil {
		status.MarkMountFailed(sl, err)
		return fmt.Errorf("failed to reformat storage: %w", err)
	}

	return status.TransitionToReady(sl)
}

// Credentials lists the items held by the provisioning store.
//
// With Options.StoreDir set the directory is read directly; otherwise storage
// is brought online and the primary filesystem is read.
func Credentials(ctx context.Context, opts Options) ([]provision.Item, error) {
	if opts.StoreDir != "" {
		return provision.NewFileStore(provision.NewDirVolume(opts.StoreDir)).Items()
	}

	log := opts.logger()

	_, cfg, err := loadLayout(opts)
	if err != nil {
		return nil, err
	}

	image := disk.NewImage(opts.ImagePath)
	defer closeImage(image, log)

	sm, err := newManager(image, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	return credentialsWithDeps(ctx, sm)
}

// credentialsWithDeps lists stored items with injected dependencies.
func credentialsWithDeps(ctx context.Context, sm storageManager) ([]provision.Item, error) {
	if err := sm.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	store, err := openStore(sm, "")
	if err != nil {
		return nil, err
	}
	return store.Items()
}

// loadLayout loads the layout named by opts, applies the command-line
// overrides and converts it to a storage configuration.
//
// Status left in the file by an earlier run is discarded.
func loadLayout(opts Options) (*v1alpha1.StorageLayout, *config.Storage, error) {
	var sl *v1alpha1.StorageLayout
	if opts.LayoutPath == "" {
		sl = loader.FromConfig(DefaultLayoutName, config.Default())
	} else {
		var err error
		sl, err = loader.LoadFromFile(opts.LayoutPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load layout: %w", err)
		}
	}

	if opts.ForceDeveloper || opts.SeedImage != "" {
		if sl.Spec.Developer == nil {
			sl.Spec.Developer = &v1alpha1.DeveloperSpec{}
		}
		if opts.ForceDeveloper {
			sl.Spec.Developer.Enabled = true
		}
		if opts.SeedImage != "" {
			sl.Spec.Developer.SeedImage = opts.SeedImage
		}
	}

	sl.Status = v1alpha1.StorageLayoutStatus{Phase: v1alpha1.LayoutPhasePending}

	cfg, err := loader.ToConfig(sl)
	if err != nil {
		return nil, nil, err
	}
	return sl, cfg, nil
}

// newManager wires a storage manager over image for cfg's topology.
func newManager(image *disk.Image, cfg *config.Storage, log logrus.FieldLogger) (*storage.Manager, error) {
	if !cfg.Partitioned() {
		fs := disk.NewFAT(naming.MountName(cfg.Partitions[0].MountPoint), image)
		return storage.NewManager(image, fs, cfg, storage.WithLogger(log))
	}

	return storage.NewManager(image, nil, cfg,
		storage.WithPartitioner(disk.NewMBRPartitioner()),
		storage.WithPartitionDeviceFactory(disk.PartitionDeviceFactory),
		storage.WithFileSystemFactory(disk.FATFactory),
		storage.WithLogger(log),
	)
}

// openStore returns the provisioning store. It lives in storeDir when set,
// otherwise on the primary filesystem: partition 1, or the whole device.
func openStore(sm storageManager, storeDir string) (*provision.FileStore, error) {
	if storeDir != "" {
		return provision.NewFileStore(provision.NewDirVolume(storeDir)), nil
	}

	for _, number := range []int{1, 0} {
		fs, ok := sm.FileSystem(number)
		if !ok {
			continue
		}
		vol, ok := fs.(provision.Volume)
		if !ok {
			return nil, fmt.Errorf("filesystem of partition %d cannot hold provisioning items", number)
		}
		return provision.NewFileStore(vol), nil
	}

	return nil, fmt.Errorf("no primary filesystem: %w", storage.ErrNotInitialized)
}

// loadCredentials reads development credentials from the seed image at path.
// Without a seed image, fresh credentials are generated; they only persist
// through the write-once store.
func loadCredentials(path string, log logrus.FieldLogger) (provision.DeveloperCredentials, error) {
	if path == "" {
		log.Warn("No seed image configured, generating development credentials")
		creds, err := seed.Generate()
		if err != nil {
			return provision.DeveloperCredentials{}, fmt.Errorf("failed to generate credentials: %w", err)
		}
		return creds, nil
	}

	contents, err := seed.ReadISO(path)
	if err != nil {
		return provision.DeveloperCredentials{}, fmt.Errorf("failed to read seed image %s: %w", path, err)
	}

	log.WithFields(logrus.Fields{
		"seed_image": path,
		"seed_id":    contents.MetaData.SeedID,
	}).Info("Loaded development credentials")
	return contents.Credentials, nil
}

func closeImage(image *disk.Image, log logrus.FieldLogger) {
	if err := image.Deinit(); err != nil {
		log.WithError(err).Warn("Failed to close image")
	}
}
