package boot

import (
	"context"

	"github.com/jbweber/bedrock/internal/storage"
)

// storageManager defines the storage operations needed for bring-up.
//
// In production, this is satisfied by *storage.Manager.
// In tests, this is satisfied by mock implementations.
type storageManager interface {
	// Init brings storage online
	Init(ctx context.Context) error

	// ReformatStorage reformats every filesystem
	ReformatStorage(ctx context.Context) error

	// Capacity returns the device capacity captured by Init
	Capacity() uint64

	// Partitions returns a snapshot of each filesystem slot
	Partitions() []storage.PartitionStatus

	// FileSystem returns the filesystem of a partition (0 for the whole device)
	FileSystem(number int) (storage.FileSystem, bool)
}

// seeder defines the credential seeding operation.
//
// In production, this is satisfied by *provision.Seeder.
// In tests, this is satisfied by mock implementations.
type seeder interface {
	// Seed stores development credentials
	Seed(ctx context.Context) error
}
