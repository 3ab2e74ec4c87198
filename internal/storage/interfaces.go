package storage

// BlockDevice is raw addressable storage.
//
// In production, this is satisfied by *disk.Image and *disk.Partition.
// In tests, this is satisfied by mock implementations.
type BlockDevice interface {
	// Init prepares the device for use. It may be called again after a failure.
	Init() error

	// Deinit releases the device.
	Deinit() error

	// Size returns the device capacity in bytes.
	Size() uint64
}

// FileSystem is a mountable filesystem over a block device.
type FileSystem interface {
	// Mount mounts the filesystem stored on dev.
	Mount(dev BlockDevice) error

	// Unmount unmounts the filesystem. It fails when nothing is mounted.
	Unmount() error

	// Reformat destroys the contents of dev, writes a fresh filesystem and
	// leaves it mounted.
	Reformat(dev BlockDevice) error
}

// Partitioner writes a single entry of the partition table on a device.
type Partitioner interface {
	// Partition creates partition number on dev with type partType, covering
	// the byte range [start, end).
	Partition(dev BlockDevice, number int, partType byte, start, end uint64) error
}

// PartitionDeviceFactory constructs the block device for partition number of
// parent. The returned device is not initialized.
type PartitionDeviceFactory func(parent BlockDevice, number int) BlockDevice

// FileSystemFactory constructs a filesystem named mountName over dev.
// Construction performs an implicit mount whose result is not reported; the
// manager verifies the filesystem afterwards.
type FileSystemFactory func(mountName string, dev BlockDevice) FileSystem
