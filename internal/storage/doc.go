// Package storage brings up persistent block storage during boot.
//
// The Manager owns the mount/format/repartition state machine for a single
// physical block device. It handles three situations without the caller
// knowing which one applies:
//   - First boot: the media is unformatted (or has no partition table)
//   - Warm boot: the media is already formatted and mounts cleanly
//   - Partial failure: one partition mounts, the other is corrupt
//
// Topologies:
//
// The layout is selected at construction time from config.Storage:
//   - none: the whole device is one filesystem, supplied by the caller
//   - single: one MBR partition, mounted at the primary mount point
//   - dual: two MBR partitions, primary first and secondary second
//
// Recovery Policy:
//
// Each partition goes through mount-or-create. The partition device is
// initialized and a filesystem is constructed over it (construction performs an
// implicit mount). The filesystem is then verified by an unmount followed by a
// mount. A failed verify triggers exactly one reformat. If a partition still
// cannot be brought online and auto-partitioning is enabled, the whole
// partition table is re-created. The table is validated against the device
// capacity first, so an undersized device never receives a partition write.
//
// Collaborators:
//
// BlockDevice, FileSystem and Partitioner are consumer-defined interfaces. The
// internal/disk package satisfies them for disk images using go-diskfs; tests
// satisfy them with in-memory fakes.
//
// Example usage:
//
//	img := disk.NewImage("/var/lib/bedrock/sd.img")
//	mgr, err := storage.NewManager(img, nil, cfg,
//	    storage.WithPartitioner(disk.NewMBRPartitioner()),
//	    storage.WithPartitionDeviceFactory(disk.PartitionDeviceFactory),
//	    storage.WithFileSystemFactory(disk.FATFactory),
//	)
//	if err != nil {
//	    return err
//	}
//
//	if err := mgr.Init(ctx); err != nil {
//	    return err
//	}
package storage
