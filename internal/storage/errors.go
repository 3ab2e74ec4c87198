package storage

import "errors"

var (
	// ErrDeviceInit is returned when the physical block device fails to initialize.
	ErrDeviceInit = errors.New("block device init failed")

	// ErrMount is returned when a partition cannot be brought online and
	// auto-partitioning is disabled.
	ErrMount = errors.New("partition mount failed")

	// ErrPartitionCreate is returned when writing a partition table entry fails.
	ErrPartitionCreate = errors.New("partition create failed")

	// ErrCapacityExceeded is returned when the configured partition table does
	// not fit on the device. It is a configuration error and is never retried.
	ErrCapacityExceeded = errors.New("partition table exceeds device capacity")

	// ErrNoDevice is returned by ReformatStorage when no block device was supplied.
	ErrNoDevice = errors.New("no block device")

	// ErrNotInitialized is returned when an operation needs a partition that
	// Init has not brought up yet.
	ErrNotInitialized = errors.New("storage not initialized")
)
