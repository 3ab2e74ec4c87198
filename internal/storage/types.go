package storage

import (
	"github.com/jbweber/bedrock/internal/config"
)

// State is the initialization state of a Manager.
type State int

const (
	StateUninitialized State = iota // Init has not completed
	StateInitialized                // Init completed successfully
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	default:
		return "uninitialized"
	}
}

// PartitionStatus is a snapshot of one partition slot.
type PartitionStatus struct {
	Number     int    // Partition number (0 for the whole device)
	Start      uint64 // Start offset in bytes
	Size       uint64 // Size in bytes
	MountPoint string // Mount point (e.g., "/fs1")
	Mounted    bool   // Whether the last verify or reformat left it mounted
	Reformats  int    // Number of reformats performed by this manager
}

// slot holds the lazily constructed objects for one configured partition.
// Once created, device and fs are retained for the lifetime of the manager.
type slot struct {
	partition config.Partition
	device    BlockDevice
	fs        FileSystem
	mounted   bool
	reformats int
}

// rangedDevice is a partition device that knows where its table entry
// actually landed. Partitioners may align a requested range.
type rangedDevice interface {
	Start() uint64
	Size() uint64
}

// status reports the range of the device's table entry once it is known,
// and the configured range until then.
func (s *slot) status() PartitionStatus {
	st := PartitionStatus{
		Number:     s.partition.Number,
		Start:      s.partition.Start,
		Size:       s.partition.Size,
		MountPoint: s.partition.MountPoint,
		Mounted:    s.mounted,
		Reformats:  s.reformats,
	}
	if rd, ok := s.device.(rangedDevice); ok && rd.Size() > 0 {
		st.Start = rd.Start()
		st.Size = rd.Size()
	}
	return st
}
