// Package config holds the resolved storage configuration consumed by the
// storage manager: the topology, the partition table and the developer-mode
// switches. Values here mirror the knobs a firmware build would fix at compile
// time; callers obtain them from a StorageLayout resource (see internal/loader)
// or from Default.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Topology selects how the physical block device is laid out.
type Topology string

const (
	// TopologyNone uses the whole device as a single filesystem, no partition table.
	TopologyNone Topology = "none"
	// TopologySingle uses an MBR partition table with one partition.
	TopologySingle Topology = "single"
	// TopologyDual uses an MBR partition table with two partitions.
	TopologyDual Topology = "dual"
)

// Build-time defaults for partitioned layouts.
const (
	// MaxPartitions is the largest partition count the storage manager supports.
	MaxPartitions = 2

	// PartitionTypeLinux is the MBR type byte written for every created partition.
	PartitionTypeLinux byte = 0x83

	DefaultPrimaryPartitionNumber = 1
	DefaultPrimaryPartitionStart  = 0
	DefaultPrimaryPartitionSize   = 1024 * 1024 * 1024 // 1 GiB

	DefaultSecondaryPartitionNumber = 2
	DefaultSecondaryPartitionStart  = DefaultPrimaryPartitionSize
	DefaultSecondaryPartitionSize   = 1024 * 1024 * 1024 // 1 GiB

	DefaultPrimaryMountPoint   = "/fs1"
	DefaultSecondaryMountPoint = "/fs2"
)

// ErrTooManyPartitions is returned when a layout names more than MaxPartitions partitions.
var ErrTooManyPartitions = errors.New("too many partitions")

// Partition describes one partition of the physical device.
//
// In TopologyNone there is exactly one implicit partition with Number 0,
// Start 0 and Size 0, meaning "the whole device".
type Partition struct {
	Number     int
	Start      uint64
	Size       uint64
	MountPoint string
}

// End returns the first byte offset past the partition.
func (p Partition) End() uint64 {
	return p.Start + p.Size
}

// Developer holds the development-build switches for credential seeding.
type Developer struct {
	// Enabled turns on seeding of injected entropy and root of trust.
	Enabled bool
	// HardwareEntropy reports a hardware TRNG; entropy seeding is skipped when set.
	HardwareEntropy bool
}

// Storage is the complete storage configuration.
type Storage struct {
	Topology      Topology
	AutoPartition bool
	Partitions    []Partition
	Developer     Developer
}

// Default returns the default configuration: the whole device as one filesystem.
func Default() *Storage {
	cfg := &Storage{Topology: TopologyNone}
	cfg.Normalize()
	return cfg
}

// DefaultPartitions returns the default partition table for a topology.
func DefaultPartitions(topology Topology) []Partition {
	switch topology {
	case TopologySingle:
		return []Partition{primaryDefault()}
	case TopologyDual:
		return []Partition{primaryDefault(), secondaryDefault()}
	default:
		return []Partition{{Number: 0, MountPoint: DefaultPrimaryMountPoint}}
	}
}

func primaryDefault() Partition {
	return Partition{
		Number:     DefaultPrimaryPartitionNumber,
		Start:      DefaultPrimaryPartitionStart,
		Size:       DefaultPrimaryPartitionSize,
		MountPoint: DefaultPrimaryMountPoint,
	}
}

func secondaryDefault() Partition {
	return Partition{
		Number:     DefaultSecondaryPartitionNumber,
		Start:      DefaultSecondaryPartitionStart,
		Size:       DefaultSecondaryPartitionSize,
		MountPoint: DefaultSecondaryMountPoint,
	}
}

// Normalize fills in defaults and cleans up user input.
// It is called by the loader before Validate.
func (s *Storage) Normalize() {
	s.Topology = Topology(strings.ToLower(strings.TrimSpace(string(s.Topology))))
	if s.Topology == "" {
		s.Topology = TopologyNone
	}

	if len(s.Partitions) == 0 {
		s.Partitions = DefaultPartitions(s.Topology)
	}

	for i := range s.Partitions {
		mp := strings.TrimSpace(s.Partitions[i].MountPoint)
		if mp != "" && !strings.HasPrefix(mp, "/") {
			mp = "/" + mp
		}
		s.Partitions[i].MountPoint = mp
	}
}

// Validate checks the configuration for errors.
// It does not know the device capacity; capacity is checked by the storage
// manager before any partition is created.
func (s *Storage) Validate() error {
	switch s.Topology {
	case TopologyNone, TopologySingle, TopologyDual:
	default:
		return fmt.Errorf("invalid topology %q (must be none, single or dual)", s.Topology)
	}

	if len(s.Partitions) > MaxPartitions {
		return fmt.Errorf("%w: at most %d partitions are supported, got %d", ErrTooManyPartitions, MaxPartitions, len(s.Partitions))
	}

	if want := s.PartitionCount(); s.Topology != TopologyNone && len(s.Partitions) != want {
		return fmt.Errorf("topology %s requires %d partition(s), got %d", s.Topology, want, len(s.Partitions))
	}

	if s.Topology == TopologyNone {
		if s.AutoPartition {
			return fmt.Errorf("auto_partition requires a partitioned topology")
		}
		if len(s.Partitions) != 1 {
			return fmt.Errorf("topology none takes exactly one implicit partition, got %d", len(s.Partitions))
		}
		p := s.Partitions[0]
		if p.Number != 0 || p.Start != 0 || p.Size != 0 {
			return fmt.Errorf("topology none covers the whole device; partition number, start and size must be unset")
		}
		if p.MountPoint == "" {
			return fmt.Errorf("partitions[0]: mount point is required")
		}
		return nil
	}

	numbers := make(map[int]bool)
	mountPoints := make(map[string]bool)
	for i, p := range s.Partitions {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("partitions[%d]: %w", i, err)
		}
		if numbers[p.Number] {
			return fmt.Errorf("partitions[%d]: duplicate partition number %d", i, p.Number)
		}
		numbers[p.Number] = true
		if mountPoints[p.MountPoint] {
			return fmt.Errorf("partitions[%d]: duplicate mount point %q", i, p.MountPoint)
		}
		mountPoints[p.MountPoint] = true
	}

	// Partitions are brought up in table order; the secondary may not start
	// before the primary ends.
	for i := 1; i < len(s.Partitions); i++ {
		prev, cur := s.Partitions[i-1], s.Partitions[i]
		if cur.Start < prev.End() {
			return fmt.Errorf("partitions[%d]: start %d overlaps partition %d ending at %d", i, cur.Start, prev.Number, prev.End())
		}
	}

	return nil
}

// Validate checks a single partition of a partitioned topology.
func (p *Partition) Validate() error {
	if p.Number < 1 || p.Number > 4 {
		return fmt.Errorf("partition number must be between 1 and 4, got %d", p.Number)
	}
	if p.Size == 0 {
		return fmt.Errorf("partition %d: size must be > 0", p.Number)
	}
	if p.Start > math.MaxUint64-p.Size {
		return fmt.Errorf("partition %d: start %d + size %d overflows", p.Number, p.Start, p.Size)
	}
	if p.MountPoint == "" {
		return fmt.Errorf("partition %d: mount point is required", p.Number)
	}
	return nil
}

// PartitionCount returns the number of table partitions the topology uses.
// TopologyNone uses no partition table and returns 0.
func (s *Storage) PartitionCount() int {
	switch s.Topology {
	case TopologySingle:
		return 1
	case TopologyDual:
		return 2
	default:
		return 0
	}
}

// Partitioned reports whether the topology uses a partition table.
func (s *Storage) Partitioned() bool {
	return s.PartitionCount() > 0
}

// TotalSize returns the sum of all configured partition sizes.
func (s *Storage) TotalSize() uint64 {
	var total uint64
	for _, p := range s.Partitions {
		total += p.Size
	}
	return total
}

// Clone returns a deep copy of the configuration.
func (s *Storage) Clone() *Storage {
	out := *s
	if s.Partitions != nil {
		out.Partitions = make([]Partition, len(s.Partitions))
		copy(out.Partitions, s.Partitions)
	}
	return &out
}
