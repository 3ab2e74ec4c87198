package storage

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/bedrock/internal/config"
)

// Manager coordinates initialization and reformatting of persistent storage.
//
// A Manager is not safe for concurrent use. Boot is single-threaded and callers
// must serialize calls to Init.
type Manager struct {
	device BlockDevice
	fs     FileSystem
	cfg    *config.Storage
	table  *PartitionTable
	slots  []*slot

	partitioner        Partitioner
	newPartitionDevice PartitionDeviceFactory
	newFileSystem      FileSystemFactory
	log                logrus.FieldLogger

	state    State
	capacity uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithPartitioner sets the partitioner used when auto-partitioning.
func WithPartitioner(p Partitioner) Option {
	return func(m *Manager) {
		m.partitioner = p
	}
}

// WithPartitionDeviceFactory sets how partition block devices are constructed.
func WithPartitionDeviceFactory(f PartitionDeviceFactory) Option {
	return func(m *Manager) {
		m.newPartitionDevice = f
	}
}

// WithFileSystemFactory sets how partition filesystems are constructed.
func WithFileSystemFactory(f FileSystemFactory) Option {
	return func(m *Manager) {
		m.newFileSystem = f
	}
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a storage manager for device.
//
// fs is the filesystem used for the whole device when the topology is none; it
// is ignored by partitioned topologies, which construct one filesystem per
// partition through the FileSystemFactory. device may be nil only for the none
// topology. A nil cfg selects config.Default().
//
// Returns an error if the configuration is invalid or a collaborator needed by
// the topology is missing.
func NewManager(device BlockDevice, fs FileSystem, cfg *config.Storage, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	m := &Manager{
		device: device,
		fs:     fs,
		cfg:    cfg.Clone(),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if !m.cfg.Partitioned() {
		if fs == nil {
			return nil, fmt.Errorf("a filesystem is required for topology %s", m.cfg.Topology)
		}
		// The whole device acts as the only slot so that ReformatStorage and
		// Partitions treat every topology alike.
		m.slots = []*slot{{partition: m.cfg.Partitions[0], device: device, fs: fs}}
		return m, nil
	}

	if device == nil {
		return nil, fmt.Errorf("topology %s: %w", m.cfg.Topology, ErrNoDevice)
	}
	if m.newPartitionDevice == nil {
		return nil, fmt.Errorf("topology %s requires a partition device factory", m.cfg.Topology)
	}
	if m.newFileSystem == nil {
		return nil, fmt.Errorf("topology %s requires a filesystem factory", m.cfg.Topology)
	}
	if m.cfg.AutoPartition && m.partitioner == nil {
		return nil, fmt.Errorf("auto partitioning requires a partitioner")
	}

	table, err := NewPartitionTable(m.cfg.Partitions)
	if err != nil {
		return nil, err
	}
	m.table = table

	m.slots = make([]*slot, 0, len(m.cfg.Partitions))
	for _, p := range m.cfg.Partitions {
		m.slots = append(m.slots, &slot{partition: p})
	}

	return m, nil
}

// Init brings storage online.
//
// The first successful call initializes the physical device, snapshots its
// capacity and then, depending on the topology:
//   - none: verifies the whole-device filesystem and reformats it if verify fails
//   - single/dual: runs mount-or-create for each partition in table order; on
//     failure re-creates the whole partition table when auto-partitioning is
//     enabled, otherwise returns an ErrMount error
//
// Later calls log that storage is already initialized and return nil without
// touching the device. A failed call leaves the manager uninitialized.
func (m *Manager) Init(ctx context.Context) error {
	if m.state == StateInitialized {
		m.log.Info("Storage already initialized")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.device != nil {
		m.log.Info("Initializing block device")
		if err := m.device.Init(); err != nil {
			m.log.WithError(err).Error("Block device init failed")
			return fmt.Errorf("%w: %w", ErrDeviceInit, err)
		}
		m.capacity = m.device.Size()
		m.log.WithField("capacity", humanize.IBytes(m.capacity)).Debug("Block device initialized")
	}

	var err error
	if m.cfg.Partitioned() {
		err = m.initPartitions(ctx)
	} else {
		err = m.initWholeDevice()
	}
	if err != nil {
		return err
	}

	m.state = StateInitialized
	m.log.WithField("topology", m.cfg.Topology).Info("Storage initialized")
	return nil
}

func (m *Manager) initWholeDevice() error {
	s := m.slots[0]
	log := m.slotLogger(s)

	if err := m.verify(s); err != nil {
		log.WithError(err).Warn("Filesystem verify failed, formatting device")
		if err := m.reformatPartition(s); err != nil {
			return fmt.Errorf("failed to format device: %w", err)
		}
	}
	return nil
}

func (m *Manager) initPartitions(ctx context.Context) error {
	for _, s := range m.slots {
		err := m.mountOrCreate(s)
		if err == nil {
			continue
		}

		if !m.cfg.AutoPartition {
			m.slotLogger(s).WithError(err).Error("Partition init failed")
			return fmt.Errorf("%w: partition %d: %w", ErrMount, s.partition.Number, err)
		}

		m.slotLogger(s).WithError(err).Warn("Partition init failed, re-creating partition table")
		// createPartitions brings every slot online, so the remaining slots
		// are not visited again.
		return m.createPartitions(ctx)
	}
	return nil
}

// ReformatStorage destroys and re-creates every configured filesystem.
//
// Partitions are reformatted in table order, primary first. The first failure
// is returned immediately; a successfully reformatted primary is not rolled
// back when the secondary fails. In the none topology the supplied filesystem
// reformats the whole device.
func (m *Manager) ReformatStorage(ctx context.Context) error {
	if m.device == nil {
		m.log.Error("Cannot reformat storage without a block device")
		return ErrNoDevice
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, s := range m.slots {
		if s.fs == nil {
			return fmt.Errorf("partition %d: %w", s.partition.Number, ErrNotInitialized)
		}
		if err := m.reformatPartition(s); err != nil {
			return fmt.Errorf("failed to reformat partition %d: %w", s.partition.Number, err)
		}
	}

	m.log.Info("Storage reformatted")
	return nil
}

// State returns the initialization state.
func (m *Manager) State() State {
	return m.state
}

// Capacity returns the device capacity captured by Init, or 0 before Init.
func (m *Manager) Capacity() uint64 {
	return m.capacity
}

// Topology returns the configured topology.
func (m *Manager) Topology() config.Topology {
	return m.cfg.Topology
}

// Partitions returns a snapshot of every configured partition slot.
// In the none topology the single entry covers the whole device.
func (m *Manager) Partitions() []PartitionStatus {
	out := make([]PartitionStatus, 0, len(m.slots))
	for _, s := range m.slots {
		st := s.status()
		if !m.cfg.Partitioned() {
			st.Size = m.capacity
		}
		out = append(out, st)
	}
	return out
}

// FileSystem returns the filesystem of partition number, or false if it has
// not been constructed. Use number 0 for the none topology.
func (m *Manager) FileSystem(number int) (FileSystem, bool) {
	for _, s := range m.slots {
		if s.partition.Number == number && s.fs != nil {
			return s.fs, true
		}
	}
	return nil, false
}

func (m *Manager) slotLogger(s *slot) logrus.FieldLogger {
	return m.log.WithFields(logrus.Fields{
		"partition":   s.partition.Number,
		"mount_point": s.partition.MountPoint,
	})
}
