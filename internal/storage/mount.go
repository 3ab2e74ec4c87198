package storage

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jbweber/bedrock/internal/naming"
)

// mountOrCreate brings one partition slot online.
//
// On the first attempt the partition device is constructed (if needed) and
// initialized, and a filesystem is constructed over it. On a retry the existing
// device is re-initialized and the existing filesystem is force-reformatted.
// Either way the filesystem is then verified and reformatted once if verify
// fails. A filesystem is never constructed over a device whose Init failed.
func (m *Manager) mountOrCreate(s *slot) error {
	log := m.slotLogger(s)
	n := s.partition.Number

	if s.fs == nil {
		if s.device == nil {
			s.device = m.newPartitionDevice(m.device, n)
		}
		if err := s.device.Init(); err != nil {
			m.deinit(s, log)
			log.WithError(err).Error("Partition init failed")
			return fmt.Errorf("failed to init partition %d: %w", n, err)
		}
		s.fs = m.newFileSystem(naming.MountName(s.partition.MountPoint), s.device)
	} else {
		if err := s.device.Init(); err != nil {
			m.deinit(s, log)
			log.WithError(err).Error("Partition re-init failed")
			return fmt.Errorf("failed to re-init partition %d: %w", n, err)
		}
		log.Info("Formatting partition")
		if err := m.reformatPartition(s); err != nil {
			return err
		}
	}

	if err := m.verify(s); err != nil {
		log.WithError(err).Warn("Filesystem verify failed, formatting partition")
		return m.reformatPartition(s)
	}

	return nil
}

// verify confirms the slot's filesystem is usable by unmounting and mounting
// it again on the same device. An unmount failure is returned without
// attempting the mount.
func (m *Manager) verify(s *slot) error {
	if err := s.fs.Unmount(); err != nil {
		s.mounted = false
		return fmt.Errorf("failed to unmount: %w", err)
	}
	s.mounted = false

	if err := s.fs.Mount(s.device); err != nil {
		return fmt.Errorf("failed to mount: %w", err)
	}
	s.mounted = true
	return nil
}

// reformatPartition reformats the slot's device with its filesystem and
// returns the filesystem's error unchanged.
func (m *Manager) reformatPartition(s *slot) error {
	log := m.slotLogger(s)
	log.Info("Reformatting filesystem")

	s.reformats++
	if err := s.fs.Reformat(s.device); err != nil {
		s.mounted = false
		log.WithError(err).Error("Reformat failed")
		return err
	}
	s.mounted = true
	return nil
}

func (m *Manager) deinit(s *slot, log logrus.FieldLogger) {
	if err := s.device.Deinit(); err != nil {
		log.WithError(err).Warn("Failed to deinit partition device")
	}
}
