package storage

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/bedrock/internal/config"
)

// PartitionTable is the ordered set of partitions written when
// auto-partitioning.
type PartitionTable struct {
	Partitions []config.Partition
}

// NewPartitionTable creates a partition table.
// Returns config.ErrTooManyPartitions for more than config.MaxPartitions entries.
func NewPartitionTable(partitions []config.Partition) (*PartitionTable, error) {
	if len(partitions) > config.MaxPartitions {
		return nil, fmt.Errorf("%w: %d configured, at most %d supported", config.ErrTooManyPartitions, len(partitions), config.MaxPartitions)
	}
	t := &PartitionTable{Partitions: make([]config.Partition, len(partitions))}
	copy(t.Partitions, partitions)
	return t, nil
}

// TotalSize returns the sum of all partition sizes.
func (t *PartitionTable) TotalSize() uint64 {
	var total uint64
	for _, p := range t.Partitions {
		total += p.Size
	}
	return total
}

// Validate checks that every partition ends within capacity and that the
// partitions together fit on the device.
// Returns an error wrapping ErrCapacityExceeded otherwise.
func (t *PartitionTable) Validate(capacity uint64) error {
	for _, p := range t.Partitions {
		if p.End() > capacity {
			return fmt.Errorf("%w: partition %d ends at %s but device holds %s",
				ErrCapacityExceeded, p.Number, humanize.IBytes(p.End()), humanize.IBytes(capacity))
		}
	}
	if total := t.TotalSize(); total > capacity {
		return fmt.Errorf("%w: partitions need %s but device holds %s",
			ErrCapacityExceeded, humanize.IBytes(total), humanize.IBytes(capacity))
	}
	return nil
}

// createPartitions re-creates the whole partition table and brings each
// partition online in order. The table is validated against the captured
// capacity before the first partition write. A failure stops the sequence, so
// a failing primary leaves the secondary untouched.
func (m *Manager) createPartitions(ctx context.Context) error {
	if err := m.table.Validate(m.capacity); err != nil {
		m.log.WithError(err).Error("Partition table does not fit on device")
		return err
	}

	for _, s := range m.slots {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := s.partition
		log := m.slotLogger(s)

		log.WithFields(logrus.Fields{
			"start": p.Start,
			"end":   p.End(),
		}).Info("Creating partition")
		if err := m.partitioner.Partition(m.device, p.Number, config.PartitionTypeLinux, p.Start, p.End()); err != nil {
			log.WithError(err).Error("Creating partition failed")
			return fmt.Errorf("%w: partition %d: %w", ErrPartitionCreate, p.Number, err)
		}

		if err := m.mountOrCreate(s); err != nil {
			return fmt.Errorf("%w: partition %d: %w", ErrMount, p.Number, err)
		}
	}

	return nil
}
