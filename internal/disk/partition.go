package disk

import (
	"errors"
	"fmt"
	"math"

	dfsdisk "github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/partition/mbr"

	"github.com/jbweber/bedrock/internal/naming"
	"github.com/jbweber/bedrock/internal/storage"
)

// mbrEntries is the number of primary entries in an MBR partition table.
const mbrEntries = 4

// firstUsableOffset is the lowest partition start. The first MiB holds the MBR
// and keeps partitions aligned for flash media.
const firstUsableOffset = 1024 * 1024

// ErrPartitionNotFound is returned by Partition.Init when the table has no
// entry for the partition number.
var ErrPartitionNotFound = errors.New("partition not found")

// Partition is the block device for one MBR partition of an Image.
type Partition struct {
	parent *Image
	number int
	start  uint64
	size   uint64
	ready  bool
}

// NewPartition returns the device for partition number of parent.
func NewPartition(parent *Image, number int) *Partition {
	return &Partition{parent: parent, number: number}
}

// PartitionDeviceFactory adapts NewPartition to storage.PartitionDeviceFactory.
// parent must be an *Image; any other device yields a partition whose Init fails.
func PartitionDeviceFactory(parent storage.BlockDevice, number int) storage.BlockDevice {
	img, _ := parent.(*Image)
	return NewPartition(img, number)
}

// Number returns the partition number.
func (p *Partition) Number() int {
	return p.number
}

// Path returns the display path of the partition, e.g. "sd.img1".
func (p *Partition) Path() string {
	if p.parent == nil {
		return naming.PartitionDevicePath("", p.number)
	}
	return naming.PartitionDevicePath(p.parent.Path(), p.number)
}

// Init locates the partition in the parent's partition table.
// Returns ErrPartitionNotFound when the table has no such entry.
func (p *Partition) Init() error {
	p.ready = false
	if p.parent == nil {
		return fmt.Errorf("partition %d: parent is not an image device", p.number)
	}

	d, err := p.parent.Disk()
	if err != nil {
		return err
	}

	table, err := d.GetPartitionTable()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", p.Path(), ErrPartitionNotFound, err)
	}

	// MBR tables list all four entries, so the slice position is number-1.
	for idx, part := range table.GetPartitions() {
		if idx+1 != p.number || part.GetSize() <= 0 {
			continue
		}
		if mp, ok := part.(*mbr.Partition); ok && mp.Type == mbr.Empty {
			continue
		}
		p.start = uint64(part.GetStart())
		p.size = uint64(part.GetSize())
		p.ready = true
		return nil
	}

	return fmt.Errorf("%s: %w", p.Path(), ErrPartitionNotFound)
}

// Deinit marks the partition as not ready. The parent image stays open.
func (p *Partition) Deinit() error {
	p.ready = false
	return nil
}

// Size returns the partition size in bytes, or 0 before a successful Init.
func (p *Partition) Size() uint64 {
	if !p.ready {
		return 0
	}
	return p.size
}

// Start returns the partition start offset in bytes, or 0 before a successful Init.
func (p *Partition) Start() uint64 {
	if !p.ready {
		return 0
	}
	return p.start
}

// disk returns the parent disk and the go-diskfs partition index.
func (p *Partition) disk() (*dfsdisk.Disk, int, error) {
	if !p.ready {
		return nil, 0, fmt.Errorf("%s: partition not initialized", p.Path())
	}
	d, err := p.parent.Disk()
	if err != nil {
		return nil, 0, err
	}
	return d, p.number, nil
}

// MBRPartitioner writes MBR partition table entries on Image devices.
type MBRPartitioner struct{}

// NewMBRPartitioner creates an MBR partitioner.
func NewMBRPartitioner() *MBRPartitioner {
	return &MBRPartitioner{}
}

// Partition writes entry number of the MBR table on dev, covering [start, end)
// with type partType. Other existing entries are preserved. Starts inside the
// first MiB are moved to the first MiB boundary. Both ends must fall on a
// logical sector boundary.
func (m *MBRPartitioner) Partition(dev storage.BlockDevice, number int, partType byte, start, end uint64) error {
	img, ok := dev.(*Image)
	if !ok {
		return fmt.Errorf("MBR partitioning requires an image device, got %T", dev)
	}
	if number < 1 || number > mbrEntries {
		return fmt.Errorf("partition number must be between 1 and %d, got %d", mbrEntries, number)
	}

	d, err := img.Disk()
	if err != nil {
		return err
	}

	if start < firstUsableOffset {
		start = firstUsableOffset
	}
	if end <= start {
		return fmt.Errorf("partition %d: end %d is not after start %d", number, end, start)
	}
	if end > uint64(d.Size) {
		return fmt.Errorf("partition %d: end %d is past the end of the device (%d)", number, end, d.Size)
	}

	sectorSize := uint64(d.LogicalBlocksize)
	if start%sectorSize != 0 || end%sectorSize != 0 {
		return fmt.Errorf("partition %d: range [%d, %d) is not aligned to %d-byte sectors", number, start, end, sectorSize)
	}
	startSector := start / sectorSize
	sizeSectors := (end - start) / sectorSize
	if startSector > math.MaxUint32 || sizeSectors > math.MaxUint32 {
		return fmt.Errorf("partition %d: range exceeds MBR addressing", number)
	}

	entries := make([]*mbr.Partition, mbrEntries)
	if existing, err := d.GetPartitionTable(); err == nil {
		if t, ok := existing.(*mbr.Table); ok {
			for i, p := range t.Partitions {
				if i < mbrEntries && p != nil {
					entries[i] = p
				}
			}
		}
	}
	for i := range entries {
		if entries[i] == nil {
			entries[i] = &mbr.Partition{Type: mbr.Empty}
		}
	}
	entries[number-1] = &mbr.Partition{
		Bootable: false,
		Type:     mbr.Type(partType),
		Start:    uint32(startSector),
		Size:     uint32(sizeSectors),
	}

	table := &mbr.Table{
		Partitions:         entries,
		LogicalSectorSize:  int(d.LogicalBlocksize),
		PhysicalSectorSize: int(d.PhysicalBlocksize),
	}
	if err := d.Partition(table); err != nil {
		return fmt.Errorf("failed to write partition table on %s: %w", img.Path(), err)
	}

	return nil
}
