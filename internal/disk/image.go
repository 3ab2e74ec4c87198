// Package disk implements the storage collaborators over disk image files
// using go-diskfs: an image-backed block device, MBR partition devices, an MBR
// partitioner and a FAT32 filesystem.
package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	diskfs "github.com/diskfs/go-diskfs"
	dfsdisk "github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/dustin/go-humanize"
)

const (
	// DirPermissions are the permissions for image directories
	DirPermissions = 0755

	// FilePermissions are the permissions for image files
	FilePermissions = 0644
)

// ErrNotOpen is returned when an image is used before Init.
var ErrNotOpen = errors.New("image not open")

// Image is a block device backed by a disk image file (or a raw device node).
type Image struct {
	path string
	disk *dfsdisk.Disk
}

// NewImage returns an image device for path. The file is opened by Init.
func NewImage(path string) *Image {
	return &Image{path: path}
}

// Path returns the image path.
func (i *Image) Path() string {
	return i.path
}

// Init opens the image. Calling Init on an open image is a no-op.
func (i *Image) Init() error {
	if i.disk != nil {
		return nil
	}

	d, err := diskfs.Open(i.path, diskfs.WithOpenMode(diskfs.ReadWrite))
	if err != nil {
		return fmt.Errorf("failed to open image %s: %w", i.path, err)
	}
	i.disk = d
	return nil
}

// Deinit closes the image.
func (i *Image) Deinit() error {
	if i.disk == nil {
		return nil
	}
	err := i.disk.Close()
	i.disk = nil
	if err != nil {
		return fmt.Errorf("failed to close image %s: %w", i.path, err)
	}
	return nil
}

// Size returns the image size in bytes, or 0 when the image is not open.
func (i *Image) Size() uint64 {
	if i.disk == nil {
		return 0
	}
	return uint64(i.disk.Size)
}

// Disk returns the open go-diskfs disk.
func (i *Image) Disk() (*dfsdisk.Disk, error) {
	if i.disk == nil {
		return nil, fmt.Errorf("%s: %w", i.path, ErrNotOpen)
	}
	return i.disk, nil
}

// PartitionInfo describes one entry of an image's MBR partition table.
type PartitionInfo struct {
	Number int
	Type   byte
	Start  uint64
	Size   uint64
}

// Partitions returns the non-empty entries of the image's MBR partition table.
// Returns an error if the image is not open or holds no MBR table.
func (i *Image) Partitions() ([]PartitionInfo, error) {
	d, err := i.Disk()
	if err != nil {
		return nil, err
	}

	table, err := d.GetPartitionTable()
	if err != nil {
		return nil, fmt.Errorf("failed to read partition table: %w", err)
	}
	mbrTable, ok := table.(*mbr.Table)
	if !ok {
		return nil, fmt.Errorf("unsupported partition table type %s", table.Type())
	}

	sectorSize := uint64(d.LogicalBlocksize)
	var parts []PartitionInfo
	for idx, p := range mbrTable.Partitions {
		if p == nil || p.Type == mbr.Empty {
			continue
		}
		parts = append(parts, PartitionInfo{
			Number: idx + 1,
			Type:   byte(p.Type),
			Start:  uint64(p.Start) * sectorSize,
			Size:   uint64(p.Size) * sectorSize,
		})
	}
	return parts, nil
}

// CreateImage creates a sparse, zero-filled image file of size bytes.
// Returns an error if the file already exists or the host filesystem does not
// have size bytes available.
func CreateImage(path string, size uint64) error {
	if size == 0 {
		return fmt.Errorf("image size must be greater than 0")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create image directory %s: %w", dir, err)
	}

	if err := CheckFreeSpace(dir, size); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create image %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := f.Truncate(int64(size)); err != nil {
		return fmt.Errorf("failed to size image %s: %w", path, err)
	}

	return nil
}

// CheckFreeSpace verifies that the filesystem holding dir has size bytes available.
func CheckFreeSpace(dir string, size uint64) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("failed to get filesystem stats for %s: %w", dir, err)
	}

	available := stat.Bavail * uint64(stat.Bsize)
	if size > available {
		return fmt.Errorf("insufficient disk space: need %s, have %s available",
			humanize.IBytes(size), humanize.IBytes(available))
	}

	return nil
}
