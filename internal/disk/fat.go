package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	dfsdisk "github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"

	"github.com/jbweber/bedrock/internal/naming"
	"github.com/jbweber/bedrock/internal/storage"
)

// ErrNotMounted is returned by operations on an unmounted FAT filesystem.
var ErrNotMounted = errors.New("filesystem not mounted")

// FAT is a FAT32 filesystem on an Image or one of its partitions.
//
// FAT also implements provision.Volume so provisioning items can be stored on
// the primary partition.
type FAT struct {
	name  string
	label string
	fs    filesystem.FileSystem
}

// NewFAT constructs a FAT filesystem named mountName and mounts it on dev.
// A failed mount leaves the filesystem unmounted; the error is not reported.
func NewFAT(mountName string, dev storage.BlockDevice) *FAT {
	f := &FAT{
		name:  mountName,
		label: naming.VolumeLabel(mountName),
	}
	_ = f.Mount(dev)
	return f
}

// FATFactory adapts NewFAT to storage.FileSystemFactory.
func FATFactory(mountName string, dev storage.BlockDevice) storage.FileSystem {
	return NewFAT(mountName, dev)
}

// Name returns the mount name.
func (f *FAT) Name() string {
	return f.name
}

// Mounted reports whether the filesystem is mounted.
func (f *FAT) Mounted() bool {
	return f.fs != nil
}

// Mount opens the FAT32 filesystem stored on dev. A whole Image is opened
// first if needed.
func (f *FAT) Mount(dev storage.BlockDevice) error {
	if img, ok := dev.(*Image); ok {
		if err := img.Init(); err != nil {
			return fmt.Errorf("failed to mount %s: %w", f.name, err)
		}
	}

	d, index, err := resolve(dev)
	if err != nil {
		return err
	}

	fs, err := d.GetFilesystem(index)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", f.name, err)
	}
	if fs.Type() != filesystem.TypeFat32 {
		return fmt.Errorf("failed to mount %s: not a FAT32 filesystem", f.name)
	}

	f.fs = fs
	return nil
}

// Unmount releases the filesystem. It fails when nothing is mounted.
func (f *FAT) Unmount() error {
	if f.fs == nil {
		return fmt.Errorf("%s: %w", f.name, ErrNotMounted)
	}
	f.fs = nil
	return nil
}

// Reformat writes a fresh FAT32 filesystem on dev and leaves it mounted.
func (f *FAT) Reformat(dev storage.BlockDevice) error {
	d, index, err := resolve(dev)
	if err != nil {
		return err
	}

	f.fs = nil
	fs, err := d.CreateFilesystem(dfsdisk.FilesystemSpec{
		Partition:   index,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: f.label,
	})
	if err != nil {
		return fmt.Errorf("failed to format %s: %w", f.name, err)
	}

	f.fs = fs
	return nil
}

// Exists reports whether a file named name exists in the root directory.
// FAT names are case-insensitive.
func (f *FAT) Exists(name string) (bool, error) {
	if f.fs == nil {
		return false, fmt.Errorf("%s: %w", f.name, ErrNotMounted)
	}

	entries, err := f.fs.ReadDir("/")
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", f.name, err)
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), name) {
			return true, nil
		}
	}
	return false, nil
}

// ReadFile reads a file from the root directory.
func (f *FAT) ReadFile(name string) ([]byte, error) {
	if f.fs == nil {
		return nil, fmt.Errorf("%s: %w", f.name, ErrNotMounted)
	}

	file, err := f.fs.OpenFile("/"+name, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s/%s: %w", f.name, name, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", f.name, name, err)
	}
	return data, nil
}

// WriteFile creates a file in the root directory holding data.
func (f *FAT) WriteFile(name string, data []byte) error {
	if f.fs == nil {
		return fmt.Errorf("%s: %w", f.name, ErrNotMounted)
	}

	file, err := f.fs.OpenFile("/"+name, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return fmt.Errorf("failed to create %s/%s: %w", f.name, name, err)
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s/%s: %w", f.name, name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s/%s: %w", f.name, name, err)
	}
	return nil
}

// resolve maps a block device to its go-diskfs disk and partition index.
// The whole image is index 0.
func resolve(dev storage.BlockDevice) (*dfsdisk.Disk, int, error) {
	switch d := dev.(type) {
	case *Partition:
		return d.disk()
	case *Image:
		disk, err := d.Disk()
		if err != nil {
			return nil, 0, err
		}
		return disk, 0, nil
	case nil:
		return nil, 0, fmt.Errorf("no block device")
	default:
		return nil, 0, fmt.Errorf("unsupported block device %T", dev)
	}
}
