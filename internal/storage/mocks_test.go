package storage

import (
	"errors"
	"fmt"
)

// fakeVolume is the content of a partition (or of the whole device).
type fakeVolume struct {
	formatted bool
	corrupt   bool // mount succeeds but unmount fails
	files     map[string]string
}

func newFormattedVolume(files map[string]string) *fakeVolume {
	return &fakeVolume{formatted: true, files: files}
}

// fakeMedia models a physical device: a partition table mapping partition
// numbers to volumes, or a single whole-device volume.
type fakeMedia struct {
	size   uint64
	whole  *fakeVolume
	parts  map[int]*fakeVolume
	device *mockBlockDevice

	partDevices map[int]*mockBlockDevice
	filesystems map[string]*fakeFileSystem
}

func newFakeMedia(size uint64) *fakeMedia {
	fm := &fakeMedia{
		size:        size,
		whole:       &fakeVolume{},
		parts:       make(map[int]*fakeVolume),
		partDevices: make(map[int]*mockBlockDevice),
		filesystems: make(map[string]*fakeFileSystem),
	}
	fm.device = newMockBlockDevice(size, func() *fakeVolume { return fm.whole })
	return fm
}

// partitionDevice is a PartitionDeviceFactory. Init fails while the partition
// is missing from the table.
func (fm *fakeMedia) partitionDevice(parent BlockDevice, number int) BlockDevice {
	dev := newMockBlockDevice(0, func() *fakeVolume { return fm.parts[number] })
	dev.initFunc = func() error {
		if fm.parts[number] == nil {
			return fmt.Errorf("partition %d not found", number)
		}
		return nil
	}
	fm.partDevices[number] = dev
	return dev
}

// fileSystem is a FileSystemFactory performing the implicit mount.
func (fm *fakeMedia) fileSystem(mountName string, dev BlockDevice) FileSystem {
	fs := newFakeFileSystem()
	_ = fs.Mount(dev)
	fm.filesystems[mountName] = fs
	return fs
}

// mockBlockDevice is a mock implementation of BlockDevice for testing.
type mockBlockDevice struct {
	start  uint64
	size   uint64
	volume func() *fakeVolume

	// Configurable behavior
	initFunc   func() error
	deinitFunc func() error

	// Call tracking
	initCalls   int
	deinitCalls int
}

func newMockBlockDevice(size uint64, volume func() *fakeVolume) *mockBlockDevice {
	return &mockBlockDevice{
		size:       size,
		volume:     volume,
		initFunc:   func() error { return nil },
		deinitFunc: func() error { return nil },
	}
}

func (d *mockBlockDevice) Init() error {
	d.initCalls++
	return d.initFunc()
}

func (d *mockBlockDevice) Deinit() error {
	d.deinitCalls++
	return d.deinitFunc()
}

func (d *mockBlockDevice) Size() uint64 {
	return d.size
}

func (d *mockBlockDevice) Start() uint64 {
	return d.start
}

// fakeFileSystem is a FileSystem over a fakeVolume.
type fakeFileSystem struct {
	mounted bool
	device  *mockBlockDevice

	// Configurable behavior (nil uses the volume model)
	reformatFunc func(dev BlockDevice) error

	// Call tracking
	mountCalls    int
	unmountCalls  int
	reformatCalls int
}

func newFakeFileSystem() *fakeFileSystem {
	return &fakeFileSystem{}
}

var errNotMounted = errors.New("not mounted")

func (f *fakeFileSystem) Mount(dev BlockDevice) error {
	f.mountCalls++
	d, ok := dev.(*mockBlockDevice)
	if !ok {
		return fmt.Errorf("unexpected device %T", dev)
	}
	f.device = d
	vol := d.volume()
	if vol == nil || !vol.formatted {
		return fmt.Errorf("no filesystem found")
	}
	f.mounted = true
	return nil
}

func (f *fakeFileSystem) Unmount() error {
	f.unmountCalls++
	if !f.mounted {
		return errNotMounted
	}
	if vol := f.device.volume(); vol != nil && vol.corrupt {
		return fmt.Errorf("filesystem corrupt")
	}
	f.mounted = false
	return nil
}

func (f *fakeFileSystem) Reformat(dev BlockDevice) error {
	f.reformatCalls++
	if f.reformatFunc != nil {
		return f.reformatFunc(dev)
	}
	d, ok := dev.(*mockBlockDevice)
	if !ok {
		return fmt.Errorf("unexpected device %T", dev)
	}
	vol := d.volume()
	if vol == nil {
		return fmt.Errorf("no such volume")
	}
	vol.formatted = true
	vol.corrupt = false
	vol.files = nil
	f.device = d
	f.mounted = true
	return nil
}

// partitionCall records a call to Partition.
type partitionCall struct {
	number   int
	partType byte
	start    uint64
	end      uint64
}

// mockPartitioner is a mock implementation of Partitioner for testing.
type mockPartitioner struct {
	partitionFunc func(dev BlockDevice, number int, partType byte, start, end uint64) error
	calls         []partitionCall
}

// newMockPartitioner returns a partitioner that writes a fresh, unformatted
// volume into the media's table.
func newMockPartitioner(fm *fakeMedia) *mockPartitioner {
	return &mockPartitioner{
		partitionFunc: func(dev BlockDevice, number int, partType byte, start, end uint64) error {
			fm.parts[number] = &fakeVolume{}
			return nil
		},
	}
}

func (p *mockPartitioner) Partition(dev BlockDevice, number int, partType byte, start, end uint64) error {
	p.calls = append(p.calls, partitionCall{number: number, partType: partType, start: start, end: end})
	return p.partitionFunc(dev, number, partType, start, end)
}
