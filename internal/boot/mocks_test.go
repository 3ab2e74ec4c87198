package boot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jbweber/bedrock/internal/storage"
)

// mockStorageManager is a mock implementation of the storageManager interface for testing.
type mockStorageManager struct {
	// Configurable behavior
	initFunc            func(ctx context.Context) error
	reformatStorageFunc func(ctx context.Context) error
	capacity            uint64
	partitions          []storage.PartitionStatus
	filesystems         map[int]storage.FileSystem

	// Call tracking
	initCalls            int
	reformatStorageCalls int
}

// newMockStorageManager creates a mock manager for a dual layout on a 4GiB
// device where every call succeeds.
func newMockStorageManager() *mockStorageManager {
	return &mockStorageManager{
		initFunc:            func(ctx context.Context) error { return nil },
		reformatStorageFunc: func(ctx context.Context) error { return nil },
		capacity:            4 << 30,
		partitions: []storage.PartitionStatus{
			{Number: 1, Start: 0, Size: 2 << 30, MountPoint: "/fs1", Mounted: true},
			{Number: 2, Start: 2 << 30, Size: 2 << 30, MountPoint: "/fs2", Mounted: true},
		},
		filesystems: map[int]storage.FileSystem{
			1: newMemFS(),
			2: newMemFS(),
		},
	}
}

func (m *mockStorageManager) Init(ctx context.Context) error {
	m.initCalls++
	return m.initFunc(ctx)
}

func (m *mockStorageManager) ReformatStorage(ctx context.Context) error {
	m.reformatStorageCalls++
	return m.reformatStorageFunc(ctx)
}

func (m *mockStorageManager) Capacity() uint64 {
	return m.capacity
}

func (m *mockStorageManager) Partitions() []storage.PartitionStatus {
	return m.partitions
}

func (m *mockStorageManager) FileSystem(number int) (storage.FileSystem, bool) {
	fs, ok := m.filesystems[number]
	return fs, ok
}

// mockSeeder is a mock implementation of the seeder interface for testing.
type mockSeeder struct {
	seedFunc  func(ctx context.Context) error
	seedCalls int
}

func newMockSeeder() *mockSeeder {
	return &mockSeeder{
		seedFunc: func(ctx context.Context) error { return nil },
	}
}

func (m *mockSeeder) Seed(ctx context.Context) error {
	m.seedCalls++
	return m.seedFunc(ctx)
}

// factory returns a seederFactory handing out m.
func (m *mockSeeder) factory() seederFactory {
	return func() (seeder, error) { return m, nil }
}

// memFS is an in-memory filesystem that also serves as a provisioning volume.
type memFS struct {
	files   map[string][]byte
	mounted bool
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string][]byte), mounted: true}
}

func (f *memFS) Mount(dev storage.BlockDevice) error {
	f.mounted = true
	return nil
}

func (f *memFS) Unmount() error {
	if !f.mounted {
		return fmt.Errorf("not mounted")
	}
	f.mounted = false
	return nil
}

func (f *memFS) Reformat(dev storage.BlockDevice) error {
	f.files = make(map[string][]byte)
	f.mounted = true
	return nil
}

func (f *memFS) Exists(name string) (bool, error) {
	_, ok := f.files[strings.ToLower(name)]
	return ok, nil
}

func (f *memFS) ReadFile(name string) ([]byte, error) {
	data, ok := f.files[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%s: file not found", name)
	}
	return bytes.Clone(data), nil
}

func (f *memFS) WriteFile(name string, data []byte) error {
	f.files[strings.ToLower(name)] = bytes.Clone(data)
	return nil
}

// bareFS is a filesystem that cannot hold provisioning items.
type bareFS struct{}

func (bareFS) Mount(dev storage.BlockDevice) error    { return nil }
func (bareFS) Unmount() error                         { return nil }
func (bareFS) Reformat(dev storage.BlockDevice) error { return nil }
