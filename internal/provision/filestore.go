package provision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/bedrock/internal/naming"
)

// Volume is the file storage a FileStore writes to. Names are flat file names
// in the volume's root directory.
//
// In production, this is satisfied by *disk.FAT (the primary partition) or
// DirVolume. In tests, this is satisfied by an in-memory volume.
type Volume interface {
	Exists(name string) (bool, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// Item is the record written next to each stored value.
type Item struct {
	ID          string    `json:"id" yaml:"id"`
	Kind        string    `json:"kind" yaml:"kind"`
	Size        int       `json:"size" yaml:"size"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// FileStore is a write-once provisioning store on a Volume.
//
// Each value is written as {kind}.bin with a {kind}.yaml record. The record is
// written last and marks the value as set.
type FileStore struct {
	vol       Volume
	finalized bool
	now       func() time.Time
}

// NewFileStore creates a store on vol.
func NewFileStore(vol Volume) *FileStore {
	return &FileStore{vol: vol, now: time.Now}
}

// SetEntropy stores the entropy seed.
func (s *FileStore) SetEntropy(data []byte) error {
	return s.set(KindEntropy, data)
}

// SetRootOfTrust stores the root of trust.
func (s *FileStore) SetRootOfTrust(data []byte) error {
	return s.set(KindRootOfTrust, data)
}

// Finalize closes the store; later writes return ErrFinalized.
func (s *FileStore) Finalize() error {
	s.finalized = true
	return nil
}

func (s *FileStore) set(kind string, data []byte) error {
	if s.finalized {
		return ErrFinalized
	}

	exists, err := s.vol.Exists(naming.ItemRecordName(kind))
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", kind, err)
	}
	if exists {
		return fmt.Errorf("%s: %w", kind, ErrAlreadySet)
	}

	if err := s.vol.WriteFile(naming.ItemBlobName(kind), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", kind, err)
	}

	item := Item{
		ID:          uuid.New().String(),
		Kind:        kind,
		Size:        len(data),
		Fingerprint: Fingerprint(data),
		CreatedAt:   s.now().UTC(),
	}
	record, err := yaml.Marshal(&item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", kind, err)
	}
	if err := s.vol.WriteFile(naming.ItemRecordName(kind), record); err != nil {
		return fmt.Errorf("failed to write %s record: %w", kind, err)
	}

	return nil
}

// Get returns the stored value of kind and its record.
// Returns an error if the value is missing or does not match its record.
func (s *FileStore) Get(kind string) ([]byte, *Item, error) {
	record, err := s.vol.ReadFile(naming.ItemRecordName(kind))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s record: %w", kind, err)
	}

	var item Item
	if err := yaml.Unmarshal(record, &item); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s record: %w", kind, err)
	}

	data, err := s.vol.ReadFile(naming.ItemBlobName(kind))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", kind, err)
	}
	if len(data) != item.Size || Fingerprint(data) != item.Fingerprint {
		return nil, nil, fmt.Errorf("%s does not match its record", kind)
	}

	return data, &item, nil
}

// Items returns the records of all stored values.
func (s *FileStore) Items() ([]Item, error) {
	var items []Item
	for _, kind := range []string{KindEntropy, KindRootOfTrust} {
		exists, err := s.vol.Exists(naming.ItemRecordName(kind))
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", kind, err)
		}
		if !exists {
			continue
		}
		_, item, err := s.Get(kind)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// DirPermissions are the permissions for a DirVolume directory.
const DirPermissions = 0700

// FilePermissions are the permissions for files in a DirVolume.
const FilePermissions = 0600

// DirVolume is a Volume in a host directory.
type DirVolume struct {
	dir string
}

// NewDirVolume returns a volume rooted at dir. The directory is created on
// first write.
func NewDirVolume(dir string) *DirVolume {
	return &DirVolume{dir: dir}
}

// Dir returns the volume directory.
func (v *DirVolume) Dir() string {
	return v.dir
}

// Exists reports whether name exists in the volume.
func (v *DirVolume) Exists(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(v.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return true, nil
}

// ReadFile reads name from the volume.
func (v *DirVolume) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(v.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// WriteFile writes name to the volume.
func (v *DirVolume) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(v.dir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create %s: %w", v.dir, err)
	}
	if err := os.WriteFile(filepath.Join(v.dir, name), data, FilePermissions); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
