// Package seed builds and reads developer seed images.
//
// A seed image is a small ISO9660 image carrying development credentials for
// provision.Seeder: an entropy seed, a root of trust and a YAML metadata file.
// Devices in developer mode read it at boot instead of compiling credentials
// into the binary.
package seed

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kdomanski/iso9660"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/bedrock/internal/provision"
)

// VolumeLabel is the ISO volume identifier of a seed image.
const VolumeLabel = "DEVSEED"

// File names inside a seed image. Names are kept to uppercase 8.3 characters
// so they survive ISO9660 name mangling unchanged.
const (
	EntropyFile     = "ENTROPY"
	RootOfTrustFile = "ROT"
	MetaDataFile    = "METADATA"
)

// MetaData describes a seed image.
type MetaData struct {
	SeedID             string    `yaml:"seed-id"`
	CreatedAt          time.Time `yaml:"created-at"`
	EntropyFingerprint string    `yaml:"entropy-fingerprint,omitempty"`
	RootOfTrustPrint   string    `yaml:"root-of-trust-fingerprint"`
}

// Generate returns fresh random development credentials.
func Generate() (provision.DeveloperCredentials, error) {
	return generate(rand.Reader)
}

func generate(r io.Reader) (provision.DeveloperCredentials, error) {
	creds := provision.DeveloperCredentials{
		Entropy:     make([]byte, provision.EntropySize),
		RootOfTrust: make([]byte, provision.RootOfTrustSize),
	}
	if _, err := io.ReadFull(r, creds.Entropy); err != nil {
		return creds, fmt.Errorf("failed to generate entropy: %w", err)
	}
	if _, err := io.ReadFull(r, creds.RootOfTrust); err != nil {
		return creds, fmt.Errorf("failed to generate root of trust: %w", err)
	}
	return creds, nil
}

// GenerateMetaData returns the metadata YAML for creds.
func GenerateMetaData(creds provision.DeveloperCredentials, now time.Time) ([]byte, error) {
	meta := MetaData{
		SeedID:           uuid.New().String(),
		CreatedAt:        now.UTC(),
		RootOfTrustPrint: provision.Fingerprint(creds.RootOfTrust),
	}
	if len(creds.Entropy) > 0 {
		meta.EntropyFingerprint = provision.Fingerprint(creds.Entropy)
	}

	data, err := yaml.Marshal(&meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal meta-data: %w", err)
	}
	return data, nil
}

// BuildISO creates a seed image for creds.
//
// The image holds three files in its root directory: ENTROPY, ROT and
// METADATA. Entropy is omitted when creds carries none, for devices with a
// hardware entropy source.
//
// Returns the ISO image as a byte slice.
func BuildISO(creds provision.DeveloperCredentials) ([]byte, error) {
	if err := creds.Validate(len(creds.Entropy) > 0); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	meta, err := GenerateMetaData(creds, time.Now())
	if err != nil {
		return nil, err
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	files := []struct {
		name string
		data []byte
	}{
		{EntropyFile, creds.Entropy},
		{RootOfTrustFile, creds.RootOfTrust},
		{MetaDataFile, meta},
	}
	for _, f := range files {
		if f.data == nil {
			continue
		}
		if err := writer.AddFile(bytes.NewReader(f.data), f.name); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.name, err)
		}
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, VolumeLabel); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteISO builds a seed image for creds and writes it to path.
// The file must not exist.
func WriteISO(path string, creds provision.DeveloperCredentials) error {
	data, err := BuildISO(creds)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Contents is a decoded seed image.
type Contents struct {
	Credentials provision.DeveloperCredentials
	MetaData    MetaData
}

// ReadISO reads the seed image at path.
func ReadISO(path string) (*Contents, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Read(f)
}

// Read decodes a seed image. The volume label must be VolumeLabel and the
// root of trust and metadata files must be present.
func Read(r io.ReaderAt) (*Contents, error) {
	img, err := iso9660.OpenImage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open ISO image: %w", err)
	}

	label, err := img.Label()
	if err != nil {
		return nil, fmt.Errorf("failed to read volume label: %w", err)
	}
	if strings.TrimSpace(label) != VolumeLabel {
		return nil, fmt.Errorf("not a seed image: volume label %q", label)
	}

	root, err := img.RootDir()
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}
	children, err := root.GetChildren()
	if err != nil {
		return nil, fmt.Errorf("failed to list root directory: %w", err)
	}

	files := make(map[string][]byte, len(children))
	for _, child := range children {
		if child.IsDir() {
			continue
		}
		data, err := io.ReadAll(child.Reader())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", child.Name(), err)
		}
		files[fileKey(child.Name())] = data
	}

	c := &Contents{}
	c.Credentials.Entropy = files[EntropyFile]

	rot, ok := files[RootOfTrustFile]
	if !ok {
		return nil, fmt.Errorf("seed image is missing %s", RootOfTrustFile)
	}
	c.Credentials.RootOfTrust = rot

	meta, ok := files[MetaDataFile]
	if !ok {
		return nil, fmt.Errorf("seed image is missing %s", MetaDataFile)
	}
	if err := yaml.Unmarshal(meta, &c.MetaData); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MetaDataFile, err)
	}

	if err := c.Credentials.Validate(len(c.Credentials.Entropy) > 0); err != nil {
		return nil, fmt.Errorf("invalid seed image: %w", err)
	}
	if c.MetaData.RootOfTrustPrint != provision.Fingerprint(rot) {
		return nil, fmt.Errorf("invalid seed image: root of trust does not match %s", MetaDataFile)
	}

	return c, nil
}

// fileKey normalizes an ISO9660 identifier for lookup.
func fileKey(name string) string {
	name = strings.TrimSuffix(name, ";1")
	name = strings.TrimSuffix(name, ".")
	return strings.ToUpper(name)
}
