package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// MediaFormat describes what the first sector of a device holds.
type MediaFormat string

const (
	MediaFormatUnformatted MediaFormat = "unformatted" // No boot sector signature
	MediaFormatMBR         MediaFormat = "mbr"         // MBR partition table
	MediaFormatFAT         MediaFormat = "fat"         // FAT filesystem on the whole device
)

// Boot sector layout used for media detection
var (
	// bootSignature is the signature 0x55 0xaa at offset 510 that ends both an
	// MBR and a FAT boot sector.
	// Reference: https://en.wikipedia.org/wiki/Master_boot_record
	bootSignature = []byte{0x55, 0xaa}

	// fat32Type is the filesystem type string at offset 82 of a FAT32 boot sector.
	fat32Type = []byte("FAT32   ")

	// fatType is the filesystem type prefix at offset 54 of a FAT12/FAT16 boot sector.
	fatType = []byte("FAT")
)

const (
	sectorSize          = 512
	bootSignatureOffset = 510
	mbrEntriesOffset    = 446
	mbrEntrySize        = 16
	mbrEntryTypeOffset  = 4
)

// MediaInfo is the result of probing a device's first sector.
type MediaInfo struct {
	Format MediaFormat
	// PartitionTypes holds the type byte of each of the four MBR entries.
	// Only set for MediaFormatMBR; 0x00 marks an empty entry.
	PartitionTypes [4]byte
}

// DetectMediaFormat reports whether the device holds an MBR partition table,
// a whole-device FAT filesystem or neither.
//
// Detection rules:
//   - Unformatted: no 0x55 0xaa signature at offset 510
//   - FAT: signature present and "FAT32   " at offset 82 or "FAT" at offset 54
//   - MBR: signature present and not a FAT boot sector
//
// A FAT boot sector is checked first because it carries the same signature.
func DetectMediaFormat(r io.ReaderAt) (MediaInfo, error) {
	sector := make([]byte, sectorSize)
	if _, err := r.ReadAt(sector, 0); err != nil {
		return MediaInfo{}, fmt.Errorf("device too small for boot sector (< %d bytes): %w", sectorSize, err)
	}

	if !bytes.Equal(sector[bootSignatureOffset:bootSignatureOffset+2], bootSignature) {
		return MediaInfo{Format: MediaFormatUnformatted}, nil
	}

	if bytes.Equal(sector[82:82+len(fat32Type)], fat32Type) || bytes.Equal(sector[54:54+len(fatType)], fatType) {
		return MediaInfo{Format: MediaFormatFAT}, nil
	}

	info := MediaInfo{Format: MediaFormatMBR}
	for i := range info.PartitionTypes {
		info.PartitionTypes[i] = sector[mbrEntriesOffset+i*mbrEntrySize+mbrEntryTypeOffset]
	}
	return info, nil
}

// DetectMediaFormatFile opens filePath and runs DetectMediaFormat on it.
func DetectMediaFormatFile(filePath string) (MediaInfo, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DetectMediaFormat(f)
}
