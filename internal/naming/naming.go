// Package naming provides the naming conventions shared by storage and
// provisioning: filesystem mount names, FAT volume labels, partition device
// paths and provisioning item file names.
//
// These naming rules are version-independent and shared across all
// API versions.
package naming

import (
	"fmt"
	"strings"
)

// maxVolumeLabel is the length of a FAT volume label field.
const maxVolumeLabel = 11

// MountName returns the filesystem name for a mount point, which is the mount
// point without its leading and trailing slashes.
//
// Example: "/fs1" → "fs1"
func MountName(mountPoint string) string {
	return strings.Trim(mountPoint, "/")
}

// VolumeLabel returns the FAT volume label for a mount point.
// Labels are uppercase, at most 11 characters, and contain only A-Z, 0-9,
// '_' and '-'. Other characters are replaced by '_'.
//
// Example: "/fs1" → "FS1", "/data/logs" → "DATA_LOGS"
func VolumeLabel(mountPoint string) string {
	name := strings.ToUpper(MountName(mountPoint))
	if name == "" {
		return "NO NAME"
	}

	var b strings.Builder
	for _, r := range name {
		if b.Len() == maxVolumeLabel {
			break
		}
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// PartitionDevicePath returns the display path of partition number on the
// device at devicePath. A 'p' separator is inserted when the device path ends
// in a digit, as Linux does for mmcblk and loop devices.
//
// Example: ("/dev/mmcblk0", 1) → "/dev/mmcblk0p1", ("sd.img", 2) → "sd.img2"
func PartitionDevicePath(devicePath string, number int) string {
	if devicePath == "" {
		return fmt.Sprintf("part%d", number)
	}
	last := devicePath[len(devicePath)-1]
	if last >= '0' && last <= '9' {
		return fmt.Sprintf("%sp%d", devicePath, number)
	}
	return fmt.Sprintf("%s%d", devicePath, number)
}

// ItemBlobName returns the file name holding a provisioning item's bytes.
// Format: {kind}.bin (e.g., "entropy.bin")
func ItemBlobName(kind string) string {
	return fmt.Sprintf("%s.bin", kind)
}

// ItemRecordName returns the file name holding a provisioning item's record.
// Format: {kind}.yaml (e.g., "root-of-trust.yaml")
func ItemRecordName(kind string) string {
	return fmt.Sprintf("%s.yaml", kind)
}
