package v1alpha1

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// GroupName is the API group for bedrock resources.
	GroupName = "bedrock.cofront.xyz"

	// Version is the API version.
	Version = "v1alpha1"

	// StorageLayoutKind is the kind string for StorageLayout resources.
	StorageLayoutKind = "StorageLayout"

	// DefaultMountPoint is the mount point of the first filesystem.
	DefaultMountPoint = "/fs1"
)

// APIVersion returns "<group>/<version>".
func APIVersion() string {
	return GroupName + "/" + Version
}

// NewStorageLayout creates a StorageLayout with metadata defaults and the
// default dual-partition topology.
func NewStorageLayout(name string) *StorageLayout {
	autoPartition := true

	return &StorageLayout{
		TypeMeta: TypeMeta{
			APIVersion: APIVersion(),
			Kind:       StorageLayoutKind,
		},
		ObjectMeta: ObjectMeta{
			Name:              name,
			UID:               uuid.New().String(),
			CreationTimestamp: Now(),
			Generation:        1,
		},
		Spec: StorageLayoutSpec{
			Topology:      TopologyDual,
			AutoPartition: &autoPartition,
		},
		Status: StorageLayoutStatus{
			Phase: LayoutPhasePending,
		},
	}
}

// SetDefaultAPIVersion fills in apiVersion and kind when missing.
func SetDefaultAPIVersion(sl *StorageLayout) {
	if sl.APIVersion == "" {
		sl.APIVersion = APIVersion()
	}
	if sl.Kind == "" {
		sl.Kind = StorageLayoutKind
	}
}

// GetTopology returns the topology with default fallback.
func (sl *StorageLayout) GetTopology() string {
	if sl.Spec.Topology == "" {
		return TopologyDual
	}
	return sl.Spec.Topology
}

// IsAutoPartition reports whether auto partitioning is on.
// A nil value defaults to true for partitioned topologies.
func (sl *StorageLayout) IsAutoPartition() bool {
	if sl.Spec.AutoPartition == nil {
		return sl.GetTopology() != TopologyNone
	}
	return *sl.Spec.AutoPartition
}

// GetMountPoint returns the whole-device mount point with default fallback.
func (sl *StorageLayout) GetMountPoint() string {
	if sl.Spec.MountPoint == "" {
		return DefaultMountPoint
	}
	return sl.Spec.MountPoint
}

// IsDeveloperMode reports whether credential seeding is requested.
func (sl *StorageLayout) IsDeveloperMode() bool {
	return sl.Spec.Developer != nil && sl.Spec.Developer.Enabled
}

// GetSeedImage returns the seed image path, or "" if none is set.
func (sl *StorageLayout) GetSeedImage() string {
	if sl.Spec.Developer == nil {
		return ""
	}
	return sl.Spec.Developer.SeedImage
}

// SetPhase sets the status phase.
func (sl *StorageLayout) SetPhase(phase LayoutPhase) {
	sl.Status.Phase = phase
}

// GetPhase returns the status phase.
func (sl *StorageLayout) GetPhase() LayoutPhase {
	return sl.Status.Phase
}

// UpdateObservedGeneration copies metadata.generation to status.
func (sl *StorageLayout) UpdateObservedGeneration() {
	sl.Status.ObservedGeneration = sl.Generation
}

// Normalize trims and lowercases user input. Called before validation.
func (sl *StorageLayout) Normalize() {
	sl.Name = strings.ToLower(strings.TrimSpace(sl.Name))
	sl.Spec.Topology = strings.ToLower(strings.TrimSpace(sl.Spec.Topology))
	sl.Spec.MountPoint = normalizeMountPoint(sl.Spec.MountPoint)

	for i := range sl.Spec.Partitions {
		sl.Spec.Partitions[i].MountPoint = normalizeMountPoint(sl.Spec.Partitions[i].MountPoint)
	}

	if sl.Spec.Developer != nil {
		sl.Spec.Developer.SeedImage = strings.TrimSpace(sl.Spec.Developer.SeedImage)
	}
}

// normalizeMountPoint trims whitespace and trailing slashes and makes the
// path absolute. An empty value stays empty.
func normalizeMountPoint(mp string) string {
	mp = strings.TrimSpace(mp)
	if mp == "" {
		return ""
	}
	mp = strings.TrimRight(mp, "/")
	if !strings.HasPrefix(mp, "/") {
		mp = "/" + mp
	}
	return mp
}
