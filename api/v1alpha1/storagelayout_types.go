package v1alpha1

// StorageLayout describes how a device's block storage is laid out and
// brought up: the partition topology, the filesystem mount points, and the
// development-only credential seeding that follows storage bring-up.
//
// Spec is the desired layout. Status is filled in by bedrock after Init.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=sl
// +kubebuilder:printcolumn:name="Topology",type=string,JSONPath=`.spec.topology`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
type StorageLayout struct {
	TypeMeta `json:",inline" yaml:",inline"`

	// +optional
	ObjectMeta `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Spec defines the desired layout.
	Spec StorageLayoutSpec `json:"spec" yaml:"spec"`

	// Status is the observed state after the last bring-up.
	// +optional
	Status StorageLayoutStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// Topology values for StorageLayoutSpec.Topology.
const (
	TopologyNone   = "none"
	TopologySingle = "single"
	TopologyDual   = "dual"
)

// StorageLayoutSpec defines the desired storage layout.
type StorageLayoutSpec struct {
	// Topology is the partition topology: "none" (whole device, one
	// filesystem), "single" (one MBR partition) or "dual" (two).
	// Defaults to "dual".
	// +optional
	// +kubebuilder:validation:Enum=none;single;dual
	Topology string `json:"topology,omitempty" yaml:"topology,omitempty"`

	// AutoPartition re-creates the partition table and filesystems when
	// mounting fails. Only valid for partitioned topologies.
	// Defaults to true.
	// +optional
	AutoPartition *bool `json:"autoPartition,omitempty" yaml:"autoPartition,omitempty"`

	// MountPoint is the filesystem mount point for topology "none".
	// Defaults to "/fs1".
	// +optional
	MountPoint string `json:"mountPoint,omitempty" yaml:"mountPoint,omitempty"`

	// Partitions defines the partitions for partitioned topologies.
	// Omitted partitions take the built-in defaults.
	// +optional
	// +kubebuilder:validation:MaxItems=2
	Partitions []PartitionSpec `json:"partitions,omitempty" yaml:"partitions,omitempty"`

	// Developer configures development credential seeding.
	// +optional
	Developer *DeveloperSpec `json:"developer,omitempty" yaml:"developer,omitempty"`
}

// PartitionSpec defines one MBR partition.
type PartitionSpec struct {
	// Number is the MBR partition number (1 or 2).
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=2
	Number int `json:"number" yaml:"number"`

	// Start is the partition start offset in bytes.
	// +optional
	Start ByteSize `json:"start" yaml:"start"`

	// Size is the partition size in bytes.
	Size ByteSize `json:"size" yaml:"size"`

	// MountPoint is where the partition's filesystem is mounted.
	MountPoint string `json:"mountPoint" yaml:"mountPoint"`
}

// DeveloperSpec configures development-only credential seeding.
type DeveloperSpec struct {
	// Enabled turns on seeding after storage bring-up. Only honored by
	// binaries built with the devmode tag.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// HardwareEntropy skips entropy seeding for devices with a hardware
	// entropy source.
	// +optional
	HardwareEntropy bool `json:"hardwareEntropy,omitempty" yaml:"hardwareEntropy,omitempty"`

	// SeedImage is the path of the seed ISO carrying the credentials.
	// +optional
	SeedImage string `json:"seedImage,omitempty" yaml:"seedImage,omitempty"`
}

// StorageLayoutStatus is the observed state of a StorageLayout.
type StorageLayoutStatus struct {
	// Phase is the bring-up lifecycle phase.
	// +optional
	Phase LayoutPhase `json:"phase,omitempty" yaml:"phase,omitempty"`

	// Conditions are the latest observations of the layout's state.
	// +optional
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// CapacityBytes is the device capacity captured at Init.
	// +optional
	CapacityBytes uint64 `json:"capacityBytes,omitempty" yaml:"capacityBytes,omitempty"`

	// Partitions reports each brought-up filesystem.
	// +optional
	Partitions []PartitionStatus `json:"partitions,omitempty" yaml:"partitions,omitempty"`

	// ObservedGeneration is the metadata.generation last brought up.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`
}

// PartitionStatus is the observed state of one filesystem.
type PartitionStatus struct {
	// Number is the MBR partition number, 0 for the whole device.
	Number int `json:"number" yaml:"number"`

	// Start and Size are the byte range on the device.
	Start ByteSize `json:"start" yaml:"start"`
	Size  ByteSize `json:"size" yaml:"size"`

	MountPoint string `json:"mountPoint" yaml:"mountPoint"`
	Mounted    bool   `json:"mounted" yaml:"mounted"`

	// Reformats counts the reformats performed during the last bring-up.
	// +optional
	Reformats int `json:"reformats,omitempty" yaml:"reformats,omitempty"`
}

// LayoutPhase is a simple, high-level summary of where the layout is in its
// bring-up lifecycle.
type LayoutPhase string

const (
	// LayoutPhasePending means the layout has not been brought up yet.
	LayoutPhasePending LayoutPhase = "Pending"

	// LayoutPhaseInitializing means bring-up is in progress.
	LayoutPhaseInitializing LayoutPhase = "Initializing"

	// LayoutPhaseReady means every filesystem is mounted.
	LayoutPhaseReady LayoutPhase = "Ready"

	// LayoutPhaseFailed means bring-up failed. See conditions for details.
	LayoutPhaseFailed LayoutPhase = "Failed"
)

// Condition types for StorageLayout.
const (
	// ConditionReady is True when the whole bring-up succeeded.
	ConditionReady = "Ready"

	// ConditionDeviceReady is True when the block device initialized.
	ConditionDeviceReady = "DeviceReady"

	// ConditionPartitionsMounted is True when every filesystem is mounted.
	ConditionPartitionsMounted = "PartitionsMounted"

	// ConditionCredentialsSeeded is True when development credentials were
	// seeded. Absent when developer mode is disabled.
	ConditionCredentialsSeeded = "CredentialsSeeded"
)

// DeepCopy returns a deep copy of the StorageLayout.
func (in *StorageLayout) DeepCopy() *StorageLayout {
	if in == nil {
		return nil
	}
	out := new(StorageLayout)
	out.TypeMeta = in.TypeMeta
	out.ObjectMeta = *in.ObjectMeta.DeepCopy()
	out.Spec = *in.Spec.DeepCopy()
	out.Status = *in.Status.DeepCopy()
	return out
}

// DeepCopy returns a deep copy of the StorageLayoutSpec.
func (in *StorageLayoutSpec) DeepCopy() *StorageLayoutSpec {
	if in == nil {
		return nil
	}
	out := *in
	if in.AutoPartition != nil {
		v := *in.AutoPartition
		out.AutoPartition = &v
	}
	if in.Partitions != nil {
		out.Partitions = make([]PartitionSpec, len(in.Partitions))
		copy(out.Partitions, in.Partitions)
	}
	if in.Developer != nil {
		d := *in.Developer
		out.Developer = &d
	}
	return &out
}

// DeepCopy returns a deep copy of the StorageLayoutStatus.
func (in *StorageLayoutStatus) DeepCopy() *StorageLayoutStatus {
	if in == nil {
		return nil
	}
	out := *in
	if in.Conditions != nil {
		out.Conditions = make([]Condition, len(in.Conditions))
		copy(out.Conditions, in.Conditions)
	}
	if in.Partitions != nil {
		out.Partitions = make([]PartitionStatus, len(in.Partitions))
		copy(out.Partitions, in.Partitions)
	}
	return &out
}
