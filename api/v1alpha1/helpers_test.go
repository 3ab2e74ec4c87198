package v1alpha1

import (
	"testing"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

func TestNewStorageLayout(t *testing.T) {
	sl := NewStorageLayout("board")

	if sl.APIVersion != "bedrock.cofront.xyz/v1alpha1" {
		t.Errorf("Expected apiVersion bedrock.cofront.xyz/v1alpha1, got %s", sl.APIVersion)
	}
	if sl.Kind != StorageLayoutKind {
		t.Errorf("Expected kind %s, got %s", StorageLayoutKind, sl.Kind)
	}
	if sl.Name != "board" {
		t.Errorf("Expected name board, got %s", sl.Name)
	}
	if _, err := uuid.Parse(sl.UID); err != nil {
		t.Errorf("Expected UID to be a UUID, got %q", sl.UID)
	}
	if sl.CreationTimestamp.IsZero() {
		t.Error("Expected CreationTimestamp to be set")
	}
	if sl.Generation != 1 {
		t.Errorf("Expected generation 1, got %d", sl.Generation)
	}
	if sl.GetTopology() != TopologyDual {
		t.Errorf("Expected topology dual, got %s", sl.GetTopology())
	}
	if !sl.IsAutoPartition() {
		t.Error("Expected auto partitioning by default")
	}
	if sl.GetPhase() != LayoutPhasePending {
		t.Errorf("Expected phase Pending, got %s", sl.GetPhase())
	}
}

func TestSetDefaultAPIVersion(t *testing.T) {
	sl := &StorageLayout{}
	SetDefaultAPIVersion(sl)
	if sl.APIVersion != APIVersion() || sl.Kind != StorageLayoutKind {
		t.Errorf("defaults not applied: %+v", sl.TypeMeta)
	}

	sl = &StorageLayout{TypeMeta: TypeMeta{APIVersion: "other/v1", Kind: "Other"}}
	SetDefaultAPIVersion(sl)
	if sl.APIVersion != "other/v1" || sl.Kind != "Other" {
		t.Error("SetDefaultAPIVersion overwrote existing values")
	}
}

func TestIsAutoPartition(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name     string
		topology string
		value    *bool
		want     bool
	}{
		{"nil defaults to true for dual", TopologyDual, nil, true},
		{"nil defaults to true for empty topology", "", nil, true},
		{"nil defaults to false for none", TopologyNone, nil, false},
		{"explicit false", TopologySingle, &no, false},
		{"explicit true", TopologySingle, &yes, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl := &StorageLayout{Spec: StorageLayoutSpec{Topology: tt.topology, AutoPartition: tt.value}}
			if got := sl.IsAutoPartition(); got != tt.want {
				t.Errorf("IsAutoPartition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeveloperHelpers(t *testing.T) {
	sl := &StorageLayout{}
	if sl.IsDeveloperMode() {
		t.Error("Expected developer mode off without a developer block")
	}
	if sl.GetSeedImage() != "" {
		t.Error("Expected empty seed image without a developer block")
	}

	sl.Spec.Developer = &DeveloperSpec{Enabled: true, SeedImage: "/boot/seed.iso"}
	if !sl.IsDeveloperMode() {
		t.Error("Expected developer mode on")
	}
	if sl.GetSeedImage() != "/boot/seed.iso" {
		t.Errorf("Expected seed image /boot/seed.iso, got %s", sl.GetSeedImage())
	}
}

func TestGetMountPoint(t *testing.T) {
	sl := &StorageLayout{}
	if sl.GetMountPoint() != "/fs1" {
		t.Errorf("Expected default mount point /fs1, got %s", sl.GetMountPoint())
	}
	sl.Spec.MountPoint = "/data"
	if sl.GetMountPoint() != "/data" {
		t.Errorf("Expected /data, got %s", sl.GetMountPoint())
	}
}

func TestNormalize(t *testing.T) {
	sl := &StorageLayout{
		ObjectMeta: ObjectMeta{Name: "  Board-A "},
		Spec: StorageLayoutSpec{
			Topology:   " Dual ",
			MountPoint: "fs1/",
			Partitions: []PartitionSpec{
				{Number: 1, MountPoint: " /fs1/ "},
				{Number: 2, MountPoint: "fs2"},
			},
			Developer: &DeveloperSpec{SeedImage: " seed.iso "},
		},
	}

	sl.Normalize()

	if sl.Name != "board-a" {
		t.Errorf("Expected name board-a, got %q", sl.Name)
	}
	if sl.Spec.Topology != "dual" {
		t.Errorf("Expected topology dual, got %q", sl.Spec.Topology)
	}
	if sl.Spec.MountPoint != "/fs1" {
		t.Errorf("Expected mount point /fs1, got %q", sl.Spec.MountPoint)
	}
	if sl.Spec.Partitions[0].MountPoint != "/fs1" || sl.Spec.Partitions[1].MountPoint != "/fs2" {
		t.Errorf("partition mount points not normalized: %+v", sl.Spec.Partitions)
	}
	if sl.Spec.Developer.SeedImage != "seed.iso" {
		t.Errorf("Expected seed image trimmed, got %q", sl.Spec.Developer.SeedImage)
	}
}

func TestNormalizeMountPoint(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"/":       "/",
		"/fs1":    "/fs1",
		"fs1":     "/fs1",
		"/fs1///": "/fs1",
	}
	for in, want := range tests {
		if got := normalizeMountPoint(in); got != want {
			t.Errorf("normalizeMountPoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStorageLayout_DeepCopy(t *testing.T) {
	sl := NewStorageLayout("board")
	sl.Labels = map[string]string{"a": "b"}
	sl.Spec.Partitions = []PartitionSpec{{Number: 1, Size: GiB, MountPoint: "/fs1"}}
	sl.Spec.Developer = &DeveloperSpec{Enabled: true}
	sl.Status.Conditions = []Condition{{Type: ConditionReady, Status: ConditionTrue}}
	sl.Status.Partitions = []PartitionStatus{{Number: 1, Mounted: true}}

	cp := sl.DeepCopy()
	*cp.Spec.AutoPartition = false
	cp.Spec.Partitions[0].Size = MiB
	cp.Spec.Developer.Enabled = false
	cp.Status.Conditions[0].Status = ConditionFalse
	cp.Status.Partitions[0].Mounted = false
	cp.Labels["a"] = "c"

	if !*sl.Spec.AutoPartition {
		t.Error("DeepCopy shares AutoPartition")
	}
	if sl.Spec.Partitions[0].Size != GiB {
		t.Error("DeepCopy shares Partitions")
	}
	if !sl.Spec.Developer.Enabled {
		t.Error("DeepCopy shares Developer")
	}
	if sl.Status.Conditions[0].Status != ConditionTrue {
		t.Error("DeepCopy shares Conditions")
	}
	if !sl.Status.Partitions[0].Mounted {
		t.Error("DeepCopy shares status Partitions")
	}
	if sl.Labels["a"] != "b" {
		t.Error("DeepCopy shares Labels")
	}

	var nilLayout *StorageLayout
	if nilLayout.DeepCopy() != nil {
		t.Error("DeepCopy of nil should be nil")
	}
}

func TestStorageLayout_YAMLRoundTrip(t *testing.T) {
	input := `apiVersion: bedrock.cofront.xyz/v1alpha1
kind: StorageLayout
metadata:
  name: k64f
spec:
  topology: dual
  autoPartition: false
  partitions:
    - number: 1
      start: 0
      size: 1GiB
      mountPoint: /fs1
    - number: 2
      start: 1GiB
      size: 512MiB
      mountPoint: /fs2
  developer:
    enabled: true
    hardwareEntropy: true
`
	var sl StorageLayout
	if err := yaml.Unmarshal([]byte(input), &sl); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if sl.Name != "k64f" || sl.Kind != StorageLayoutKind {
		t.Errorf("metadata not decoded: %+v %+v", sl.ObjectMeta, sl.TypeMeta)
	}
	if sl.IsAutoPartition() {
		t.Error("Expected autoPartition false")
	}
	if len(sl.Spec.Partitions) != 2 {
		t.Fatalf("Expected 2 partitions, got %d", len(sl.Spec.Partitions))
	}
	if sl.Spec.Partitions[1].Start != GiB || sl.Spec.Partitions[1].Size != 512*MiB {
		t.Errorf("partition 2 sizes = %d/%d", sl.Spec.Partitions[1].Start, sl.Spec.Partitions[1].Size)
	}
	if !sl.Spec.Developer.HardwareEntropy {
		t.Error("Expected hardwareEntropy true")
	}

	out, err := yaml.Marshal(&sl)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back StorageLayout
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-Unmarshal() error = %v", err)
	}
	if back.Spec.Partitions[1].Size != 512*MiB {
		t.Errorf("round trip lost size: %d", back.Spec.Partitions[1].Size)
	}
}
