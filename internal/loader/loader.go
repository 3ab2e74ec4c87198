// Package loader loads StorageLayout resources from YAML files and resolves
// them into the storage configuration used by the storage manager.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/config"
)

// FilePermissions are the permissions for layout files written by SaveToFile.
const FilePermissions = 0644

// LoadFromFile loads a StorageLayout resource from a YAML file.
// The file must be in the bedrock.cofront.xyz/v1alpha1 format.
func LoadFromFile(path string) (*v1alpha1.StorageLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return LoadFromYAML(data)
}

// LoadFromYAML loads a StorageLayout resource from YAML bytes.
// Defaults are applied and the result is validated.
func LoadFromYAML(data []byte) (*v1alpha1.StorageLayout, error) {
	var sl v1alpha1.StorageLayout
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if sl.APIVersion == "" {
		return nil, fmt.Errorf("missing required field: apiVersion")
	}
	if sl.Kind == "" {
		return nil, fmt.Errorf("missing required field: kind")
	}
	if sl.APIVersion != v1alpha1.APIVersion() {
		return nil, fmt.Errorf("unsupported apiVersion: %s (expected: %s)", sl.APIVersion, v1alpha1.APIVersion())
	}
	if sl.Kind != v1alpha1.StorageLayoutKind {
		return nil, fmt.Errorf("unsupported kind: %s (expected: %s)", sl.Kind, v1alpha1.StorageLayoutKind)
	}

	applyDefaults(&sl)

	if err := validateSpec(&sl); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &sl, nil
}

// SaveToFile writes a StorageLayout resource to a YAML file.
func SaveToFile(sl *v1alpha1.StorageLayout, path string) error {
	v1alpha1.SetDefaultAPIVersion(sl)

	data, err := yaml.Marshal(sl)
	if err != nil {
		return fmt.Errorf("failed to marshal layout to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, FilePermissions); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// ToConfig resolves a loaded layout into a storage configuration.
//
// For partitioned topologies, partitions are merged by number onto the
// built-in defaults: a partition the layout omits, or a field it leaves
// empty, takes the default value. The result is normalized and validated.
func ToConfig(sl *v1alpha1.StorageLayout) (*config.Storage, error) {
	cfg := &config.Storage{
		Topology:      config.Topology(sl.GetTopology()),
		AutoPartition: sl.IsAutoPartition(),
	}

	if sl.Spec.Developer != nil {
		cfg.Developer = config.Developer{
			Enabled:         sl.Spec.Developer.Enabled,
			HardwareEntropy: sl.Spec.Developer.HardwareEntropy,
		}
	}

	if cfg.Topology == config.TopologyNone {
		cfg.Partitions = []config.Partition{{MountPoint: sl.GetMountPoint()}}
	} else {
		cfg.Partitions = mergePartitions(config.DefaultPartitions(cfg.Topology), sl.Spec.Partitions)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage layout %s: %w", sl.Name, err)
	}

	return cfg, nil
}

// FromConfig builds a StorageLayout resource describing cfg.
func FromConfig(name string, cfg *config.Storage) *v1alpha1.StorageLayout {
	sl := v1alpha1.NewStorageLayout(name)
	sl.Spec.Topology = string(cfg.Topology)
	autoPartition := cfg.AutoPartition
	sl.Spec.AutoPartition = &autoPartition

	if cfg.Partitioned() {
		for _, p := range cfg.Partitions {
			sl.Spec.Partitions = append(sl.Spec.Partitions, v1alpha1.PartitionSpec{
				Number:     p.Number,
				Start:      v1alpha1.ByteSize(p.Start),
				Size:       v1alpha1.ByteSize(p.Size),
				MountPoint: p.MountPoint,
			})
		}
	} else if len(cfg.Partitions) > 0 {
		sl.Spec.MountPoint = cfg.Partitions[0].MountPoint
	}

	if cfg.Developer.Enabled || cfg.Developer.HardwareEntropy {
		sl.Spec.Developer = &v1alpha1.DeveloperSpec{
			Enabled:         cfg.Developer.Enabled,
			HardwareEntropy: cfg.Developer.HardwareEntropy,
		}
	}

	return sl
}

func mergePartitions(defaults []config.Partition, specs []v1alpha1.PartitionSpec) []config.Partition {
	out := make([]config.Partition, len(defaults))
	copy(out, defaults)

	for _, ps := range specs {
		idx := -1
		for i := range out {
			if out[i].Number == ps.Number {
				idx = i
				break
			}
		}
		if idx < 0 {
			out = append(out, config.Partition{Number: ps.Number})
			idx = len(out) - 1
		}

		p := &out[idx]
		if ps.Start != 0 {
			p.Start = ps.Start.Bytes()
		}
		if ps.Size != 0 {
			p.Size = ps.Size.Bytes()
		}
		if ps.MountPoint != "" {
			p.MountPoint = ps.MountPoint
		}
	}

	return out
}

// applyDefaults sets default values for optional fields.
func applyDefaults(sl *v1alpha1.StorageLayout) {
	sl.Normalize()

	if sl.Spec.Topology == "" {
		sl.Spec.Topology = v1alpha1.TopologyDual
	}
	if sl.Spec.AutoPartition == nil {
		autoPartition := sl.Spec.Topology != v1alpha1.TopologyNone
		sl.Spec.AutoPartition = &autoPartition
	}
	if sl.Status.Phase == "" {
		sl.Status.Phase = v1alpha1.LayoutPhasePending
	}
}

// validateSpec checks the layout for required fields and consistency.
// Cross-partition rules are enforced by config.Storage.Validate via ToConfig.
func validateSpec(sl *v1alpha1.StorageLayout) error {
	if sl.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}

	switch sl.Spec.Topology {
	case v1alpha1.TopologyNone, v1alpha1.TopologySingle, v1alpha1.TopologyDual:
	default:
		return fmt.Errorf("spec.topology must be one of none, single, dual; got %q", sl.Spec.Topology)
	}

	if sl.Spec.Topology == v1alpha1.TopologyNone {
		if len(sl.Spec.Partitions) > 0 {
			return fmt.Errorf("spec.partitions must be empty for topology none")
		}
		if *sl.Spec.AutoPartition {
			return fmt.Errorf("spec.autoPartition requires a partitioned topology")
		}
	} else if sl.Spec.MountPoint != "" {
		return fmt.Errorf("spec.mountPoint is only valid for topology none; set spec.partitions[].mountPoint instead")
	}

	if len(sl.Spec.Partitions) > config.MaxPartitions {
		return fmt.Errorf("spec.partitions: %w: at most %d, got %d", config.ErrTooManyPartitions, config.MaxPartitions, len(sl.Spec.Partitions))
	}

	seen := make(map[int]bool)
	for i, p := range sl.Spec.Partitions {
		if p.Number < 1 || p.Number > config.MaxPartitions {
			return fmt.Errorf("spec.partitions[%d].number must be 1 or 2, got %d", i, p.Number)
		}
		if seen[p.Number] {
			return fmt.Errorf("spec.partitions[%d].number %d is duplicated", i, p.Number)
		}
		seen[p.Number] = true
	}

	if _, err := ToConfig(sl); err != nil {
		return err
	}

	return nil
}
