// Package status manages StorageLayout status fields: conditions, phase
// transitions and the per-partition report filled in after bring-up.
package status

import (
	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/storage"
)

// SetCondition adds or updates a condition in the layout status.
// LastTransitionTime only moves when the condition's status changes.
func SetCondition(sl *v1alpha1.StorageLayout, condType string, status v1alpha1.ConditionStatus, reason, message string) {
	now := v1alpha1.Now()

	for i := range sl.Status.Conditions {
		existing := &sl.Status.Conditions[i]
		if existing.Type != condType {
			continue
		}
		if existing.Status != status {
			existing.LastTransitionTime = now
		}
		existing.Status = status
		existing.Reason = reason
		existing.Message = message
		existing.ObservedGeneration = sl.Generation
		return
	}

	sl.Status.Conditions = append(sl.Status.Conditions, v1alpha1.Condition{
		Type:               condType,
		Status:             status,
		ObservedGeneration: sl.Generation,
		LastTransitionTime: now,
		Reason:             reason,
		Message:            message,
	})
}

// GetCondition returns a condition by type, or nil if not found.
func GetCondition(sl *v1alpha1.StorageLayout, condType string) *v1alpha1.Condition {
	for i := range sl.Status.Conditions {
		if sl.Status.Conditions[i].Type == condType {
			return &sl.Status.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func IsConditionTrue(sl *v1alpha1.StorageLayout, condType string) bool {
	cond := GetCondition(sl, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionTrue
}

// IsConditionFalse returns true if the condition exists and has status False.
func IsConditionFalse(sl *v1alpha1.StorageLayout, condType string) bool {
	cond := GetCondition(sl, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionFalse
}

// RemoveCondition removes a condition by type.
func RemoveCondition(sl *v1alpha1.StorageLayout, condType string) {
	filtered := sl.Status.Conditions[:0]
	for _, c := range sl.Status.Conditions {
		if c.Type != condType {
			filtered = append(filtered, c)
		}
	}
	sl.Status.Conditions = filtered
}

// MarkDeviceReady marks the block device as initialized.
func MarkDeviceReady(sl *v1alpha1.StorageLayout) {
	SetCondition(sl, v1alpha1.ConditionDeviceReady, v1alpha1.ConditionTrue, "DeviceInitialized", "Block device initialized")
}

// MarkDeviceFailed marks the block device as failed and fails the layout.
func MarkDeviceFailed(sl *v1alpha1.StorageLayout, err error) {
	SetCondition(sl, v1alpha1.ConditionDeviceReady, v1alpha1.ConditionFalse, "DeviceInitFailed", err.Error())
	TransitionToFailed(sl, "DeviceInitFailed", err.Error())
}

// MarkPartitionsMounted marks every filesystem as mounted.
func MarkPartitionsMounted(sl *v1alpha1.StorageLayout) {
	SetCondition(sl, v1alpha1.ConditionPartitionsMounted, v1alpha1.ConditionTrue, "Mounted", "All filesystems mounted")
}

// MarkMountFailed marks filesystem bring-up as failed and fails the layout.
func MarkMountFailed(sl *v1alpha1.StorageLayout, err error) {
	SetCondition(sl, v1alpha1.ConditionPartitionsMounted, v1alpha1.ConditionFalse, "MountFailed", err.Error())
	TransitionToFailed(sl, "MountFailed", err.Error())
}

// MarkCredentialsSeeded marks development credentials as seeded.
func MarkCredentialsSeeded(sl *v1alpha1.StorageLayout) {
	SetCondition(sl, v1alpha1.ConditionCredentialsSeeded, v1alpha1.ConditionTrue, "Seeded", "Development credentials seeded")
}

// MarkSeedFailed marks credential seeding as failed and fails the layout.
func MarkSeedFailed(sl *v1alpha1.StorageLayout, err error) {
	SetCondition(sl, v1alpha1.ConditionCredentialsSeeded, v1alpha1.ConditionFalse, "SeedFailed", err.Error())
	TransitionToFailed(sl, "SeedFailed", err.Error())
}

// ApplyPartitions records the device capacity and partition snapshot
// reported by the storage manager.
func ApplyPartitions(sl *v1alpha1.StorageLayout, capacity uint64, parts []storage.PartitionStatus) {
	sl.Status.CapacityBytes = capacity
	sl.Status.Partitions = make([]v1alpha1.PartitionStatus, 0, len(parts))
	for _, p := range parts {
		sl.Status.Partitions = append(sl.Status.Partitions, v1alpha1.PartitionStatus{
			Number:     p.Number,
			Start:      v1alpha1.ByteSize(p.Start),
			Size:       v1alpha1.ByteSize(p.Size),
			MountPoint: p.MountPoint,
			Mounted:    p.Mounted,
			Reformats:  p.Reformats,
		})
	}
}
