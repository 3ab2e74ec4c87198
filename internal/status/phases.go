package status

import (
	"fmt"

	"github.com/jbweber/bedrock/api/v1alpha1"
)

// TransitionToInitializing moves the layout to Initializing.
// Allowed from Pending, Ready (re-init) and Failed (retry).
func TransitionToInitializing(sl *v1alpha1.StorageLayout) error {
	if sl.GetPhase() == v1alpha1.LayoutPhaseInitializing {
		return fmt.Errorf("cannot transition to Initializing from phase %s", sl.GetPhase())
	}

	sl.SetPhase(v1alpha1.LayoutPhaseInitializing)
	SetCondition(sl, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, "Initializing", "Storage bring-up in progress")
	return nil
}

// TransitionToReady moves the layout to Ready once bring-up completes.
func TransitionToReady(sl *v1alpha1.StorageLayout) error {
	if sl.GetPhase() != v1alpha1.LayoutPhaseInitializing {
		return fmt.Errorf("cannot transition to Ready from phase %s", sl.GetPhase())
	}

	sl.SetPhase(v1alpha1.LayoutPhaseReady)
	SetCondition(sl, v1alpha1.ConditionReady, v1alpha1.ConditionTrue, "StorageReady", "Storage is mounted and ready")
	sl.UpdateObservedGeneration()
	return nil
}

// TransitionToFailed moves the layout to Failed. Allowed from any phase.
func TransitionToFailed(sl *v1alpha1.StorageLayout, reason, message string) {
	sl.SetPhase(v1alpha1.LayoutPhaseFailed)
	SetCondition(sl, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, reason, message)
	sl.UpdateObservedGeneration()
}

// IsTerminal reports whether bring-up has finished, successfully or not.
func IsTerminal(phase v1alpha1.LayoutPhase) bool {
	return phase == v1alpha1.LayoutPhaseReady || phase == v1alpha1.LayoutPhaseFailed
}

// IsReady reports whether the layout is ready.
func IsReady(phase v1alpha1.LayoutPhase) bool {
	return phase == v1alpha1.LayoutPhaseReady
}
