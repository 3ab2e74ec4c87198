package status

import (
	"testing"

	"github.com/jbweber/bedrock/api/v1alpha1"
)

func TestTransitionToInitializing(t *testing.T) {
	tests := []struct {
		name      string
		phase     v1alpha1.LayoutPhase
		wantError bool
	}{
		{name: "from Pending", phase: v1alpha1.LayoutPhasePending},
		{name: "from Ready", phase: v1alpha1.LayoutPhaseReady},
		{name: "from Failed", phase: v1alpha1.LayoutPhaseFailed},
		{name: "from Initializing", phase: v1alpha1.LayoutPhaseInitializing, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl := v1alpha1.NewStorageLayout("board")
			sl.SetPhase(tt.phase)

			err := TransitionToInitializing(sl)

			if tt.wantError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				if sl.GetPhase() != tt.phase {
					t.Errorf("Phase should not change on error, got %s", sl.GetPhase())
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if sl.GetPhase() != v1alpha1.LayoutPhaseInitializing {
				t.Errorf("Expected phase Initializing, got %s", sl.GetPhase())
			}
			cond := GetCondition(sl, v1alpha1.ConditionReady)
			if cond == nil || cond.Status != v1alpha1.ConditionFalse || cond.Reason != "Initializing" {
				t.Errorf("Unexpected Ready condition %+v", cond)
			}
		})
	}
}

func TestTransitionToReady(t *testing.T) {
	tests := []struct {
		name      string
		phase     v1alpha1.LayoutPhase
		wantError bool
	}{
		{name: "from Initializing", phase: v1alpha1.LayoutPhaseInitializing},
		{name: "from Pending", phase: v1alpha1.LayoutPhasePending, wantError: true},
		{name: "from Failed", phase: v1alpha1.LayoutPhaseFailed, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl := v1alpha1.NewStorageLayout("board")
			sl.Generation = 7
			sl.SetPhase(tt.phase)

			err := TransitionToReady(sl)

			if tt.wantError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if sl.GetPhase() != v1alpha1.LayoutPhaseReady {
				t.Errorf("Expected phase Ready, got %s", sl.GetPhase())
			}
			if !IsConditionTrue(sl, v1alpha1.ConditionReady) {
				t.Error("Expected Ready condition true")
			}
			if sl.Status.ObservedGeneration != 7 {
				t.Errorf("Expected observedGeneration 7, got %d", sl.Status.ObservedGeneration)
			}
		})
	}
}

func TestTransitionToFailed(t *testing.T) {
	for _, phase := range []v1alpha1.LayoutPhase{
		v1alpha1.LayoutPhasePending,
		v1alpha1.LayoutPhaseInitializing,
		v1alpha1.LayoutPhaseReady,
	} {
		sl := v1alpha1.NewStorageLayout("board")
		sl.SetPhase(phase)

		TransitionToFailed(sl, "MountFailed", "no filesystem")

		if sl.GetPhase() != v1alpha1.LayoutPhaseFailed {
			t.Errorf("from %s: expected phase Failed, got %s", phase, sl.GetPhase())
		}
		cond := GetCondition(sl, v1alpha1.ConditionReady)
		if cond.Reason != "MountFailed" || cond.Message != "no filesystem" {
			t.Errorf("from %s: unexpected Ready condition %+v", phase, cond)
		}
	}
}

func TestPhasePredicates(t *testing.T) {
	tests := []struct {
		phase    v1alpha1.LayoutPhase
		terminal bool
		ready    bool
	}{
		{v1alpha1.LayoutPhasePending, false, false},
		{v1alpha1.LayoutPhaseInitializing, false, false},
		{v1alpha1.LayoutPhaseReady, true, true},
		{v1alpha1.LayoutPhaseFailed, true, false},
	}

	for _, tt := range tests {
		if got := IsTerminal(tt.phase); got != tt.terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.phase, got, tt.terminal)
		}
		if got := IsReady(tt.phase); got != tt.ready {
			t.Errorf("IsReady(%s) = %v, want %v", tt.phase, got, tt.ready)
		}
	}
}
