package issues

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		status     string
		resolution string
		want       State
	}{
		{"Open", "", StateTodo},
		{" reopened ", "", StateTodo},
		{"In Progress", "", StateInProgress},
		{"Patch Available", "", StateInProgress},
		{"On Hold", "", StateBlocked},
		{"Resolved", "Fixed", StateDone},
		{"Closed", "Duplicate", StateCanceled},
		{"Closed", "Won't Fix", StateCanceled},
		{"Cancelled", "", StateCanceled},
		{"Triage", "", StateTodo},
		{"", "", StateTodo},
	}
	for _, tt := range tests {
		if got := NormalizeStatus(tt.status, tt.resolution); got != tt.want {
			t.Errorf("NormalizeStatus(%q, %q) = %q, want %q", tt.status, tt.resolution, got, tt.want)
		}
	}
}

func TestIsValidState(t *testing.T) {
	for _, s := range []State{StateTodo, StateInProgress, StateBlocked, StateDone, StateCanceled} {
		if !IsValidState(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if IsValidState("open") {
		t.Fatal("expected raw status name to be invalid")
	}
}
