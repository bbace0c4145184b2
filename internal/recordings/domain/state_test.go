package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestStateOf(t *testing.T) {
	leadID := uuid.New()

	cases := []struct {
		name string
		rec  Recording
		want State
	}{
		{
			name: "failed wins over everything",
			rec:  Recording{ProcessingStatus: StatusFailed, LeadID: &leadID, PhoneNumber: PendingPhone},
			want: StateFailed,
		},
		{
			name: "completed with lead",
			rec:  Recording{ProcessingStatus: StatusCompleted, LeadID: &leadID, PhoneNumber: "9876543210"},
			want: StateCompletedWithLead,
		},
		{
			name: "completed without lead",
			rec:  Recording{ProcessingStatus: StatusCompleted, PhoneNumber: "9876543210"},
			want: StateCompletedNoLead,
		},
		{
			name: "pending with sentinel phone",
			rec:  Recording{ProcessingStatus: StatusPending, PhoneNumber: PendingPhone},
			want: StatePendingPhone,
		},
		{
			name: "pending with phone",
			rec:  Recording{ProcessingStatus: StatusPending, PhoneNumber: "9876543210"},
			want: StatePendingProcessing,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StateOf(tc.rec); got != tc.want {
				t.Fatalf("StateOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStateTerminal(t *testing.T) {
	terminal := []State{StateFailed, StateCompletedWithLead}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %q to be terminal", s)
		}
	}

	open := []State{StatePendingPhone, StatePendingProcessing, StateCompletedNoLead}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("expected %q to not be terminal", s)
		}
	}
}

func TestStateAwaitingInput(t *testing.T) {
	waiting := []State{StatePendingPhone, StateCompletedNoLead}
	for _, s := range waiting {
		if !s.AwaitingInput() {
			t.Errorf("expected %q to await input", s)
		}
	}

	if StatePendingProcessing.AwaitingInput() {
		t.Error("pending_processing does not await input")
	}
}
