package domain

// State is the externally observable lifecycle state of a recording. It is
// computed once at read time from the stored columns so handlers never
// re-derive it from column combinations.
type State string

const (
	// StatePendingPhone: stored without a phone number, waiting for a
	// PHONE: reply from the sender.
	StatePendingPhone State = "pending_phone"
	// StatePendingProcessing: phone known, waiting for the transcription
	// worker's callback.
	StatePendingProcessing State = "pending_processing"
	// StateCompletedNoLead: transcription done but no lead could be linked,
	// waiting for a NAME: reply.
	StateCompletedNoLead State = "completed_no_lead"
	// StateCompletedWithLead: transcription done and linked to a lead.
	StateCompletedWithLead State = "completed_with_lead"
	// StateFailed: the worker reported a processing failure.
	StateFailed State = "failed"
)

// StateOf derives the lifecycle state from the stored columns.
func StateOf(r Recording) State {
	switch {
	case r.ProcessingStatus == StatusFailed:
		return StateFailed
	case r.ProcessingStatus == StatusCompleted && r.HasLead():
		return StateCompletedWithLead
	case r.ProcessingStatus == StatusCompleted:
		return StateCompletedNoLead
	case r.PhoneNumber == PendingPhone:
		return StatePendingPhone
	default:
		return StatePendingProcessing
	}
}

// Terminal reports whether the state admits no further pipeline transitions.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateCompletedWithLead
}

// AwaitingInput reports whether the state is waiting on a human reply.
func (s State) AwaitingInput() bool {
	return s == StatePendingPhone || s == StateCompletedNoLead
}
