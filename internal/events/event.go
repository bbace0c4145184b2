// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"bricks_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Recording Domain Events
// =============================================================================

// RecordingIngested is published when a voice note is accepted from the
// Telegram webhook and stored.
type RecordingIngested struct {
	BaseEvent
	RecordingID uuid.UUID `json:"recordingId"`
	ChatID      int64     `json:"chatId"`
	FileID      string    `json:"fileId"`
	FileName    string    `json:"fileName"`
	PhoneFound  bool      `json:"phoneFound"`
}

func (e RecordingIngested) EventName() string { return "recordings.ingested" }

// RecordingDuplicate is published when an incoming voice note carries a
// file id that is already stored.
type RecordingDuplicate struct {
	BaseEvent
	ChatID int64  `json:"chatId"`
	FileID string `json:"fileId"`
}

func (e RecordingDuplicate) EventName() string { return "recordings.duplicate" }

// RecordingReconciled is published when a PHONE: or NAME: command resolves
// the missing phone number for a pending recording.
type RecordingReconciled struct {
	BaseEvent
	RecordingID uuid.UUID  `json:"recordingId"`
	ChatID      int64      `json:"chatId"`
	Phone       string     `json:"phone"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	LeadCreated bool       `json:"leadCreated"`
}

func (e RecordingReconciled) EventName() string { return "recordings.reconciled" }

// RecordingProcessed is published when a transcription callback completes
// a recording.
type RecordingProcessed struct {
	BaseEvent
	RecordingID uuid.UUID  `json:"recordingId"`
	ChatID      int64      `json:"chatId"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	Confidence  int        `json:"confidence"`
}

func (e RecordingProcessed) EventName() string { return "recordings.processed" }

// RecordingFailed is published when the transcription worker reports a
// processing failure.
type RecordingFailed struct {
	BaseEvent
	RecordingID  uuid.UUID `json:"recordingId"`
	ChatID       int64     `json:"chatId"`
	ErrorMessage string    `json:"errorMessage"`
}

func (e RecordingFailed) EventName() string { return "recordings.failed" }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadAutoCreated is published when the pipeline creates a lead because no
// existing lead matched the caller's phone number.
type LeadAutoCreated struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Contact string    `json:"contact"`
	Name    string    `json:"name"`
	Source  string    `json:"source"`
}

func (e LeadAutoCreated) EventName() string { return "leads.auto_created" }
