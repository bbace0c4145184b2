// Package domain holds the call recording entity and its lifecycle state.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PendingPhone is the sentinel stored in PhoneNumber when a voice note
// arrived without an extractable phone number.
const PendingPhone = "PENDING"

// Processing status values written by the transcription callback.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Recording is one inbound audio message plus its processing lifecycle.
type Recording struct {
	ID                uuid.UUID
	LeadID            *uuid.UUID
	PhoneNumber       string
	TelegramFileID    string
	TelegramMessageID int64
	ChatID            int64
	SenderID          int64
	FileName          string
	FileSize          int64
	ProcessingStatus  string
	TranscriptionText *string
	ErrorMessage      *string
	AudioObjectKey    *string
	CreatedAt         time.Time
	ProcessedAt       *time.Time
}

// Transcription returns the stored transcription text, or empty.
func (r Recording) Transcription() string {
	if r.TranscriptionText == nil {
		return ""
	}
	return *r.TranscriptionText
}

// HasLead reports whether the recording is linked to a lead.
func (r Recording) HasLead() bool {
	return r.LeadID != nil
}
