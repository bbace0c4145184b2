package recordings

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"bricks_crm_backend/internal/events"
	"bricks_crm_backend/internal/leads"
	"bricks_crm_backend/internal/recordings/domain"
	"bricks_crm_backend/internal/recordings/extract"
	"bricks_crm_backend/platform/phone"

	"github.com/google/uuid"
)

// Command shapes, case-insensitive, anchored at the start of the message.
// A PHONE: message may carry a NAME: clause on the same line.
var (
	phoneCommandPattern = regexp.MustCompile(`(?i)^\s*phone\s*:\s*([+\d][\d\s.\-]*)`)
	nameCommandPattern  = regexp.MustCompile(`(?i)^\s*name\s*:\s*(.+)`)
	nameClausePattern   = regexp.MustCompile(`(?i)name\s*:\s*([a-z][a-z .]*)`)
)

// HandleTextCommand parses PHONE: and NAME: replies. Any other text is
// silently ignored; not every chat message is a command.
func (s *Service) HandleTextCommand(ctx context.Context, chatID int64, text string) error {
	if m := phoneCommandPattern.FindStringSubmatch(text); m != nil {
		return s.handlePhoneCommand(ctx, chatID, m[1], text)
	}
	if m := nameCommandPattern.FindStringSubmatch(text); m != nil {
		return s.handleNameCommand(ctx, chatID, m[1])
	}
	return nil
}

// handlePhoneCommand resolves a recording stuck in the pending-phone state.
func (s *Service) handlePhoneCommand(ctx context.Context, chatID int64, rawPhone, fullText string) error {
	phoneNumber := phone.Normalize(rawPhone)
	if !phone.IsValidMobile(phoneNumber) {
		s.notify(ctx, chatID, msgInvalidPhone(rawPhone))
		return nil
	}

	rec, err := s.recordings.LatestPendingPhone(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		s.notify(ctx, chatID, msgNoPendingRecording())
		return nil
	}
	if err != nil {
		s.log.DatabaseError("recordings.LatestPendingPhone", err)
		return err
	}

	name := extractNameClause(fullText)

	lead, created, err := s.matchOrCreateLead(ctx, phoneNumber, name, nil)
	if err != nil {
		s.log.Error("lead match/create failed for phone command", "error", err, "phone", phoneNumber)
		lead = nil
		created = false
	}

	var leadID *uuid.UUID
	leadName := ""
	if lead != nil {
		leadID = &lead.ID
		leadName = lead.Name
	}

	if err := s.recordings.UpdatePhoneAndLead(ctx, rec.ID, phoneNumber, leadID); err != nil {
		s.log.DatabaseError("recordings.UpdatePhoneAndLead", err)
		s.notify(ctx, chatID, "Something went wrong while saving the phone number. Please try again.")
		return err
	}

	s.notify(ctx, chatID, msgPhoneLinked(phoneNumber, leadName, created))
	s.log.RecordingEvent("phone_linked", rec.ID.String(), rec.TelegramFileID)
	s.eventBus.Publish(ctx, events.RecordingReconciled{
		BaseEvent:   events.NewBaseEvent(),
		RecordingID: rec.ID,
		ChatID:      chatID,
		Phone:       phoneNumber,
		LeadID:      leadID,
		LeadCreated: created,
	})
	return nil
}

// handleNameCommand resolves a completed recording that has no lead yet: the
// lead fields are re-derived from the stored transcription with the same rule
// table the callback extractor uses.
func (s *Service) handleNameCommand(ctx context.Context, chatID int64, rawName string) error {
	name := cleanName(rawName)
	if len(name) < 2 {
		s.notify(ctx, chatID, msgNameTooShort())
		return nil
	}

	rec, err := s.recordings.LatestCompletedWithoutLead(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		s.notify(ctx, chatID, msgNoPendingLead())
		return nil
	}
	if err != nil {
		s.log.DatabaseError("recordings.LatestCompletedWithoutLead", err)
		return err
	}

	if rec.PhoneNumber == domain.PendingPhone || !phone.IsValidMobile(rec.PhoneNumber) {
		s.notify(ctx, chatID, msgPhoneStillPending())
		return nil
	}

	info := extract.Extract(rec.Transcription(), rec.PhoneNumber)
	info.Name = name

	lead, err := s.leads.Create(ctx, leads.NewLeadParams{
		Name:            name,
		Contact:         rec.PhoneNumber,
		Source:          leadSource,
		Status:          leadStatusNew,
		LeadType:        orDefault(info.LeadType, leadTypeOther),
		Classification:  orDefault(info.Classification, classificationDirectCust),
		RequirementType: info.RequirementType,
		SiteRegion:      info.SiteRegion,
		SiteLocation:    info.SiteLocation,
		NextAction:      info.NextAction,
	})
	if err != nil {
		s.log.DatabaseError("leads.Create", err)
		s.notify(ctx, chatID, "Something went wrong while creating the lead. Please try again.")
		return err
	}

	if err := s.recordings.LinkLead(ctx, rec.ID, lead.ID); err != nil {
		s.log.DatabaseError("recordings.LinkLead", err)
		s.notify(ctx, chatID, "Something went wrong while linking the lead. Please try again.")
		return err
	}

	s.notify(ctx, chatID, msgNameLeadCreated(lead.Name, info))
	s.log.RecordingEvent("lead_linked_by_name", rec.ID.String(), rec.TelegramFileID)
	s.eventBus.Publish(ctx, events.LeadAutoCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Contact:   rec.PhoneNumber,
		Name:      lead.Name,
		Source:    leadSource,
	})
	s.eventBus.Publish(ctx, events.RecordingReconciled{
		BaseEvent:   events.NewBaseEvent(),
		RecordingID: rec.ID,
		ChatID:      chatID,
		Phone:       rec.PhoneNumber,
		LeadID:      &lead.ID,
		LeadCreated: true,
	})
	return nil
}

// extractNameClause pulls an optional NAME: clause out of a PHONE: message.
func extractNameClause(text string) string {
	m := nameClausePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := cleanName(m[1])
	if len(name) < 2 {
		return ""
	}
	return name
}

func cleanName(raw string) string {
	return strings.TrimSpace(raw)
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
