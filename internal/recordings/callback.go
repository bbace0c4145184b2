package recordings

import (
	"context"
	"errors"

	"bricks_crm_backend/internal/events"
	"bricks_crm_backend/internal/leads"
	"bricks_crm_backend/internal/recordings/domain"
	"bricks_crm_backend/internal/recordings/extract"
	"bricks_crm_backend/platform/apperr"
	"bricks_crm_backend/platform/phone"

	"github.com/google/uuid"
)

// CallbackResult reports what the callback did, for the HTTP response body.
type CallbackResult struct {
	RecordingID uuid.UUID
	State       domain.State
	LeadID      *uuid.UUID
	LeadCreated bool
	Confidence  int
}

// ProcessCallback applies the transcription worker's terminal outcome to a
// recording. Each recording accepts exactly one terminal callback; a second
// one on a failed or lead-linked recording is rejected with a conflict and
// mutates nothing.
func (s *Service) ProcessCallback(ctx context.Context, recordingID uuid.UUID, transcription, status, errorMessage string) (CallbackResult, error) {
	rec, err := s.recordings.GetByID(ctx, recordingID)
	if errors.Is(err, ErrNotFound) {
		return CallbackResult{}, apperr.NotFound("recording not found")
	}
	if err != nil {
		s.log.DatabaseError("recordings.GetByID", err)
		return CallbackResult{}, apperr.Wrap(apperr.KindInternal, "failed to load recording", err)
	}

	if state := domain.StateOf(rec); state.Terminal() {
		return CallbackResult{}, apperr.Conflict("recording already in terminal state " + string(state))
	}

	if err := s.recordings.UpdateProcessingResult(ctx, rec.ID, status, transcription, errorMessage); err != nil {
		s.log.DatabaseError("recordings.UpdateProcessingResult", err)
		return CallbackResult{}, apperr.Wrap(apperr.KindInternal, "failed to store processing result", err)
	}

	if status == domain.StatusFailed {
		s.notify(ctx, rec.ChatID, msgProcessingFailed(errorMessage))
		s.log.RecordingEvent("processing_failed", rec.ID.String(), rec.TelegramFileID)
		s.eventBus.Publish(ctx, events.RecordingFailed{
			BaseEvent:    events.NewBaseEvent(),
			RecordingID:  rec.ID,
			ChatID:       rec.ChatID,
			ErrorMessage: errorMessage,
		})
		return CallbackResult{RecordingID: rec.ID, State: domain.StateFailed}, nil
	}

	// Already linked: the lead existed at ingest or was backfilled by a
	// PHONE: command. Just close the loop with the sender.
	if rec.HasLead() {
		return s.completeLinked(ctx, rec, transcription)
	}

	return s.completeUnlinked(ctx, rec, transcription)
}

func (s *Service) completeLinked(ctx context.Context, rec domain.Recording, transcription string) (CallbackResult, error) {
	leadName := ""
	lead, err := s.leads.GetByID(ctx, *rec.LeadID)
	if err != nil {
		s.log.Error("failed to load linked lead for completion notice", "error", err, "lead_id", *rec.LeadID)
	} else {
		leadName = lead.Name
		s.enrichLinkedLead(ctx, lead, rec.PhoneNumber, transcription)
	}

	s.notify(ctx, rec.ChatID, msgCompletionNotice(leadName, rec.PhoneNumber, transcription))
	s.log.RecordingEvent("processing_completed", rec.ID.String(), rec.TelegramFileID)
	s.eventBus.Publish(ctx, events.RecordingProcessed{
		BaseEvent:   events.NewBaseEvent(),
		RecordingID: rec.ID,
		ChatID:      rec.ChatID,
		LeadID:      rec.LeadID,
	})
	return CallbackResult{
		RecordingID: rec.ID,
		State:       domain.StateCompletedWithLead,
		LeadID:      rec.LeadID,
	}, nil
}

func (s *Service) completeUnlinked(ctx context.Context, rec domain.Recording, transcription string) (CallbackResult, error) {
	phoneNumber := ""
	if phone.IsValidMobile(rec.PhoneNumber) {
		phoneNumber = rec.PhoneNumber
	}

	info := extract.Extract(transcription, phoneNumber)

	if len(info.MissingFields) == 0 {
		params := leads.NewLeadParams{
			Name:            info.Name,
			Contact:         phoneNumber,
			Source:          leadSource,
			Status:          leadStatusNew,
			LeadType:        orDefault(info.LeadType, leadTypeOther),
			Classification:  orDefault(info.Classification, classificationDirectCust),
			RequirementType: info.RequirementType,
			SiteRegion:      info.SiteRegion,
			SiteLocation:    info.SiteLocation,
			NextAction:      info.NextAction,
			Notes:           s.summarize(ctx, transcription),
		}

		lead, created, err := s.matchOrCreateLead(ctx, phoneNumber, info.Name, &params)
		if err != nil || lead == nil {
			// Degrade to the missing-fields flow rather than losing the
			// transcription; the sender can finish with a NAME: reply.
			s.log.Error("auto lead creation failed after transcription", "error", err, "recording_id", rec.ID)
		} else {
			if err := s.recordings.LinkLead(ctx, rec.ID, lead.ID); err != nil {
				s.log.DatabaseError("recordings.LinkLead", err)
			}
			if created {
				s.notify(ctx, rec.ChatID, msgLeadCreated(lead.Name, info, transcription))
			} else {
				s.enrichLinkedLead(ctx, *lead, phoneNumber, transcription)
				s.notify(ctx, rec.ChatID, msgCompletionNotice(lead.Name, phoneNumber, transcription))
			}
			s.log.RecordingEvent("lead_auto_created", rec.ID.String(), rec.TelegramFileID)
			s.eventBus.Publish(ctx, events.RecordingProcessed{
				BaseEvent:   events.NewBaseEvent(),
				RecordingID: rec.ID,
				ChatID:      rec.ChatID,
				LeadID:      &lead.ID,
				Confidence:  info.Confidence,
			})
			return CallbackResult{
				RecordingID: rec.ID,
				State:       domain.StateCompletedWithLead,
				LeadID:      &lead.ID,
				LeadCreated: created,
				Confidence:  info.Confidence,
			}, nil
		}
	}

	s.notify(ctx, rec.ChatID, msgMissingFields(info, transcription))
	s.log.RecordingEvent("processing_completed_no_lead", rec.ID.String(), rec.TelegramFileID)
	s.eventBus.Publish(ctx, events.RecordingProcessed{
		BaseEvent:   events.NewBaseEvent(),
		RecordingID: rec.ID,
		ChatID:      rec.ChatID,
		Confidence:  info.Confidence,
	})
	return CallbackResult{
		RecordingID: rec.ID,
		State:       domain.StateCompletedNoLead,
		Confidence:  info.Confidence,
	}, nil
}

// enrichLinkedLead backfills empty classification fields on an existing lead
// from a completed transcription. Best-effort.
func (s *Service) enrichLinkedLead(ctx context.Context, lead leads.Lead, phoneNumber, transcription string) {
	info := extract.Extract(transcription, phoneNumber)
	err := s.leads.UpdateFromAnalysis(ctx, lead.ID, leads.NewLeadParams{
		Name:            info.Name,
		Classification:  info.Classification,
		RequirementType: info.RequirementType,
		SiteRegion:      info.SiteRegion,
		SiteLocation:    info.SiteLocation,
		NextAction:      info.NextAction,
		Notes:           s.summarize(ctx, transcription),
	})
	if err != nil {
		s.log.DatabaseError("leads.UpdateFromAnalysis", err)
	}
}

func (s *Service) summarize(ctx context.Context, transcription string) string {
	if s.summarizer == nil {
		return ""
	}
	summary, err := s.summarizer.SummarizeLead(ctx, transcription)
	if err != nil {
		s.log.Warn("lead summary failed", "error", err)
		return ""
	}
	return summary
}
