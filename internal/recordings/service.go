// Package recordings is the call-recording intake bounded context: Telegram
// webhook ingest, file-id deduplication, phone/name reconciliation commands,
// and transcription callback processing.
package recordings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bricks_crm_backend/internal/events"
	"bricks_crm_backend/internal/leads"
	"bricks_crm_backend/internal/recordings/domain"
	"bricks_crm_backend/internal/telegram"
	"bricks_crm_backend/platform/logger"
	"bricks_crm_backend/platform/phone"

	"github.com/google/uuid"
)

// Lead attributes fixed for every lead this pipeline creates.
const (
	leadSource               = "Telegram"
	leadStatusNew            = "new"
	leadTypeOther            = "Other"
	classificationDirectCust = "direct_customer"
)

// archiveTimeout bounds the background download-and-upload of one voice file.
const archiveTimeout = 2 * time.Minute

// RecordingStore is the persistence interface for call recordings.
// Satisfied by *Repository; tests use an in-memory fake.
type RecordingStore interface {
	Create(ctx context.Context, params NewRecordingParams) (domain.Recording, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Recording, error)
	GetByFileID(ctx context.Context, fileID string) (domain.Recording, error)
	LatestPendingPhone(ctx context.Context, chatID int64) (domain.Recording, error)
	LatestCompletedWithoutLead(ctx context.Context, chatID int64) (domain.Recording, error)
	UpdatePhoneAndLead(ctx context.Context, id uuid.UUID, phoneNumber string, leadID *uuid.UUID) error
	LinkLead(ctx context.Context, id uuid.UUID, leadID uuid.UUID) error
	UpdateProcessingResult(ctx context.Context, id uuid.UUID, status, transcription, errorMessage string) error
	SetAudioObjectKey(ctx context.Context, id uuid.UUID, objectKey string) error
	List(ctx context.Context, status string, limit int) ([]domain.Recording, error)
	Stats(ctx context.Context) (BacklogStats, error)
}

// LeadStore is the slice of the lead store the pipeline touches.
// Satisfied by *leads.Repository.
type LeadStore interface {
	Create(ctx context.Context, params leads.NewLeadParams) (leads.Lead, error)
	FindLatestByContact(ctx context.Context, contact string) (leads.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (leads.Lead, error)
	UpdateFromAnalysis(ctx context.Context, id uuid.UUID, params leads.NewLeadParams) error
}

// Notifier delivers outbound chat messages. Sends are best-effort: the
// service logs failures and never rolls back committed state because of them.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Archiver stores the raw audio blob for a recording. Optional.
type Archiver interface {
	Archive(ctx context.Context, recordingID uuid.UUID, fileID string) (objectKey string, err error)
}

// Summarizer produces a short sales summary for a freshly created lead. Optional.
type Summarizer interface {
	SummarizeLead(ctx context.Context, transcription string) (string, error)
}

// AllowListConfig exposes the optional chat allow-list.
type AllowListConfig interface {
	GetAllowedChatIDs() []int64
}

// Service orchestrates the intake pipeline.
type Service struct {
	recordings RecordingStore
	leads      LeadStore
	notifier   Notifier
	archiver   Archiver
	summarizer Summarizer
	eventBus   events.Bus
	log        *logger.Logger
	allowed    map[int64]bool
}

// NewService creates the pipeline service. Archiver and summarizer are
// optional and attached with the Set methods.
func NewService(recordings RecordingStore, leadStore LeadStore, notifier Notifier, eventBus events.Bus, cfg AllowListConfig, log *logger.Logger) *Service {
	allowed := make(map[int64]bool)
	for _, id := range cfg.GetAllowedChatIDs() {
		allowed[id] = true
	}
	return &Service{
		recordings: recordings,
		leads:      leadStore,
		notifier:   notifier,
		eventBus:   eventBus,
		log:        log,
		allowed:    allowed,
	}
}

// SetArchiver attaches the optional audio archiver.
func (s *Service) SetArchiver(a Archiver) { s.archiver = a }

// SetSummarizer attaches the optional lead summarizer.
func (s *Service) SetSummarizer(sum Summarizer) { s.summarizer = sum }

// IngestUpdate processes one inbound Telegram update. It returns an error
// only when the recording could not be persisted; every other outcome
// (ignored chat, no audio, duplicate, missing phone) is a normal success so
// Telegram does not redeliver.
func (s *Service) IngestUpdate(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	// Chats outside the allow-list are accepted and ignored, indistinguishable
	// from success, so probing cannot reveal which chats are monitored.
	if len(s.allowed) > 0 && !s.allowed[msg.Chat.ID] {
		s.log.Debug("ignoring update from unlisted chat", "chat_id", msg.Chat.ID)
		return nil
	}

	attachment, hasAudio := msg.AudioAttachment()
	if !hasAudio {
		if msg.Text != "" {
			return s.HandleTextCommand(ctx, msg.Chat.ID, msg.Text)
		}
		return nil
	}

	fileName := attachment.FileName
	if fileName == "" {
		fileName = fmt.Sprintf("voice_%d.ogg", msg.MessageID)
	}

	rawPhone, name := ExtractFromFilename(fileName)

	if rawPhone == "" {
		if msg.Voice != nil {
			// A voice note cannot be renamed before sending, so persist it
			// with the sentinel and ask for the number in a reply.
			return s.ingestPendingPhone(ctx, msg, attachment, fileName)
		}
		s.notify(ctx, msg.Chat.ID, msgPromptRename())
		return nil
	}

	phoneNumber := phone.Normalize(rawPhone)
	if !phone.IsValidMobile(phoneNumber) {
		s.notify(ctx, msg.Chat.ID, msgPromptRename())
		return nil
	}

	if existing, err := s.recordings.GetByFileID(ctx, attachment.FileID); err == nil {
		s.notifyDuplicate(ctx, msg.Chat.ID, existing.FileName, attachment.FileID)
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		s.log.DatabaseError("recordings.GetByFileID", err)
		s.notify(ctx, msg.Chat.ID, "Something went wrong while saving your recording. Please try again.")
		return err
	}

	lead, leadCreated, err := s.matchOrCreateLead(ctx, phoneNumber, name, nil)
	if err != nil {
		// Lead store trouble must not lose the recording; ingest continues unlinked.
		s.log.Error("lead match/create failed during ingest", "error", err, "phone", phoneNumber)
		lead = nil
	}

	var leadID *uuid.UUID
	if lead != nil {
		leadID = &lead.ID
	}

	rec, err := s.recordings.Create(ctx, NewRecordingParams{
		LeadID:            leadID,
		PhoneNumber:       phoneNumber,
		TelegramFileID:    attachment.FileID,
		TelegramMessageID: msg.MessageID,
		ChatID:            msg.Chat.ID,
		SenderID:          senderID(msg),
		FileName:          fileName,
		FileSize:          attachment.FileSize,
	})
	if errors.Is(err, ErrDuplicateFileID) {
		// Lost a race with a concurrent delivery retry; the constraint is authoritative.
		s.notifyDuplicate(ctx, msg.Chat.ID, fileName, attachment.FileID)
		return nil
	}
	if err != nil {
		s.log.DatabaseError("recordings.Create", err)
		s.notify(ctx, msg.Chat.ID, "Something went wrong while saving your recording. Please try again.")
		return err
	}

	s.archiveAudio(rec.ID, attachment.FileID)

	switch {
	case leadCreated:
		s.notify(ctx, msg.Chat.ID, msgConfirmNewLead(lead.Name, phoneNumber))
	case lead != nil:
		s.notify(ctx, msg.Chat.ID, msgConfirmExistingLead(lead.Name, phoneNumber))
	default:
		s.notify(ctx, msg.Chat.ID, msgConfirmNoLead(phoneNumber))
	}

	s.log.RecordingEvent("ingested", rec.ID.String(), attachment.FileID)
	s.eventBus.Publish(ctx, events.RecordingIngested{
		BaseEvent:   events.NewBaseEvent(),
		RecordingID: rec.ID,
		ChatID:      msg.Chat.ID,
		FileID:      attachment.FileID,
		FileName:    fileName,
		PhoneFound:  true,
	})
	return nil
}

func (s *Service) ingestPendingPhone(ctx context.Context, msg *telegram.Message, attachment telegram.Attachment, fileName string) error {
	rec, err := s.recordings.Create(ctx, NewRecordingParams{
		PhoneNumber:       domain.PendingPhone,
		TelegramFileID:    attachment.FileID,
		TelegramMessageID: msg.MessageID,
		ChatID:            msg.Chat.ID,
		SenderID:          senderID(msg),
		FileName:          fileName,
		FileSize:          attachment.FileSize,
	})
	if errors.Is(err, ErrDuplicateFileID) {
		s.notifyDuplicate(ctx, msg.Chat.ID, fileName, attachment.FileID)
		return nil
	}
	if err != nil {
		s.log.DatabaseError("recordings.Create", err)
		s.notify(ctx, msg.Chat.ID, "Something went wrong while saving your recording. Please try again.")
		return err
	}

	s.archiveAudio(rec.ID, attachment.FileID)
	s.notify(ctx, msg.Chat.ID, msgPromptForPhone())

	s.log.RecordingEvent("ingested_pending_phone", rec.ID.String(), attachment.FileID)
	s.eventBus.Publish(ctx, events.RecordingIngested{
		BaseEvent:   events.NewBaseEvent(),
		RecordingID: rec.ID,
		ChatID:      msg.Chat.ID,
		FileID:      attachment.FileID,
		FileName:    fileName,
		PhoneFound:  false,
	})
	return nil
}

// matchOrCreateLead looks up the most recent lead for the phone number and,
// when none exists and a name is known, auto-creates one. The extracted info
// (nil outside the callback flow) enriches the created lead's fields.
func (s *Service) matchOrCreateLead(ctx context.Context, phoneNumber, name string, params *leads.NewLeadParams) (*leads.Lead, bool, error) {
	existing, err := s.leads.FindLatestByContact(ctx, phoneNumber)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, leads.ErrNotFound) {
		return nil, false, err
	}

	if name == "" {
		return nil, false, nil
	}

	create := leads.NewLeadParams{
		Name:           name,
		Contact:        phoneNumber,
		Source:         leadSource,
		Status:         leadStatusNew,
		LeadType:       leadTypeOther,
		Classification: classificationDirectCust,
	}
	if params != nil {
		create = *params
		create.Name = name
		create.Contact = phoneNumber
		create.Source = leadSource
		create.Status = leadStatusNew
		if create.LeadType == "" {
			create.LeadType = leadTypeOther
		}
		if create.Classification == "" {
			create.Classification = classificationDirectCust
		}
	}

	lead, err := s.leads.Create(ctx, create)
	if err != nil {
		return nil, false, err
	}

	s.eventBus.Publish(ctx, events.LeadAutoCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Contact:   phoneNumber,
		Name:      lead.Name,
		Source:    leadSource,
	})
	return &lead, true, nil
}

// GetRecording returns one recording by id.
func (s *Service) GetRecording(ctx context.Context, id uuid.UUID) (domain.Recording, error) {
	return s.recordings.GetByID(ctx, id)
}

// ListRecordings returns recordings newest first, optionally by status.
func (s *Service) ListRecordings(ctx context.Context, status string, limit int) ([]domain.Recording, error) {
	return s.recordings.List(ctx, status, limit)
}

// BacklogStats exposes the backlog counters for the status endpoint.
func (s *Service) BacklogStats(ctx context.Context) (BacklogStats, error) {
	return s.recordings.Stats(ctx)
}

func (s *Service) notify(ctx context.Context, chatID int64, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, chatID, text); err != nil {
		// Committed recording/lead state stays authoritative; the send is lost.
		s.log.TelegramSend(chatID, false, err.Error())
	}
}

func (s *Service) notifyDuplicate(ctx context.Context, chatID int64, fileName, fileID string) {
	s.notify(ctx, chatID, msgDuplicate(fileName))
	s.eventBus.Publish(ctx, events.RecordingDuplicate{
		BaseEvent: events.NewBaseEvent(),
		ChatID:    chatID,
		FileID:    fileID,
	})
}

// archiveAudio stores the raw voice file in the background. The download and
// upload can take longer than the webhook deadline, so the request never
// waits on them; a detached context outlives the HTTP request.
func (s *Service) archiveAudio(recordingID uuid.UUID, fileID string) {
	if s.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		key, err := s.archiver.Archive(ctx, recordingID, fileID)
		if err != nil {
			s.log.Warn("audio archive failed", "recording_id", recordingID, "error", err)
			return
		}
		if err := s.recordings.SetAudioObjectKey(ctx, recordingID, key); err != nil {
			s.log.DatabaseError("recordings.SetAudioObjectKey", err)
		}
	}()
}

func senderID(msg *telegram.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}
