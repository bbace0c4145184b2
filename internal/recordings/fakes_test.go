package recordings

import (
	"context"
	"strings"
	"sync"
	"time"

	"bricks_crm_backend/internal/events"
	"bricks_crm_backend/internal/leads"
	"bricks_crm_backend/internal/recordings/domain"
	"bricks_crm_backend/internal/telegram"
	"bricks_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// In-memory doubles for the service's store and side-effect interfaces.

type fakeRecordingStore struct {
	mu      sync.Mutex
	recs    []domain.Recording
	nextSeq int
	fail    error
}

func (f *fakeRecordingStore) Create(_ context.Context, params NewRecordingParams) (domain.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return domain.Recording{}, f.fail
	}
	for _, r := range f.recs {
		if r.TelegramFileID == params.TelegramFileID {
			return domain.Recording{}, ErrDuplicateFileID
		}
	}
	f.nextSeq++
	rec := domain.Recording{
		ID:                uuid.New(),
		LeadID:            params.LeadID,
		PhoneNumber:       params.PhoneNumber,
		TelegramFileID:    params.TelegramFileID,
		TelegramMessageID: params.TelegramMessageID,
		ChatID:            params.ChatID,
		SenderID:          params.SenderID,
		FileName:          params.FileName,
		FileSize:          params.FileSize,
		ProcessingStatus:  domain.StatusPending,
		CreatedAt:         time.Now().Add(time.Duration(f.nextSeq) * time.Millisecond),
	}
	f.recs = append(f.recs, rec)
	return rec, nil
}

func (f *fakeRecordingStore) GetByID(_ context.Context, id uuid.UUID) (domain.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Recording{}, ErrNotFound
}

func (f *fakeRecordingStore) GetByFileID(_ context.Context, fileID string) (domain.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.TelegramFileID == fileID {
			return r, nil
		}
	}
	return domain.Recording{}, ErrNotFound
}

func (f *fakeRecordingStore) LatestPendingPhone(_ context.Context, chatID int64) (domain.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.recs) - 1; i >= 0; i-- {
		r := f.recs[i]
		if r.ChatID == chatID && r.PhoneNumber == domain.PendingPhone {
			return r, nil
		}
	}
	return domain.Recording{}, ErrNotFound
}

func (f *fakeRecordingStore) LatestCompletedWithoutLead(_ context.Context, chatID int64) (domain.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.recs) - 1; i >= 0; i-- {
		r := f.recs[i]
		if r.ChatID == chatID && r.LeadID == nil && r.ProcessingStatus == domain.StatusCompleted {
			return r, nil
		}
	}
	return domain.Recording{}, ErrNotFound
}

func (f *fakeRecordingStore) UpdatePhoneAndLead(_ context.Context, id uuid.UUID, phoneNumber string, leadID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recs {
		if f.recs[i].ID == id {
			f.recs[i].PhoneNumber = phoneNumber
			f.recs[i].LeadID = leadID
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRecordingStore) LinkLead(_ context.Context, id uuid.UUID, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recs {
		if f.recs[i].ID == id {
			f.recs[i].LeadID = &leadID
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRecordingStore) UpdateProcessingResult(_ context.Context, id uuid.UUID, status, transcription, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recs {
		if f.recs[i].ID == id {
			f.recs[i].ProcessingStatus = status
			f.recs[i].TranscriptionText = &transcription
			if status == domain.StatusFailed && errorMessage != "" {
				f.recs[i].ErrorMessage = &errorMessage
			} else {
				f.recs[i].ErrorMessage = nil
			}
			now := time.Now()
			f.recs[i].ProcessedAt = &now
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRecordingStore) SetAudioObjectKey(_ context.Context, id uuid.UUID, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recs {
		if f.recs[i].ID == id {
			f.recs[i].AudioObjectKey = &objectKey
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRecordingStore) List(_ context.Context, status string, limit int) ([]domain.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Recording
	for i := len(f.recs) - 1; i >= 0; i-- {
		if status == "" || f.recs[i].ProcessingStatus == status {
			out = append(out, f.recs[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRecordingStore) Stats(_ context.Context) (BacklogStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats BacklogStats
	for _, r := range f.recs {
		if r.ProcessingStatus == domain.StatusPending {
			stats.PendingCount++
		}
		if r.PhoneNumber == domain.PendingPhone {
			stats.PendingPhoneCount++
		}
		if r.ProcessingStatus == domain.StatusFailed {
			stats.FailedCount++
		}
	}
	return stats, nil
}

type fakeLeadStore struct {
	mu         sync.Mutex
	leads      []leads.Lead
	createErr  error
	findErr    error
	updateCnt  int
	lastUpdate leads.NewLeadParams
}

func (f *fakeLeadStore) Create(_ context.Context, params leads.NewLeadParams) (leads.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return leads.Lead{}, f.createErr
	}
	lead := leads.Lead{
		ID:              uuid.New(),
		Name:            params.Name,
		Contact:         params.Contact,
		Source:          params.Source,
		LeadType:        params.LeadType,
		Status:          params.Status,
		Classification:  params.Classification,
		RequirementType: params.RequirementType,
		SiteRegion:      params.SiteRegion,
		SiteLocation:    params.SiteLocation,
		NextAction:      params.NextAction,
		Notes:           params.Notes,
		CreatedAt:       time.Now(),
	}
	f.leads = append(f.leads, lead)
	return lead, nil
}

func (f *fakeLeadStore) FindLatestByContact(_ context.Context, contact string) (leads.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return leads.Lead{}, f.findErr
	}
	for i := len(f.leads) - 1; i >= 0; i-- {
		if f.leads[i].Contact == contact {
			return f.leads[i], nil
		}
	}
	return leads.Lead{}, leads.ErrNotFound
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (leads.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return leads.Lead{}, leads.ErrNotFound
}

func (f *fakeLeadStore) UpdateFromAnalysis(_ context.Context, id uuid.UUID, params leads.NewLeadParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCnt++
	f.lastUpdate = params
	return nil
}

// fakeArchiver blocks in Archive until gate is closed, so tests can hold the
// archive open while asserting the ingest path is already done.
type fakeArchiver struct {
	mu       sync.Mutex
	gate     chan struct{}
	archived []uuid.UUID
}

func (f *fakeArchiver) Archive(_ context.Context, recordingID uuid.UUID, _ string) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, recordingID)
	return "recordings/" + recordingID.String() + ".ogg", nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail error
}

func (f *fakeNotifier) Notify(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeNotifier) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeBus dispatches synchronously and records everything published.
type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	f.Publish(nil, event)
	return nil
}

func (f *fakeBus) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.EventName())
	}
	return out
}

type allowCfg []int64

func (a allowCfg) GetAllowedChatIDs() []int64 { return a }

type testEnv struct {
	service    *Service
	recordings *fakeRecordingStore
	leads      *fakeLeadStore
	notifier   *fakeNotifier
	bus        *fakeBus
}

func newTestEnv(allowed ...int64) *testEnv {
	env := &testEnv{
		recordings: &fakeRecordingStore{},
		leads:      &fakeLeadStore{},
		notifier:   &fakeNotifier{},
		bus:        &fakeBus{},
	}
	env.service = NewService(env.recordings, env.leads, env.notifier, env.bus, allowCfg(allowed), logger.New("development"))
	return env
}

func audioUpdate(chatID int64, fileID, fileName string) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 100,
			From:      &telegram.User{ID: 7},
			Chat:      telegram.Chat{ID: chatID},
			Document: &telegram.Document{
				FileID:   fileID,
				FileName: fileName,
				MimeType: "audio/mpeg",
				FileSize: 2048,
			},
		},
	}
}

func voiceUpdate(chatID int64, fileID string) telegram.Update {
	return telegram.Update{
		UpdateID: 2,
		Message: &telegram.Message{
			MessageID: 101,
			From:      &telegram.User{ID: 7},
			Chat:      telegram.Chat{ID: chatID},
			Voice: &telegram.Voice{
				FileID:   fileID,
				Duration: 30,
				MimeType: "audio/ogg",
				FileSize: 1024,
			},
		},
	}
}

func textUpdate(chatID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: 3,
		Message: &telegram.Message{
			MessageID: 102,
			From:      &telegram.User{ID: 7},
			Chat:      telegram.Chat{ID: chatID},
			Text:      text,
		},
	}
}

func containsText(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
