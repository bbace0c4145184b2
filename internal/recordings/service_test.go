package recordings

import (
	"context"
	"errors"
	"testing"
	"time"

	"bricks_crm_backend/internal/leads"
	"bricks_crm_backend/internal/recordings/domain"
)

func TestIngestVoiceNoteWithoutPhoneStoresPendingSentinel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.service.IngestUpdate(ctx, voiceUpdate(42, "file-1")); err != nil {
		t.Fatalf("IngestUpdate: %v", err)
	}

	if len(env.recordings.recs) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(env.recordings.recs))
	}
	rec := env.recordings.recs[0]
	if rec.PhoneNumber != domain.PendingPhone {
		t.Errorf("phone = %q, want sentinel", rec.PhoneNumber)
	}
	if got := domain.StateOf(rec); got != domain.StatePendingPhone {
		t.Errorf("state = %q, want pending_phone", got)
	}
	if !containsText(env.notifier.lastText(), "PHONE:") {
		t.Errorf("expected phone prompt, got %q", env.notifier.lastText())
	}
}

func TestIngestAudioWithPhoneAndNameCreatesLead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.service.IngestUpdate(ctx, audioUpdate(42, "file-1", "Robin_Avadi_9876543210.wav"))
	if err != nil {
		t.Fatalf("IngestUpdate: %v", err)
	}

	if len(env.leads.leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(env.leads.leads))
	}
	lead := env.leads.leads[0]
	if lead.Name != "Robin" || lead.Contact != "9876543210" {
		t.Errorf("lead = %s/%s, want Robin/9876543210", lead.Name, lead.Contact)
	}
	if lead.Source != "Telegram" || lead.Status != "new" || lead.LeadType != "Other" {
		t.Errorf("lead defaults wrong: source=%q status=%q type=%q", lead.Source, lead.Status, lead.LeadType)
	}

	rec := env.recordings.recs[0]
	if rec.LeadID == nil || *rec.LeadID != lead.ID {
		t.Error("recording not linked to the created lead")
	}
	if !containsText(env.notifier.lastText(), "New lead created") {
		t.Errorf("expected new-lead confirmation, got %q", env.notifier.lastText())
	}
}

func TestIngestAudioMatchesExistingLead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	existing, _ := env.leads.Create(ctx, leads.NewLeadParams{Name: "Robin", Contact: "9876543210"})

	err := env.service.IngestUpdate(ctx, audioUpdate(42, "file-1", "Robin_9876543210.wav"))
	if err != nil {
		t.Fatalf("IngestUpdate: %v", err)
	}

	if len(env.leads.leads) != 1 {
		t.Fatalf("expected no new lead, got %d", len(env.leads.leads))
	}
	rec := env.recordings.recs[0]
	if rec.LeadID == nil || *rec.LeadID != existing.ID {
		t.Error("recording not linked to the existing lead")
	}
	if !containsText(env.notifier.lastText(), "existing lead") {
		t.Errorf("expected existing-lead confirmation, got %q", env.notifier.lastText())
	}
}

func TestIngestAudioWithPhoneButNoNameStoresUnlinked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.service.IngestUpdate(ctx, audioUpdate(42, "file-1", "Call_9876543210.mp3"))
	if err != nil {
		t.Fatalf("IngestUpdate: %v", err)
	}

	if len(env.leads.leads) != 0 {
		t.Fatalf("expected no lead without a name, got %d", len(env.leads.leads))
	}
	rec := env.recordings.recs[0]
	if rec.LeadID != nil {
		t.Error("recording should be unlinked")
	}
	if rec.PhoneNumber != "9876543210" {
		t.Errorf("phone = %q, want 9876543210", rec.PhoneNumber)
	}
	if !containsText(env.notifier.lastText(), "No matching lead") {
		t.Errorf("expected no-lead notice, got %q", env.notifier.lastText())
	}
}

func TestIngestDuplicateFileID(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	update := audioUpdate(42, "file-1", "Robin_9876543210.wav")

	if err := env.service.IngestUpdate(ctx, update); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := env.service.IngestUpdate(ctx, update); err != nil {
		t.Fatalf("duplicate ingest should not error: %v", err)
	}

	if len(env.recordings.recs) != 1 {
		t.Fatalf("expected 1 recording after duplicate, got %d", len(env.recordings.recs))
	}
	if !containsText(env.notifier.lastText(), "already received") {
		t.Errorf("expected duplicate notice, got %q", env.notifier.lastText())
	}

	var dupEvents int
	for _, name := range env.bus.names() {
		if name == "recordings.duplicate" {
			dupEvents++
		}
	}
	if dupEvents != 1 {
		t.Errorf("expected 1 duplicate event, got %d", dupEvents)
	}
}

func TestIngestIgnoresUnlistedChat(t *testing.T) {
	env := newTestEnv(42)
	ctx := context.Background()

	if err := env.service.IngestUpdate(ctx, audioUpdate(99, "file-1", "Robin_9876543210.wav")); err != nil {
		t.Fatalf("IngestUpdate: %v", err)
	}

	if len(env.recordings.recs) != 0 {
		t.Error("recording from unlisted chat must not be stored")
	}
	if env.notifier.count() != 0 {
		t.Error("unlisted chat must not receive a reply")
	}
}

func TestIngestAllowedChatIsProcessed(t *testing.T) {
	env := newTestEnv(42)
	ctx := context.Background()

	if err := env.service.IngestUpdate(ctx, audioUpdate(42, "file-1", "Robin_9876543210.wav")); err != nil {
		t.Fatalf("IngestUpdate: %v", err)
	}
	if len(env.recordings.recs) != 1 {
		t.Error("allowed chat recording must be stored")
	}
}

func TestIngestDocumentWithoutPhonePromptsRename(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.service.IngestUpdate(ctx, audioUpdate(42, "file-1", "meeting_notes.mp3")); err != nil {
		t.Fatalf("IngestUpdate: %v", err)
	}

	// Documents can be renamed and re-sent, so nothing is persisted.
	if len(env.recordings.recs) != 0 {
		t.Error("document without phone must not be persisted")
	}
	if !containsText(env.notifier.lastText(), "rename") {
		t.Errorf("expected rename prompt, got %q", env.notifier.lastText())
	}
}

func TestIngestNotifierFailureDoesNotFailIngest(t *testing.T) {
	env := newTestEnv()
	env.notifier.fail = errors.New("telegram down")
	ctx := context.Background()

	if err := env.service.IngestUpdate(ctx, audioUpdate(42, "file-1", "Robin_9876543210.wav")); err != nil {
		t.Fatalf("ingest must survive notifier failure: %v", err)
	}
	if len(env.recordings.recs) != 1 {
		t.Error("recording must be stored even when the send fails")
	}
}

func TestIngestLeadStoreFailureDegradesToUnlinked(t *testing.T) {
	env := newTestEnv()
	env.leads.findErr = errors.New("db down")
	ctx := context.Background()

	if err := env.service.IngestUpdate(ctx, audioUpdate(42, "file-1", "Robin_9876543210.wav")); err != nil {
		t.Fatalf("ingest must survive lead store failure: %v", err)
	}
	rec := env.recordings.recs[0]
	if rec.LeadID != nil {
		t.Error("recording must be stored unlinked when lead matching fails")
	}
}

func TestIngestDoesNotWaitForArchiver(t *testing.T) {
	env := newTestEnv()
	archiver := &fakeArchiver{gate: make(chan struct{})}
	env.service.SetArchiver(archiver)

	done := make(chan error, 1)
	go func() {
		done <- env.service.IngestUpdate(context.Background(), audioUpdate(42, "file-1", "Robin_9876543210.wav"))
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("IngestUpdate: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ingest blocked on the archiver")
	}

	rec := env.recordings.recs[0]
	if rec.AudioObjectKey != nil {
		t.Error("object key must not be set while the archive is still running")
	}
	if !containsText(env.notifier.lastText(), "Recording saved") {
		t.Errorf("confirmation must not wait for the archive, got %q", env.notifier.lastText())
	}

	close(archiver.gate)

	deadline := time.Now().Add(2 * time.Second)
	for {
		updated, err := env.recordings.GetByID(context.Background(), rec.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if updated.AudioObjectKey != nil {
			if !containsText(*updated.AudioObjectKey, rec.ID.String()) {
				t.Errorf("object key = %q, want recording id in key", *updated.AudioObjectKey)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("object key was never stored after the archive finished")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIngestMessageWithoutAudioOrText(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	update := textUpdate(42, "")
	if err := env.service.IngestUpdate(ctx, update); err != nil {
		t.Fatalf("IngestUpdate: %v", err)
	}
	if len(env.recordings.recs) != 0 || env.notifier.count() != 0 {
		t.Error("empty message must be a silent no-op")
	}
}
