package scheduler

import (
	"context"
	"testing"

	"bricks_crm_backend/platform/logger"
)

type sentAlert struct {
	recordingID  string
	errorMessage string
}

type fakeAlerter struct {
	alerts []sentAlert
}

func (f *fakeAlerter) SendFailureAlert(_ context.Context, recordingID, errorMessage string) error {
	f.alerts = append(f.alerts, sentAlert{recordingID: recordingID, errorMessage: errorMessage})
	return nil
}

func TestFailureAlertWithoutAlerterIsAcknowledged(t *testing.T) {
	w := &Worker{log: logger.New("development")}

	task, err := NewFailureAlertTask(FailureAlertPayload{RecordingID: "rec-1", ErrorMessage: "audio unreadable"})
	if err != nil {
		t.Fatalf("NewFailureAlertTask: %v", err)
	}

	// Without SMTP configured the task must be acked, not retried forever.
	if err := w.handleFailureAlert(context.Background(), task); err != nil {
		t.Fatalf("handleFailureAlert without alerter: %v", err)
	}
}

func TestFailureAlertDelegatesToAlerter(t *testing.T) {
	alerter := &fakeAlerter{}
	w := &Worker{alerter: alerter, log: logger.New("development")}

	task, err := NewFailureAlertTask(FailureAlertPayload{RecordingID: "rec-1", ErrorMessage: "audio unreadable"})
	if err != nil {
		t.Fatalf("NewFailureAlertTask: %v", err)
	}
	if err := w.handleFailureAlert(context.Background(), task); err != nil {
		t.Fatalf("handleFailureAlert: %v", err)
	}

	if len(alerter.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerter.alerts))
	}
	if got := alerter.alerts[0]; got.recordingID != "rec-1" || got.errorMessage != "audio unreadable" {
		t.Errorf("alert = %+v", got)
	}
}

func TestNotifyChatWithoutTelegramClientIsAcknowledged(t *testing.T) {
	w := &Worker{log: logger.New("development")}

	task, err := NewNotifyChatTask(NotifyChatPayload{ChatID: 42, Text: "hello"})
	if err != nil {
		t.Fatalf("NewNotifyChatTask: %v", err)
	}
	if err := w.handleNotifyChat(context.Background(), task); err != nil {
		t.Fatalf("handleNotifyChat without client: %v", err)
	}
}
