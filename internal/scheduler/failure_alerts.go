package scheduler

import (
	"context"

	"bricks_crm_backend/internal/events"
	"bricks_crm_backend/platform/logger"
)

// RegisterFailureAlerts subscribes a dispatch function to recording failures.
// dispatch is either Client.EnqueueFailureAlert (queue mode) or the email
// sender's SendFailureAlert (direct mode, no Redis).
func RegisterFailureAlerts(bus events.Bus, dispatch func(ctx context.Context, recordingID, errorMessage string) error, log *logger.Logger) {
	bus.Subscribe("recordings.failed", events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.RecordingFailed)
		if !ok {
			return nil
		}
		if err := dispatch(ctx, e.RecordingID.String(), e.ErrorMessage); err != nil {
			log.Error("failure alert dispatch failed", "error", err, "recording_id", e.RecordingID)
			return err
		}
		return nil
	}))
}
