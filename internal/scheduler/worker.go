package scheduler

import (
	"context"
	"fmt"

	"bricks_crm_backend/internal/telegram"
	"bricks_crm_backend/platform/config"
	"bricks_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// FailureAlerter emails operators about a failed recording.
type FailureAlerter interface {
	SendFailureAlert(ctx context.Context, recordingID, errorMessage string) error
}

// Worker drains the pipeline task queue: outbound chat sends and operator
// failure alerts.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	telegram *telegram.Client
	alerter  FailureAlerter
	log      *logger.Logger
}

// NewWorker creates the queue worker. alerter may be nil when email is not
// configured; failure-alert tasks are then acknowledged without sending.
func NewWorker(cfg config.SchedulerConfig, tg *telegram.Client, alerter FailureAlerter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		telegram: tg,
		alerter:  alerter,
		log:      log,
	}

	mux.HandleFunc(TaskNotifyChat, w.handleNotifyChat)
	mux.HandleFunc(TaskFailureAlert, w.handleFailureAlert)

	return w, nil
}

func (w *Worker) handleNotifyChat(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotifyChatPayload(task)
	if err != nil {
		return err
	}

	if w.telegram == nil {
		return nil
	}

	return w.telegram.SendMessage(ctx, payload.ChatID, payload.Text)
}

func (w *Worker) handleFailureAlert(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFailureAlertPayload(task)
	if err != nil {
		return err
	}

	if w.alerter == nil {
		w.log.Debug("failure alert skipped, email not configured", "recording_id", payload.RecordingID)
		return nil
	}

	return w.alerter.SendFailureAlert(ctx, payload.RecordingID, payload.ErrorMessage)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
