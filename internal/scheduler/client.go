package scheduler

import (
	"context"
	"fmt"

	"bricks_crm_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues pipeline tasks. It satisfies recordings.Notifier, so when
// Redis is configured every outbound chat message goes through the queue and
// survives Bot API hiccups via asynq's retry.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Notify implements recordings.Notifier by enqueueing the send.
func (c *Client) Notify(ctx context.Context, chatID int64, text string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewNotifyChatTask(NotifyChatPayload{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(5))
	return err
}

// EnqueueFailureAlert schedules an operator email for a failed recording.
func (c *Client) EnqueueFailureAlert(ctx context.Context, recordingID, errorMessage string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewFailureAlertTask(FailureAlertPayload{RecordingID: recordingID, ErrorMessage: errorMessage})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(3))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
