package recordings

import (
	"context"

	"bricks_crm_backend/internal/telegram"
)

// DirectNotifier sends outbound messages synchronously through the Bot API.
// Used when no task queue is configured; the queue-backed notifier lives in
// the scheduler package.
type DirectNotifier struct {
	client *telegram.Client
}

// NewDirectNotifier wraps the Telegram client as a Notifier.
func NewDirectNotifier(client *telegram.Client) *DirectNotifier {
	return &DirectNotifier{client: client}
}

// Notify implements Notifier.
func (n *DirectNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	return n.client.SendMessage(ctx, chatID, text)
}
