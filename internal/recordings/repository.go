package recordings

import (
	"context"
	"errors"
	"time"

	"bricks_crm_backend/internal/recordings/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("recording not found")
	ErrDuplicateFileID = errors.New("recording with this file id already exists")
)

const pgUniqueViolation = "23505"

const recordingColumns = `
	id, lead_id, phone_number, telegram_file_id, telegram_message_id,
	chat_id, sender_id, file_name, file_size, processing_status,
	transcription_text, error_message, audio_object_key, created_at, processed_at`

// NewRecordingParams carries the fields set at ingest time.
type NewRecordingParams struct {
	LeadID            *uuid.UUID
	PhoneNumber       string
	TelegramFileID    string
	TelegramMessageID int64
	ChatID            int64
	SenderID          int64
	FileName          string
	FileSize          int64
}

// BacklogStats summarizes the pipeline backlog for operational monitoring.
type BacklogStats struct {
	PendingCount      int64
	PendingPhoneCount int64
	FailedCount       int64
	LastRecordingAt   *time.Time
}

// Repository provides data access for call recordings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new recording with processing_status = pending.
// A second insert with the same telegram_file_id returns ErrDuplicateFileID;
// the unique index is the pipeline's idempotency guarantee under concurrent
// delivery retries.
func (r *Repository) Create(ctx context.Context, params NewRecordingParams) (domain.Recording, error) {
	var rec domain.Recording
	err := r.pool.QueryRow(ctx, `
		INSERT INTO call_recordings (id, lead_id, phone_number, telegram_file_id,
			telegram_message_id, chat_id, sender_id, file_name, file_size, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+recordingColumns+`
	`, uuid.New(), params.LeadID, params.PhoneNumber, params.TelegramFileID,
		params.TelegramMessageID, params.ChatID, params.SenderID,
		params.FileName, params.FileSize, domain.StatusPending,
	).Scan(scanTargets(&rec)...)
	if isUniqueViolation(err) {
		return domain.Recording{}, ErrDuplicateFileID
	}
	return rec, err
}

// GetByID returns a single recording.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Recording, error) {
	return r.queryOne(ctx, `
		SELECT `+recordingColumns+`
		FROM call_recordings
		WHERE id = $1
	`, id)
}

// GetByFileID returns the recording stored for a Telegram file id, if any.
func (r *Repository) GetByFileID(ctx context.Context, fileID string) (domain.Recording, error) {
	return r.queryOne(ctx, `
		SELECT `+recordingColumns+`
		FROM call_recordings
		WHERE telegram_file_id = $1
	`, fileID)
}

// LatestPendingPhone returns the most recent recording for the chat that is
// still waiting for a PHONE: reply. The "most recent" lookup is racy when a
// sender has several pending recordings at once; see the service docs.
func (r *Repository) LatestPendingPhone(ctx context.Context, chatID int64) (domain.Recording, error) {
	return r.queryOne(ctx, `
		SELECT `+recordingColumns+`
		FROM call_recordings
		WHERE chat_id = $1 AND phone_number = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, chatID, domain.PendingPhone)
}

// LatestCompletedWithoutLead returns the most recent completed recording for
// the chat that has no linked lead (waiting for a NAME: reply).
func (r *Repository) LatestCompletedWithoutLead(ctx context.Context, chatID int64) (domain.Recording, error) {
	return r.queryOne(ctx, `
		SELECT `+recordingColumns+`
		FROM call_recordings
		WHERE chat_id = $1 AND lead_id IS NULL AND processing_status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, chatID, domain.StatusCompleted)
}

// UpdatePhoneAndLead backfills the phone number (and optionally the lead
// link) resolved by a PHONE: command.
func (r *Repository) UpdatePhoneAndLead(ctx context.Context, id uuid.UUID, phoneNumber string, leadID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_recordings
		SET phone_number = $2, lead_id = $3
		WHERE id = $1
	`, id, phoneNumber, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkLead associates a recording with a lead.
func (r *Repository) LinkLead(ctx context.Context, id uuid.UUID, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_recordings
		SET lead_id = $2
		WHERE id = $1
	`, id, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProcessingResult writes the transcription worker's terminal outcome.
// error_message is cleared unless the status is failed.
func (r *Repository) UpdateProcessingResult(ctx context.Context, id uuid.UUID, status, transcription, errorMessage string) error {
	var errMsg *string
	if status == domain.StatusFailed && errorMessage != "" {
		errMsg = &errorMessage
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_recordings
		SET processing_status = $2, transcription_text = $3, error_message = $4, processed_at = now()
		WHERE id = $1
	`, id, status, transcription, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAudioObjectKey records where the raw audio was archived.
func (r *Repository) SetAudioObjectKey(ctx context.Context, id uuid.UUID, objectKey string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE call_recordings
		SET audio_object_key = $2
		WHERE id = $1
	`, id, objectKey)
	return err
}

// List returns recordings newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string, limit int) ([]domain.Recording, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordingColumns+`
		FROM call_recordings
		WHERE ($1 = '' OR processing_status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.Recording
	for rows.Next() {
		var rec domain.Recording
		if err := rows.Scan(scanTargets(&rec)...); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Stats returns backlog counts for the status endpoint.
func (r *Repository) Stats(ctx context.Context) (BacklogStats, error) {
	var stats BacklogStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE processing_status = $1),
			count(*) FILTER (WHERE phone_number = $2),
			count(*) FILTER (WHERE processing_status = $3),
			max(created_at)
		FROM call_recordings
	`, domain.StatusPending, domain.PendingPhone, domain.StatusFailed).Scan(
		&stats.PendingCount, &stats.PendingPhoneCount, &stats.FailedCount, &stats.LastRecordingAt,
	)
	return stats, err
}

func (r *Repository) queryOne(ctx context.Context, sql string, args ...any) (domain.Recording, error) {
	var rec domain.Recording
	err := r.pool.QueryRow(ctx, sql, args...).Scan(scanTargets(&rec)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Recording{}, ErrNotFound
	}
	return rec, err
}

func scanTargets(rec *domain.Recording) []any {
	return []any{
		&rec.ID, &rec.LeadID, &rec.PhoneNumber, &rec.TelegramFileID,
		&rec.TelegramMessageID, &rec.ChatID, &rec.SenderID, &rec.FileName,
		&rec.FileSize, &rec.ProcessingStatus, &rec.TranscriptionText,
		&rec.ErrorMessage, &rec.AudioObjectKey, &rec.CreatedAt, &rec.ProcessedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
