package recordings

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"

	"bricks_crm_backend/internal/storage"
	"bricks_crm_backend/internal/telegram"
)

// TelegramArchiver copies a recording's audio from the Bot API file store into
// the MinIO bucket, keyed by recording id. Telegram only keeps files for a
// limited time; the archive is the durable copy.
type TelegramArchiver struct {
	client  *telegram.Client
	storage *storage.MinIOService
}

// NewTelegramArchiver creates the audio archiver.
func NewTelegramArchiver(client *telegram.Client, store *storage.MinIOService) *TelegramArchiver {
	return &TelegramArchiver{client: client, storage: store}
}

// Archive implements Archiver.
func (a *TelegramArchiver) Archive(ctx context.Context, recordingID uuid.UUID, fileID string) (string, error) {
	file, err := a.client.GetFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file path: %w", err)
	}

	body, size, err := a.client.DownloadFile(ctx, file.FilePath)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	defer body.Close()

	ext := path.Ext(file.FilePath)
	if ext == "" {
		ext = ".ogg"
	}
	objectKey := fmt.Sprintf("recordings/%s%s", recordingID, ext)

	if err := a.storage.UploadAudio(ctx, objectKey, contentTypeForExt(ext), body, size); err != nil {
		return "", err
	}
	return objectKey, nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".amr":
		return "audio/amr"
	default:
		return "application/octet-stream"
	}
}
