package recordings

import (
	"net/http"
	"strconv"
	"time"

	"bricks_crm_backend/internal/recordings/domain"
	"bricks_crm_backend/internal/telegram"
	"bricks_crm_backend/platform/httpkit"
	"bricks_crm_backend/platform/logger"
	"bricks_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the pipeline's HTTP surface.
type Handler struct {
	service *Service
	cache   *UpdateCache
	val     *validator.Validator
	log     *logger.Logger
}

// NewHandler creates the recordings HTTP handler.
func NewHandler(service *Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: service, val: val, log: log}
}

// SetUpdateCache attaches the optional Redis update_id dedup cache.
func (h *Handler) SetUpdateCache(cache *UpdateCache) { h.cache = cache }

type processingCompleteRequest struct {
	RecordingID   string `json:"recording_id" validate:"required,uuid"`
	Transcription string `json:"transcription" validate:"required,min=1"`
	Status        string `json:"status" validate:"required,oneof=completed failed"`
	ErrorMessage  string `json:"error_message"`
}

type recordingResponse struct {
	ID                uuid.UUID  `json:"id"`
	LeadID            *uuid.UUID `json:"leadId,omitempty"`
	PhoneNumber       string     `json:"phoneNumber"`
	TelegramFileID    string     `json:"telegramFileId"`
	ChatID            int64      `json:"chatId"`
	FileName          string     `json:"fileName"`
	FileSize          int64      `json:"fileSize"`
	ProcessingStatus  string     `json:"processingStatus"`
	State             string     `json:"state"`
	TranscriptionText *string    `json:"transcriptionText,omitempty"`
	ErrorMessage      *string    `json:"errorMessage,omitempty"`
	AudioObjectKey    *string    `json:"audioObjectKey,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ProcessedAt       *time.Time `json:"processedAt,omitempty"`
}

// TelegramWebhook ingests one bot-platform update. Responds 200 for every
// normal outcome so Telegram does not redeliver; only a persistence failure
// surfaces as a 500 to trigger the platform's retry.
func (h *Handler) TelegramWebhook(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid update payload", nil)
		return
	}

	if h.cache != nil && update.UpdateID != 0 {
		first, err := h.cache.FirstSeen(c.Request.Context(), update.UpdateID)
		if err != nil {
			// Cache is advisory; the file-id constraint stays authoritative.
			h.log.Warn("update cache unavailable", "error", err)
		} else if !first {
			httpkit.OK(c, gin.H{"ok": true, "duplicate_update": true})
			return
		}
	}

	if err := h.service.IngestUpdate(c.Request.Context(), update); err != nil {
		// Release the dedup mark before answering 500: Telegram will redeliver
		// this update_id and the retry must not be treated as a duplicate.
		if h.cache != nil && update.UpdateID != 0 {
			if cacheErr := h.cache.Forget(c.Request.Context(), update.UpdateID); cacheErr != nil {
				h.log.Warn("update cache release failed", "error", cacheErr, "update_id", update.UpdateID)
			}
		}
		h.log.Error("webhook ingest failed", "error", err, "update_id", update.UpdateID)
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	httpkit.OK(c, gin.H{"ok": true})
}

// ProcessingComplete receives the transcription worker's terminal callback.
func (h *Handler) ProcessingComplete(c *gin.Context) {
	var req processingCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid callback payload", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid callback payload", err.Error())
		return
	}

	recordingID, err := uuid.Parse(req.RecordingID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid recording_id", nil)
		return
	}

	result, err := h.service.ProcessCallback(c.Request.Context(), recordingID, req.Transcription, req.Status, req.ErrorMessage)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{
		"ok":           true,
		"recording_id": result.RecordingID,
		"state":        result.State,
		"lead_id":      result.LeadID,
		"lead_created": result.LeadCreated,
		"confidence":   result.Confidence,
	})
}

// List returns recordings newest first, filterable by processing status.
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", domain.StatusPending, domain.StatusCompleted, domain.StatusFailed:
	default:
		httpkit.Error(c, http.StatusBadRequest, "invalid status filter", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	recs, err := h.service.ListRecordings(c.Request.Context(), status, limit)
	if err != nil {
		h.log.DatabaseError("recordings.List", err)
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	out := make([]recordingResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec))
	}
	httpkit.OK(c, gin.H{"recordings": out})
}

// Get returns one recording by id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid recording id", nil)
		return
	}

	rec, err := h.service.GetRecording(c.Request.Context(), id)
	if err == ErrNotFound {
		httpkit.Error(c, http.StatusNotFound, "recording not found", nil)
		return
	}
	if err != nil {
		h.log.DatabaseError("recordings.GetByID", err)
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	httpkit.OK(c, toResponse(rec))
}

// Status reports webhook configuration and the processing backlog.
func (h *Handler) Status(cfg interface {
	GetTelegramWebhookSecret() string
	GetProcessingWebhookSecret() string
	GetAllowedChatIDs() []int64
}) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := h.service.BacklogStats(c.Request.Context())
		if err != nil {
			h.log.DatabaseError("recordings.Stats", err)
			httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
			return
		}

		httpkit.OK(c, gin.H{
			"telegramSecretConfigured":   cfg.GetTelegramWebhookSecret() != "",
			"processingSecretConfigured": cfg.GetProcessingWebhookSecret() != "",
			"allowedChats":               len(cfg.GetAllowedChatIDs()),
			"backlog": gin.H{
				"pending":         stats.PendingCount,
				"pendingPhone":    stats.PendingPhoneCount,
				"failed":          stats.FailedCount,
				"lastRecordingAt": stats.LastRecordingAt,
			},
		})
	}
}

func toResponse(rec domain.Recording) recordingResponse {
	return recordingResponse{
		ID:                rec.ID,
		LeadID:            rec.LeadID,
		PhoneNumber:       rec.PhoneNumber,
		TelegramFileID:    rec.TelegramFileID,
		ChatID:            rec.ChatID,
		FileName:          rec.FileName,
		FileSize:          rec.FileSize,
		ProcessingStatus:  rec.ProcessingStatus,
		State:             string(domain.StateOf(rec)),
		TranscriptionText: rec.TranscriptionText,
		ErrorMessage:      rec.ErrorMessage,
		AudioObjectKey:    rec.AudioObjectKey,
		CreatedAt:         rec.CreatedAt,
		ProcessedAt:       rec.ProcessedAt,
	}
}
