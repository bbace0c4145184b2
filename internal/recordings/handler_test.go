package recordings

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bricks_crm_backend/internal/telegram"
	"bricks_crm_backend/platform/logger"
	"bricks_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

func newWebhookTestServer(t *testing.T, env *testEnv) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache, _ := newUpdateCacheForTest(t)
	handler := NewHandler(env.service, validator.New(), logger.New("development"))
	handler.SetUpdateCache(cache)

	engine := gin.New()
	engine.POST("/webhook/telegram", handler.TelegramWebhook)
	return engine
}

func postUpdate(t *testing.T, engine *gin.Engine, update telegram.Update) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	return resp
}

func TestWebhookRedeliveryAfterTransientStoreFailureIsProcessed(t *testing.T) {
	env := newTestEnv()
	engine := newWebhookTestServer(t, env)
	update := audioUpdate(42, "file-1", "Robin_9876543210.wav")

	env.recordings.fail = errors.New("db down")
	if resp := postUpdate(t, engine, update); resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 while the store is down", resp.Code)
	}

	// Telegram redelivers on non-2xx; the retry must not be answered as a
	// duplicate of a recording that was never stored.
	env.recordings.fail = nil
	resp := postUpdate(t, engine, update)
	if resp.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", resp.Code)
	}
	if containsText(resp.Body.String(), "duplicate_update") {
		t.Errorf("retry answered as duplicate: %s", resp.Body.String())
	}
	if len(env.recordings.recs) != 1 {
		t.Fatalf("retry after transient failure persisted %d recordings, want 1", len(env.recordings.recs))
	}
}

func TestWebhookRepeatedDeliveryIsShortCircuitedByUpdateCache(t *testing.T) {
	env := newTestEnv()
	engine := newWebhookTestServer(t, env)
	update := audioUpdate(42, "file-1", "Robin_9876543210.wav")

	if resp := postUpdate(t, engine, update); resp.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", resp.Code)
	}
	sendsAfterFirst := env.notifier.count()

	resp := postUpdate(t, engine, update)
	if resp.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", resp.Code)
	}
	if !containsText(resp.Body.String(), "duplicate_update") {
		t.Errorf("redelivery of a stored update must be marked duplicate: %s", resp.Body.String())
	}
	if len(env.recordings.recs) != 1 {
		t.Errorf("expected 1 recording after redelivery, got %d", len(env.recordings.recs))
	}
	if env.notifier.count() != sendsAfterFirst {
		t.Error("short-circuited redelivery must not send another reply")
	}
}
