package recordings

import (
	apphttp "bricks_crm_backend/internal/http"
	"bricks_crm_backend/platform/httpkit"
)

// Module wires the recordings bounded context into the HTTP layer.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule assembles the recordings module from its already-built parts.
func NewModule(service *Service, handler *Handler) *Module {
	return &Module{service: service, handler: handler}
}

// Service exposes the pipeline service for cross-module wiring.
func (m *Module) Service() *Service { return m.service }

// Name implements http.Module.
func (m *Module) Name() string { return "recordings" }

// RegisterRoutes implements http.Module.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	webhooks := ctx.Webhooks
	webhooks.POST("/telegram",
		httpkit.SecretHeader("X-Telegram-Bot-Api-Secret-Token", ctx.Config.GetTelegramWebhookSecret()),
		m.handler.TelegramWebhook,
	)
	webhooks.POST("/processing-complete",
		httpkit.SecretHeader("X-Webhook-Secret", ctx.Config.GetProcessingWebhookSecret()),
		m.handler.ProcessingComplete,
	)

	recordings := ctx.V1.Group("/recordings")
	recordings.GET("", m.handler.List)
	recordings.GET("/status", m.handler.Status(ctx.Config))
	recordings.GET("/:id", m.handler.Get)
}
