package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphttp "bricks_crm_backend/internal/http"
)

// Module serves the Prometheus scrape endpoint.
type Module struct{}

func NewModule() *Module { return &Module{} }

// Name implements http.Module.
func (m *Module) Name() string { return "metrics" }

// RegisterRoutes implements http.Module. The scrape endpoint sits outside the
// versioned API; it is not part of the public surface.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
