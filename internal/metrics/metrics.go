// Package metrics exposes Prometheus counters for the intake pipeline.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"bricks_crm_backend/internal/events"
)

// PipelineMetrics counts the pipeline's externally visible outcomes.
type PipelineMetrics struct {
	ingestedTotal    *prometheus.CounterVec
	duplicatesTotal  prometheus.Counter
	reconciledTotal  prometheus.Counter
	processedTotal   *prometheus.CounterVec
	failedTotal      prometheus.Counter
	leadsAutoCreated prometheus.Counter
}

// NewPipelineMetrics registers the pipeline counters on reg (the default
// registerer when nil).
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		ingestedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricks_crm",
			Subsystem: "recordings",
			Name:      "ingested_total",
			Help:      "Total recordings accepted from the Telegram webhook",
		}, []string{"phone_found"}),
		duplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bricks_crm",
			Subsystem: "recordings",
			Name:      "duplicates_total",
			Help:      "Total recordings rejected as duplicate file ids",
		}),
		reconciledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bricks_crm",
			Subsystem: "recordings",
			Name:      "reconciled_total",
			Help:      "Total recordings resolved by PHONE: or NAME: commands",
		}),
		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricks_crm",
			Subsystem: "recordings",
			Name:      "processed_total",
			Help:      "Total transcription callbacks completed",
		}, []string{"lead_linked"}),
		failedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bricks_crm",
			Subsystem: "recordings",
			Name:      "failed_total",
			Help:      "Total transcription callbacks reporting failure",
		}),
		leadsAutoCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bricks_crm",
			Subsystem: "leads",
			Name:      "auto_created_total",
			Help:      "Total leads auto-created from call recordings",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.ingestedTotal,
		m.duplicatesTotal,
		m.reconciledTotal,
		m.processedTotal,
		m.failedTotal,
		m.leadsAutoCreated,
	)
	return m
}

// RegisterHandlers subscribes the counters to the pipeline's domain events.
func (m *PipelineMetrics) RegisterHandlers(bus events.Bus) {
	bus.Subscribe("recordings.ingested", events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.RecordingIngested); ok {
			m.ingestedTotal.WithLabelValues(boolLabel(e.PhoneFound)).Inc()
		}
		return nil
	}))
	bus.Subscribe("recordings.duplicate", events.HandlerFunc(func(_ context.Context, _ events.Event) error {
		m.duplicatesTotal.Inc()
		return nil
	}))
	bus.Subscribe("recordings.reconciled", events.HandlerFunc(func(_ context.Context, _ events.Event) error {
		m.reconciledTotal.Inc()
		return nil
	}))
	bus.Subscribe("recordings.processed", events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.RecordingProcessed); ok {
			m.processedTotal.WithLabelValues(boolLabel(e.LeadID != nil)).Inc()
		}
		return nil
	}))
	bus.Subscribe("recordings.failed", events.HandlerFunc(func(_ context.Context, _ events.Event) error {
		m.failedTotal.Inc()
		return nil
	}))
	bus.Subscribe("leads.auto_created", events.HandlerFunc(func(_ context.Context, _ events.Event) error {
		m.leadsAutoCreated.Inc()
		return nil
	}))
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
