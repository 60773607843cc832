package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts processed payment webhooks by flow and outcome.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhooks processed, by flow, event type and result.",
	}, []string{"flow", "event_type", "result"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

// ObserveWebhook increments the counter for one processed event.
func (w *WebhookMetrics) ObserveWebhook(flow, eventType, result string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(normalizeLabel(flow), normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// DispatchMetrics tracks outbox dispatcher throughput.
type DispatchMetrics struct {
	processed *prometheus.CounterVec
	pending   prometheus.Gauge
}

// NewDispatchMetrics registers the dispatcher metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_processed_total",
		Help: "Outbox rows handled by the dispatcher, by event type and result.",
	}, []string{"event_type", "result"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_events_pending",
		Help: "Unpublished outbox rows still eligible for dispatch.",
	})
	reg.MustRegister(processed, pending)
	return &DispatchMetrics{processed: processed, pending: pending}
}

// IncProcessed counts one handled row.
func (d *DispatchMetrics) IncProcessed(eventType, result string) {
	if d == nil || d.processed == nil {
		return
	}
	d.processed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// SetPending records the current backlog.
func (d *DispatchMetrics) SetPending(count int64) {
	if d == nil || d.pending == nil {
		return
	}
	d.pending.Set(float64(count))
}
