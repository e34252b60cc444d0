package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics tracks inbound provider event processing.
type WebhookMetrics struct {
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewWebhookMetrics registers webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed_total",
		Help: "Webhook events fully processed.",
	}, []string{"provider", "event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed_total",
		Help: "Webhook events that ended in a processing error.",
	}, []string{"provider", "event_type"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate_total",
		Help: "Webhook redeliveries short-circuited by the ledger.",
	}, []string{"provider"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_event_duration_seconds",
		Help:    "Time spent handling a webhook event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	reg.MustRegister(processed, failed, duplicate, duration)
	return &WebhookMetrics{
		processed: processed,
		failed:    failed,
		duplicate: duplicate,
		duration:  duration,
	}
}

// IncProcessed counts a successfully handled event.
func (w *WebhookMetrics) IncProcessed(provider, eventType string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(provider), normalizeLabel(eventType)).Inc()
}

// IncFailed counts an event that errored out.
func (w *WebhookMetrics) IncFailed(provider, eventType string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(provider), normalizeLabel(eventType)).Inc()
}

// IncDuplicate counts a redelivery the ledger already knew about.
func (w *WebhookMetrics) IncDuplicate(provider string) {
	if w == nil || w.duplicate == nil {
		return
	}
	w.duplicate.WithLabelValues(normalizeLabel(provider)).Inc()
}

// ObserveDuration records how long an event took end to end.
func (w *WebhookMetrics) ObserveDuration(provider string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}
