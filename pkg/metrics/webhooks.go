package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics tracks payment-gateway event processing. Verified events
// whose downstream handling fails are acknowledged to the sender anyway, so
// the failure counter is the only place those errors stay visible.
type WebhookMetrics struct {
	received *prometheus.CounterVec
	failed   *prometheus.CounterVec
	rejected prometheus.Counter
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Gateway events that passed signature verification.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Verified gateway events whose processing failed after acknowledgement.",
	}, []string{"event_type"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_rejected",
		Help: "Gateway events rejected before processing (signature/body).",
	})
	reg.MustRegister(received, failed, rejected)
	return &WebhookMetrics{
		received: received,
		failed:   failed,
		rejected: rejected,
	}
}

// IncReceived increments the received counter for the event type.
func (m *WebhookMetrics) IncReceived(eventType string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (m *WebhookMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncRejected increments the pre-verification rejection counter.
func (m *WebhookMetrics) IncRejected() {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
