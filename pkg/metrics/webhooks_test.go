package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWebhookMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.IncReceived("checkout.session.completed")
	m.IncReceived("checkout.session.completed")
	m.IncFailed("checkout.session.completed")
	m.IncRejected()

	if got := testutil.ToFloat64(m.received.WithLabelValues("checkout.session.completed")); got != 2 {
		t.Fatalf("received = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failed.WithLabelValues("checkout.session.completed")); got != 1 {
		t.Fatalf("failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rejected); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *WebhookMetrics
	m.IncReceived("x")
	m.IncFailed("x")
	m.IncRejected()

	var c *CPCMetrics
	c.IncDebit("applied")

	empty := NewWebhookMetrics(nil)
	empty.IncReceived("unlabeled")
}

func TestCPCMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCPCMetrics(reg)

	m.IncDebit("applied")
	m.IncDebit("declined")
	m.IncDebit("declined")

	if got := testutil.ToFloat64(m.debits.WithLabelValues("declined")); got != 2 {
		t.Fatalf("declined = %v, want 2", got)
	}
}
