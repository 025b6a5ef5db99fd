package metrics

import "github.com/prometheus/client_golang/prometheus"

// CPCMetrics tracks click-billing outcomes. Declined debits are a normal
// path (budget exhausted) but worth watching for pricing and fraud signals.
type CPCMetrics struct {
	debits *prometheus.CounterVec
}

// NewCPCMetrics registers the CPC counters on the provided registerer.
func NewCPCMetrics(reg prometheus.Registerer) *CPCMetrics {
	if reg == nil {
		return &CPCMetrics{}
	}
	debits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cpc_debits",
		Help: "Click debit attempts by outcome (applied/declined).",
	}, []string{"outcome"})
	reg.MustRegister(debits)
	return &CPCMetrics{debits: debits}
}

// IncDebit increments the debit counter for the given outcome.
func (m *CPCMetrics) IncDebit(outcome string) {
	if m == nil || m.debits == nil {
		return
	}
	m.debits.WithLabelValues(normalizeLabel(outcome)).Inc()
}
