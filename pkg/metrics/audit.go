package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuditMetrics tracks audit trail writes that could not be persisted.
type AuditMetrics struct {
	writeFailures *prometheus.CounterVec
}

func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	if reg == nil {
		return &AuditMetrics{}
	}
	writeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Admin audit entries that failed to persist.",
	}, []string{"action"})
	reg.MustRegister(writeFailures)
	return &AuditMetrics{writeFailures: writeFailures}
}

func (a *AuditMetrics) IncWriteFailure(action string) {
	if a == nil || a.writeFailures == nil {
		return
	}
	a.writeFailures.WithLabelValues(normalizeLabel(action)).Inc()
}
