package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Total number of ledger entries recorded",
		},
		[]string{"type"},
	)

	ReferenceCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_reference_collisions_total",
			Help: "Total number of generated references that were already taken",
		},
	)

	RequestDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_request_decisions_total",
			Help: "Total number of deposit and withdrawal decisions by outcome",
		},
		[]string{"kind", "outcome"},
	)

	InvestmentsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_investments_started_total",
			Help: "Total number of investment positions opened",
		},
	)

	InvestmentsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_investments_completed_total",
			Help: "Total number of investment positions completed and paid out",
		},
	)

	MaturitySweepFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_maturity_sweep_failures_total",
			Help: "Total number of positions the maturity sweep failed to complete",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordLedgerEntry(txType string) {
	LedgerEntriesTotal.WithLabelValues(txType).Inc()
}

func RecordReferenceCollision() {
	ReferenceCollisionsTotal.Inc()
}

// RecordRequestDecision counts an admin decision. kind is deposit or withdrawal; outcome is
// approved, rejected, auto_rejected or noop.
func RecordRequestDecision(kind, outcome string) {
	RequestDecisionsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordInvestmentStarted() {
	InvestmentsStartedTotal.Inc()
}

func RecordInvestmentCompleted() {
	InvestmentsCompletedTotal.Inc()
}

func RecordMaturitySweepFailure() {
	MaturitySweepFailuresTotal.Inc()
}
