package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for validation and sync.
type Metrics struct {
	// Individual check latencies by check name
	CheckLatency *prometheus.HistogramVec

	// Validation outcomes by status
	Outcomes *prometheus.CounterVec

	// Sync attempts by target and outcome
	SyncAttempts *prometheus.CounterVec

	// Overall validate-and-sync latency
	OrchestrationLatency prometheus.Histogram
}

// New creates a Metrics instance with all validation metrics registered.
func New() *Metrics {
	return &Metrics{
		CheckLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mailguard_validation_check_duration_seconds",
			Help:    "Duration of individual validation checks by check name",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"check"}), // check: "mx", "disposable", "blacklist", "free_provider"

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mailguard_validation_outcomes_total",
			Help: "Total validation outcomes by status",
		}, []string{"status"}),

		SyncAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mailguard_sync_attempts_total",
			Help: "Total sync attempts by target and outcome",
		}, []string{"target", "outcome"}), // outcome: "ok", "error", "skipped"

		OrchestrationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailguard_orchestration_duration_seconds",
			Help:    "Duration of full validate-and-sync runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveCheckLatency records the duration of a single validation check.
func (m *Metrics) ObserveCheckLatency(check string, d time.Duration) {
	if m != nil {
		m.CheckLatency.WithLabelValues(check).Observe(d.Seconds())
	}
}

// IncOutcome records a validation outcome.
func (m *Metrics) IncOutcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

// IncSyncAttempt records the outcome of one sync target attempt.
func (m *Metrics) IncSyncAttempt(target, outcome string) {
	if m != nil {
		m.SyncAttempts.WithLabelValues(target, outcome).Inc()
	}
}

// ObserveOrchestration records the total validate-and-sync duration.
func (m *Metrics) ObserveOrchestration(d time.Duration) {
	if m != nil {
		m.OrchestrationLatency.Observe(d.Seconds())
	}
}
