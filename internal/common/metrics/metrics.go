// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Total number of wizard step transitions",
		},
		[]string{"from", "to"},
	)

	WizardValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_validation_failures_total",
			Help: "Total number of rejected wizard submissions",
		},
		[]string{"step", "error_code"},
	)

	MatchScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_compatibility_score",
			Help:    "Distribution of generated compatibility scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	EmailDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_dispatch_total",
			Help: "Total number of email dispatch attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)

	EmailDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "email_dispatch_duration_seconds",
			Help: "Duration of email dispatch in seconds",
		},
		[]string{"provider"},
	)

	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_notifications_total",
			Help: "Total number of notifications surfaced to visitors",
		},
		[]string{"kind"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wizard_sessions_active",
			Help: "Number of live wizard sessions",
		},
	)
)

// RecordTransition counts one step change.
func RecordTransition(from, to string) {
	WizardTransitions.WithLabelValues(from, to).Inc()
}
