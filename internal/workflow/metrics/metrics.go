package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the onboarding workflow and the
// verification fan-out.
type Metrics struct {
	// Executions started
	ExecutionsStarted prometheus.Counter

	// Executions reaching a terminal status, by status
	ExecutionsFinished *prometheus.CounterVec

	// Stage durations by stage name
	StageDuration *prometheus.HistogramVec

	// Per-check latencies by check name
	CheckLatency *prometheus.HistogramVec

	// Check failures (error or timeout) by check name
	CheckFailures *prometheus.CounterVec

	// Decision outcomes by status
	DecisionOutcome *prometheus.CounterVec
}

// New creates a Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		ExecutionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_executions_started_total",
			Help: "Total onboarding workflow executions started",
		}),

		ExecutionsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_executions_finished_total",
			Help: "Total executions reaching a terminal status, by status",
		}, []string{"status"}),

		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboard_stage_duration_seconds",
			Help:    "Duration of workflow stages by stage name",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}),

		CheckLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboard_check_duration_seconds",
			Help:    "Duration of verification checks by check name",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"check"}),

		CheckFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_check_failures_total",
			Help: "Verification checks degraded to sentinel results, by check name",
		}, []string{"check"}),

		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_decision_outcomes_total",
			Help: "Total application decisions by status",
		}, []string{"status"}),
	}
}

// IncExecutionsStarted records a workflow start.
func (m *Metrics) IncExecutionsStarted() {
	if m != nil {
		m.ExecutionsStarted.Inc()
	}
}

// IncExecutionsFinished records a terminal transition.
func (m *Metrics) IncExecutionsFinished(status string) {
	if m != nil {
		m.ExecutionsFinished.WithLabelValues(status).Inc()
	}
}

// ObserveStageDuration records how long one stage took.
func (m *Metrics) ObserveStageDuration(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveCheckLatency records the duration of one verification check.
func (m *Metrics) ObserveCheckLatency(check string, d time.Duration) {
	if m != nil {
		m.CheckLatency.WithLabelValues(check).Observe(d.Seconds())
	}
}

// IncCheckFailure records a check degraded to a sentinel result.
func (m *Metrics) IncCheckFailure(check string) {
	if m != nil {
		m.CheckFailures.WithLabelValues(check).Inc()
	}
}

// IncDecisionOutcome records an application decision.
func (m *Metrics) IncDecisionOutcome(status string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(status).Inc()
	}
}
