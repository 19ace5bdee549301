// Package metrics defines the Prometheus instruments of the audit service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fairhire"

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultMiss    = "miss"
)

// Metrics holds every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	auditsTotal          *prometheus.CounterVec
	stepDuration         *prometheus.HistogramVec
	stepOutcomes         *prometheus.CounterVec
	findingsTotal        *prometheus.CounterVec
	storeOperationsTotal *prometheus.CounterVec
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
}

// New registers the instruments with reg.
// Use prometheus.NewRegistry() in tests to keep runs independent.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		auditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audits_total",
				Help:      "Total audit runs partitioned by result.",
			},
			[]string{"result"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "step_duration_seconds",
				Help:      "Duration of pipeline steps.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		stepOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "step_outcomes_total",
				Help:      "Pipeline step executions partitioned by outcome (ran, skipped, failed).",
			},
			[]string{"step", "outcome"},
		),
		findingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Findings produced partitioned by type and verdict.",
			},
			[]string{"type", "biased"},
		),
		storeOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Result store operations partitioned by operation and result.",
			},
			[]string{"op", "result"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests partitioned by method, route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveAudit counts a finished audit run.
func (m *Metrics) ObserveAudit(err error) {
	if m == nil {
		return
	}
	m.auditsTotal.WithLabelValues(result(err)).Inc()
}

// ObserveStep records a step's duration and outcome.
func (m *Metrics) ObserveStep(step, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
	m.stepOutcomes.WithLabelValues(step, outcome).Inc()
}

// ObserveFinding counts a finding.
func (m *Metrics) ObserveFinding(findingType string, biased bool) {
	if m == nil {
		return
	}
	b := "false"
	if biased {
		b = "true"
	}
	m.findingsTotal.WithLabelValues(findingType, b).Inc()
}

// ObserveStoreOperation counts a result store call with an explicit result label.
func (m *Metrics) ObserveStoreOperation(op, result string) {
	if m == nil {
		return
	}
	m.storeOperationsTotal.WithLabelValues(op, result).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
