// Package metrics exposes Prometheus metrics for the governance loop:
// rule evaluations, findings, action state transitions, and remediation
// executions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records all governor metrics on one registry.
type Collector struct {
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	findingsTotal      *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	executionsTotal    *prometheus.CounterVec
	executionDuration  *prometheus.HistogramVec
}

// NewCollector creates a collector with the given namespace/subsystem. If
// registry is nil a fresh one is used, which keeps tests isolated from the
// default registry.
func NewCollector(namespace, subsystem string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "sdlc"
	}
	if subsystem == "" {
		subsystem = "governance"
	}

	c := &Collector{
		registry: registry,
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "evaluations_total",
			Help: "Rule evaluations by rule and outcome.",
		}, []string{"rule", "outcome"}),
		evaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "evaluation_duration_seconds",
			Help:    "Rule evaluation latency.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 2, 10},
		}, []string{"rule"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "findings_total",
			Help: "Findings detected by rule and severity.",
		}, []string{"rule", "severity"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "action_transitions_total",
			Help: "Action state transitions by resulting state.",
		}, []string{"state"}),
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "executions_total",
			Help: "Remediation executions by connector kind and outcome.",
		}, []string{"kind", "outcome"}),
		executionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "execution_duration_seconds",
			Help:    "Remediation execution latency.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60},
		}, []string{"kind"}),
	}

	registry.MustRegister(
		c.evaluationsTotal,
		c.evaluationDuration,
		c.findingsTotal,
		c.transitionsTotal,
		c.executionsTotal,
		c.executionDuration,
	)
	return c
}

// RecordEvaluation records one rule evaluation.
func (c *Collector) RecordEvaluation(rule, outcome string, duration time.Duration) {
	c.evaluationsTotal.WithLabelValues(rule, outcome).Inc()
	c.evaluationDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

// RecordFindings records detected findings for a rule.
func (c *Collector) RecordFindings(rule, severity string, count int) {
	if count > 0 {
		c.findingsTotal.WithLabelValues(rule, severity).Add(float64(count))
	}
}

// RecordTransition records an action reaching a state.
func (c *Collector) RecordTransition(state string) {
	c.transitionsTotal.WithLabelValues(state).Inc()
}

// RecordExecution records one remediation execution attempt.
func (c *Collector) RecordExecution(kind, outcome string, duration time.Duration) {
	c.executionsTotal.WithLabelValues(kind, outcome).Inc()
	c.executionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
