package secured

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbudis/secured/core"
)

// Metric names.
const (
	MetricDecisions        = "secured_decisions_total"
	MetricDenials          = "secured_denials_total"
	MetricDecisionDuration = "secured_decision_duration_seconds"
)

// Outcome label values.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

// PrometheusMetrics counts decisions and denials. It implements both
// core.DenialSink and core.DecisionObserver.
type PrometheusMetrics struct {
	decisions *prometheus.CounterVec
	denials   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg,
// or with prometheus.DefaultRegisterer when reg is nil. Registering twice
// with the same registerer reuses the existing collectors.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDecisions,
			Help: "Authorization decisions by operation and outcome.",
		}, []string{"operation", "outcome"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDenials,
			Help: "Denied authorization attempts by operation and reason kind.",
		}, []string{"operation", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricDecisionDuration,
			Help:    "Time spent deciding authorization requests.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"operation", "outcome"}),
	}

	var err error
	if m.decisions, err = register(reg, m.decisions); err != nil {
		return nil, err
	}
	if m.denials, err = register(reg, m.denials); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDenial implements core.DenialSink.
func (m *PrometheusMetrics) RecordDenial(_ context.Context, event core.DenialEvent) {
	m.denials.WithLabelValues(event.Operation, string(event.Kind)).Inc()
}

// ObserveDecision implements core.DecisionObserver.
func (m *PrometheusMetrics) ObserveDecision(operation string, kind core.Kind, duration time.Duration) {
	outcome := OutcomeAllowed
	if kind != "" {
		outcome = OutcomeDenied
	}
	m.decisions.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}
