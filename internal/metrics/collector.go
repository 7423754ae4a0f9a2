// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the process-wide execution metrics.
type Collector struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	evaluationsTotal  *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the collectors under namespace on reg. Pass a
// dedicated registry in tests to avoid duplicate registration.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.executionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crew_executions_total",
			Help:      "Total number of crew executions by terminal status",
		},
		[]string{"crew", "status"},
	)

	c.executionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crew_execution_duration_seconds",
			Help:      "Crew execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"crew"},
	)

	c.evaluationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crew_evaluations_total",
			Help:      "Total number of post-execution evaluations by tier",
		},
		[]string{"tier"},
	)

	return c
}

// RecordExecution records one finished execution.
func (c *Collector) RecordExecution(crew, status string, duration time.Duration) {
	c.executionsTotal.WithLabelValues(crew, status).Inc()
	c.executionDuration.WithLabelValues(crew).Observe(duration.Seconds())
}

// RecordEvaluation records which evaluation tier produced the report.
func (c *Collector) RecordEvaluation(tier string) {
	c.evaluationsTotal.WithLabelValues(tier).Inc()
}
