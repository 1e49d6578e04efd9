package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector provides Prometheus metrics collection for tree operations
type MetricsCollector struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	liveEventsTotal   *prometheus.CounterVec
	graphCount        *prometheus.GaugeVec
	registry          *prometheus.Registry
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	operationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinship_operations_total",
			Help: "Total number of tree operations by type and status",
		},
		[]string{"operation", "status"},
	)

	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kinship_operation_duration_seconds",
			Help:    "Duration of tree operations by type and stage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"operation", "stage"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinship_errors_total",
			Help: "Total number of errors by operation and error type",
		},
		[]string{"operation", "error_type"},
	)

	liveEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinship_live_events_total",
			Help: "Live update events received by event type and outcome",
		},
		[]string{"event", "outcome"},
	)

	graphCount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kinship_graph_count",
			Help: "Current size of the loaded graph by kind",
		},
		[]string{"kind"},
	)

	registry.MustRegister(operationsTotal)
	registry.MustRegister(operationDuration)
	registry.MustRegister(errorsTotal)
	registry.MustRegister(liveEventsTotal)
	registry.MustRegister(graphCount)

	return &MetricsCollector{
		operationsTotal:   operationsTotal,
		operationDuration: operationDuration,
		errorsTotal:       errorsTotal,
		liveEventsTotal:   liveEventsTotal,
		graphCount:        graphCount,
		registry:          registry,
	}
}

// RecordOperation records the completion of an operation
func (m *MetricsCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordStage records the duration of a specific stage within an operation
func (m *MetricsCollector) RecordStage(ctx context.Context, operation string, stage string, durationMs int64) {
	m.operationDuration.WithLabelValues(operation, stage).Observe(float64(durationMs) / 1000.0)
}

// RecordError records an error occurrence
func (m *MetricsCollector) RecordError(ctx context.Context, operation string, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordLiveEvent counts a pushed live event and whether it touched the graph
func (m *MetricsCollector) RecordLiveEvent(ctx context.Context, event string, outcome string) {
	m.liveEventsTotal.WithLabelValues(event, outcome).Inc()
}

// SetGraphCount sets the current count for a graph gauge kind
func (m *MetricsCollector) SetGraphCount(ctx context.Context, kind string, count int64) {
	m.graphCount.WithLabelValues(kind).Set(float64(count))
}

// Registry returns the Prometheus registry for HTTP exposure
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}
