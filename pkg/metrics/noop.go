package metrics

import "context"

// NoopCollector is a no-op implementation used when metrics are disabled.
type NoopCollector struct{}

// NewNoopCollector creates a no-op collector
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

// RecordOperation does nothing when metrics are disabled
func (n *NoopCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
}

// RecordStage does nothing when metrics are disabled
func (n *NoopCollector) RecordStage(ctx context.Context, operation string, stage string, durationMs int64) {
}

// RecordError does nothing when metrics are disabled
func (n *NoopCollector) RecordError(ctx context.Context, operation string, errorType string) {
}

// RecordLiveEvent does nothing when metrics are disabled
func (n *NoopCollector) RecordLiveEvent(ctx context.Context, event string, outcome string) {
}

// SetGraphCount does nothing when metrics are disabled
func (n *NoopCollector) SetGraphCount(ctx context.Context, kind string, count int64) {
}

var (
	_ Collector = (*NoopCollector)(nil)
	_ Collector = (*MetricsCollector)(nil)
)
