package metrics

import "context"

// Collector is the interface for metrics collection.
// Implementations include the Prometheus-backed collector and the no-op
// collector used when metrics are disabled.
type Collector interface {
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)
	RecordStage(ctx context.Context, operation string, stage string, durationMs int64)
	RecordError(ctx context.Context, operation string, errorType string)
	RecordLiveEvent(ctx context.Context, event string, outcome string)
	SetGraphCount(ctx context.Context, kind string, count int64)
}

// Graph gauge kinds.
const (
	CountNodes      = "nodes"
	CountUnresolved = "unresolved"
	CountExpandable = "expandable"
)

// Live event outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeIgnored = "ignored"
	OutcomeFailed  = "failed"
)
