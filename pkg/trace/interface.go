package trace

import (
	"context"
	"time"
)

// Exporter defines the interface for exporting operation traces.
// Implementations must be safe for concurrent use.
type Exporter interface {
	// Export writes a trace record to the configured destination.
	Export(ctx context.Context, record *TraceRecord) error

	// Close flushes any buffered records and releases resources.
	Close() error
}

// TraceRecord is one finished tree operation. It carries opaque ids and
// counters only, never names, dates or other biographical content.
type TraceRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	OperationID string    `json:"operationId"`

	// Operation is one of load, search, restore, expand, submit, live_add,
	// live_remove, layout.
	Operation  string `json:"operation"`
	DurationMs int64  `json:"durationMs"`

	// Status is "success", "error" or "ignored" (live event not relevant).
	Status string `json:"status"`

	Spans []SpanRecord `json:"spans"`

	// ErrorType is set when Status is "error": network, timeout, canceled,
	// not_found, validation, cache, unknown.
	ErrorType string `json:"errorType,omitempty"`

	// Refs holds opaque identifiers such as the family, subject or root id.
	Refs map[string]string `json:"refs,omitempty"`
}

// SpanRecord represents a single stage within an operation.
type SpanRecord struct {
	// Name is the stage: fetch, reconcile, cache, layout
	Name       string `json:"name"`
	DurationMs int64  `json:"durationMs"`
	OK         bool   `json:"ok"`
	ErrorType  string `json:"errorType,omitempty"`

	// Counters are stage-specific sizes, e.g. nodes, unresolved, placements.
	Counters map[string]int64 `json:"counters,omitempty"`
}

// fileOptions configures a file exporter. Present in every build so option
// constructors compile with or without the tracing tag.
type fileOptions struct {
	maxSizeBytes    int64
	maxRotatedFiles int
}

func defaultFileOptions() fileOptions {
	return fileOptions{
		maxSizeBytes:    10 * 1024 * 1024,
		maxRotatedFiles: 5,
	}
}

// FileExporterOption configures a file exporter.
type FileExporterOption func(*fileOptions)

// WithMaxSize sets the maximum file size before rotation (default: 10MB).
func WithMaxSize(bytes int64) FileExporterOption {
	return func(o *fileOptions) {
		if bytes > 0 {
			o.maxSizeBytes = bytes
		}
	}
}

// WithMaxRotatedFiles sets how many rotated files to keep (default: 5).
func WithMaxRotatedFiles(count int) FileExporterOption {
	return func(o *fileOptions) {
		if count > 0 {
			o.maxRotatedFiles = count
		}
	}
}
