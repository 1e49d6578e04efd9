//go:build !tracing

package trace

import "context"

// NoopExporter discards every record. Builds without the tracing tag get it
// from NewFileExporter.
type NoopExporter struct{}

// NewFileExporter returns a no-op exporter when tracing is disabled.
func NewFileExporter(filePath string, opts ...FileExporterOption) (Exporter, error) {
	return &NoopExporter{}, nil
}

// Export does nothing.
func (n *NoopExporter) Export(ctx context.Context, record *TraceRecord) error {
	return nil
}

// Close does nothing.
func (n *NoopExporter) Close() error {
	return nil
}
