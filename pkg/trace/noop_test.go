//go:build !tracing

package trace

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewFileExporter_DisabledIsNoop(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "traces.jsonl"), WithMaxSize(1))
	if err != nil {
		t.Fatalf("NewFileExporter failed: %v", err)
	}
	if _, ok := exporter.(*NoopExporter); !ok {
		t.Fatalf("Expected *NoopExporter, got %T", exporter)
	}
	if err := exporter.Export(context.Background(), &TraceRecord{Operation: "load"}); err != nil {
		t.Errorf("Export should succeed, got: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Errorf("Close should succeed, got: %v", err)
	}
}

func TestFileExporterOptions(t *testing.T) {
	o := defaultFileOptions()
	WithMaxSize(2048)(&o)
	WithMaxRotatedFiles(0)(&o)

	if o.maxSizeBytes != 2048 {
		t.Errorf("Expected max size 2048, got %d", o.maxSizeBytes)
	}
	if o.maxRotatedFiles != 5 {
		t.Errorf("Expected non-positive count to keep default 5, got %d", o.maxRotatedFiles)
	}
}
