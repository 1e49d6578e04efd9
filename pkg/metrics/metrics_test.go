package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollector_RecordOperation(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "expand", "success", 12)
	collector.RecordOperation(ctx, "expand", "success", 15)
	collector.RecordOperation(ctx, "expand", "error", 5)
	collector.RecordOperation(ctx, "load", "success", 200)

	if got := testutil.CollectAndCount(collector.operationsTotal); got != 3 {
		t.Errorf("expected 3 metric series (expand/success, expand/error, load/success), got %d", got)
	}

	expandSuccess := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("expand", "success"))
	if expandSuccess != 2 {
		t.Errorf("expected 2 expand/success operations, got %f", expandSuccess)
	}

	expandError := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("expand", "error"))
	if expandError != 1 {
		t.Errorf("expected 1 expand/error operation, got %f", expandError)
	}
}

func TestMetricsCollector_RecordStage(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordStage(ctx, "load", "fetch", 100)
	collector.RecordStage(ctx, "load", "reconcile", 3)
	collector.RecordStage(ctx, "load", "reconcile", 4)

	if got := testutil.CollectAndCount(collector.operationDuration); got != 2 {
		t.Errorf("expected 2 histogram series, got %d", got)
	}
}

func TestMetricsCollector_RecordError(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordError(ctx, "load", "network")
	collector.RecordError(ctx, "load", "network")
	collector.RecordError(ctx, "load", "not_found")
	collector.RecordError(ctx, "expand", "timeout")

	networkErrors := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("load", "network"))
	if networkErrors != 2 {
		t.Errorf("expected 2 network errors, got %f", networkErrors)
	}

	notFound := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("load", "not_found"))
	if notFound != 1 {
		t.Errorf("expected 1 not_found error, got %f", notFound)
	}
}

func TestMetricsCollector_RecordLiveEvent(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordLiveEvent(ctx, "node.added", OutcomeApplied)
	collector.RecordLiveEvent(ctx, "node.added", OutcomeIgnored)
	collector.RecordLiveEvent(ctx, "node.added", OutcomeIgnored)

	ignored := testutil.ToFloat64(collector.liveEventsTotal.WithLabelValues("node.added", OutcomeIgnored))
	if ignored != 2 {
		t.Errorf("expected 2 ignored events, got %f", ignored)
	}
}

func TestMetricsCollector_SetGraphCount(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.SetGraphCount(ctx, CountNodes, 42)
	collector.SetGraphCount(ctx, CountUnresolved, 7)

	nodes := testutil.ToFloat64(collector.graphCount.WithLabelValues(CountNodes))
	if nodes != 42 {
		t.Errorf("expected 42 nodes, got %f", nodes)
	}

	collector.SetGraphCount(ctx, CountNodes, 50)
	nodes = testutil.ToFloat64(collector.graphCount.WithLabelValues(CountNodes))
	if nodes != 50 {
		t.Errorf("expected 50 nodes after update, got %f", nodes)
	}
}

func TestMetricsCollector_Registry(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	// Generate some metrics first so they appear in the registry
	collector.RecordOperation(ctx, "test", "success", 100)
	collector.RecordStage(ctx, "test", "stage1", 50)
	collector.RecordError(ctx, "test", "error1")
	collector.RecordLiveEvent(ctx, "node.removed", OutcomeApplied)
	collector.SetGraphCount(ctx, CountNodes, 10)

	registry := collector.Registry()
	if registry == nil {
		t.Fatal("expected non-nil registry")
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	expectedFamilies := 5
	if len(metricFamilies) != expectedFamilies {
		t.Errorf("expected %d metric families, got %d", expectedFamilies, len(metricFamilies))
	}
}

// TestMetricsCollector_NoPersonalData verifies labels never carry names or ids
func TestMetricsCollector_NoPersonalData(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "search", "success", 1000)
	collector.RecordStage(ctx, "search", "fetch", 500)
	collector.RecordError(ctx, "search", "network")

	metricFamilies, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	forbiddenTerms := []string{"name", "query", "family_id", "token", "Bearer"}
	for _, mf := range metricFamilies {
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				for _, term := range forbiddenTerms {
					if label.GetName() == term || label.GetValue() == term {
						t.Errorf("found forbidden term %q in metric label", term)
					}
				}
			}
		}
	}
}

func TestNoopCollector(t *testing.T) {
	var c Collector = NewNoopCollector()
	ctx := context.Background()

	c.RecordOperation(ctx, "load", "success", 1)
	c.RecordStage(ctx, "load", "fetch", 1)
	c.RecordError(ctx, "load", "network")
	c.RecordLiveEvent(ctx, "node.added", OutcomeApplied)
	c.SetGraphCount(ctx, CountNodes, 1)
}
