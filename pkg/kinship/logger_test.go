package kinship

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-solli/kinship/pkg/graph"
)

// captureHandler is a slog.Handler that captures log records for test assertions
type captureHandler struct {
	records []slog.Record
	mu      sync.Mutex
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{
		records: make([]slog.Record, 0),
	}
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *captureHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *captureHandler) getRecords() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]slog.Record, len(h.records))
	copy(result, h.records)
	return result
}

func (h *captureHandler) find(msg string) (slog.Record, bool) {
	for _, r := range h.getRecords() {
		if r.Message == msg {
			return r, true
		}
	}
	return slog.Record{}, false
}

func attrs(r slog.Record) map[string]slog.Value {
	out := make(map[string]slog.Value)
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value
		return true
	})
	return out
}

func TestWithLogger_NilSafe(t *testing.T) {
	tree, _, _ := newTestTree(t)

	assert.Same(t, tree, tree.WithLogger(nil))
	_, err := tree.Load(context.Background(), "smith")
	assert.NoError(t, err)
}

func TestWithLogger_LogsConfiguration(t *testing.T) {
	handler := newCaptureHandler()
	tree, _, _ := newTestTree(t)
	tree.WithLogger(slog.New(handler))

	rec, ok := handler.find("tree session configured")
	require.True(t, ok)
	assert.Equal(t, slog.LevelInfo, rec.Level)

	a := attrs(rec)
	assert.Equal(t, CacheMemory, a["cache_backend"].String())
	assert.Equal(t, "24h0m0s", a["cache_ttl"].String())
	assert.True(t, a["metrics_enabled"].Bool())
	assert.False(t, a["tracing"].Bool())
	assert.Equal(t, int64(160), a["box_width"].Int64())
}

func TestLogger_FetchFailureWarns(t *testing.T) {
	handler := newCaptureHandler()
	tree, _, _ := newTestTree(t)
	tree.WithLogger(slog.New(handler))

	_, err := tree.Load(context.Background(), "jones")
	require.Error(t, err)

	rec, ok := handler.find("fetch failed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelWarn, rec.Level)
	assert.Equal(t, OpLoad, attrs(rec)["operation"].String())
}

func TestLogger_SearchQueryNotLogged(t *testing.T) {
	handler := newCaptureHandler()
	tree, f, _ := newTestTree(t)
	f.trees["search:Secret Name"] = smithFamily()
	tree.WithLogger(slog.New(handler))

	_, err := tree.Search(context.Background(), "Secret Name")
	require.NoError(t, err)
	_, err = tree.Search(context.Background(), "Other Secret")
	require.Error(t, err)

	for _, r := range handler.getRecords() {
		assert.NotContains(t, r.Message, "Secret")
		for k, v := range attrs(r) {
			assert.NotContains(t, v.String(), "Secret", "attr %s", k)
		}
	}
}

func TestWithLogger_ConcurrentWithOperations(t *testing.T) {
	tree, _, _ := newTestTree(t)
	ctx := context.Background()
	_, err := tree.Load(ctx, "smith")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			tree.WithLogger(slog.New(newCaptureHandler()))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			tree.Load(ctx, "jones")
			tree.Expand(ctx, "F", graph.ExpandParentsSiblings)
			tree.Layout()
		}
	}()
	wg.Wait()

	assert.NotNil(t, tree.log())
}
