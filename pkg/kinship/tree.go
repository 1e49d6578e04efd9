// Package kinship wires the reconciler, layout engine, fetch client, live
// subscriber and snapshot cache into one tree session.
package kinship

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dan-solli/kinship/pkg/command"
	"github.com/dan-solli/kinship/pkg/fetch"
	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/layout"
	"github.com/dan-solli/kinship/pkg/live"
	"github.com/dan-solli/kinship/pkg/metrics"
	"github.com/dan-solli/kinship/pkg/person"
	"github.com/dan-solli/kinship/pkg/store"
	"github.com/dan-solli/kinship/pkg/trace"
)

// Operation names used in logs, metrics and traces.
const (
	OpLoad       = "load"
	OpSearch     = "search"
	OpRestore    = "restore"
	OpExpand     = "expand"
	OpSubmit     = "submit"
	OpLiveAdd    = "live_add"
	OpLiveRemove = "live_remove"
	OpLayout     = "layout"
)

// Tree is one user's view of a family tree. All methods are safe for
// concurrent use; graph changes are serialized and the current graph is only
// replaced after a reconciler call succeeds.
type Tree struct {
	config     Config
	fetcher    fetch.Fetcher
	cache      store.SnapshotStore
	reconciler *graph.Reconciler
	engine     *layout.Engine
	metrics    metrics.Collector
	exporter   trace.Exporter
	logger     atomic.Pointer[slog.Logger]

	mu    sync.Mutex
	g     *graph.Graph
	key   string
	epoch uint64
}

// New creates a tree session with the HTTP fetch client and the configured
// cache backend.
func New(cfg Config) (*Tree, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}

	cache, err := openCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	t, err := NewWithClients(cfg, fetch.NewClient(cfg.APIBaseURL, cfg.APIToken), cache)
	if err != nil && cache != nil {
		cache.Close()
	}
	return t, err
}

// NewWithClients creates a tree session with explicit collaborators. A nil
// cache disables persistence.
func NewWithClients(cfg Config, fetcher fetch.Fetcher, cache store.SnapshotStore) (*Tree, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	exporter, err := trace.NewFileExporter(cfg.TracePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace exporter: %w", err)
	}

	var collector metrics.Collector = metrics.NewNoopCollector()
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	logger := slog.New(slog.DiscardHandler)
	t := &Tree{
		config:     cfg,
		fetcher:    fetcher,
		cache:      cache,
		reconciler: graph.NewReconciler(logger),
		engine:     layout.NewEngine(cfg.Layout),
		metrics:    collector,
		exporter:   exporter,
	}
	t.logger.Store(logger)
	return t, nil
}

func openCache(cfg CacheConfig) (store.SnapshotStore, error) {
	switch cfg.Backend {
	case CacheSQLite:
		s, err := store.NewSQLiteSnapshotStoreWithDriver(cfg.Driver, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCache, err)
		}
		return s, nil
	case CacheRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s, err := store.DialRedisSnapshotStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCache, err)
		}
		return s, nil
	case CacheNone:
		return nil, nil
	}
	return store.NewMemorySnapshotStore(), nil
}

// WithLogger sets the logger and returns t for chaining. Nil discards output.
func (t *Tree) WithLogger(logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger.Store(logger)
	t.reconciler = graph.NewReconciler(logger)

	logger.Info("tree session configured",
		"cache_backend", t.config.Cache.Backend,
		"cache_ttl", t.config.Cache.TTL.String(),
		"metrics_enabled", t.config.MetricsEnabled,
		"tracing", t.config.TracePath != "",
		"box_width", t.config.Layout.BoxWidth,
		"box_height", t.config.Layout.BoxHeight)
	return t
}

// log returns the current logger. WithLogger may swap it while other
// operations run.
func (t *Tree) log() *slog.Logger {
	return t.logger.Load()
}

// Metrics returns the collector in use.
func (t *Tree) Metrics() metrics.Collector {
	return t.metrics
}

// Graph returns the current graph, or nil before the first load. Graphs are
// immutable so the value stays valid after later operations.
func (t *Tree) Graph() *graph.Graph {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.g
}

// Clear drops the current graph, as on logout or family switch. Fetches still
// in flight are discarded when they return. The cache is left intact.
func (t *Tree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch++
	t.g = nil
	t.key = ""
	t.metrics.SetGraphCount(context.Background(), metrics.CountNodes, 0)
	t.log().Debug("tree cleared")
}

// Close releases the cache and trace exporter.
func (t *Tree) Close() error {
	var errs []error
	if t.cache != nil {
		errs = append(errs, t.cache.Close())
	}
	errs = append(errs, t.exporter.Close())
	return errors.Join(errs...)
}

// Load replaces the graph with a family's root batch.
func (t *Tree) Load(ctx context.Context, familyID string) (*graph.Graph, error) {
	return t.replaceFrom(ctx, OpLoad, familyID, map[string]string{"family": familyID},
		func(ctx context.Context) (*fetch.TreeResult, error) {
			return t.fetcher.FetchTree(ctx, familyID)
		})
}

// Search replaces the graph with the batch around the best match for query.
// The query itself is never logged or traced.
func (t *Tree) Search(ctx context.Context, query string) (*graph.Graph, error) {
	return t.replaceFrom(ctx, OpSearch, "search:"+query, nil,
		func(ctx context.Context) (*fetch.TreeResult, error) {
			return t.fetcher.Search(ctx, query)
		})
}

func (t *Tree) replaceFrom(ctx context.Context, op, key string, refs map[string]string,
	fetchFn func(context.Context) (*fetch.TreeResult, error)) (*graph.Graph, error) {
	start := time.Now()
	ot := newTrace()

	t.mu.Lock()
	t.epoch++
	epoch := t.epoch
	t.mu.Unlock()

	timer := newSpanTimer("fetch", ot)
	res, err := fetchFn(ctx)
	if err == nil {
		timer.finish(nil, map[string]int64{"nodes": int64(len(res.Nodes))})
	} else {
		timer.finish(err, nil)
		t.log().Warn("fetch failed", "operation", op, "error", err)
		return nil, t.fail(ctx, op, start, ot, refs, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.current(ctx, op, epoch); err != nil {
		return nil, t.fail(ctx, op, start, ot, refs, err)
	}

	timer = newSpanTimer("reconcile", ot)
	g, err := t.reconciler.Replace(res.Nodes, res.Root)
	timer.finish(err, graphCounters(g))
	if err != nil {
		return nil, t.fail(ctx, op, start, ot, refs, err)
	}

	t.g = g
	t.key = key
	t.persist(ctx, op, ot)
	t.succeed(ctx, op, start, ot, refs)
	return g, nil
}

// Restore replaces the graph with the cached snapshot of familyID. It reports
// false when nothing usable is cached.
func (t *Tree) Restore(ctx context.Context, familyID string) (bool, error) {
	start := time.Now()
	ot := newTrace()
	refs := map[string]string{"family": familyID}

	if t.cache == nil {
		return false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.epoch++

	timer := newSpanTimer("cache", ot)
	snap, err := t.cache.Load(ctx, familyID)
	timer.finish(err, nil)
	if err != nil {
		return false, t.fail(ctx, OpRestore, start, ot, refs, fmt.Errorf("%w: %w", ErrCache, err))
	}
	if snap == nil {
		t.log().Debug("no cached snapshot", "family", familyID)
		t.succeed(ctx, OpRestore, start, ot, refs)
		return false, nil
	}

	timer = newSpanTimer("reconcile", ot)
	g, err := t.reconciler.Restore(*snap)
	timer.finish(err, graphCounters(g))
	if err != nil {
		return false, t.fail(ctx, OpRestore, start, ot, refs, err)
	}

	t.g = g
	t.key = familyID
	t.succeed(ctx, OpRestore, start, ot, refs)
	return true, nil
}

// Expand fetches id's relatives for pair and merges them into the graph.
func (t *Tree) Expand(ctx context.Context, id string, pair graph.ExpandPair) (*graph.Graph, error) {
	start := time.Now()
	ot := newTrace()
	refs := map[string]string{"subject": id, "pair": pair.String()}

	t.mu.Lock()
	if t.g == nil {
		t.mu.Unlock()
		return nil, t.fail(ctx, OpExpand, start, ot, refs, ErrNoTree)
	}
	if !t.g.Has(id) {
		t.mu.Unlock()
		return nil, t.fail(ctx, OpExpand, start, ot, refs, fmt.Errorf("%w: %s", graph.ErrSubjectNotFound, id))
	}
	epoch := t.epoch
	t.mu.Unlock()

	timer := newSpanTimer("fetch", ot)
	res, err := t.fetcher.FetchRelatives(ctx, id, pair)
	if err != nil {
		timer.finish(err, nil)
		t.log().Warn("fetch failed", "operation", OpExpand, "subject", id, "error", err)
		return nil, t.fail(ctx, OpExpand, start, ot, refs, err)
	}
	timer.finish(nil, map[string]int64{"nodes": int64(len(res.Nodes))})

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.current(ctx, OpExpand, epoch); err != nil {
		return nil, t.fail(ctx, OpExpand, start, ot, refs, err)
	}

	timer = newSpanTimer("reconcile", ot)
	g, err := t.reconciler.Merge(t.g, id, pair, res.Nodes)
	timer.finish(err, graphCounters(g))
	if err != nil {
		return nil, t.fail(ctx, OpExpand, start, ot, refs, err)
	}

	t.g = g
	t.persist(ctx, OpExpand, ot)
	t.succeed(ctx, OpExpand, start, ot, refs)
	return g, nil
}

// Submit validates cmd against the current graph, sends it, and applies the
// server's answer the same way a live event would be applied.
func (t *Tree) Submit(ctx context.Context, cmd command.Command) (*graph.Graph, error) {
	start := time.Now()
	ot := newTrace()
	refs := map[string]string{}
	if cmd != nil {
		refs["command"] = string(cmd.Kind())
		refs["subject"] = cmd.Subject()
	}

	if err := command.Validate(cmd); err != nil {
		return nil, t.fail(ctx, OpSubmit, start, ot, refs, err)
	}

	t.mu.Lock()
	if t.g == nil {
		t.mu.Unlock()
		return nil, t.fail(ctx, OpSubmit, start, ot, refs, ErrNoTree)
	}
	if err := command.Check(t.g, cmd); err != nil {
		t.mu.Unlock()
		return nil, t.fail(ctx, OpSubmit, start, ot, refs, err)
	}
	epoch := t.epoch
	t.mu.Unlock()

	timer := newSpanTimer("fetch", ot)
	res, err := t.fetcher.Submit(ctx, cmd)
	timer.finish(err, nil)
	if err != nil {
		t.log().Warn("command failed", "operation", OpSubmit, "command", cmd.Kind(), "error", err)
		return nil, t.fail(ctx, OpSubmit, start, ot, refs, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.current(ctx, OpSubmit, epoch); err != nil {
		return nil, t.fail(ctx, OpSubmit, start, ot, refs, err)
	}

	timer = newSpanTimer("reconcile", ot)
	var g *graph.Graph
	if res.IsRemoval() {
		g, err = t.reconciler.ApplyLiveRemove(t.g, res.RemovedID, res.ReplacementNodes)
	} else {
		g, err = t.reconciler.ApplyLiveAdd(t.g, res.OriginID, res.Nodes)
	}
	timer.finish(err, graphCounters(g))
	if err != nil {
		return nil, t.fail(ctx, OpSubmit, start, ot, refs, err)
	}
	if g == nil {
		t.log().Debug("command result not relevant to loaded tree", "command", cmd.Kind())
		t.succeed(ctx, OpSubmit, start, ot, refs)
		return t.g, nil
	}

	t.g = g
	t.persist(ctx, OpSubmit, ot)
	t.succeed(ctx, OpSubmit, start, ot, refs)
	return g, nil
}

// HandleAdd applies a pushed add event. Events unrelated to the loaded tree
// are dropped.
func (t *Tree) HandleAdd(ctx context.Context, ev live.AddEvent) error {
	return t.applyLive(ctx, OpLiveAdd, live.TypeNodeAdded, map[string]string{"origin": ev.OriginID},
		func(g *graph.Graph) (*graph.Graph, error) {
			return t.reconciler.ApplyLiveAdd(g, ev.OriginID, ev.Nodes)
		})
}

// HandleRemove applies a pushed remove event. Events unrelated to the loaded
// tree are dropped.
func (t *Tree) HandleRemove(ctx context.Context, ev live.RemoveEvent) error {
	return t.applyLive(ctx, OpLiveRemove, live.TypeNodeRemoved, map[string]string{"removed": ev.RemovedID},
		func(g *graph.Graph) (*graph.Graph, error) {
			return t.reconciler.ApplyLiveRemove(g, ev.RemovedID, ev.ReplacementNodes)
		})
}

func (t *Tree) applyLive(ctx context.Context, op, event string, refs map[string]string,
	apply func(*graph.Graph) (*graph.Graph, error)) error {
	start := time.Now()
	ot := newTrace()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.g == nil {
		t.log().Debug("live event dropped, no tree loaded", "operation", op)
		t.metrics.RecordLiveEvent(ctx, event, metrics.OutcomeIgnored)
		return nil
	}

	timer := newSpanTimer("reconcile", ot)
	g, err := apply(t.g)
	timer.finish(err, graphCounters(g))
	if err != nil {
		t.metrics.RecordLiveEvent(ctx, event, metrics.OutcomeFailed)
		return t.fail(ctx, op, start, ot, refs, err)
	}
	if g == nil {
		t.metrics.RecordLiveEvent(ctx, event, metrics.OutcomeIgnored)
		return nil
	}

	t.g = g
	t.metrics.RecordLiveEvent(ctx, event, metrics.OutcomeApplied)
	t.persist(ctx, op, ot)
	t.succeed(ctx, op, start, ot, refs)
	return nil
}

// Layout positions the current graph around its root.
func (t *Tree) Layout() (*layout.Result, error) {
	return t.LayoutAt("")
}

// LayoutAt positions the current graph around rootID, or around the graph's
// root when rootID is empty.
func (t *Tree) LayoutAt(rootID string) (*layout.Result, error) {
	ctx := context.Background()
	start := time.Now()

	t.mu.Lock()
	g := t.g
	t.mu.Unlock()
	if g == nil {
		return nil, ErrNoTree
	}
	if rootID == "" {
		rootID = g.Root().ID
	}

	res, err := t.engine.Layout(g, rootID)
	elapsed := time.Since(start).Milliseconds()
	t.metrics.RecordStage(ctx, OpLayout, "layout", elapsed)
	if err != nil {
		t.metrics.RecordOperation(ctx, OpLayout, "error", elapsed)
		t.metrics.RecordError(ctx, OpLayout, ClassifyError(err))
		return nil, err
	}
	t.metrics.RecordOperation(ctx, OpLayout, "success", elapsed)
	t.log().Debug("layout computed",
		"operation", OpLayout,
		"placements", len(res.Placements),
		"cross_links", len(res.CrossLinks),
		"columns", res.Columns)
	return res, nil
}

// current reports whether a fetch that started under epoch may still be
// applied. Must be called with mu held.
func (t *Tree) current(ctx context.Context, op string, epoch uint64) error {
	if err := ctx.Err(); err != nil {
		t.log().Debug("fetch result dropped, context done", "operation", op)
		return err
	}
	if t.epoch != epoch {
		t.log().Debug("fetch result dropped, tree changed", "operation", op)
		return ErrSuperseded
	}
	return nil
}

// persist saves the current graph. Failures are logged and counted, never
// returned. Must be called with mu held.
func (t *Tree) persist(ctx context.Context, op string, ot *OperationTrace) {
	if t.cache == nil || t.key == "" {
		return
	}
	timer := newSpanTimer("cache", ot)
	err := t.cache.Save(ctx, t.key, t.g.Snapshot(), t.config.Cache.TTL)
	timer.finish(err, nil)
	if err != nil {
		t.log().Warn("failed to cache snapshot", "operation", op, "error", err)
		t.metrics.RecordError(ctx, op, ErrTypeCache)
	}
}

func (t *Tree) succeed(ctx context.Context, op string, start time.Time, ot *OperationTrace, refs map[string]string) {
	elapsed := time.Since(start).Milliseconds()
	t.metrics.RecordOperation(ctx, op, "success", elapsed)
	t.recordStages(ctx, op, ot)
	if t.g != nil {
		t.metrics.SetGraphCount(ctx, metrics.CountNodes, int64(t.g.Len()))
		t.metrics.SetGraphCount(ctx, metrics.CountUnresolved, int64(len(t.g.Unresolved())))
		t.metrics.SetGraphCount(ctx, metrics.CountExpandable, int64(countExpandable(t.g)))
	}
	t.export(ctx, op, start, ot, refs, nil)
}

// fail records err and returns it unchanged.
func (t *Tree) fail(ctx context.Context, op string, start time.Time, ot *OperationTrace, refs map[string]string, err error) error {
	elapsed := time.Since(start).Milliseconds()
	t.metrics.RecordOperation(ctx, op, "error", elapsed)
	t.metrics.RecordError(ctx, op, ClassifyError(err))
	t.recordStages(ctx, op, ot)
	t.export(ctx, op, start, ot, refs, err)
	return err
}

func (t *Tree) recordStages(ctx context.Context, op string, ot *OperationTrace) {
	for _, s := range ot.Spans {
		t.metrics.RecordStage(ctx, op, s.Name, s.DurationMs)
	}
}

func (t *Tree) export(ctx context.Context, op string, start time.Time, ot *OperationTrace, refs map[string]string, err error) {
	rec := ot.record(uuid.New().String(), op, start, err, refs)
	if exportErr := t.exporter.Export(ctx, rec); exportErr != nil {
		t.log().Warn("failed to export trace", "operation", op, "error", exportErr)
	}
}

func graphCounters(g *graph.Graph) map[string]int64 {
	if g == nil {
		return nil
	}
	return map[string]int64{
		"nodes":      int64(g.Len()),
		"unresolved": int64(len(g.Unresolved())),
	}
}

func countExpandable(g *graph.Graph) int {
	n := 0
	for _, p := range g.Nodes() {
		if p.Metadata.Expandable.Any() {
			n++
		}
	}
	return n
}

// ExpandKind is Expand for the pair that covers k.
func (t *Tree) ExpandKind(ctx context.Context, id string, k person.Kind) (*graph.Graph, error) {
	return t.Expand(ctx, id, graph.PairFor(k))
}

var _ live.Handler = (*Tree)(nil)
