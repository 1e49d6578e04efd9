package kinship

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dan-solli/kinship/pkg/command"
	"github.com/dan-solli/kinship/pkg/fetch"
	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/person"
	"github.com/dan-solli/kinship/pkg/store"
)

// fakeFetcher serves canned batches. A non-nil gate blocks every call until
// it is closed.
type fakeFetcher struct {
	mu        sync.Mutex
	trees     map[string]*fetch.TreeResult
	relatives map[string]*fetch.RelativesResult
	submit    *fetch.CommandResult
	err       error
	gate      chan struct{}
	entered   chan struct{}
	submitted []command.Command
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		trees:     make(map[string]*fetch.TreeResult),
		relatives: make(map[string]*fetch.RelativesResult),
	}
}

func (f *fakeFetcher) wait(ctx context.Context) error {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeFetcher) FetchTree(ctx context.Context, familyID string) (*fetch.TreeResult, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	res, ok := f.trees[familyID]
	if !ok {
		return nil, &fetch.APIError{StatusCode: 404, Message: "family not found"}
	}
	return res, nil
}

func (f *fakeFetcher) Search(ctx context.Context, query string) (*fetch.TreeResult, error) {
	return f.FetchTree(ctx, "search:"+query)
}

func (f *fakeFetcher) FetchRelatives(ctx context.Context, id string, pair graph.ExpandPair) (*fetch.RelativesResult, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	res, ok := f.relatives[id+"/"+pair.String()]
	if !ok {
		return &fetch.RelativesResult{}, nil
	}
	return res, nil
}

func (f *fakeFetcher) Submit(ctx context.Context, cmd command.Command) (*fetch.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, cmd)
	if f.err != nil {
		return nil, f.err
	}
	return f.submit, nil
}

func edge(id string, t person.EdgeType) person.Edge {
	return person.Edge{ID: id, Type: t}
}

func node(id string, g person.Gender) *person.Person {
	return &person.Person{
		ID:       id,
		Gender:   g,
		Name:     person.Name{First: id},
		Parents:  []person.Edge{},
		Children: []person.Edge{},
		Spouses:  []person.Edge{},
		Siblings: []person.Edge{},
	}
}

// smithFamily is father F, mother M and child C; F has an unloaded parent GF.
func smithFamily() *fetch.TreeResult {
	f := node("F", person.GenderMale)
	m := node("M", person.GenderFemale)
	c := node("C", person.GenderFemale)
	f.Parents = []person.Edge{edge("GF", person.EdgeBlood)}
	f.Spouses = []person.Edge{edge("M", person.EdgeMarried)}
	m.Spouses = []person.Edge{edge("F", person.EdgeMarried)}
	f.Children = []person.Edge{edge("C", person.EdgeBlood)}
	m.Children = []person.Edge{edge("C", person.EdgeBlood)}
	c.Parents = []person.Edge{edge("F", person.EdgeBlood), edge("M", person.EdgeBlood)}
	return &fetch.TreeResult{
		Root:  graph.Root{ID: "C"},
		Nodes: []*person.Person{f, m, c},
	}
}

// grandfatherBatch is the expand-parents answer for F.
func grandfatherBatch() *fetch.RelativesResult {
	f := smithFamily().Nodes[0]
	gf := node("GF", person.GenderMale)
	gf.Children = []person.Edge{edge("F", person.EdgeBlood)}
	return &fetch.RelativesResult{Nodes: []*person.Person{f, gf}}
}

// brokenStore fails every call.
type brokenStore struct{}

var errDiskFull = errors.New("disk full")

func (brokenStore) Save(context.Context, string, graph.Snapshot, time.Duration) error {
	return errDiskFull
}

func (brokenStore) Load(context.Context, string) (*graph.Snapshot, error) {
	return nil, errDiskFull
}

func (brokenStore) Delete(context.Context, string) error { return errDiskFull }
func (brokenStore) Close() error                          { return nil }

var _ store.SnapshotStore = brokenStore{}
