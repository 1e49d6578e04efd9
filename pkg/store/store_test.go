package store

import (
	"context"
	"testing"
	"time"

	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/person"
)

func testSnapshot() graph.Snapshot {
	f := &person.Person{
		ID:       "F",
		Gender:   person.GenderMale,
		Name:     person.Name{First: "Frank"},
		Children: []person.Edge{{ID: "C", Type: person.EdgeBlood}},
		Parents:  []person.Edge{{ID: "GF", Type: person.EdgeBlood}},
	}
	c := &person.Person{
		ID:      "C",
		Gender:  person.GenderFemale,
		Name:    person.Name{First: "Clara"},
		Parents: []person.Edge{{ID: "F", Type: person.EdgeBlood}},
	}
	f.Metadata.Expandable.Parents = true
	f.Metadata.MaxSpouses = 4
	return graph.Snapshot{
		Nodes: []*person.Person{f, c},
		Root:  graph.Root{ID: "F"},
	}
}

// runSnapshotStoreTests runs the behavior every SnapshotStore must share.
func runSnapshotStoreTests(t *testing.T, s SnapshotStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		if err := s.Save(ctx, "family-1", testSnapshot(), 0); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := s.Load(ctx, "family-1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got == nil {
			t.Fatal("Expected snapshot, got nil")
		}
		if got.Root.ID != "F" {
			t.Errorf("Root mismatch: got %q, want %q", got.Root.ID, "F")
		}
		if len(got.Nodes) != 2 {
			t.Fatalf("Node count mismatch: got %d, want 2", len(got.Nodes))
		}
		if got.Nodes[0].ID != "F" || got.Nodes[1].ID != "C" {
			t.Errorf("Node order not preserved: %s, %s", got.Nodes[0].ID, got.Nodes[1].ID)
		}
		if !got.Nodes[0].Metadata.Expandable.Parents {
			t.Error("Expected expandable parents flag to survive round trip")
		}
	})

	t.Run("Missing key", func(t *testing.T) {
		got, err := s.Load(ctx, "nope")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for missing key, got %+v", got)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		snap := testSnapshot()
		snap.Root.ID = "C"
		if err := s.Save(ctx, "family-1", snap, 0); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, err := s.Load(ctx, "family-1")
		if err != nil || got == nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.Root.ID != "C" {
			t.Errorf("Expected overwritten root C, got %q", got.Root.ID)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete(ctx, "family-1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		got, err := s.Load(ctx, "family-1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got != nil {
			t.Error("Expected nil after delete")
		}
		if err := s.Delete(ctx, "family-1"); err != nil {
			t.Errorf("Deleting a missing key should not fail: %v", err)
		}
	})

	t.Run("Empty key", func(t *testing.T) {
		if err := s.Save(ctx, "", testSnapshot(), time.Minute); err != ErrEmptyKey {
			t.Errorf("Expected ErrEmptyKey, got %v", err)
		}
	})

	t.Run("Restores into a graph", func(t *testing.T) {
		if err := s.Save(ctx, "family-2", testSnapshot(), time.Hour); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		snap, err := s.Load(ctx, "family-2")
		if err != nil || snap == nil {
			t.Fatalf("Load failed: %v", err)
		}
		g, err := graph.NewReconciler(nil).Restore(*snap)
		if err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if g.Len() != 2 || g.Root().ID != "F" {
			t.Errorf("Unexpected restored graph: len=%d root=%q", g.Len(), g.Root().ID)
		}
	})
}

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
