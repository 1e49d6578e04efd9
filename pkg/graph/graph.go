// Package graph reconciles partial batches of person nodes into one consistent
// in-memory family graph.
//
// A Graph is an immutable value: every reconciler operation returns a new
// *Graph and leaves its input untouched. Nodes handed out by accessors are deep
// copies, so callers cannot reach into graph internals.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dan-solli/kinship/pkg/person"
)

// ErrEmptyResult indicates a root or search fetch resolved with zero nodes.
var ErrEmptyResult = errors.New("tree not found: empty result")

// ErrRootNotFound indicates a root id that does not resolve to a node in the graph.
var ErrRootNotFound = errors.New("root node not found in graph")

// ErrSubjectNotFound indicates a merge subject that is neither in the graph nor in the batch.
var ErrSubjectNotFound = errors.New("subject node not found")

// ErrInvalidNode indicates an incoming node that cannot be keyed into the graph.
var ErrInvalidNode = errors.New("invalid node")

// Root points at the focused individual. IsRoot is true when no further
// ancestry is known: no parents loaded and none left to expand.
type Root struct {
	ID     string `json:"id"`
	IsRoot bool   `json:"isRoot"`
}

// Graph is a mapping from id to person plus the current root.
type Graph struct {
	nodes map[string]*person.Person
	order []string
	root  Root

	// kinds a merge has already expanded, per subject; they stay false
	expanded map[string]person.Expandable
}

// Snapshot is the serializable form of a Graph, used by cache collaborators.
type Snapshot struct {
	Nodes []*person.Person `json:"nodes"`
	Root  Root             `json:"root"`
}

// UnresolvedReference is an edge whose target is not loaded. It is the
// steady-state signal behind the expandable flags, not an error.
type UnresolvedReference struct {
	NodeID   string      `json:"nodeId"`
	Kind     person.Kind `json:"kind"`
	TargetID string      `json:"targetId"`
}

func (u UnresolvedReference) String() string {
	return fmt.Sprintf("%s.%s -> %s (unresolved)", u.NodeID, u.Kind, u.TargetID)
}

// Empty returns a graph with no nodes.
func Empty() *Graph {
	return newGraph(0)
}

func newGraph(capacity int) *Graph {
	return &Graph{
		nodes:    make(map[string]*person.Person, capacity),
		order:    make([]string, 0, capacity),
		expanded: make(map[string]person.Expandable),
	}
}

// clone copies the graph at the map level. Node pointers are shared until
// replaced; nodes are never mutated in place once stored.
func (g *Graph) clone() *Graph {
	c := newGraph(len(g.nodes))
	for id, p := range g.nodes {
		c.nodes[id] = p
	}
	c.order = append(c.order, g.order...)
	c.root = g.root
	for id, e := range g.expanded {
		c.expanded[id] = e
	}
	return c
}

// put stores p, appending its id to the iteration order if it is new.
func (g *Graph) put(p *person.Person) {
	if _, ok := g.nodes[p.ID]; !ok {
		g.order = append(g.order, p.ID)
	}
	g.nodes[p.ID] = p
}

func (g *Graph) remove(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	delete(g.nodes, id)
	delete(g.expanded, id)
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i:i], g.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Has reports whether id is loaded.
func (g *Graph) Has(id string) bool {
	if g == nil {
		return false
	}
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (*person.Person, bool) {
	if g == nil {
		return nil, false
	}
	p, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Nodes returns copies of all nodes in iteration order.
func (g *Graph) Nodes() []*person.Person {
	if g == nil {
		return nil
	}
	out := make([]*person.Person, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// IDs returns node ids in iteration order.
func (g *Graph) IDs() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.order...)
}

// Root returns the focused individual.
func (g *Graph) Root() Root {
	if g == nil {
		return Root{}
	}
	return g.root
}

// Unresolved lists every edge whose target is absent, in iteration order.
func (g *Graph) Unresolved() []UnresolvedReference {
	if g == nil {
		return nil
	}
	var out []UnresolvedReference
	for _, id := range g.order {
		p := g.nodes[id]
		for _, k := range person.Kinds {
			for _, e := range p.Relations(k) {
				if _, ok := g.nodes[e.ID]; !ok {
					out = append(out, UnresolvedReference{NodeID: id, Kind: k, TargetID: e.ID})
				}
			}
		}
	}
	return out
}

// Snapshot returns a serializable copy of the graph.
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: g.Nodes(), Root: g.Root()}
}

// MarshalJSON encodes the graph as its Snapshot.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Snapshot())
}

// rootFor builds a Root for id, falling back to the first node in iteration
// order when id is not loaded.
func (g *Graph) rootFor(id string) Root {
	p, ok := g.nodes[id]
	if !ok {
		if len(g.order) == 0 {
			return Root{}
		}
		p = g.nodes[g.order[0]]
	}
	return Root{ID: p.ID, IsRoot: g.hasNoAncestry(p)}
}

func (g *Graph) hasNoAncestry(p *person.Person) bool {
	if p.Metadata.Expandable.Parents {
		return false
	}
	for _, e := range p.Parents {
		if _, ok := g.nodes[e.ID]; ok {
			return false
		}
	}
	return true
}

// NeighborIndex answers resolved-neighbor queries in O(1).
type NeighborIndex struct {
	neighbors map[string]map[person.Kind][]string
}

// Index builds a NeighborIndex over the loaded nodes. Unresolved edges are omitted.
func (g *Graph) Index() *NeighborIndex {
	idx := &NeighborIndex{neighbors: make(map[string]map[person.Kind][]string, g.Len())}
	if g == nil {
		return idx
	}
	for _, id := range g.order {
		p := g.nodes[id]
		byKind := make(map[person.Kind][]string, len(person.Kinds))
		for _, k := range person.Kinds {
			for _, e := range p.Relations(k) {
				if _, ok := g.nodes[e.ID]; ok {
					byKind[k] = append(byKind[k], e.ID)
				}
			}
		}
		idx.neighbors[id] = byKind
	}
	return idx
}

// Neighbors returns the loaded neighbors of id for a relation kind.
func (idx *NeighborIndex) Neighbors(id string, k person.Kind) []string {
	return idx.neighbors[id][k]
}

// Contains reports whether id was loaded when the index was built.
func (idx *NeighborIndex) Contains(id string) bool {
	_, ok := idx.neighbors[id]
	return ok
}
