package graph

import (
	"fmt"
	"log/slog"

	"github.com/dan-solli/kinship/pkg/person"
)

// Reconciler merges node batches into graphs. It holds no graph state of its
// own; every operation takes a *Graph and returns a new one, or an error with
// the input left untouched.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a reconciler. A nil logger discards output.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{logger: logger}
}

// Replace builds a fresh graph from a root or search fetch, discarding any
// prior graph. If root.ID is not among nodes the first node becomes root.
func (r *Reconciler) Replace(nodes []*person.Person, root Root) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyResult
	}

	g := newGraph(len(nodes))
	for _, n := range nodes {
		if err := validateNode(n); err != nil {
			return nil, err
		}
		g.put(n.Clone())
	}

	for _, id := range g.order {
		p := g.nodes[id]
		p.Metadata = deriveMetadata(p, g.nodes)
	}

	if root.ID != "" && !g.Has(root.ID) {
		r.logger.Warn("root not in fetched batch, using first node", "root", root.ID)
	}
	g.root = g.rootFor(root.ID)

	r.logger.Debug("graph replaced",
		"operation", "replace",
		"nodes", g.Len(),
		"root", g.root.ID,
		"unresolved", len(g.Unresolved()))

	return g, nil
}

// Restore rebuilds a graph from a cached snapshot.
func (r *Reconciler) Restore(s Snapshot) (*Graph, error) {
	return r.Replace(s.Nodes, s.Root)
}

// Merge overlays an expand-relation batch onto g. Incoming nodes replace
// existing entries of the same id outright and get freshly derived flags.
// The subject's flags for the expanded pair are forced false and stay false
// through later merges that refresh the subject. Nodes not in the batch keep
// their metadata.
func (r *Reconciler) Merge(g *Graph, subjectID string, pair ExpandPair, nodes []*person.Person) (*Graph, error) {
	if g == nil {
		g = Empty()
	}
	for _, n := range nodes {
		if err := validateNode(n); err != nil {
			return nil, err
		}
	}

	next := g.clone()
	incoming := make([]string, 0, len(nodes)+1)
	for _, n := range nodes {
		if !containsID(incoming, n.ID) {
			incoming = append(incoming, n.ID)
		}
		next.put(n.Clone())
	}

	if !containsID(incoming, subjectID) {
		subject, ok := g.nodes[subjectID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
		}
		next.nodes[subjectID] = subject.Clone()
		incoming = append(incoming, subjectID)
	}

	done := next.expanded[subjectID]
	for _, k := range pair.Kinds() {
		done.Set(k, true)
	}
	if done.Any() {
		next.expanded[subjectID] = done
	}

	for _, id := range incoming {
		p := next.nodes[id]
		meta := deriveMetadata(p, next.nodes)
		if pinned, ok := next.expanded[id]; ok {
			for _, k := range person.Kinds {
				if pinned.Get(k) {
					meta.Expandable.Set(k, false)
				}
			}
		}
		p.Metadata = meta
	}

	next.root = next.rootFor(g.root.ID)

	r.logger.Debug("graph merged",
		"operation", "merge",
		"subject", subjectID,
		"pair", pair.String(),
		"incoming", len(nodes),
		"nodes", next.Len())

	return next, nil
}

// ApplyLiveAdd applies a pushed add event. It returns (nil, nil) when neither
// originID nor any incoming id is loaded, meaning the event is irrelevant to
// this graph. New nodes back-fill reverse edges on loaded neighbors before
// being inserted. Incoming nodes and their loaded neighbors get fresh metadata.
func (r *Reconciler) ApplyLiveAdd(g *Graph, originID string, nodes []*person.Person) (*Graph, error) {
	if !g.relevant(originID, nodes) {
		r.logger.Debug("live add ignored", "operation", "live_add", "origin", originID)
		return nil, nil
	}
	for _, n := range nodes {
		if err := validateNode(n); err != nil {
			return nil, err
		}
	}

	next := g.clone()
	owned := make(map[string]bool)
	touched := make([]string, 0, len(nodes))
	touch := func(id string) {
		if !containsID(touched, id) {
			touched = append(touched, id)
		}
	}

	for _, n := range nodes {
		c := n.Clone()
		isNew := !next.Has(c.ID)
		for _, k := range person.Kinds {
			rev := k.Reverse()
			for _, e := range c.Relations(k) {
				nb, ok := next.nodes[e.ID]
				if !ok || e.ID == c.ID {
					continue
				}
				if !owned[e.ID] {
					nb = nb.Clone()
					next.nodes[e.ID] = nb
					owned[e.ID] = true
				}
				if isNew && !nb.HasEdge(rev, c.ID) {
					nb.SetRelations(rev, append(nb.Relations(rev), person.Edge{ID: c.ID, Type: e.Type}))
				}
				touch(e.ID)
			}
		}
		next.put(c)
		owned[c.ID] = true
		touch(c.ID)
	}

	for _, id := range touched {
		p := next.nodes[id]
		p.Metadata = deriveMetadata(p, next.nodes)
	}
	next.root = next.rootFor(g.root.ID)

	r.logger.Debug("live add applied",
		"operation", "live_add",
		"origin", originID,
		"touched", len(touched),
		"nodes", next.Len())

	return next, nil
}

// ApplyLiveRemove applies a pushed remove event. It returns (nil, nil) when
// neither removedID nor any replacement id is loaded. Edges still pointing at
// the removed node are dropped. If the removed node was root, the first
// remaining node in iteration order becomes root.
func (r *Reconciler) ApplyLiveRemove(g *Graph, removedID string, replacements []*person.Person) (*Graph, error) {
	if !g.relevant(removedID, replacements) {
		r.logger.Debug("live remove ignored", "operation", "live_remove", "removed", removedID)
		return nil, nil
	}
	for _, n := range replacements {
		if err := validateNode(n); err != nil {
			return nil, err
		}
	}

	next := g.clone()
	next.remove(removedID)

	touched := make([]string, 0)
	for _, id := range next.order {
		p := next.nodes[id]
		if !references(p, removedID) {
			continue
		}
		c := p.Clone()
		c.RemoveEdgesTo(removedID)
		next.nodes[id] = c
		touched = append(touched, id)
	}

	for _, n := range replacements {
		if n.ID == removedID {
			continue
		}
		c := n.Clone()
		c.RemoveEdgesTo(removedID)
		next.put(c)
		if !containsID(touched, c.ID) {
			touched = append(touched, c.ID)
		}
	}

	for _, id := range touched {
		p := next.nodes[id]
		p.Metadata = deriveMetadata(p, next.nodes)
	}

	rootID := g.root.ID
	if rootID == removedID {
		rootID = ""
	}
	next.root = next.rootFor(rootID)

	r.logger.Debug("live remove applied",
		"operation", "live_remove",
		"removed", removedID,
		"touched", len(touched),
		"root", next.root.ID,
		"nodes", next.Len())

	return next, nil
}

func (g *Graph) relevant(id string, nodes []*person.Person) bool {
	if g.Has(id) {
		return true
	}
	for _, n := range nodes {
		if n != nil && g.Has(n.ID) {
			return true
		}
	}
	return false
}

// deriveMetadata recomputes expandable flags and spouse counters for p
// against the loaded node set.
func deriveMetadata(p *person.Person, loaded map[string]*person.Person) person.Metadata {
	meta := person.Metadata{
		TotalSpouses: p.MarriedSpouses(),
		MaxSpouses:   person.MaxSpousesFor(p.Gender),
	}
	for _, k := range person.Kinds {
		meta.Expandable.Set(k, unresolved(p, k, loaded))
	}
	return meta
}

// unresolved reports whether some edge of kind k points at an absent node, or
// the server reported more relations than are attached.
func unresolved(p *person.Person, k person.Kind, loaded map[string]*person.Person) bool {
	edges := p.Relations(k)
	for _, e := range edges {
		if _, ok := loaded[e.ID]; !ok {
			return true
		}
	}
	return p.Counts != nil && p.Counts.Get(k) > len(edges)
}

func references(p *person.Person, id string) bool {
	for _, k := range person.Kinds {
		if p.HasEdge(k, id) {
			return true
		}
	}
	return false
}

func validateNode(n *person.Person) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidNode)
	}
	if n.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidNode)
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
