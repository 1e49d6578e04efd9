// Package layout assigns grid positions to the people of a reconciled family
// graph so a tree diagram can render without overlap.
//
// Rows are generations relative to the root (ancestors negative, descendants
// positive). Columns are counted in single node widths: a couple occupies two
// adjacent columns and is centered over the columns of its children.
package layout

import (
	"fmt"
	"slices"

	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/person"
)

// SizeClass tells the renderer how wide a node box is drawn.
type SizeClass string

const (
	SizeSingle SizeClass = "single"
	SizeDouble SizeClass = "double"
)

// Options carries the rendering box size used for pixel coordinates.
type Options struct {
	BoxWidth  int `json:"boxWidth" yaml:"box_width"`
	BoxHeight int `json:"boxHeight" yaml:"box_height"`
}

// DefaultOptions returns the default box size.
func DefaultOptions() Options {
	return Options{BoxWidth: 160, BoxHeight: 200}
}

// Placement is the position of one person.
type Placement struct {
	NodeID     string    `json:"nodeId"`
	Generation int       `json:"generation"`
	Column     int       `json:"column"`
	SizeClass  SizeClass `json:"sizeClass"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
}

// CrossLink is an edge that does not constrain layout because its endpoints
// were already placed on generations inconsistent with it.
type CrossLink struct {
	FromID string      `json:"fromId"`
	ToID   string      `json:"toId"`
	Kind   person.Kind `json:"kind"`
}

// Result is the output of a layout pass.
type Result struct {
	Placements    []Placement `json:"placements"`
	CrossLinks    []CrossLink `json:"crossLinks,omitempty"`
	Columns       int         `json:"columns"`
	MinGeneration int         `json:"minGeneration"`
	MaxGeneration int         `json:"maxGeneration"`
}

// Lookup returns the placement for id.
func (r *Result) Lookup(id string) (Placement, bool) {
	for _, p := range r.Placements {
		if p.NodeID == id {
			return p, true
		}
	}
	return Placement{}, false
}

// Engine computes layouts. It never mutates the graph it is given and holds
// no state between calls, so identical input always yields identical output.
type Engine struct {
	opts Options
}

// NewEngine creates a layout engine. Zero box dimensions fall back to defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.BoxWidth <= 0 {
		opts.BoxWidth = def.BoxWidth
	}
	if opts.BoxHeight <= 0 {
		opts.BoxHeight = def.BoxHeight
	}
	return &Engine{opts: opts}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Layout places every node of g. The component containing rootID is laid out
// first; any unreachable component follows to the right, rooted at its first
// node in graph order.
func (e *Engine) Layout(g *graph.Graph, rootID string) (*Result, error) {
	if !g.Has(rootID) {
		return nil, fmt.Errorf("%w: %q", graph.ErrRootNotFound, rootID)
	}

	b := newBuilder(g)
	b.assignGenerations(rootID)
	b.buildUnits()
	b.linkParents()
	columns := b.pack()

	res := &Result{
		Placements: make([]Placement, 0, len(b.gen)),
		CrossLinks: b.crossLinks,
		Columns:    columns,
	}
	first := true
	for _, id := range b.discovered {
		gen := b.gen[id]
		if first || gen < res.MinGeneration {
			res.MinGeneration = gen
		}
		if first || gen > res.MaxGeneration {
			res.MaxGeneration = gen
		}
		first = false
	}

	for _, u := range b.units {
		size := SizeSingle
		if len(u.members) > 1 {
			size = SizeDouble
		}
		for i, id := range u.members {
			col := u.memberStart + i
			res.Placements = append(res.Placements, Placement{
				NodeID:     id,
				Generation: u.gen,
				Column:     col,
				SizeClass:  size,
				X:          col * e.opts.BoxWidth,
				Y:          (u.gen - res.MinGeneration) * e.opts.BoxHeight,
			})
		}
	}

	slices.SortFunc(res.Placements, func(a, b Placement) int {
		if a.Generation != b.Generation {
			return a.Generation - b.Generation
		}
		return a.Column - b.Column
	})

	return res, nil
}
