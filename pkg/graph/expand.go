package graph

import (
	"fmt"

	"github.com/dan-solli/kinship/pkg/person"
)

// ExpandPair names the two relation kinds fetched together by an expand
// request. Adding a parent can reveal siblings and adding a spouse can reveal
// children, so those kinds travel in pairs.
type ExpandPair int

const (
	// ExpandNone refreshes a node without forcing any flag.
	ExpandNone ExpandPair = iota
	ExpandParentsSiblings
	ExpandSpousesChildren
)

// Kinds returns the relation kinds covered by the pair.
func (p ExpandPair) Kinds() []person.Kind {
	switch p {
	case ExpandParentsSiblings:
		return []person.Kind{person.KindParents, person.KindSiblings}
	case ExpandSpousesChildren:
		return []person.Kind{person.KindSpouses, person.KindChildren}
	}
	return nil
}

// Covers reports whether k is one of the pair's kinds.
func (p ExpandPair) Covers(k person.Kind) bool {
	for _, pk := range p.Kinds() {
		if pk == k {
			return true
		}
	}
	return false
}

func (p ExpandPair) String() string {
	switch p {
	case ExpandParentsSiblings:
		return "parents,siblings"
	case ExpandSpousesChildren:
		return "spouses,children"
	}
	return "none"
}

// PairFor returns the pair that expands k.
func PairFor(k person.Kind) ExpandPair {
	switch k {
	case person.KindParents, person.KindSiblings:
		return ExpandParentsSiblings
	case person.KindSpouses, person.KindChildren:
		return ExpandSpousesChildren
	}
	return ExpandNone
}

// ParseExpandPair accepts a relation kind name or a pair string.
func ParseExpandPair(s string) (ExpandPair, error) {
	switch s {
	case "", "none":
		return ExpandNone, nil
	case "parents,siblings", "siblings,parents":
		return ExpandParentsSiblings, nil
	case "spouses,children", "children,spouses":
		return ExpandSpousesChildren, nil
	}
	if p := PairFor(person.Kind(s)); p != ExpandNone {
		return p, nil
	}
	return ExpandNone, fmt.Errorf("unknown expand pair %q", s)
}
