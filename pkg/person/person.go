// Package person defines the family-tree data model shared by the reconciler,
// the layout engine and the HTTP/websocket collaborators.
package person

import (
	"fmt"
	"strings"
)

// Gender of a person. Influences layout side and the spouse limit.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Kind names one of the four relation lists of a person.
type Kind string

const (
	KindParents  Kind = "parents"
	KindChildren Kind = "children"
	KindSpouses  Kind = "spouses"
	KindSiblings Kind = "siblings"
)

// Kinds lists every relation kind in canonical order.
var Kinds = []Kind{KindParents, KindChildren, KindSpouses, KindSiblings}

// EdgeType qualifies a relation edge.
type EdgeType string

const (
	EdgeBlood    EdgeType = "blood"
	EdgeAdopted  EdgeType = "adopted"
	EdgeMarried  EdgeType = "married"
	EdgeDivorced EdgeType = "divorced"
)

// ValidFor reports whether the edge type may appear in the given relation list.
func (t EdgeType) ValidFor(k Kind) bool {
	switch k {
	case KindParents, KindChildren:
		return t == EdgeBlood || t == EdgeAdopted
	case KindSpouses:
		return t == EdgeMarried || t == EdgeDivorced
	case KindSiblings:
		return t == EdgeBlood
	}
	return false
}

// Reverse returns the relation kind seen from the other end of an edge.
// A child edge on A is a parent edge on B; spouses and siblings are symmetric.
func (k Kind) Reverse() Kind {
	switch k {
	case KindParents:
		return KindChildren
	case KindChildren:
		return KindParents
	}
	return k
}

// Edge is a typed reference to another person. The target may not be loaded.
type Edge struct {
	ID   string   `json:"id"`
	Type EdgeType `json:"type"`
}

// Date is a partial date; each part is independently unknown.
type Date struct {
	Day   *int `json:"day,omitempty"`
	Month *int `json:"month,omitempty"`
	Year  *int `json:"year,omitempty"`
}

// String renders the date as YYYY-MM-DD with '?' for unknown parts.
func (d Date) String() string {
	part := func(v *int, width int) string {
		if v == nil {
			return strings.Repeat("?", width)
		}
		return fmt.Sprintf("%0*d", width, *v)
	}
	return part(d.Year, 4) + "-" + part(d.Month, 2) + "-" + part(d.Day, 2)
}

// Place is where a life event happened.
type Place struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// Event is a birth or death record.
type Event struct {
	Date  *Date  `json:"date,omitempty"`
	Place *Place `json:"place,omitempty"`
}

// Nickname is an alternative name; at most one is selected for display.
type Nickname struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected,omitempty"`
}

// Name of a person.
type Name struct {
	First     string     `json:"first"`
	Middle    string     `json:"middle,omitempty"`
	Last      string     `json:"last,omitempty"`
	Nicknames []Nickname `json:"nicknames,omitempty"`
}

// DisplayName returns the selected nickname, or the full name.
func (n Name) DisplayName() string {
	for _, nick := range n.Nicknames {
		if nick.Selected && nick.Value != "" {
			return nick.Value
		}
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{n.First, n.Middle, n.Last} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Counts holds server-reported relation totals. Zero means "not reported".
type Counts struct {
	Parents  int `json:"parents,omitempty"`
	Children int `json:"children,omitempty"`
	Spouses  int `json:"spouses,omitempty"`
	Siblings int `json:"siblings,omitempty"`
}

// Get returns the count for a relation kind.
func (c Counts) Get(k Kind) int {
	switch k {
	case KindParents:
		return c.Parents
	case KindChildren:
		return c.Children
	case KindSpouses:
		return c.Spouses
	case KindSiblings:
		return c.Siblings
	}
	return 0
}

// Expandable flags a relation kind whose edges are not all resolved locally.
type Expandable struct {
	Parents  bool `json:"parents"`
	Children bool `json:"children"`
	Spouses  bool `json:"spouses"`
	Siblings bool `json:"siblings"`
}

// Get returns the flag for a relation kind.
func (e Expandable) Get(k Kind) bool {
	switch k {
	case KindParents:
		return e.Parents
	case KindChildren:
		return e.Children
	case KindSpouses:
		return e.Spouses
	case KindSiblings:
		return e.Siblings
	}
	return false
}

// Set updates the flag for a relation kind.
func (e *Expandable) Set(k Kind, v bool) {
	switch k {
	case KindParents:
		e.Parents = v
	case KindChildren:
		e.Children = v
	case KindSpouses:
		e.Spouses = v
	case KindSiblings:
		e.Siblings = v
	}
}

// Any reports whether any relation kind is expandable.
func (e Expandable) Any() bool {
	return e.Parents || e.Children || e.Spouses || e.Siblings
}

// Metadata is derived by the reconciler and never authoritative.
type Metadata struct {
	Expandable   Expandable `json:"expandable"`
	TotalSpouses int        `json:"totalSpouses"`
	MaxSpouses   int        `json:"maxSpouses"`
}

// Person is one individual in the tree.
type Person struct {
	ID              string   `json:"id"`
	Gender          Gender   `json:"gender,omitempty"`
	Name            Name     `json:"name"`
	Birth           *Event   `json:"birth,omitempty"`
	Death           *Event   `json:"death,omitempty"`
	ProfileImageURL string   `json:"profileImageURL,omitempty"`
	Parents         []Edge   `json:"parents"`
	Children        []Edge   `json:"children"`
	Spouses         []Edge   `json:"spouses"`
	Siblings        []Edge   `json:"siblings"`
	Counts          *Counts  `json:"counts,omitempty"`
	Metadata        Metadata `json:"metadata"`
}

// MaxSpousesFor returns the spouse limit for a gender.
func MaxSpousesFor(g Gender) int {
	if g == GenderMale {
		return 4
	}
	return 1
}

// Relations returns the edge list for a relation kind.
func (p *Person) Relations(k Kind) []Edge {
	switch k {
	case KindParents:
		return p.Parents
	case KindChildren:
		return p.Children
	case KindSpouses:
		return p.Spouses
	case KindSiblings:
		return p.Siblings
	}
	return nil
}

// SetRelations replaces the edge list for a relation kind.
func (p *Person) SetRelations(k Kind, edges []Edge) {
	switch k {
	case KindParents:
		p.Parents = edges
	case KindChildren:
		p.Children = edges
	case KindSpouses:
		p.Spouses = edges
	case KindSiblings:
		p.Siblings = edges
	}
}

// HasEdge reports whether the person already references id in the given list.
func (p *Person) HasEdge(k Kind, id string) bool {
	for _, e := range p.Relations(k) {
		if e.ID == id {
			return true
		}
	}
	return false
}

// RemoveEdgesTo drops every edge pointing at id. Returns true if anything changed.
func (p *Person) RemoveEdgesTo(id string) bool {
	changed := false
	for _, k := range Kinds {
		edges := p.Relations(k)
		kept := make([]Edge, 0, len(edges))
		for _, e := range edges {
			if e.ID == id {
				changed = true
				continue
			}
			kept = append(kept, e)
		}
		p.SetRelations(k, kept)
	}
	return changed
}

// MarriedSpouses counts spouse edges of type married.
func (p *Person) MarriedSpouses() int {
	n := 0
	for _, e := range p.Spouses {
		if e.Type == EdgeMarried {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (p *Person) Clone() *Person {
	if p == nil {
		return nil
	}
	c := *p
	c.Name.Nicknames = append([]Nickname(nil), p.Name.Nicknames...)
	c.Birth = cloneEvent(p.Birth)
	c.Death = cloneEvent(p.Death)
	for _, k := range Kinds {
		c.SetRelations(k, cloneEdges(p.Relations(k)))
	}
	if p.Counts != nil {
		counts := *p.Counts
		c.Counts = &counts
	}
	return &c
}

func cloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return []Edge{}
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

func cloneEvent(e *Event) *Event {
	if e == nil {
		return nil
	}
	c := &Event{}
	if e.Date != nil {
		d := Date{Day: cloneInt(e.Date.Day), Month: cloneInt(e.Date.Month), Year: cloneInt(e.Date.Year)}
		c.Date = &d
	}
	if e.Place != nil {
		pl := *e.Place
		c.Place = &pl
	}
	return c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
