package layout

import (
	"slices"

	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/person"
)

// link is one direction of a relation between two loaded nodes.
type link struct {
	to   string
	kind person.Kind
	typ  person.EdgeType
}

// unit is a family unit: one person, or a couple drawn together.
type unit struct {
	members     []string
	gen         int
	comp        int
	seq         int
	parent      *unit
	children    []*unit
	width       int
	memberStart int
}

type builder struct {
	nodes map[string]*person.Person
	order []string
	adj   map[string][]link

	gen        map[string]int
	comp       map[string]int
	discovered []string
	crossLinks []CrossLink

	units  []*unit
	unitOf map[string]*unit
}

// generation delta when following a link of each kind
var genDelta = map[person.Kind]int{
	person.KindParents:  -1,
	person.KindSpouses:  0,
	person.KindSiblings: 0,
	person.KindChildren: 1,
}

// traversal order; partners first so couples are discovered together
var walkOrder = []person.Kind{person.KindSpouses, person.KindParents, person.KindSiblings, person.KindChildren}

func newBuilder(g *graph.Graph) *builder {
	b := &builder{
		nodes:  make(map[string]*person.Person, g.Len()),
		order:  g.IDs(),
		adj:    make(map[string][]link, g.Len()),
		gen:    make(map[string]int, g.Len()),
		comp:   make(map[string]int, g.Len()),
		unitOf: make(map[string]*unit, g.Len()),
	}
	for _, p := range g.Nodes() {
		b.nodes[p.ID] = p
	}
	b.buildAdjacency()
	return b
}

// buildAdjacency collects loaded edges in both directions so one-sided data
// still connects. A node's own edges come first, in list order.
func (b *builder) buildAdjacency() {
	type key struct {
		from, to string
		kind     person.Kind
	}
	seen := make(map[key]bool)
	add := func(from string, l link) {
		k := key{from, l.to, l.kind}
		if seen[k] {
			return
		}
		seen[k] = true
		b.adj[from] = append(b.adj[from], l)
	}

	for _, id := range b.order {
		p := b.nodes[id]
		for _, k := range walkOrder {
			for _, e := range p.Relations(k) {
				if _, ok := b.nodes[e.ID]; !ok || e.ID == id {
					continue
				}
				add(id, link{to: e.ID, kind: k, typ: e.Type})
			}
		}
	}
	for _, id := range b.order {
		p := b.nodes[id]
		for _, k := range walkOrder {
			for _, e := range p.Relations(k) {
				if _, ok := b.nodes[e.ID]; !ok || e.ID == id {
					continue
				}
				add(e.ID, link{to: id, kind: k.Reverse(), typ: e.Type})
			}
		}
	}
}

func (b *builder) links(id string, k person.Kind) []link {
	var out []link
	for _, l := range b.adj[id] {
		if l.kind == k {
			out = append(out, l)
		}
	}
	return out
}

// assignGenerations walks each component breadth-first. A node keeps the
// first generation it receives; an edge that disagrees becomes a cross-link.
func (b *builder) assignGenerations(rootID string) {
	starts := append([]string{rootID}, b.order...)
	comp := 0
	crossSeen := make(map[[2]string]bool)

	for _, start := range starts {
		if _, ok := b.gen[start]; ok {
			continue
		}
		b.gen[start] = 0
		b.comp[start] = comp
		b.discovered = append(b.discovered, start)
		queue := []string{start}

		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, k := range walkOrder {
				for _, l := range b.links(id, k) {
					want := b.gen[id] + genDelta[k]
					got, ok := b.gen[l.to]
					if !ok {
						b.gen[l.to] = want
						b.comp[l.to] = comp
						b.discovered = append(b.discovered, l.to)
						queue = append(queue, l.to)
						continue
					}
					if got == want {
						continue
					}
					pair := [2]string{id, l.to}
					if pair[1] < pair[0] {
						pair[0], pair[1] = pair[1], pair[0]
					}
					if crossSeen[pair] {
						continue
					}
					crossSeen[pair] = true
					b.crossLinks = append(b.crossLinks, CrossLink{FromID: id, ToID: l.to, Kind: k})
				}
			}
		}
		comp++
	}
}

// buildUnits groups each person with their same-generation partners, in
// discovery order. Partners are collected transitively so a person married
// more than once sits between their first two partners, whichever of them
// was discovered first.
func (b *builder) buildUnits() {
	for _, id := range b.discovered {
		if b.unitOf[id] != nil {
			continue
		}
		cluster := b.partnerCluster(id)

		u := &unit{gen: b.gen[id], comp: b.comp[id], seq: len(b.units)}
		switch len(cluster) {
		case 1:
			u.members = []string{id}
		case 2:
			u.members = b.orderCouple(id, cluster[1])
		default:
			u.members = b.arrangeCluster(cluster)
		}
		for _, m := range u.members {
			b.unitOf[m] = u
		}
		b.units = append(b.units, u)
	}
}

// freePartners returns id's same-generation partners not yet in a unit,
// current marriages first.
func (b *builder) freePartners(id string) []string {
	var partners []link
	for _, l := range b.links(id, person.KindSpouses) {
		if b.unitOf[l.to] == nil && b.gen[l.to] == b.gen[id] {
			partners = append(partners, l)
		}
	}
	slices.SortStableFunc(partners, func(x, y link) int {
		return rank(x.typ) - rank(y.typ)
	})
	out := make([]string, len(partners))
	for i, l := range partners {
		out[i] = l.to
	}
	return out
}

// partnerCluster walks partner links breadth-first from id.
func (b *builder) partnerCluster(id string) []string {
	cluster := []string{id}
	seen := map[string]bool{id: true}
	for i := 0; i < len(cluster); i++ {
		for _, p := range b.freePartners(cluster[i]) {
			if !seen[p] {
				seen[p] = true
				cluster = append(cluster, p)
			}
		}
	}
	return cluster
}

// arrangeCluster centers the member with the most partners: first partner on
// the left, the rest on the right. Members further out are appended beside
// the partner they married when that partner sits at an end.
func (b *builder) arrangeCluster(cluster []string) []string {
	inCluster := make(map[string]bool, len(cluster))
	for _, id := range cluster {
		inCluster[id] = true
	}
	partnersOf := func(id string) []string {
		var out []string
		for _, p := range b.freePartners(id) {
			if inCluster[p] {
				out = append(out, p)
			}
		}
		return out
	}

	hub := cluster[0]
	for _, id := range cluster[1:] {
		if len(partnersOf(id)) > len(partnersOf(hub)) {
			hub = id
		}
	}

	hp := partnersOf(hub)
	members := append([]string{hp[0], hub}, hp[1:]...)
	placed := make(map[string]bool, len(cluster))
	for _, m := range members {
		placed[m] = true
	}

	for len(members) < len(cluster) {
		progressed := false
		for _, id := range cluster {
			if placed[id] {
				continue
			}
			var near string
			for _, p := range partnersOf(id) {
				if placed[p] {
					near = p
					break
				}
			}
			if near == "" {
				continue
			}
			if near == members[0] {
				members = append([]string{id}, members...)
			} else {
				members = append(members, id)
			}
			placed[id] = true
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return members
}

func rank(t person.EdgeType) int {
	if t == person.EdgeMarried {
		return 0
	}
	return 1
}

// orderCouple puts the male partner on the left, otherwise the anchor.
func (b *builder) orderCouple(anchor, partner string) []string {
	if b.nodes[partner].Gender == person.GenderMale && b.nodes[anchor].Gender != person.GenderMale {
		return []string{partner, anchor}
	}
	return []string{anchor, partner}
}

// linkParents attaches each unit under the unit one generation up that holds
// the most parents of its first member with any, first found on ties. Each
// unit's children are then ordered by where their parents sit inside it, so
// the children of a second marriage fall under that couple.
func (b *builder) linkParents() {
	for _, u := range b.units {
		for _, m := range u.members {
			var best *unit
			bestCount := 0
			counts := make(map[*unit]int)
			for _, l := range b.links(m, person.KindParents) {
				pu := b.unitOf[l.to]
				if pu == nil || pu.gen != u.gen-1 {
					continue
				}
				counts[pu]++
				if counts[pu] > bestCount {
					best, bestCount = pu, counts[pu]
				}
			}
			if best == nil {
				continue
			}
			u.parent = best
			best.children = append(best.children, u)
			break
		}
	}

	for _, pu := range b.units {
		if len(pu.children) < 2 {
			continue
		}
		idx := make(map[string]int, len(pu.members))
		for i, m := range pu.members {
			idx[m] = i
		}
		slices.SortStableFunc(pu.children, func(x, y *unit) int {
			return b.parentSpan(x, idx) - b.parentSpan(y, idx)
		})
	}
}

// parentSpan is the sum of the parent positions of u's members within the
// parent unit, scaled by parent count so single and shared parents compare.
func (b *builder) parentSpan(u *unit, idx map[string]int) int {
	sum, n := 0, 0
	for _, m := range u.members {
		for _, l := range b.links(m, person.KindParents) {
			if i, ok := idx[l.to]; ok {
				sum += i
				n++
			}
		}
		if n > 0 {
			break
		}
	}
	if n == 0 {
		return 0
	}
	return sum * 2 / n
}

// pack sizes every unit subtree and assigns columns left to right. Returns
// the total column count.
func (b *builder) pack() int {
	var roots []*unit
	for _, u := range b.units {
		if u.parent == nil {
			roots = append(roots, u)
		}
	}
	slices.SortStableFunc(roots, func(x, y *unit) int {
		if x.comp != y.comp {
			return x.comp - y.comp
		}
		if x.gen != y.gen {
			return x.gen - y.gen
		}
		return x.seq - y.seq
	})

	cursor := 0
	for _, r := range roots {
		measure(r)
		place(r, cursor)
		cursor += r.width
	}
	return cursor
}

func measure(u *unit) int {
	sum := 0
	for _, c := range u.children {
		sum += measure(c)
	}
	u.width = max(len(u.members), sum)
	return u.width
}

// place centers the unit's members over its children within [left, left+width).
func place(u *unit, left int) {
	sum := 0
	for _, c := range u.children {
		sum += c.width
	}
	next := left + (u.width-sum)/2
	for _, c := range u.children {
		place(c, next)
		next += c.width
	}
	u.memberStart = left + (u.width-len(u.members))/2
}
