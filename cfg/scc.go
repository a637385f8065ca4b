package cfg

import (
	"cmp"
	"slices"

	"github.com/gogpu/spvgen/ir"
)

// Group is a strongly connected component of the label graph.
type Group struct {
	Index  int
	Labels []*ir.Label

	members  map[*ir.Label]struct{}
	selfLoop bool
}

// Contains reports whether l belongs to the group.
func (g *Group) Contains(l *ir.Label) bool {
	_, ok := g.members[l]
	return ok
}

// IsLoop reports whether the group contains a cycle.
func (g *Group) IsLoop() bool {
	return len(g.Labels) > 1 || g.selfLoop
}

// SCC partitions labels into strongly connected components over
// basic-block-like successor edges.
type SCC struct {
	groups  []*Group
	byLabel map[*ir.Label]*Group
	order   map[*ir.Label]int
}

// Build computes the partition of labels with Tarjan's algorithm. Labels are
// expected in reachability order; group member lists keep that order.
func Build(labels []*ir.Label) *SCC {
	return build(labels, nil)
}

// build partitions labels, ignoring every edge into skip.
func build(labels []*ir.Label, skip *ir.Label) *SCC {
	s := &SCC{
		byLabel: make(map[*ir.Label]*Group, len(labels)),
		order:   make(map[*ir.Label]int, len(labels)),
	}
	for i, l := range labels {
		s.order[l] = i
	}

	t := tarjan{
		scc:     s,
		skip:    skip,
		index:   make(map[*ir.Label]int, len(labels)),
		lowlink: make(map[*ir.Label]int, len(labels)),
		onStack: make(map[*ir.Label]bool, len(labels)),
	}
	for _, l := range labels {
		if _, seen := t.index[l]; !seen {
			t.strongConnect(l)
		}
	}
	return s
}

// Group returns the component of l, or nil for labels outside the graph.
func (s *SCC) Group(l *ir.Label) *Group {
	return s.byLabel[l]
}

// Groups returns all components in completion order.
func (s *SCC) Groups() []*Group {
	return s.groups
}

type tarjan struct {
	scc     *SCC
	skip    *ir.Label
	next    int
	index   map[*ir.Label]int
	lowlink map[*ir.Label]int
	onStack map[*ir.Label]bool
	stack   []*ir.Label
}

func (t *tarjan) strongConnect(v *ir.Label) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range v.Successors() {
		if _, known := t.scc.order[w]; !known || w == t.skip {
			continue
		}
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	g := &Group{Index: len(t.scc.groups), members: make(map[*ir.Label]struct{})}
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		g.members[w] = struct{}{}
		t.scc.byLabel[w] = g
		if w == v {
			break
		}
	}
	for l := range g.members {
		g.Labels = append(g.Labels, l)
	}
	t.scc.sortByOrder(g.Labels)
	if len(g.Labels) == 1 {
		for _, w := range v.Successors() {
			if w == v && w != t.skip {
				g.selfLoop = true
			}
		}
	}
	t.scc.groups = append(t.scc.groups, g)
}

func (s *SCC) sortByOrder(labels []*ir.Label) {
	slices.SortFunc(labels, func(a, b *ir.Label) int {
		return cmp.Compare(s.order[a], s.order[b])
	})
}
