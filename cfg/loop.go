package cfg

import (
	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/ir"
)

// Loop is the structure recovered for one loop group.
type Loop struct {
	Group    *Group
	Header   *ir.Label
	Continue *ir.Label
	Merge    *ir.Label

	// Exits are the break targets in discovery order.
	Exits []*ir.Label

	// Inner partitions the loop members with the edges back into the
	// header removed. Its loop groups are the loops nested in this one.
	Inner *SCC
}

// AnalyzeLoop finds the continue and merge labels of the loop headed by
// header.
func (s *SCC) AnalyzeLoop(header *ir.Label, users *ir.UserMap) (*Loop, error) {
	g := s.Group(header)
	if g == nil || !g.IsLoop() {
		return nil, diag.Errorf(diag.KindInternal, header.Anchor, "label %s does not head a loop", header.Name)
	}
	loop := &Loop{Group: g, Header: header}

	cont, err := findContinue(g, header)
	if err != nil {
		return nil, err
	}
	loop.Continue = hoistContinue(g, header, cont, users)

	seen := make(map[*ir.Label]struct{})
	for _, m := range g.Labels {
		then, els, ok := m.BranchTargets()
		if !ok {
			continue
		}
		for _, t := range [2]*ir.Label{then, els} {
			if g.Contains(t) {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			loop.Exits = append(loop.Exits, t)
		}
	}

	switch len(loop.Exits) {
	case 0:
		return nil, diag.Errorf(diag.KindStructure, header.Anchor, "loop is infinite").
			WithNote(diag.Anchor{}, "no branch inside the loop leaves it")
	case 1:
		loop.Merge = loop.Exits[0]
	default:
		merge := loop.Exits[0]
		for _, exit := range loop.Exits[1:] {
			m, ok := FindMerge(merge, exit)
			if !ok {
				return nil, unmergeable(header, loop.Exits)
			}
			merge = m
		}
		loop.Merge = merge
	}
	loop.Inner = build(g.Labels, header)
	return loop, nil
}

func branchesTo(l, target *ir.Label) bool {
	then, els, ok := l.BranchTargets()
	return ok && (then == target || els == target)
}

func findContinue(g *Group, header *ir.Label) (*ir.Label, error) {
	var candidates []*ir.Label
	for _, m := range g.Labels {
		if m.IsCalling(header) || m.IsContinuingTo(header) || branchesTo(m, header) {
			candidates = append(candidates, m)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, diag.Errorf(diag.KindInternal, header.Anchor, "loop %s has no back edge", header.Name)
	case 1:
		return candidates[0], nil
	}
	err := diag.Errorf(diag.KindStructure, header.Anchor, "duplicate continue label for loop %s", header.Name)
	for _, c := range candidates {
		err.WithNote(c.Anchor, "continues loop here: "+c.Name)
	}
	return nil, err.WithNote(diag.Anchor{}, "only one continue label is permitted per loop")
}

// hoistContinue moves the continue label up through single-caller
// predecessors inside the loop, stopping at the header.
func hoistContinue(g *Group, header, cont *ir.Label, users *ir.UserMap) *ir.Label {
	visited := map[*ir.Label]struct{}{cont: {}}
	for cont != header && users.HasSingleCaller(cont) {
		caller := users.Users(cont)[0]
		if caller == header || !g.Contains(caller) {
			break
		}
		if _, ok := visited[caller]; ok {
			break
		}
		visited[caller] = struct{}{}
		cont = caller
	}
	return cont
}

// next follows the single successor of l: the then edge of a branch, the
// continuation, or a basic-block-like callee.
func next(l *ir.Label) *ir.Label {
	if then, _, ok := l.BranchTargets(); ok {
		return then
	}
	if cont, ok := l.Continuation().(*ir.Label); ok {
		return cont
	}
	if enter, ok := l.Body.Enter.(*ir.Label); ok && enter.IsBasicBlockLike() {
		return enter
	}
	return nil
}

// FindMerge walks the single-successor chains of a and b in lockstep and
// returns the first label reached by both.
func FindMerge(a, b *ir.Label) (*ir.Label, bool) {
	seenA := make(map[*ir.Label]struct{})
	seenB := make(map[*ir.Label]struct{})
	for a != nil || b != nil {
		if a != nil {
			if _, ok := seenB[a]; ok {
				return a, true
			}
			if _, cycle := seenA[a]; cycle {
				a = nil
			} else {
				seenA[a] = struct{}{}
			}
		}
		if b != nil {
			if _, ok := seenA[b]; ok {
				return b, true
			}
			if _, cycle := seenB[b]; cycle {
				b = nil
			} else {
				seenB[b] = struct{}{}
			}
		}
		if a != nil {
			a = next(a)
		}
		if b != nil {
			b = next(b)
		}
	}
	return nil, false
}

// chainEnd returns the last label of l's single-successor chain.
func chainEnd(l *ir.Label) *ir.Label {
	seen := make(map[*ir.Label]struct{})
	for {
		seen[l] = struct{}{}
		n := next(l)
		if n == nil {
			return l
		}
		if _, cycle := seen[n]; cycle {
			return n
		}
		l = n
	}
}

func unmergeable(header *ir.Label, exits []*ir.Label) error {
	err := diag.Errorf(diag.KindStructure, header.Anchor, "cannot merge multiple loop exit points of %s", header.Name)
	for _, e := range exits {
		err.WithNote(e.Anchor, "exit point "+e.Name)
		if end := chainEnd(e); end != e {
			err.WithNote(end.Anchor, "exit path ends at "+end.Name)
		}
	}
	return err
}
