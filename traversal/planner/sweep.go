package planner

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// sweep emits every fragment the arborescence did not reach. Nodes bound by
// their own fragments are visited first (fixed cost nodes, cheapest first).
// When none is left a pending edge is traversed: one leaving a bound node if
// there is any, then one arriving at a bound node, and when nothing is bound
// at all the cheapest pending edge starts a new scan. Comparisons are only
// ever emitted by visit, once every variable they touch is bound.
// It returns the number of fragments emitted.
func (b *planBuilder) sweep() int {
	before := len(b.plan)
	for {
		if idx, ok := b.nextEmittableNode(); ok {
			b.visit(idx)
			continue
		}
		if f, ok := b.nextPendingEdge(edgeFromBound); ok {
			b.traverseEdge(f)
			continue
		}
		if f, ok := b.nextPendingEdge(edgeToBound); ok {
			b.traverseEdge(f)
			continue
		}
		if f, ok := b.nextPendingEdge(edgeAny); ok {
			b.traverseEdge(f)
			continue
		}
		return len(b.plan) - before
	}
}

func (b *planBuilder) nextEmittableNode() (nodeIdx, bool) {
	best := -1
	for i, n := range b.ng.nodes {
		if b.visited[i] || n.id.Kind != VarNode || !n.emittable() {
			continue
		}
		if best < 0 || sweepBefore(n, b.ng.nodes[best]) {
			best = i
		}
	}
	return nodeIdx(best), best >= 0
}

// sweepBefore orders nodes with a known fixed cost first, cheapest first
func sweepBefore(a, b *node) bool {
	if a.hasFixedCost != b.hasFixedCost {
		return a.hasFixedCost
	}
	if a.hasFixedCost && a.fixedCost != b.fixedCost {
		return a.fixedCost < b.fixedCost
	}
	return a.id.Less(b.id)
}

// edgeFilter restricts which pending edges the sweep may traverse next
type edgeFilter uint8

const (
	edgeFromBound edgeFilter = iota
	edgeToBound
	edgeAny
)

// nextPendingEdge returns the cheapest pending edge fragment passing filter
func (b *planBuilder) nextPendingEdge(filter edgeFilter) (fragment.Fragment, bool) {
	for _, f := range b.pending {
		if b.emitted[f.String()] {
			continue
		}
		start, _ := b.ng.varNode(f.Start())
		endVar, _ := f.End()
		end, _ := b.ng.varNode(endVar)
		switch filter {
		case edgeFromBound:
			if b.visited[start] {
				return f, true
			}
		case edgeToBound:
			if b.visited[end] {
				return f, true
			}
		default:
			return f, true
		}
	}
	return nil, false
}

// traverseEdge emits an edge fragment and binds its endpoints
func (b *planBuilder) traverseEdge(f fragment.Fragment) {
	b.emit(f)
	start, _ := b.ng.varNode(f.Start())
	b.visit(start)
	if m, ok := b.ng.middle[f.String()]; ok {
		b.visit(m)
	}
	endVar, _ := f.End()
	end, _ := b.ng.varNode(endVar)
	b.visit(end)
}

// checkComplete verifies every fragment of the component was emitted
func (b *planBuilder) checkComplete(frags []fragment.Fragment) error {
	var missing []string
	for _, f := range frags {
		if !b.emitted[f.String()] {
			missing = append(missing, f.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: fragments left unplanned: %s", ErrPlannerDefect, strings.Join(missing, ", "))
	}
	if len(b.plan) != len(frags) {
		return fmt.Errorf("%w: planned %d fragments, expected %d", ErrPlannerDefect, len(b.plan), len(frags))
	}
	return nil
}
