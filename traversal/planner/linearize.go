package planner

import (
	"sort"

	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// planBuilder accumulates the plan of one component. It owns the visit
// state of the component's nodes and the edge fragments that have to wait
// until both of their endpoints are bound.
type planBuilder struct {
	ng      *nodeGraph
	plan    []fragment.Fragment
	emitted map[string]bool
	// visited nodes are bound: an emitted fragment established them, or
	// they root the arborescence walk
	visited []bool

	// pending edge fragments that back no arborescence arc
	pending []fragment.Fragment
}

func newPlanBuilder(ng *nodeGraph, tree *arborescence) *planBuilder {
	b := &planBuilder{
		ng:      ng,
		emitted: make(map[string]bool),
		visited: make([]bool, len(ng.nodes)),
	}

	inTree := make(map[string]bool)
	if tree != nil {
		for _, a := range tree.parent {
			if a.frag != nil {
				inTree[a.frag.String()] = true
			}
		}
	}
	for _, f := range ng.edges {
		if !inTree[f.String()] {
			b.pending = append(b.pending, f)
		}
	}
	b.sortByCost(b.pending)
	return b
}

func (b *planBuilder) sortByCost(frags []fragment.Fragment) {
	sort.SliceStable(frags, func(i, j int) bool {
		ci, cj := b.ng.cost(frags[i]), b.ng.cost(frags[j])
		if ci != cj {
			return ci < cj
		}
		return frags[i].String() < frags[j].String()
	})
}

func (b *planBuilder) emit(f fragment.Fragment) {
	key := f.String()
	if b.emitted[key] {
		return
	}
	b.emitted[key] = true
	b.plan = append(b.plan, f)
}

// visit binds a node: its independent fragments are emitted cheapest first
// (the first one defines the node), then the fragments whose dependencies
// are already bound. Fragments waiting for this node are then moved to the
// node they are emitted at, or emitted right away if that node is bound.
func (b *planBuilder) visit(idx nodeIdx) {
	n := b.ng.nodes[idx]

	if !b.visited[idx] {
		b.visited[idx] = true
		b.sortByCost(n.withoutDependency)
		for _, f := range n.withoutDependency {
			b.emit(f)
		}
		n.withoutDependency = nil
	}

	b.sortByCost(n.ready)
	for _, f := range n.ready {
		b.emit(f)
	}
	n.ready = nil

	dependants := n.dependants
	n.dependants = nil
	for _, f := range dependants {
		if b.emitted[f.String()] {
			continue
		}
		target, _ := b.ng.varNode(f.Start())
		if target == idx {
			// symmetric comparison reached from its own start: it now waits
			// for the variable it compares against
			for _, dep := range f.Dependencies() {
				if depIdx, _ := b.ng.varNode(dep); depIdx != idx {
					target = depIdx
					break
				}
			}
		}
		if b.visited[target] {
			b.emit(f)
		} else {
			b.ng.nodes[target].ready = append(b.ng.nodes[target].ready, f)
		}
	}

	b.flushPending()
}

// flushPending emits pending edge fragments whose endpoints are both bound
func (b *planBuilder) flushPending() {
	for _, f := range b.pending {
		if b.emitted[f.String()] {
			continue
		}
		if b.bound(f) {
			b.emit(f)
		}
	}
}

// bound reports whether both endpoints of an edge fragment are visited
func (b *planBuilder) bound(f fragment.Fragment) bool {
	start, _ := b.ng.varNode(f.Start())
	endVar, _ := f.End()
	end, _ := b.ng.varNode(endVar)
	return b.visited[start] && b.visited[end]
}

// traverse visits a tree node, emitting the fragment of its parent arc first
func (b *planBuilder) traverse(tree *arborescence, idx nodeIdx) {
	if a, ok := tree.parent[idx]; ok && a.frag != nil {
		b.emit(a.frag)
	}
	b.visit(idx)
}

// nodeWeight is the cost of visiting a tree node: its parent arc, its fixed
// cost and its independent fragments, plus half the cost of the fragments
// waiting on dependencies
func (b *planBuilder) nodeWeight(tree *arborescence, idx nodeIdx) float64 {
	n := b.ng.nodes[idx]
	if n.hasNodeWeight {
		return n.nodeWeight
	}

	w := 0.0
	if a, ok := tree.parent[idx]; ok && a.frag != nil {
		w += b.ng.cost(a.frag)
	}
	if n.hasFixedCost {
		w += n.fixedCost
	}
	for _, f := range n.withoutDependency {
		w += b.ng.cost(f)
	}
	dependent := 0.0
	for _, f := range n.withDependency {
		dependent += b.ng.cost(f)
	}
	for _, f := range n.ready {
		dependent += b.ng.cost(f)
	}
	w += dependent / 2

	n.nodeWeight, n.hasNodeWeight = w, true
	return w
}

// branchWeight is the node weight of a tree node plus the branch weights
// of its children
func (b *planBuilder) branchWeight(tree *arborescence, idx nodeIdx) float64 {
	n := b.ng.nodes[idx]
	if n.hasBranchWeight {
		return n.branchWeight
	}

	w := b.nodeWeight(tree, idx)
	for _, child := range tree.children[idx] {
		w += b.branchWeight(tree, child)
	}

	n.branchWeight, n.hasBranchWeight = w, true
	return w
}

// linearizeGreedy walks the arborescence from its root, always expanding
// the reachable node with the lowest branch weight
func (b *planBuilder) linearizeGreedy(tree *arborescence) {
	b.branchWeight(tree, tree.root)

	frontier := []nodeIdx{tree.root}
	for len(frontier) > 0 {
		pick := 0
		for i := 1; i < len(frontier); i++ {
			wi := b.ng.nodes[frontier[i]].branchWeight
			wp := b.ng.nodes[frontier[pick]].branchWeight
			if wi < wp || (wi == wp && frontier[i] < frontier[pick]) {
				pick = i
			}
		}
		idx := frontier[pick]
		frontier = append(frontier[:pick], frontier[pick+1:]...)

		b.traverse(tree, idx)
		frontier = append(frontier, tree.children[idx]...)
	}
}

// linearizeOrder walks the arborescence in a precomputed order
func (b *planBuilder) linearizeOrder(tree *arborescence, order []nodeIdx) {
	for _, idx := range order {
		b.traverse(tree, idx)
	}
}
