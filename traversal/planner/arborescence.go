package planner

import "sort"

// arborescence is a directed spanning tree over the nodes reachable from its
// root. Every spanned node except the root has exactly one parent arc.
type arborescence struct {
	root     nodeIdx
	nodes    []nodeIdx
	parent   map[nodeIdx]arc
	children map[nodeIdx][]nodeIdx
	weight   float64
}

func (t *arborescence) contains(n nodeIdx) bool {
	if n == t.root {
		return true
	}
	_, ok := t.parent[n]
	return ok
}

// candidateRoots returns the nodes an arborescence may be rooted at, best
// first. Nodes with a fixed cost are preferred; without any, every variable
// node is a candidate. Candidates are ordered by: implicit types last, most
// reachable nodes, cheapest fixed cost, node id.
func candidateRoots(ng *nodeGraph, wg *weightedGraph, max int) []nodeIdx {
	type candidate struct {
		idx   nodeIdx
		reach int
	}

	var candidates []candidate
	for i, n := range ng.nodes {
		if n.hasFixedCost && n.id.Kind == VarNode {
			candidates = append(candidates, candidate{idx: nodeIdx(i)})
		}
	}
	if len(candidates) == 0 {
		for i, n := range ng.nodes {
			if n.id.Kind == VarNode {
				candidates = append(candidates, candidate{idx: nodeIdx(i)})
			}
		}
	}
	for i := range candidates {
		candidates[i].reach = len(wg.reachable(candidates[i].idx))
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := ng.nodes[candidates[i].idx], ng.nodes[candidates[j].idx]
		if a.implicit != b.implicit {
			return !a.implicit
		}
		if candidates[i].reach != candidates[j].reach {
			return candidates[i].reach > candidates[j].reach
		}
		if a.hasFixedCost != b.hasFixedCost {
			return a.hasFixedCost
		}
		if a.hasFixedCost && a.fixedCost != b.fixedCost {
			return a.fixedCost < b.fixedCost
		}
		return a.id.Less(b.id)
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	roots := make([]nodeIdx, len(candidates))
	for i, c := range candidates {
		roots[i] = c.idx
	}
	return roots
}

// solveArborescence computes a maximum weight arborescence for every
// candidate root and returns the best one: the tree spanning the most
// nodes, then the heaviest, then the earliest candidate. It returns nil when
// no candidate reaches any other node.
func solveArborescence(wg *weightedGraph, roots []nodeIdx) *arborescence {
	if !wg.hasArcs() {
		return nil
	}

	var best *arborescence
	for _, root := range roots {
		nodes := wg.reachable(root)
		if len(nodes) < 2 {
			continue
		}
		tree := arborescenceFrom(wg, root, nodes)
		if tree == nil {
			continue
		}
		if best == nil ||
			len(tree.nodes) > len(best.nodes) ||
			(len(tree.nodes) == len(best.nodes) && tree.weight > best.weight) {
			best = tree
		}
	}
	return best
}

// arborescenceFrom runs Chu-Liu-Edmonds over the subgraph induced by nodes
func arborescenceFrom(wg *weightedGraph, root nodeIdx, nodes []nodeIdx) *arborescence {
	pos := make(map[nodeIdx]int, len(nodes))
	for i, n := range nodes {
		pos[n] = i
	}

	arcs := wg.arcsWithin(nodes)
	local := make([]weightedArc, len(arcs))
	for i, a := range arcs {
		local[i] = weightedArc{from: pos[a.from], to: pos[a.to], weight: a.weight}
	}

	chosen, ok := maxArborescence(len(nodes), pos[root], local)
	if !ok {
		return nil
	}

	tree := &arborescence{
		root:     root,
		nodes:    nodes,
		parent:   make(map[nodeIdx]arc, len(nodes)-1),
		children: make(map[nodeIdx][]nodeIdx),
	}
	for v, ai := range chosen {
		if ai < 0 {
			continue
		}
		a := arcs[ai]
		tree.parent[nodes[v]] = a
		tree.children[a.from] = append(tree.children[a.from], a.to)
		tree.weight += a.weight
	}
	for _, c := range tree.children {
		sort.Slice(c, func(i, j int) bool { return c[i] < c[j] })
	}
	return tree
}

// weightedArc is an arc of the index-only graph the solver works on
type weightedArc struct {
	from, to int
	weight   float64
}

// maxArborescence computes a maximum weight spanning arborescence of the
// graph with n nodes rooted at root (Chu-Liu-Edmonds). It returns, for every
// node, the index of its chosen incoming arc, -1 for the root. ok is false
// when some node has no incoming arc. Ties go to the arc listed first.
func maxArborescence(n, root int, arcs []weightedArc) (chosen []int, ok bool) {
	best := make([]int, n)
	for i := range best {
		best[i] = -1
	}
	for i, a := range arcs {
		if a.to == root || a.from == a.to {
			continue
		}
		if best[a.to] < 0 || a.weight > arcs[best[a.to]].weight {
			best[a.to] = i
		}
	}
	for v := range best {
		if v != root && best[v] < 0 {
			return nil, false
		}
	}

	// Find the cycles formed by the best incoming arcs
	cycleOf := make([]int, n)
	mark := make([]int, n)
	for i := range cycleOf {
		cycleOf[i] = -1
		mark[i] = -1
	}
	cycles := 0
	for v := 0; v < n; v++ {
		u := v
		for u != root && mark[u] < 0 && cycleOf[u] < 0 {
			mark[u] = v
			u = arcs[best[u]].from
		}
		if u != root && mark[u] == v && cycleOf[u] < 0 {
			for w := u; ; {
				cycleOf[w] = cycles
				w = arcs[best[w]].from
				if w == u {
					break
				}
			}
			cycles++
		}
	}
	if cycles == 0 {
		return best, true
	}

	// Contract every cycle into a single node. An arc entering a cycle is
	// reweighted by the weight of the cycle arc it would replace.
	contracted := make([]int, n)
	size := cycles
	for v := 0; v < n; v++ {
		if cycleOf[v] >= 0 {
			contracted[v] = cycleOf[v]
		} else {
			contracted[v] = size
			size++
		}
	}

	var sub []weightedArc
	var origin []int
	for i, a := range arcs {
		if a.to == root {
			continue
		}
		from, to := contracted[a.from], contracted[a.to]
		if from == to {
			continue
		}
		w := a.weight
		if cycleOf[a.to] >= 0 {
			w -= arcs[best[a.to]].weight
		}
		sub = append(sub, weightedArc{from: from, to: to, weight: w})
		origin = append(origin, i)
	}

	subChosen, ok := maxArborescence(size, contracted[root], sub)
	if !ok {
		return nil, false
	}

	// Expand: cycle nodes keep their cycle arc except where the cycle is
	// entered
	chosen = make([]int, n)
	for v := 0; v < n; v++ {
		switch {
		case v == root:
			chosen[v] = -1
		case cycleOf[v] >= 0:
			chosen[v] = best[v]
		default:
			chosen[v] = origin[subChosen[contracted[v]]]
		}
	}
	for c := 0; c < cycles; c++ {
		entering := origin[subChosen[c]]
		chosen[arcs[entering].to] = entering
	}
	return chosen, true
}
