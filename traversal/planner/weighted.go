package planner

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// arc is a directed weighted edge between two nodes. Traversing it emits
// frag; the second half of a middle-node pair carries no fragment.
type arc struct {
	from   nodeIdx
	to     nodeIdx
	weight float64
	frag   fragment.Fragment
}

type arcKey [2]nodeIdx

// weightedGraph is the directed graph the arborescence solver works on. The
// weight of an arc is the negated cost of its fragment, so the maximum
// weight arborescence is the one with the lowest total cost. Costs are in
// the log domain: summing them multiplies the fan-outs along a path.
type weightedGraph struct {
	g    *simple.WeightedDirectedGraph
	arcs map[arcKey]arc
}

// buildWeightedGraph converts the edge fragments of a component into arcs.
// A fragment with a middle node becomes start -> middle weighted by its
// cost and middle -> end with weight zero. Of several fragments between the
// same pair of nodes only the heaviest backs the arc. Self loops back no
// arc. Fragments without an arc are emitted once both endpoints are bound.
func buildWeightedGraph(ng *nodeGraph) *weightedGraph {
	wg := &weightedGraph{
		g:    simple.NewWeightedDirectedGraph(0, math.Inf(-1)),
		arcs: make(map[arcKey]arc),
	}
	for i := range ng.nodes {
		wg.g.AddNode(simple.Node(i))
	}

	for _, f := range ng.edges {
		start, _ := ng.varNode(f.Start())
		endVar, _ := f.End()
		end, _ := ng.varNode(endVar)
		if start == end {
			continue
		}
		weight := -ng.cost(f)

		if m, ok := ng.middle[f.String()]; ok {
			wg.arcs[arcKey{start, m}] = arc{from: start, to: m, weight: weight, frag: f}
			wg.arcs[arcKey{m, end}] = arc{from: m, to: end}
			continue
		}

		key := arcKey{start, end}
		cur, exists := wg.arcs[key]
		if !exists {
			wg.arcs[key] = arc{from: start, to: end, weight: weight, frag: f}
			continue
		}
		if weight > cur.weight || (weight == cur.weight && f.String() < cur.frag.String()) {
			wg.arcs[key] = arc{from: start, to: end, weight: weight, frag: f}
		}
	}

	for _, a := range wg.arcs {
		wg.g.SetWeightedEdge(wg.g.NewWeightedEdge(simple.Node(a.from), simple.Node(a.to), a.weight))
	}
	return wg
}

// hasArcs reports whether the graph has any arc at all
func (wg *weightedGraph) hasArcs() bool {
	return len(wg.arcs) > 0
}

// reachable returns the nodes reachable from root, root included, in index
// order
func (wg *weightedGraph) reachable(root nodeIdx) []nodeIdx {
	var out []nodeIdx
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) { out = append(out, nodeIdx(n.ID())) },
	}
	bf.Walk(wg.g, simple.Node(root), nil)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// arcsWithin returns the arcs between the given nodes, ordered by
// (from, to)
func (wg *weightedGraph) arcsWithin(nodes []nodeIdx) []arc {
	within := make(map[nodeIdx]bool, len(nodes))
	for _, n := range nodes {
		within[n] = true
	}

	var out []arc
	for _, u := range nodes {
		targets := graph.NodesOf(wg.g.From(int64(u)))
		sort.Slice(targets, func(i, j int) bool { return targets[i].ID() < targets[j].ID() })
		for _, v := range targets {
			to := nodeIdx(v.ID())
			if !within[to] {
				continue
			}
			a := wg.arcs[arcKey{u, to}]
			a.weight = wg.g.WeightedEdge(int64(u), int64(to)).Weight()
			out = append(out, a)
		}
	}
	return out
}
