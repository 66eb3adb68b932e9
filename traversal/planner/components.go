package planner

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// connectedComponents partitions fragments into groups whose variables
// transitively overlap. Fragments and variables form an undirected
// bipartite graph; each of its connected components holds one group.
//
// Fragments keep their input order within a component and components are
// ordered by their first fragment, so the partition is deterministic for a
// deterministically ordered input.
func connectedComponents(frags []fragment.Fragment) [][]fragment.Fragment {
	g := simple.NewUndirectedGraph()
	varIDs := make(map[traversal.Variable]int64)
	next := int64(len(frags))

	for i := range frags {
		g.AddNode(simple.Node(i))
	}
	for i, f := range frags {
		for _, v := range f.Vars() {
			id, ok := varIDs[v]
			if !ok {
				id = next
				next++
				varIDs[v] = id
				g.AddNode(simple.Node(id))
			}
			g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(id)))
		}
	}

	var groups [][]int
	for _, cc := range topo.ConnectedComponents(g) {
		var members []int
		for _, n := range cc {
			if id := n.ID(); id < int64(len(frags)) {
				members = append(members, int(id))
			}
		}
		if len(members) == 0 {
			continue
		}
		sort.Ints(members)
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	components := make([][]fragment.Fragment, len(groups))
	for i, members := range groups {
		component := make([]fragment.Fragment, len(members))
		for j, m := range members {
			component[j] = frags[m]
		}
		components[i] = component
	}
	return components
}
