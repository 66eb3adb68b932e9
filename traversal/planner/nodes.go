package planner

import (
	"fmt"
	"sort"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// NodeKind distinguishes variable nodes from synthetic middle nodes
type NodeKind uint8

const (
	VarNode NodeKind = iota
	MiddleNode
)

// NodeID identifies a node in the planner's node graph
type NodeID struct {
	Kind NodeKind
	Name traversal.Variable
}

func (id NodeID) String() string {
	if id.Kind == MiddleNode {
		return "middle:" + string(id.Name)
	}
	return string(id.Name)
}

// Less orders variable nodes before middle nodes, then by name
func (id NodeID) Less(other NodeID) bool {
	if id.Kind != other.Kind {
		return id.Kind < other.Kind
	}
	return id.Name < other.Name
}

func varID(v traversal.Variable) NodeID    { return NodeID{Kind: VarNode, Name: v} }
func middleID(v traversal.Variable) NodeID { return NodeID{Kind: MiddleNode, Name: v} }

// nodeIdx indexes the per-invocation node arena
type nodeIdx int

// node is one query variable or middle node. Nodes live for a single
// planning call; the lists below are mutated as the plan is emitted.
type node struct {
	id NodeID

	fixedCost    float64
	hasFixedCost bool
	implicit     bool // carries a label lookup of an implicit type

	withoutDependency []fragment.Fragment
	withDependency    []fragment.Fragment
	ready             []fragment.Fragment // dependency bound, waiting for this node
	dependants        []fragment.Fragment // fragments on other nodes waiting for this node

	// established is true when a fragment without dependencies touches
	// the node, so that visiting it binds the variable
	established bool

	nodeWeight      float64
	hasNodeWeight   bool
	branchWeight    float64
	hasBranchWeight bool
}

// emittable reports whether the node has fragments that bind it on their
// own. Ready fragments do not count: they filter a node that something
// else has to bind first.
func (n *node) emittable() bool {
	return len(n.withoutDependency) > 0
}

// nodeGraph is the node arena of one connected component together with the
// per-invocation fragment cost table. Input fragments are never mutated.
type nodeGraph struct {
	nodes []*node
	index map[NodeID]nodeIdx
	costs map[string]float64

	edges  []fragment.Fragment // fragments spanning two nodes
	middle map[string]nodeIdx  // middle node of an edge fragment, by rendering
}

func (g *nodeGraph) lookup(id NodeID) (nodeIdx, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

func (g *nodeGraph) varNode(v traversal.Variable) (nodeIdx, error) {
	idx, ok := g.index[varID(v)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, v)
	}
	return idx, nil
}

// cost returns the current cost estimate of a fragment
func (g *nodeGraph) cost(f fragment.Fragment) float64 {
	if c, ok := g.costs[f.String()]; ok {
		return c
	}
	return f.Cost()
}

func (g *nodeGraph) setCost(f fragment.Fragment, c float64) {
	g.costs[f.String()] = c
}

// buildNodes creates the node graph for a set of fragments. Every variable a
// fragment starts or ends at gets a node, every fragment spanning more than
// two variables gets a middle node, and node-local fragments are attached to
// their start node. Dependencies are registered on the nodes they wait for;
// a symmetric dependency is registered both ways.
func buildNodes(frags []fragment.Fragment) (*nodeGraph, error) {
	ids := make(map[NodeID]struct{})
	for _, f := range frags {
		if f.Start() == "" {
			return nil, fmt.Errorf("%w: fragment %s has no start variable", ErrPlannerDefect, f)
		}
		ids[varID(f.Start())] = struct{}{}
		if end, ok := f.End(); ok {
			ids[varID(end)] = struct{}{}
			if m, ok := f.MiddleNode(); ok {
				ids[middleID(m)] = struct{}{}
			}
		}
	}

	sorted := make([]NodeID, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	g := &nodeGraph{
		nodes:  make([]*node, len(sorted)),
		index:  make(map[NodeID]nodeIdx, len(sorted)),
		costs:  make(map[string]float64, len(frags)),
		middle: make(map[string]nodeIdx),
	}
	for i, id := range sorted {
		g.nodes[i] = &node{id: id}
		g.index[id] = nodeIdx(i)
	}

	for _, f := range frags {
		start, _ := g.varNode(f.Start())
		n := g.nodes[start]

		if end, ok := f.End(); ok {
			endIdx, _ := g.varNode(end)
			n.established = true
			g.nodes[endIdx].established = true
			if m, ok := f.MiddleNode(); ok {
				g.middle[f.String()], _ = g.lookup(middleID(m))
			}
			g.edges = append(g.edges, f)
			continue
		}

		deps := f.Dependencies()
		if len(deps) == 0 {
			n.withoutDependency = append(n.withoutDependency, f)
			n.established = true
			if l, ok := f.(fragment.Labelled); ok && l.Label().IsImplicit() {
				n.implicit = true
			}
			continue
		}

		n.withDependency = append(n.withDependency, f)
		for _, dep := range deps {
			depIdx, err := g.varNode(dep)
			if err != nil {
				return nil, fmt.Errorf("fragment %s: %w", f, err)
			}
			g.nodes[depIdx].dependants = append(g.nodes[depIdx].dependants, f)
		}
		if f.SymmetricDependency() {
			n.dependants = append(n.dependants, f)
		}
	}

	// A comparison can only be evaluated once the variables it compares are
	// bound by something other than the comparison itself
	for _, f := range frags {
		vars := f.Dependencies()
		if len(vars) > 0 {
			vars = append([]traversal.Variable{f.Start()}, vars...)
		}
		for _, dep := range vars {
			idx, _ := g.varNode(dep)
			if !g.nodes[idx].established {
				return nil, fmt.Errorf("fragment %s: %w: %s is never bound", f, ErrUnknownVariable, dep)
			}
		}
	}

	return g, nil
}
