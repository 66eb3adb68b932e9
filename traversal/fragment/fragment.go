// Package fragment is the catalog of primitive traversal steps ("fragments")
// the planner orders. A fragment knows its estimated cost and which
// variables it binds or depends on; how it is executed against the store is
// the executor's business.
package fragment

import "github.com/wbrown/janus-traversal/traversal"

// Kind identifies the concrete fragment type
type Kind uint8

const (
	KindLabel Kind = iota
	KindID
	KindValue
	KindNeq
	KindInIsa
	KindOutIsa
	KindInSub
	KindOutSub
	KindInHas
	KindOutHas
	KindInRolePlayer
	KindOutRolePlayer
)

// String returns the kind name used in fragment renderings
func (k Kind) String() string {
	switch k {
	case KindLabel:
		return "label"
	case KindID:
		return "id"
	case KindValue:
		return "value"
	case KindNeq:
		return "neq"
	case KindInIsa:
		return "in-isa"
	case KindOutIsa:
		return "out-isa"
	case KindInSub:
		return "in-sub"
	case KindOutSub:
		return "out-sub"
	case KindInHas:
		return "in-has"
	case KindOutHas:
		return "out-has"
	case KindInRolePlayer:
		return "in-role-player"
	case KindOutRolePlayer:
		return "out-role-player"
	default:
		return "unknown"
	}
}

// Fragment is a single primitive match step against the graph store.
//
// A node-local fragment only has a start variable. An edge fragment also has
// an end variable. Comparison fragments carry dependencies: they may only be
// emitted once one of the variables they depend on is bound.
type Fragment interface {
	// String renders the fragment. Renderings are unique within a fragment
	// set and are used for deduplication and deterministic tie-breaking.
	String() string

	Kind() Kind

	// Cost is the estimated relative cost in the log domain; lower is cheaper
	Cost() float64

	// HasFixedCost reports whether the fragment is an index-backed lookup
	HasFixedCost() bool

	Start() traversal.Variable
	End() (traversal.Variable, bool)

	Dependencies() []traversal.Variable

	// SymmetricDependency reports whether the dependency can be resolved
	// from either side (a value-to-value comparison)
	SymmetricDependency() bool

	// MiddleNode returns the synthetic variable standing in for a fragment
	// that spans more than two variables
	MiddleNode() (traversal.Variable, bool)

	// Vars returns every variable the fragment touches
	Vars() []traversal.Variable
}

// Labelled is implemented by fragments that look up a schema type by label
type Labelled interface {
	Fragment
	Label() traversal.Label
}

// IsEdge reports whether the fragment spans two nodes
func IsEdge(f Fragment) bool {
	_, ok := f.End()
	return ok
}

// Dedup removes fragments with identical renderings, keeping the first
func Dedup(frags []Fragment) []Fragment {
	seen := make(map[string]bool, len(frags))
	out := make([]Fragment, 0, len(frags))
	for _, f := range frags {
		key := f.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}
