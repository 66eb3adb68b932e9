package planner

import (
	"fmt"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// testFragment is a fragment with a caller-chosen shape and cost
type testFragment struct {
	name      string
	kind      fragment.Kind
	cost      float64
	fixed     bool
	start     traversal.Variable
	end       traversal.Variable
	deps      []traversal.Variable
	symmetric bool
	middle    bool
}

func (f *testFragment) String() string                     { return f.name }
func (f *testFragment) Kind() fragment.Kind                { return f.kind }
func (f *testFragment) Cost() float64                      { return f.cost }
func (f *testFragment) HasFixedCost() bool                 { return f.fixed }
func (f *testFragment) Start() traversal.Variable          { return f.start }
func (f *testFragment) End() (traversal.Variable, bool)    { return f.end, f.end != "" }
func (f *testFragment) Dependencies() []traversal.Variable { return f.deps }
func (f *testFragment) SymmetricDependency() bool          { return f.symmetric }

func (f *testFragment) MiddleNode() (traversal.Variable, bool) {
	if !f.middle {
		return "", false
	}
	return traversal.Variable("?_" + f.name), true
}

func (f *testFragment) Vars() []traversal.Variable {
	vars := []traversal.Variable{f.start}
	if f.end != "" {
		vars = append(vars, f.end)
	}
	return append(vars, f.deps...)
}

// testStats serves shard counts from a map
type testStats struct {
	shards    map[traversal.Label]uint64
	threshold uint64
	err       error
	calls     int
}

func (s *testStats) ShardCount(label traversal.Label) (uint64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.shards[label], nil
}

func (s *testStats) ShardingThreshold() uint64 { return s.threshold }

// testSchema maps role player types to the relation types they play in
type testSchema map[traversal.Label][]traversal.Label

func (s testSchema) IsType(label traversal.Label) bool {
	return true
}

func (s testSchema) RelationTypesPlayedBy(label traversal.Label) []traversal.Label {
	return s[label]
}

func renderings(frags []fragment.Fragment) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		out[i] = f.String()
	}
	return out
}

func position(plan []fragment.Fragment, rendering string) int {
	for i, f := range plan {
		if f.String() == rendering {
			return i
		}
	}
	panic(fmt.Sprintf("%s not in plan", rendering))
}
