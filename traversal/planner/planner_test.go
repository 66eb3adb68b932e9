package planner

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/annotations"
	"github.com/wbrown/janus-traversal/traversal/fragment"
	"github.com/wbrown/janus-traversal/traversal/pattern"
)

func personNamedAlice() pattern.Conjunction {
	return pattern.And(
		pattern.Label{Var: "?p", Label: "person"},
		pattern.Isa{Instance: "?x", Type: "?p"},
		pattern.Has{Owner: "?x", Attribute: "?n"},
		pattern.Value{Var: "?n", Op: pattern.OpEQ, Value: "Alice"},
	)
}

func employment() pattern.Conjunction {
	return pattern.And(
		pattern.Label{Var: "?p", Label: "person"},
		pattern.Isa{Instance: "?x", Type: "?p"},
		pattern.RolePlayer{Relation: "?r", Role: "employee", Player: "?x"},
		pattern.Label{Var: "?c", Label: "company"},
		pattern.Isa{Instance: "?y", Type: "?c"},
		pattern.RolePlayer{Relation: "?r", Role: "employer", Player: "?y"},
	)
}

func mustFragments(t *testing.T, conj pattern.Conjunction) []fragment.Fragment {
	t.Helper()
	frags, err := fragment.FromConjunction(conj)
	require.NoError(t, err)
	return frags
}

func TestWorkedExample(t *testing.T) {
	frags := []fragment.Fragment{
		&testFragment{name: "ValueEquals(?y)", kind: fragment.KindValue, cost: 1.0, fixed: true, start: "?y"},
		&testFragment{name: "InstanceOfType(?x->?y)", kind: fragment.KindInIsa, cost: 50.0, start: "?x", end: "?y"},
		&testFragment{name: "IndexLookup(?x)", kind: fragment.KindLabel, cost: 1.0, fixed: true, start: "?x"},
	}

	p := NewPlanner(nil, Options{})
	plan, err := p.PlanForConjunction(context.Background(), frags)
	require.NoError(t, err)
	assert.Equal(t, []string{"IndexLookup(?x)", "InstanceOfType(?x->?y)", "ValueEquals(?y)"}, renderings(plan))
}

func TestDisconnectedPattern(t *testing.T) {
	p := NewPlanner(nil, Options{})
	tr, err := p.CreateTraversal(context.Background(), pattern.And(
		pattern.Label{Var: "?y", Label: "dog"},
		pattern.Label{Var: "?x", Label: "person"},
	))
	require.NoError(t, err)
	require.Len(t, tr.Plans, 1)
	assert.ElementsMatch(t, []string{"label(?x, person)", "label(?y, dog)"}, renderings(tr.Plans[0]))
}

func TestPlanIndexedValueFirst(t *testing.T) {
	p := NewPlanner(nil, Options{})
	tr, err := p.CreateTraversal(context.Background(), personNamedAlice())
	require.NoError(t, err)
	assert.Equal(t, []string{
		`value(?n = "Alice")`,
		"in-has(?n -> ?x)",
		"label(?p, person)",
		"in-isa(?p -> ?x)",
	}, renderings(tr.Plans[0]))
}

func TestPlanMiddleNodes(t *testing.T) {
	p := NewPlanner(nil, Options{})
	tr, err := p.CreateTraversal(context.Background(), employment())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"label(?c, company)",
		"in-isa(?c -> ?y)",
		"in-role-player(?y -[employer]-> ?r)",
		"label(?p, person)",
		"in-isa(?p -> ?x)",
		"in-role-player(?x -[employee]-> ?r)",
	}, renderings(tr.Plans[0]))
}

func TestSweepBindsBeforeComparing(t *testing.T) {
	frags := []fragment.Fragment{
		fragment.NewLabel("?c", "person"),
		fragment.NewNeq("?b", "?c"),
		fragment.NewValueComparison("?b", pattern.OpEQ, "?e"),
		fragment.NewInRolePlayer("?b", "r", "?e"),
	}

	for _, strategy := range []Strategy{StrategyGreedy, StrategyOptimal} {
		p := NewPlanner(nil, Options{Strategy: strategy})
		plan, err := p.PlanForConjunction(context.Background(), frags)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"label(?c, person)",
			"in-role-player(?b -[r]-> ?e)",
			"neq(?b, ?c)",
			"value(?b = ?e)",
		}, renderings(plan), strategy.String())
	}
}

func TestSweepPrefersEdgesFromBoundNodes(t *testing.T) {
	frags := []fragment.Fragment{
		fragment.NewLabel("?a", "person"),
		fragment.NewLabel("?b", "company"),
		fragment.NewInIsa("?a", "?x"),
		fragment.NewInIsa("?b", "?y"),
		// cheaper than in-isa, but would have to scan every ?x
		fragment.NewInRolePlayer("?x", "employee", "?r"),
		fragment.NewInRolePlayer("?y", "employer", "?r"),
	}

	p := NewPlanner(nil, Options{})
	plan, err := p.PlanForConjunction(context.Background(), frags)
	require.NoError(t, err)
	assertBindingOrder(t, plan)
}

func TestCoverage(t *testing.T) {
	tests := []struct {
		name string
		conj pattern.Conjunction
	}{
		{"attribute lookup", personNamedAlice()},
		{"relation", employment()},
		{"cycle", pattern.And(
			pattern.Label{Var: "?t", Label: "person"},
			pattern.Isa{Instance: "?x", Type: "?t"},
			pattern.Isa{Instance: "?y", Type: "?t"},
			pattern.Has{Owner: "?x", Attribute: "?n"},
			pattern.Has{Owner: "?y", Attribute: "?n"},
			pattern.Neq{Var: "?x", Other: "?y"},
		)},
		{"no index", pattern.And(
			pattern.Isa{Instance: "?x", Type: "?t"},
			pattern.Sub{Sub: "?t", Super: "?s"},
			pattern.Value{Var: "?x", Op: pattern.OpGT, Value: int64(3)},
		)},
		{"self loop", pattern.And(
			pattern.Label{Var: "?t", Label: "thing"},
			pattern.Sub{Sub: "?t", Super: "?t"},
		)},
		{"comparison", pattern.And(
			pattern.Label{Var: "?t", Label: "person"},
			pattern.Isa{Instance: "?x", Type: "?t"},
			pattern.Has{Owner: "?x", Attribute: "?a"},
			pattern.Has{Owner: "?x", Attribute: "?b"},
			pattern.Value{Var: "?a", Op: pattern.OpEQ, Other: "?b"},
		)},
	}

	for _, strategy := range []Strategy{StrategyGreedy, StrategyOptimal} {
		p := NewPlanner(nil, Options{Strategy: strategy})
		for _, tt := range tests {
			t.Run(strategy.String()+"/"+tt.name, func(t *testing.T) {
				frags := mustFragments(t, tt.conj)
				plan, err := p.PlanForConjunction(context.Background(), frags)
				require.NoError(t, err)
				assert.ElementsMatch(t, renderings(frags), renderings(plan))
			})
		}
	}
}

func TestDependencyOrdering(t *testing.T) {
	frags := []fragment.Fragment{
		fragment.NewLabel("?t", "person"),
		fragment.NewInIsa("?t", "?x"),
		fragment.NewInIsa("?t", "?y"),
		fragment.NewNeq("?x", "?y"),
	}

	p := NewPlanner(nil, Options{})
	plan, err := p.PlanForConjunction(context.Background(), frags)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"label(?t, person)",
		"in-isa(?t -> ?y)",
		"in-isa(?t -> ?x)",
		"neq(?x, ?y)",
	}, renderings(plan))
}

func TestSymmetricDependencyOrdering(t *testing.T) {
	frags := []fragment.Fragment{
		fragment.NewLabel("?t", "person"),
		fragment.NewInIsa("?t", "?x"),
		fragment.NewOutHas("?x", "?a"),
		fragment.NewOutHas("?x", "?b"),
		fragment.NewValueComparison("?a", pattern.OpEQ, "?b"),
	}

	for _, strategy := range []Strategy{StrategyGreedy, StrategyOptimal} {
		p := NewPlanner(nil, Options{Strategy: strategy})
		plan, err := p.PlanForConjunction(context.Background(), frags)
		require.NoError(t, err)
		require.Len(t, plan, len(frags))

		cmp := position(plan, "value(?a = ?b)")
		assert.Greater(t, cmp, position(plan, "out-has(?x -> ?a)"))
		assert.Greater(t, cmp, position(plan, "out-has(?x -> ?b)"))
	}
}

func TestComponentIndependence(t *testing.T) {
	a := []fragment.Fragment{
		fragment.NewLabel("?t", "person"),
		fragment.NewInIsa("?t", "?x"),
		fragment.NewOutHas("?x", "?n"),
	}
	b := []fragment.Fragment{
		fragment.NewLabel("?u", "dog"),
		fragment.NewInIsa("?u", "?d"),
		fragment.NewOutHas("?d", "?m"),
		fragment.NewValue("?m", pattern.OpEQ, "Rex"),
	}
	isB := make(map[string]bool)
	for _, f := range b {
		isB[f.String()] = true
	}
	onlyB := func(plan []fragment.Fragment) []string {
		var out []string
		for _, f := range plan {
			if isB[f.String()] {
				out = append(out, f.String())
			}
		}
		return out
	}

	p := NewPlanner(nil, Options{})
	ctx := context.Background()

	alone, err := p.PlanForConjunction(ctx, b)
	require.NoError(t, err)

	both, err := p.PlanForConjunction(ctx, append(append([]fragment.Fragment{}, a...), b...))
	require.NoError(t, err)

	grown := append(append([]fragment.Fragment{}, a...), fragment.NewValue("?n", pattern.OpEQ, "Alice"))
	grownBoth, err := p.PlanForConjunction(ctx, append(grown, b...))
	require.NoError(t, err)

	assert.Equal(t, renderings(alone), onlyB(both))
	assert.Equal(t, renderings(alone), onlyB(grownBoth))
}

func TestRootPreference(t *testing.T) {
	tests := []pattern.Conjunction{
		personNamedAlice(),
		employment(),
		pattern.And(
			pattern.Isa{Instance: "?x", Type: "?t"},
			pattern.Has{Owner: "?x", Attribute: "?n"},
			pattern.ID{Var: "?x", ID: "V42"},
		),
	}

	p := NewPlanner(nil, Options{})
	for _, conj := range tests {
		frags := mustFragments(t, conj)
		plan, err := p.PlanForConjunction(context.Background(), frags)
		require.NoError(t, err)
		assert.True(t, plan[0].HasFixedCost(), "plan for %s starts with %s", conj, plan[0])
	}
}

func TestDeterminism(t *testing.T) {
	frags := mustFragments(t, employment())
	frags = append(frags, mustFragments(t, personNamedAlice())...)
	frags = fragment.Dedup(frags)

	p := NewPlanner(nil, Options{})
	first, err := p.PlanForConjunction(context.Background(), frags)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]fragment.Fragment{}, frags...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		plan, err := p.PlanForConjunction(context.Background(), shuffled)
		require.NoError(t, err)
		assert.Equal(t, renderings(first), renderings(plan))
	}
}

func TestBindingOrderOnRandomPatterns(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vars := []traversal.Variable{"?a", "?b", "?c", "?d", "?e", "?f"}
	pick := func() traversal.Variable { return vars[rng.Intn(len(vars))] }
	pair := func() (traversal.Variable, traversal.Variable) {
		u := pick()
		v := pick()
		for v == u {
			v = pick()
		}
		return u, v
	}

	ctx := context.Background()
	greedy := NewPlanner(nil, Options{})
	optimal := NewPlanner(nil, Options{Strategy: StrategyOptimal})

	for i := 0; i < 500; i++ {
		var frags []fragment.Fragment
		bound := traversal.NewVarSet()
		for j := rng.Intn(3); j > 0; j-- {
			v := pick()
			frags = append(frags, fragment.NewLabel(v, "person"))
			bound.Add(v)
		}
		for j := 1 + rng.Intn(6); j > 0; j-- {
			u, v := pair()
			switch rng.Intn(3) {
			case 0:
				frags = append(frags, fragment.NewInIsa(u, v))
			case 1:
				frags = append(frags, fragment.NewOutHas(u, v))
			default:
				frags = append(frags, fragment.NewInRolePlayer(u, "role", v))
			}
			bound.Add(u)
			bound.Add(v)
		}
		established := bound.Sorted()
		for j := rng.Intn(3); j > 0 && len(established) > 1; j-- {
			u := established[rng.Intn(len(established))]
			v := established[rng.Intn(len(established))]
			if u == v {
				continue
			}
			if rng.Intn(2) == 0 {
				frags = append(frags, fragment.NewNeq(u, v))
			} else {
				frags = append(frags, fragment.NewValueComparison(u, pattern.OpEQ, v))
			}
		}
		frags = fragment.Dedup(frags)

		for _, p := range []*Planner{greedy, optimal} {
			plan, err := p.PlanForConjunction(ctx, frags)
			require.NoError(t, err, "fragments %v", renderings(frags))
			require.ElementsMatch(t, renderings(frags), renderings(plan))
			assertBindingOrder(t, plan)
		}
	}
}

// assertBindingOrder checks that every comparison is emitted after a
// fragment binding the variable it depends on (either side for symmetric
// comparisons), and that an edge only leaves an unbound variable when no
// edge still to come leaves a bound one.
func assertBindingOrder(t *testing.T, plan []fragment.Fragment) {
	t.Helper()
	bound := traversal.NewVarSet()
	for i, f := range plan {
		deps := f.Dependencies()
		switch {
		case len(deps) > 0:
			ok := bound.Contains(deps[0])
			if f.SymmetricDependency() {
				ok = ok || bound.Contains(f.Start())
			}
			assert.True(t, ok, "%s emitted before its variables are bound in %v", f, renderings(plan))
		case fragment.IsEdge(f):
			if !bound.Contains(f.Start()) {
				for _, later := range plan[i+1:] {
					if fragment.IsEdge(later) && bound.Contains(later.Start()) {
						assert.Fail(t, "edge left an unbound variable",
							"%s emitted before %s in %v", f, later, renderings(plan))
					}
				}
			}
			end, _ := f.End()
			bound.Add(f.Start())
			bound.Add(end)
		default:
			bound.Add(f.Start())
		}
	}
}

func TestOptimalMatchesGreedyOnSimpleTree(t *testing.T) {
	frags := []fragment.Fragment{
		fragment.NewLabel("?t", "person"),
		fragment.NewInIsa("?t", "?x"),
		fragment.NewInIsa("?t", "?y"),
		fragment.NewNeq("?x", "?y"),
	}
	ctx := context.Background()

	greedy, err := NewPlanner(nil, Options{}).PlanForConjunction(ctx, frags)
	require.NoError(t, err)
	optimal, err := NewPlanner(nil, Options{Strategy: StrategyOptimal}).PlanForConjunction(ctx, frags)
	require.NoError(t, err)
	assert.Equal(t, renderings(greedy), renderings(optimal))
}

func TestUnboundComparisonIsADefect(t *testing.T) {
	frags := []fragment.Fragment{
		fragment.NewLabel("?t", "person"),
		fragment.NewInIsa("?t", "?x"),
		fragment.NewNeq("?x", "?y"),
	}

	var events []string
	p := NewPlanner(nil, Options{Handler: func(e annotations.Event) { events = append(events, e.Name) }})
	_, err := p.PlanForConjunction(context.Background(), frags)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVariable))
	assert.True(t, errors.Is(err, ErrPlannerDefect))
	assert.Contains(t, events, annotations.ErrorPlannerDefect)
}

func TestComparisonOnlyIsADefect(t *testing.T) {
	p := NewPlanner(nil, Options{})
	_, err := p.PlanForConjunction(context.Background(), []fragment.Fragment{
		fragment.NewNeq("?x", "?y"),
		fragment.NewNeq("?y", "?x"),
	})
	assert.True(t, errors.Is(err, ErrPlannerDefect))
}

func TestTooManyFragments(t *testing.T) {
	p := NewPlanner(nil, Options{MaxFragments: 3})
	_, err := p.CreateTraversal(context.Background(), personNamedAlice())
	assert.True(t, errors.Is(err, ErrTooManyFragments))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPlanner(nil, Options{})
	_, err := p.CreateTraversal(ctx, personNamedAlice())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDisjunctionPlansEachConjunction(t *testing.T) {
	p := NewPlanner(nil, Options{})
	tr, err := p.CreateTraversal(context.Background(), pattern.And(
		pattern.Isa{Instance: "?x", Type: "?t"},
		pattern.Or(
			pattern.Label{Var: "?t", Label: "person"},
			pattern.Label{Var: "?t", Label: "dog"},
		),
	))
	require.NoError(t, err)
	require.Len(t, tr.Plans, 2)
	assert.Equal(t, []string{"label(?t, person)", "in-isa(?t -> ?x)"}, renderings(tr.Plans[0]))
	assert.Equal(t, []string{"label(?t, dog)", "in-isa(?t -> ?x)"}, renderings(tr.Plans[1]))
	assert.Equal(t, 4, tr.Fragments())
}

func TestStatisticsResolvedOncePerLabel(t *testing.T) {
	stats := &testStats{
		shards:    map[traversal.Label]uint64{"person": 2},
		threshold: 10000,
	}
	p := NewPlanner(stats, Options{})

	tr, err := p.CreateTraversal(context.Background(), pattern.And(
		pattern.Label{Var: "?p", Label: "person"},
		pattern.Label{Var: "?q", Label: "person"},
		pattern.Isa{Instance: "?x", Type: "?p"},
		pattern.Isa{Instance: "?y", Type: "?q"},
	))
	require.NoError(t, err)
	assert.Equal(t, 4, tr.Fragments())
	assert.Equal(t, 1, stats.calls)
}

func TestStatisticsError(t *testing.T) {
	stats := &testStats{err: errors.New("unavailable"), threshold: 100}
	p := NewPlanner(stats, Options{})

	_, err := p.CreateTraversal(context.Background(), personNamedAlice())
	assert.True(t, errors.Is(err, ErrStatistics))
}

func TestPlanCacheHit(t *testing.T) {
	cache := NewPlanCache(10, time.Minute)
	var events []string
	p := NewPlanner(nil, Options{
		Cache:   cache,
		Handler: func(e annotations.Event) { events = append(events, e.Name) },
	})

	first, err := p.CreateTraversal(context.Background(), personNamedAlice())
	require.NoError(t, err)
	second, err := p.CreateTraversal(context.Background(), personNamedAlice())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, renderings(first.Plans[0]), renderings(second.Plans[0]))

	// callers own what they get back
	want := renderings(second.Plans[0])
	second.Plans[0][0], second.Plans[0][1] = second.Plans[0][1], second.Plans[0][0]
	first.Plans[0] = first.Plans[0][:1]
	third, err := p.CreateTraversal(context.Background(), personNamedAlice())
	require.NoError(t, err)
	assert.Equal(t, want, renderings(third.Plans[0]))

	hits, misses, size := cache.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, size)
	assert.Contains(t, events, annotations.CacheMiss)
	assert.Contains(t, events, annotations.CacheHit)
}

func TestCacheKeyDependsOnOptions(t *testing.T) {
	sets := [][]fragment.Fragment{{fragment.NewLabel("?x", "person")}}
	greedy := computeKey(sets, Options{})
	assert.Equal(t, greedy, computeKey(sets, Options{MaxStartingPoints: DefaultMaxStartingPoints}))
	assert.NotEqual(t, greedy, computeKey(sets, Options{Strategy: StrategyOptimal}))
	assert.NotEqual(t, greedy, computeKey([][]fragment.Fragment{{fragment.NewLabel("?x", "dog")}}, Options{}))
}

func TestRelationTypeInference(t *testing.T) {
	schema := testSchema{
		"person":  {"employment", "friendship"},
		"company": {"employment", "ownership"},
	}
	p := NewPlanner(nil, Options{InferRelationTypes: true, Schema: schema})

	tr, err := p.CreateTraversal(context.Background(), employment())
	require.NoError(t, err)

	v := typeVariable("?r", "employment")
	assert.True(t, v.IsSynthetic())
	plan := renderings(tr.Plans[0])
	assert.Len(t, plan, 8)
	assert.Contains(t, plan, "label("+string(v)+", employment)")
	assert.Contains(t, plan, "in-isa("+string(v)+" -> ?r)")
}

func TestRelationTypeInferenceAmbiguous(t *testing.T) {
	schema := testSchema{
		"person":  {"employment", "friendship"},
		"company": {"employment", "friendship"},
	}
	frags, inferred := inferRelationTypes(mustFragments(t, employment()), schema)
	assert.Empty(t, inferred)
	assert.Len(t, frags, 6)
}

func TestExplain(t *testing.T) {
	p := NewPlanner(nil, Options{})
	tr, err := p.CreateTraversal(context.Background(), personNamedAlice())
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, tr.Explain(&sb))
	out := sb.String()
	assert.Contains(t, out, "fragment")
	assert.Contains(t, out, `value(?n = "Alice")`)
	assert.Contains(t, out, "in-has")
	assert.Contains(t, tr.String(), "{ value(?n = \"Alice\"); in-has(?n -> ?x)")
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Optimal")
	require.NoError(t, err)
	assert.Equal(t, StrategyOptimal, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyGreedy, s)

	_, err = ParseStrategy("random")
	assert.Error(t, err)
}

func TestLabelCostUsesStatistics(t *testing.T) {
	stats := &testStats{shards: map[traversal.Label]uint64{"animal": 3}, threshold: 100}
	frags := []fragment.Fragment{
		fragment.NewLabel("?s", "animal"),
		fragment.NewInSub("?s", "?d"),
		fragment.NewInIsa("?d", "?x"),
	}

	ng, err := buildNodes(frags)
	require.NoError(t, err)
	require.NoError(t, propagateCosts(ng, newStatsCache(stats)))

	est := math.Log(2.25) + math.Log(100)
	for _, v := range []traversal.Variable{"?s", "?d"} {
		idx, err := ng.varNode(v)
		require.NoError(t, err)
		assert.True(t, ng.nodes[idx].hasFixedCost, v)
		assert.InDelta(t, est, ng.nodes[idx].fixedCost, 1e-9, v)
	}
	idx, _ := ng.varNode("?x")
	assert.False(t, ng.nodes[idx].hasFixedCost)
	assert.InDelta(t, est, ng.cost(frags[2]), 1e-9)
	assert.InDelta(t, fragment.CostInstancesPerType, frags[2].Cost(), 1e-9)
}
