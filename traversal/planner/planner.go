// Package planner orders the fragments of a graph pattern into traversal
// plans.
//
// File organization:
//   - planner.go: Planner and the CreateTraversal / PlanForConjunction entry points
//   - nodes.go: node graph construction and dependency registration
//   - components.go: partitioning fragments into connected components
//   - cost.go: fixed cost assignment and statistics-based refinement
//   - weighted.go: the weighted directed graph, including middle nodes
//   - arborescence.go: root selection and Chu-Liu-Edmonds
//   - linearize.go, optimal.go: turning an arborescence into a fragment order
//   - sweep.go: fragments outside the arborescence
//   - inference.go: relation type inference
//   - cache.go: traversal plan cache
//
// Start with CreateTraversal() to understand the planning flow.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/wbrown/janus-traversal/traversal/annotations"
	"github.com/wbrown/janus-traversal/traversal/fragment"
	"github.com/wbrown/janus-traversal/traversal/pattern"
)

// Planner creates traversal plans. It holds no mutable state besides the
// optional plan cache and is safe for concurrent use when its Statistics
// and Schema are.
type Planner struct {
	stats   Statistics
	options Options
	cache   *PlanCache
}

// NewPlanner creates a new traversal planner. stats may be nil, in which
// case label lookups are costed by their static estimate.
func NewPlanner(stats Statistics, options Options) *Planner {
	options = options.withDefaults()
	return &Planner{
		stats:   stats,
		options: options,
		cache:   options.Cache,
	}
}

// Options returns the planner options
func (p *Planner) Options() Options {
	return p.options
}

// invocation is the state of one planning call
type invocation struct {
	ctx       context.Context
	stats     *statsCache
	collector *annotations.Collector
	log       *zap.Logger
}

func (p *Planner) newInvocation(ctx context.Context) *invocation {
	return &invocation{
		ctx:       ctx,
		stats:     newStatsCache(p.stats),
		collector: annotations.NewCollector(p.options.Handler),
		log:       p.options.Logger,
	}
}

// CreateTraversal plans a pattern: it is reduced to disjunctive normal form
// and every conjunction is mapped to fragments and planned independently.
func (p *Planner) CreateTraversal(ctx context.Context, pat pattern.Pattern) (*Traversal, error) {
	start := time.Now()
	inv := p.newInvocation(ctx)

	conjunctions, err := pattern.DisjunctiveNormalForm(pat)
	if err != nil {
		return nil, fmt.Errorf("planning %s: %w", pat, err)
	}
	inv.collector.Add(annotations.Event{
		Name:  annotations.PlanInvoked,
		Start: start,
		Data: map[string]interface{}{
			"pattern":   pat.String(),
			"disjuncts": len(conjunctions),
		},
	})

	sets := make([][]fragment.Fragment, len(conjunctions))
	for i, conj := range conjunctions {
		frags, err := fragment.FromConjunction(conj)
		if err != nil {
			return nil, err
		}
		if p.options.InferRelationTypes && p.options.Schema != nil {
			var inferred []inferredType
			frags, inferred = inferRelationTypes(frags, p.options.Schema)
			for _, it := range inferred {
				inv.log.Debug("inferred relation type",
					zap.String("relation", string(it.Relation)),
					zap.String("type", string(it.Type)))
				inv.collector.Add(annotations.Event{
					Name: annotations.PlanInferred,
					Data: map[string]interface{}{
						"variable": string(it.Relation),
						"type":     string(it.Type),
					},
				})
			}
		}
		sets[i] = frags
	}

	if p.cache != nil {
		if cached, ok := p.cache.Get(sets, p.options); ok {
			inv.collector.Add(annotations.Event{Name: annotations.CacheHit})
			return cached, nil
		}
		inv.collector.Add(annotations.Event{Name: annotations.CacheMiss})
	}

	t := &Traversal{Plans: make([][]fragment.Fragment, len(sets))}
	for i, frags := range sets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plan, err := p.planConjunction(inv, i, frags)
		if err != nil {
			return nil, err
		}
		t.Plans[i] = plan
	}

	p.cache.Set(sets, t, p.options)

	inv.collector.AddTiming(annotations.PlanComplete, start, map[string]interface{}{
		"fragments": t.Fragments(),
		"plans":     len(t.Plans),
	})
	return t, nil
}

// PlanForConjunction orders one conjunction's fragments. Every fragment is
// emitted exactly once.
func (p *Planner) PlanForConjunction(ctx context.Context, frags []fragment.Fragment) ([]fragment.Fragment, error) {
	return p.planConjunction(p.newInvocation(ctx), 0, frags)
}

func (p *Planner) planConjunction(inv *invocation, conj int, frags []fragment.Fragment) ([]fragment.Fragment, error) {
	start := time.Now()

	frags = fragment.Dedup(frags)
	if p.options.MaxFragments > 0 && len(frags) > p.options.MaxFragments {
		return nil, fmt.Errorf("%w: %d fragments, limit %d", ErrTooManyFragments, len(frags), p.options.MaxFragments)
	}

	sorted := make([]fragment.Fragment, len(frags))
	copy(sorted, frags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	components := connectedComponents(sorted)
	plan := make([]fragment.Fragment, 0, len(sorted))
	for ci, component := range components {
		if err := inv.ctx.Err(); err != nil {
			return nil, err
		}
		sub, err := p.planComponent(inv, ci, component)
		if err != nil {
			p.reportError(inv, err)
			return nil, err
		}
		plan = append(plan, sub...)
	}

	inv.log.Debug("planned conjunction",
		zap.Int("conjunction", conj),
		zap.Int("fragments", len(plan)),
		zap.Int("components", len(components)))
	inv.collector.AddTiming(annotations.PlanConjunction, start, map[string]interface{}{
		"conjunction": conj,
		"fragments":   len(plan),
		"components":  len(components),
	})
	return plan, nil
}

func (p *Planner) planComponent(inv *invocation, ci int, frags []fragment.Fragment) ([]fragment.Fragment, error) {
	start := time.Now()

	ng, err := buildNodes(frags)
	if err != nil {
		return nil, err
	}
	if err := propagateCosts(ng, inv.stats); err != nil {
		return nil, err
	}
	inv.collector.AddTiming(annotations.PlanComponent, start, map[string]interface{}{
		"component": ci,
		"fragments": len(frags),
		"nodes":     len(ng.nodes),
	})

	start = time.Now()
	wg := buildWeightedGraph(ng)
	roots := candidateRoots(ng, wg, p.options.MaxStartingPoints)
	tree := solveArborescence(wg, roots)
	if inv.collector.Enabled() {
		data := map[string]interface{}{"candidates": len(roots)}
		if tree != nil {
			data["root"] = ng.nodes[tree.root].id.String()
			data["spanned"] = len(tree.nodes)
			data["weight"] = tree.weight
		}
		inv.collector.AddTiming(annotations.PlanArborescence, start, data)
	}

	b := newPlanBuilder(ng, tree)
	if tree != nil {
		p.linearize(inv, b, tree)
	}

	if swept := b.sweep(); swept > 0 {
		if tree != nil {
			inv.log.Debug("swept fragments outside the arborescence",
				zap.Int("component", ci),
				zap.Int("fragments", swept))
		}
		inv.collector.Add(annotations.Event{
			Name: annotations.PlanSwept,
			Data: map[string]interface{}{"fragments": swept},
		})
	}

	if err := b.checkComplete(frags); err != nil {
		return nil, err
	}
	return b.plan, nil
}

// linearize emits the arborescence with the configured strategy
func (p *Planner) linearize(inv *invocation, b *planBuilder, tree *arborescence) {
	if p.options.Strategy == StrategyOptimal && len(tree.nodes) <= p.options.OptimalMaxNodes {
		if order, ok := b.optimalOrder(inv.ctx, tree); ok {
			b.linearizeOrder(tree, order)
			return
		}
		inv.log.Debug("exhaustive linearization abandoned, falling back to greedy",
			zap.Int("nodes", len(tree.nodes)))
	}
	b.linearizeGreedy(tree)
}

func (p *Planner) reportError(inv *invocation, err error) {
	switch {
	case errors.Is(err, ErrPlannerDefect):
		inv.log.Error("planner defect", zap.Error(err))
		inv.collector.Add(annotations.Event{
			Name: annotations.ErrorPlannerDefect,
			Data: map[string]interface{}{"error": err.Error()},
		})
	case errors.Is(err, ErrStatistics):
		inv.log.Warn("statistics unavailable", zap.Error(err))
		inv.collector.Add(annotations.Event{
			Name: annotations.ErrorStatistics,
			Data: map[string]interface{}{"error": err.Error()},
		})
	}
}
