package planner

import (
	"fmt"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// statsCache resolves statistics at most once per label for the duration of
// one planning invocation
type statsCache struct {
	stats     Statistics
	counts    map[traversal.Label]uint64
	threshold uint64
}

func newStatsCache(stats Statistics) *statsCache {
	if stats == nil {
		return nil
	}
	return &statsCache{
		stats:     stats,
		counts:    make(map[traversal.Label]uint64),
		threshold: stats.ShardingThreshold(),
	}
}

// logInstanceCount estimates the log of the number of instances of a type.
// ok is false when no statistics are available.
func (c *statsCache) logInstanceCount(label traversal.Label) (estimate float64, ok bool, err error) {
	if c == nil {
		return 0, false, nil
	}
	count, cached := c.counts[label]
	if !cached {
		count, err = c.stats.ShardCount(label)
		if err != nil {
			return 0, false, fmt.Errorf("%w: shard count of %s: %v", ErrStatistics, label, err)
		}
		c.counts[label] = count
	}
	return fragment.LogInstanceCount(count, c.threshold), true, nil
}

// subtypeEnds returns the (supertype, subtype) nodes of a subtype edge
func subtypeEnds(f fragment.Fragment) (super, sub traversal.Variable, ok bool) {
	end, hasEnd := f.End()
	if !hasEnd {
		return "", "", false
	}
	switch f.Kind() {
	case fragment.KindInSub:
		return f.Start(), end, true
	case fragment.KindOutSub:
		return end, f.Start(), true
	}
	return "", "", false
}

// propagateCosts assigns fixed costs to the nodes of a component.
//
// A node carrying an index-backed fragment gets that fragment's cost; a label
// lookup is costed by the instance estimate of its type when statistics are
// available. Fixed costs then flow from supertypes to subtypes until nothing
// changes, and type-to-instance edges leaving a node with a positive instance
// estimate take that estimate as their cost.
func propagateCosts(g *nodeGraph, stats *statsCache) error {
	estimates := make(map[nodeIdx]float64)

	for i, n := range g.nodes {
		for _, f := range n.withoutDependency {
			if !f.HasFixedCost() {
				continue
			}
			c := g.cost(f)
			if l, ok := f.(fragment.Labelled); ok {
				est, ok, err := stats.logInstanceCount(l.Label())
				if err != nil {
					return err
				}
				if ok {
					c = est
					if prev, seen := estimates[nodeIdx(i)]; !seen || est < prev {
						estimates[nodeIdx(i)] = est
					}
				}
			}
			if !n.hasFixedCost || c < n.fixedCost {
				n.fixedCost = c
				n.hasFixedCost = true
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, f := range g.edges {
			superVar, subVar, ok := subtypeEnds(f)
			if !ok {
				continue
			}
			superIdx, _ := g.varNode(superVar)
			subIdx, _ := g.varNode(subVar)
			super, sub := g.nodes[superIdx], g.nodes[subIdx]
			if !super.hasFixedCost || sub.hasFixedCost {
				continue
			}
			sub.fixedCost = super.fixedCost
			sub.hasFixedCost = true
			if est, ok := estimates[superIdx]; ok {
				estimates[subIdx] = est
			}
			changed = true
		}
	}

	for _, f := range g.edges {
		if f.Kind() != fragment.KindInIsa {
			continue
		}
		start, _ := g.varNode(f.Start())
		if est, ok := estimates[start]; ok && est > 0 {
			g.setCost(f, est)
		}
	}
	return nil
}
