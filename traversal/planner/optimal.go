package planner

import (
	"context"
	"math"
)

// maxStepExponent keeps exp() finite for very expensive prefixes
const maxStepExponent = 700

// optimalOrder searches every order in which the arborescence can be walked
// (a node only after its parent) for the one with the lowest total cost.
// Visiting a node costs exp of the summed node weights visited so far, i.e.
// the estimated number of partial results alive after that step. The search
// is memoized over visited sets. ok is false when the context is done
// before the search completes.
func (b *planBuilder) optimalOrder(ctx context.Context, tree *arborescence) (order []nodeIdx, ok bool) {
	k := len(tree.nodes)
	if k == 0 || k > 31 {
		return nil, false
	}

	pos := make(map[nodeIdx]int, k)
	for i, n := range tree.nodes {
		pos[n] = i
	}
	parent := make([]int, k)
	weight := make([]float64, k)
	for i, n := range tree.nodes {
		parent[i] = -1
		if a, ok := tree.parent[n]; ok {
			parent[i] = pos[a.from]
		}
		weight[i] = b.nodeWeight(tree, n)
	}

	full := uint32(1)<<uint(k) - 1
	memo := make(map[uint32]float64)
	next := make(map[uint32]int)

	var search func(mask uint32) (float64, bool)
	search = func(mask uint32) (float64, bool) {
		if mask == full {
			return 0, true
		}
		if c, ok := memo[mask]; ok {
			return c, true
		}
		if ctx.Err() != nil {
			return 0, false
		}

		prefix := 0.0
		for i := 0; i < k; i++ {
			if mask&(1<<uint(i)) != 0 {
				prefix += weight[i]
			}
		}

		best, bestNext := math.Inf(1), -1
		for i := 0; i < k; i++ {
			if mask&(1<<uint(i)) != 0 {
				continue
			}
			if parent[i] < 0 {
				if mask != 0 {
					continue
				}
			} else if mask&(1<<uint(parent[i])) == 0 {
				continue
			}
			rest, ok := search(mask | 1<<uint(i))
			if !ok {
				return 0, false
			}
			if c := math.Exp(math.Min(prefix+weight[i], maxStepExponent)) + rest; c < best {
				best, bestNext = c, i
			}
		}
		memo[mask] = best
		next[mask] = bestNext
		return best, true
	}

	if _, ok := search(0); !ok {
		return nil, false
	}
	for mask := uint32(0); mask != full; {
		i := next[mask]
		if i < 0 {
			return nil, false
		}
		order = append(order, tree.nodes[i])
		mask |= 1 << uint(i)
	}
	return order, true
}
