package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wbrown/janus-traversal/traversal/fragment"
)

// PlanCache caches traversals to avoid re-planning identical fragment sets.
// Statistics are not part of the key, so entries expire after a TTL to pick
// up statistics changes.
type PlanCache struct {
	lru *expirable.LRU[string, *Traversal]

	hits   int64
	misses int64
}

// NewPlanCache creates a new traversal plan cache
func NewPlanCache(maxSize int, ttl time.Duration) *PlanCache {
	if maxSize <= 0 {
		maxSize = 1000 // Default to 1000 cached plans
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute // Default to 5 minute TTL
	}
	return &PlanCache{
		lru: expirable.NewLRU[string, *Traversal](maxSize, nil, ttl),
	}
}

// Get retrieves a cached traversal for the fragment sets of a pattern. The
// result is a copy owned by the caller.
func (c *PlanCache) Get(sets [][]fragment.Fragment, opts Options) (*Traversal, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.lru.Get(computeKey(sets, opts))
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return t.clone(), true
}

// Set stores a copy of a traversal
func (c *PlanCache) Set(sets [][]fragment.Fragment, t *Traversal, opts Options) {
	if c == nil || t == nil {
		return
	}
	c.lru.Add(computeKey(sets, opts), t.clone())
}

// Clear removes all cached traversals
func (c *PlanCache) Clear() {
	if c == nil {
		return
	}
	c.lru.Purge()
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Stats returns cache statistics
func (c *PlanCache) Stats() (hits, misses int64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), c.lru.Len()
}

// computeKey hashes the fragment sets (order independent within a set) and
// the options that affect planning
func computeKey(sets [][]fragment.Fragment, opts Options) string {
	h := sha256.New()

	for i, frags := range sets {
		rendered := make([]string, len(frags))
		for j, f := range frags {
			rendered[j] = fmt.Sprintf("%s@%g", f, f.Cost())
		}
		sort.Strings(rendered)
		fmt.Fprintf(h, "CONJ%d:", i)
		for _, r := range rendered {
			fmt.Fprintf(h, "%s;", r)
		}
	}

	opts = opts.withDefaults()
	fmt.Fprintf(h, "OPTIONS:")
	fmt.Fprintf(h, "Strategy:%v;", opts.Strategy)
	fmt.Fprintf(h, "MaxStartingPoints:%d;", opts.MaxStartingPoints)
	fmt.Fprintf(h, "OptimalMaxNodes:%d;", opts.OptimalMaxNodes)

	return hex.EncodeToString(h.Sum(nil))
}
