package annotations

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorDisabledWithoutHandler(t *testing.T) {
	c := NewCollector(nil)
	assert.False(t, c.Enabled())

	c.Add(Event{Name: PlanInvoked})
	c.AddTiming(PlanComplete, time.Now(), nil)
	assert.Empty(t, c.Events())

	var nilCollector *Collector
	assert.False(t, nilCollector.Enabled())
	nilCollector.Add(Event{Name: PlanInvoked})
}

func TestCollectorRecordsAndForwards(t *testing.T) {
	var seen []string
	c := NewCollector(func(e Event) { seen = append(seen, e.Name) })

	start := time.Now().Add(-time.Millisecond)
	c.Add(Event{Name: PlanInvoked})
	c.AddTiming(PlanComplete, start, map[string]interface{}{"fragments": 3})

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, []string{PlanInvoked, PlanComplete}, seen)
	assert.True(t, events[1].Latency >= time.Millisecond)

	c.Reset()
	assert.Empty(t, c.Events())
}

func TestOutputFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewOutputFormatter(&buf)

	f.Handle(Event{Name: PlanInvoked, Data: map[string]interface{}{
		"pattern":   "(and [?x :isa ?t])",
		"disjuncts": 1,
	}})
	f.Handle(Event{Name: PlanArborescence, Latency: 2 * time.Millisecond, Data: map[string]interface{}{
		"root":       "?t",
		"spanned":    2,
		"weight":     -6.5,
		"candidates": 1,
	}})
	f.Handle(Event{Name: PlanArborescence, Data: map[string]interface{}{"candidates": 0}})
	f.Handle(Event{Name: "custom/event", Data: map[string]interface{}{"k": "v"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[0µs] Pattern: (and [?x :isa ?t]) (1 disjuncts)", lines[0])
	assert.Equal(t, "[2.0ms] Arborescence rooted at ?t spans 2 nodes (weight -6.500, 1 candidates)", lines[1])
	assert.Equal(t, "[0µs] No arborescence (0 candidates)", lines[2])
	assert.Contains(t, lines[3], "custom/event")
}

func TestTruncatePattern(t *testing.T) {
	long := strings.Repeat("[?x :isa ?t] ", 20)
	out := truncatePattern(long)
	assert.Len(t, out, 80)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "a b", truncatePattern("a \n  b"))
}

func TestChain(t *testing.T) {
	assert.Nil(t, Chain())
	assert.Nil(t, Chain(nil, nil))

	var first, second []string
	h := Chain(
		func(e Event) { first = append(first, e.Name) },
		nil,
		func(e Event) { second = append(second, e.Name) },
	)
	require.NotNil(t, h)
	h(Event{Name: CacheHit})
	assert.Equal(t, []string{CacheHit}, first)
	assert.Equal(t, []string{CacheHit}, second)
}
