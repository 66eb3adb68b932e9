// Package metrics exports planning events as prometheus metrics.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/wbrown/janus-traversal/traversal/annotations"
)

// Metrics holds the planner metrics in a private registry
type Metrics struct {
	registry *prometheus.Registry

	plans        prometheus.Counter
	planDuration prometheus.Histogram
	fragments    prometheus.Histogram
	cache        *prometheus.CounterVec
	errors       *prometheus.CounterVec
	spanned      prometheus.Histogram
	swept        prometheus.Counter
	inferred     prometheus.Counter
}

// New creates the planner metrics under namespace
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		plans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Traversals planned",
		}),
		planDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Time to plan a traversal",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
		fragments: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_fragments",
			Help:      "Fragments per planned traversal",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_cache_lookups_total",
			Help:      "Plan cache lookups by result",
		}, []string{"result"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_errors_total",
			Help:      "Planning failures by kind",
		}, []string{"kind"}),
		spanned: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "arborescence_nodes",
			Help:      "Nodes spanned by the chosen arborescence",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		swept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_fragments_total",
			Help:      "Fragments emitted by the sweep outside an arborescence",
		}),
		inferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inferred_relation_types_total",
			Help:      "Relation types added by inference",
		}),
	}
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an annotation handler that records planning events
func (m *Metrics) Handler() annotations.Handler {
	return m.observe
}

func (m *Metrics) observe(e annotations.Event) {
	switch e.Name {
	case annotations.PlanComplete:
		m.plans.Inc()
		m.planDuration.Observe(e.Latency.Seconds())
		if n, ok := e.Data["fragments"].(int); ok {
			m.fragments.Observe(float64(n))
		}
	case annotations.CacheHit:
		m.cache.WithLabelValues("hit").Inc()
	case annotations.CacheMiss:
		m.cache.WithLabelValues("miss").Inc()
	case annotations.ErrorPlannerDefect:
		m.errors.WithLabelValues("planner_defect").Inc()
	case annotations.ErrorStatistics:
		m.errors.WithLabelValues("statistics").Inc()
	case annotations.PlanArborescence:
		if n, ok := e.Data["spanned"].(int); ok {
			m.spanned.Observe(float64(n))
		}
	case annotations.PlanSwept:
		if n, ok := e.Data["fragments"].(int); ok {
			m.swept.Add(float64(n))
		}
	case annotations.PlanInferred:
		m.inferred.Inc()
	}
}

// WriteText writes every metric in the prometheus text exposition format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
