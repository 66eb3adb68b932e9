package planner

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/annotations"
)

const (
	// DefaultMaxStartingPoints caps the number of candidate roots an
	// arborescence is computed for
	DefaultMaxStartingPoints = 3

	// DefaultOptimalMaxNodes is the largest arborescence the exhaustive
	// linearizer will search
	DefaultOptimalMaxNodes = 12
)

// Statistics provides the coarse type statistics the cost model uses.
// Implementations must be safe for concurrent reads.
type Statistics interface {
	// ShardCount returns the number of shards holding instances of the type
	ShardCount(label traversal.Label) (uint64, error)
	// ShardingThreshold returns the number of instances a shard holds before
	// a new one is opened
	ShardingThreshold() uint64
}

// Schema answers the schema questions relation type inference needs
type Schema interface {
	IsType(label traversal.Label) bool
	// RelationTypesPlayedBy returns the relation types in which the type
	// (or one of its supertypes) plays a role
	RelationTypesPlayedBy(label traversal.Label) []traversal.Label
}

// Strategy selects the plan linearizer
type Strategy int

const (
	// StrategyGreedy expands the arborescence by cheapest branch weight
	StrategyGreedy Strategy = iota
	// StrategyOptimal searches every linearization of small arborescences
	// and falls back to greedy for larger ones
	StrategyOptimal
)

func (s Strategy) String() string {
	switch s {
	case StrategyGreedy:
		return "greedy"
	case StrategyOptimal:
		return "optimal"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses a strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "greedy":
		return StrategyGreedy, nil
	case "optimal":
		return StrategyOptimal, nil
	}
	return StrategyGreedy, fmt.Errorf("unknown planning strategy: %q", s)
}

// Options configures the traversal planner
type Options struct {
	Strategy           Strategy
	MaxStartingPoints  int  // Candidate roots per component (0 = DefaultMaxStartingPoints)
	OptimalMaxNodes    int  // Largest arborescence searched exhaustively (0 = DefaultOptimalMaxNodes)
	MaxFragments       int  // Maximum fragments per conjunction (0 = unlimited)
	InferRelationTypes bool // Add relation type fragments inferred from role players (requires Schema)

	Schema  Schema              // Optional, enables relation type inference
	Cache   *PlanCache          // Shared traversal plan cache (optional)
	Logger  *zap.Logger         // Defaults to a no-op logger
	Handler annotations.Handler // Receives planning events (optional)
}

// withDefaults fills in unset options
func (o Options) withDefaults() Options {
	if o.MaxStartingPoints <= 0 {
		o.MaxStartingPoints = DefaultMaxStartingPoints
	}
	if o.OptimalMaxNodes <= 0 {
		o.OptimalMaxNodes = DefaultOptimalMaxNodes
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
