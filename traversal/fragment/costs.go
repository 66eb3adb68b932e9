package fragment

import "math"

// Cost estimates are natural logarithms of the expected number of elements a
// fragment visits per input binding, so that composing independent steps
// (multiplying fan-outs) becomes addition.
var (
	// Index lookups touch a single vertex or a handful of index entries
	CostIndex = 1.0

	CostInstancesPerType   = math.Log(1000)
	CostTypesPerInstance   = math.Log(1.5)
	CostSubtypesPerType    = math.Log(1.5)
	CostSupertypesPerType  = math.Log(1.1)
	CostAttributesPerOwner = math.Log(3)
	CostOwnersPerAttribute = math.Log(5)
	CostPlayersPerRelation = math.Log(2)
	CostRelationsPerPlayer = math.Log(10)
	CostValuePredicate     = math.Log(2)
	CostValueComparison    = math.Log(2)
	CostNeq                = math.Log(2)
)

// ShardLoadFactor keeps the instance estimate of a type with a single shard
// away from log(0)
const ShardLoadFactor = 0.25

// LogInstanceCount estimates the log of the number of instances of a type
// from its shard count: log(shards - 1 + ShardLoadFactor) + log(threshold).
// A type always owns at least one shard, so lower counts are clamped to one.
func LogInstanceCount(shardCount, shardingThreshold uint64) float64 {
	shards := float64(shardCount)
	if shards < 1 {
		shards = 1
	}
	threshold := float64(shardingThreshold)
	if threshold < 1 {
		threshold = 1
	}
	return math.Log(shards-1+ShardLoadFactor) + math.Log(threshold)
}
