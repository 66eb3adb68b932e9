package storage

import (
	"fmt"
	"math/rand"

	"github.com/wbrown/janus-traversal/traversal"
)

// GenerateConfig describes a synthetic schema with random statistics
type GenerateConfig struct {
	Entities   int    // Entity types
	Relations  int    // Relation types
	Attributes int    // Attribute types, each owned through an implicit @has relation
	MaxShards  uint64 // Upper bound on shards per type
	Players    int    // Relation types each entity type plays in
	Seed       int64
	OutputPath string
}

// DefaultGenerateConfig returns a small schema
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Entities:   10,
		Relations:  5,
		Attributes: 10,
		MaxShards:  20,
		Players:    2,
		Seed:       1,
		OutputPath: "stats.db",
	}
}

// MediumGenerateConfig returns a schema with a few hundred types
func MediumGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Entities:   100,
		Relations:  50,
		Attributes: 100,
		MaxShards:  200,
		Players:    4,
		Seed:       1,
		OutputPath: "stats_medium.db",
	}
}

// LargeGenerateConfig returns a schema with a few thousand types
func LargeGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Entities:   1000,
		Relations:  500,
		Attributes: 1000,
		MaxShards:  2000,
		Players:    8,
		Seed:       1,
		OutputPath: "stats_large.db",
	}
}

// Generate builds a deterministic snapshot for cfg. Entity types form a
// single inheritance tree rooted at "entity"; every entity type plays in
// cfg.Players relation types.
func Generate(cfg GenerateConfig) (*Snapshot, error) {
	if cfg.Entities < 1 || cfg.Relations < 0 || cfg.Attributes < 0 {
		return nil, fmt.Errorf("invalid generator config: %+v", cfg)
	}
	if cfg.MaxShards < 1 {
		cfg.MaxShards = 1
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	shards := func() uint64 { return 1 + uint64(rng.Int63n(int64(cfg.MaxShards))) }

	snap := &Snapshot{ShardingThreshold: DefaultShardingThreshold}
	relations := make([]traversal.Label, cfg.Relations)
	for i := range relations {
		relations[i] = traversal.Label(fmt.Sprintf("relation-%d", i))
		snap.Types = append(snap.Types, TypeInfo{Label: relations[i], Kind: KindRelation, Shards: shards()})
	}

	entities := make([]traversal.Label, cfg.Entities)
	for i := range entities {
		entities[i] = traversal.Label(fmt.Sprintf("entity-%d", i))
		t := TypeInfo{Label: entities[i], Kind: KindEntity, Shards: shards()}
		if i > 0 {
			t.Sub = entities[rng.Intn(i)]
		}
		for p := 0; p < cfg.Players && len(relations) > 0; p++ {
			t.Plays = append(t.Plays, relations[rng.Intn(len(relations))])
		}
		t.Plays = dedupLabels(t.Plays)
		snap.Types = append(snap.Types, t)
	}

	for i := 0; i < cfg.Attributes; i++ {
		attr := traversal.Label(fmt.Sprintf("attribute-%d", i))
		has := "@has-" + attr
		snap.Types = append(snap.Types,
			TypeInfo{Label: attr, Kind: KindAttribute, Shards: shards(), Plays: []traversal.Label{has}},
			TypeInfo{Label: has, Kind: KindRelation, Shards: shards()},
		)
		owner := &snap.Types[cfg.Relations+rng.Intn(cfg.Entities)]
		owner.Plays = append(owner.Plays, has)
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func dedupLabels(labels []traversal.Label) []traversal.Label {
	seen := make(map[traversal.Label]bool, len(labels))
	out := labels[:0]
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
