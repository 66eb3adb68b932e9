package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/planner"
)

var (
	_ planner.Statistics = (*MemoryStore)(nil)
	_ planner.Schema     = (*MemoryStore)(nil)
	_ planner.Statistics = (*BadgerStore)(nil)
	_ planner.Schema     = (*BadgerStore)(nil)
)

// store is the read surface shared by both implementations
type store interface {
	planner.Statistics
	planner.Schema
}

func loadTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "stats.yaml"))
	require.NoError(t, err)
	defer f.Close()

	snap, err := ReadSnapshot(f)
	require.NoError(t, err)
	return snap
}

func TestReadSnapshot(t *testing.T) {
	snap := loadTestSnapshot(t)
	assert.Equal(t, uint64(10000), snap.ShardingThreshold)
	require.Len(t, snap.Types, 8)
	// sorted by label
	assert.Equal(t, traversal.Label("@has-name"), snap.Types[0].Label)
	assert.Equal(t, KindRelation, snap.Types[0].Kind)

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, snap))
	again, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap, again)
}

func TestSnapshotValidation(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewBufferString("types:\n  - label: a\n  - label: a\n"))
	assert.ErrorContains(t, err, "duplicate type a")

	_, err = ReadSnapshot(bytes.NewBufferString("types:\n  - kind: entity\n"))
	assert.ErrorContains(t, err, "no label")

	snap, err := ReadSnapshot(bytes.NewBufferString("types:\n  - label: a\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(DefaultShardingThreshold), snap.ShardingThreshold)
	assert.Equal(t, KindEntity, snap.Types[0].Kind)
}

func openStores(t *testing.T) map[string]store {
	t.Helper()
	snap := loadTestSnapshot(t)

	mem, err := NewMemoryStore(snap)
	require.NoError(t, err)

	db, err := OpenBadgerStore(t.TempDir(), BadgerOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Import(snap))

	return map[string]store{"memory": mem, "badger": db}
}

func TestStores(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, uint64(10000), s.ShardingThreshold())

			n, err := s.ShardCount("person")
			require.NoError(t, err)
			assert.Equal(t, uint64(3), n)

			n, err = s.ShardCount("unicorn")
			require.NoError(t, err)
			assert.Zero(t, n)

			assert.True(t, s.IsType("company"))
			assert.False(t, s.IsType("unicorn"))

			assert.Equal(t, []traversal.Label{"employment", "friendship"}, s.RelationTypesPlayedBy("person"))
			assert.Empty(t, s.RelationTypesPlayedBy("thing"))
			assert.Empty(t, s.RelationTypesPlayedBy("unicorn"))
		})
	}
}

func TestRelationTypesIncludeSupertypes(t *testing.T) {
	mem, err := NewMemoryStore(&Snapshot{Types: []TypeInfo{
		{Label: "agent", Plays: []traversal.Label{"employment"}},
		{Label: "person", Sub: "agent", Plays: []traversal.Label{"friendship", "employment"}},
		{Label: "loop", Sub: "loop"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []traversal.Label{"employment", "friendship"}, mem.RelationTypesPlayedBy("person"))
	assert.Empty(t, mem.RelationTypesPlayedBy("loop"))
}

func TestSetShardCount(t *testing.T) {
	mem, err := NewMemoryStore(nil)
	require.NoError(t, err)
	mem.SetShardCount("person", 4)
	n, _ := mem.ShardCount("person")
	assert.Equal(t, uint64(4), n)
	assert.Len(t, mem.Snapshot().Types, 1)

	db, err := OpenBadgerStore("", BadgerOptions{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SetShardCount("person", 4))
	n, err = db.ShardCount("person")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	require.NoError(t, db.SetShardCount("person", 5))
	n, err = db.ShardCount("person")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestBadgerStoreSkipsReadsOverlappingWrites(t *testing.T) {
	db, err := OpenBadgerStore("", BadgerOptions{InMemory: true, CacheTTL: time.Hour})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SetShardCount("person", 3))
	seen := db.version.Load()

	// a read that started before this write must not be cached
	require.NoError(t, db.SetShardCount("person", 5))
	assert.False(t, db.remember("person", TypeInfo{Label: "person", Kind: KindEntity, Shards: 3}, seen))
	db.cache.Wait()

	n, err := db.ShardCount("person")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()
	snap := loadTestSnapshot(t)
	snap.ShardingThreshold = 500

	db, err := OpenBadgerStore(dir, BadgerOptions{})
	require.NoError(t, err)
	require.NoError(t, db.Import(snap))
	require.NoError(t, db.Close())

	db, err = OpenBadgerStore(dir, BadgerOptions{})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, uint64(500), db.ShardingThreshold())
	exported, err := db.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, exported)
}

func TestGenerate(t *testing.T) {
	cfg := DefaultGenerateConfig()
	snap, err := Generate(cfg)
	require.NoError(t, err)
	assert.Len(t, snap.Types, cfg.Entities+cfg.Relations+2*cfg.Attributes)

	again, err := Generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, snap, again, "generation is deterministic for a seed")

	mem, err := NewMemoryStore(snap)
	require.NoError(t, err)
	for _, typ := range snap.Types {
		assert.GreaterOrEqual(t, typ.Shards, uint64(1))
		assert.LessOrEqual(t, typ.Shards, cfg.MaxShards)
		if typ.Kind == KindEntity && typ.Label != "entity-0" {
			assert.True(t, mem.IsType(typ.Sub), "supertype of %s", typ.Label)
		}
	}
	// every entity inherits the relations of entity-0
	root := mem.RelationTypesPlayedBy("entity-0")
	for i := 1; i < cfg.Entities; i++ {
		assert.Subset(t, mem.RelationTypesPlayedBy(traversal.Label(fmt.Sprintf("entity-%d", i))), root)
	}

	_, err = Generate(GenerateConfig{})
	assert.Error(t, err)
}
