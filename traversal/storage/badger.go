package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto"
	"gopkg.in/yaml.v3"

	"github.com/wbrown/janus-traversal/traversal"
)

var (
	typePrefix   = []byte("type/")
	thresholdKey = []byte("meta/sharding-threshold")
)

func typeKey(label traversal.Label) []byte {
	return append(append([]byte{}, typePrefix...), label...)
}

// BadgerOptions configures a BadgerStore
type BadgerOptions struct {
	InMemory   bool          // Keep the database in memory (path is ignored)
	CacheItems int64         // Types kept in the read cache (0 = 10000)
	CacheTTL   time.Duration // Lifetime of a cached type (0 = 1 minute)
}

// BadgerStore persists type statistics in BadgerDB. Reads go through a
// ristretto cache; writes invalidate the cached entries they touch. Every
// write bumps version, and a read only fills the cache when no write
// happened since it started, so a read racing a write cannot cache the old
// value. Entries also expire after the cache TTL.
type BadgerStore struct {
	db        *badger.DB
	cache     *ristretto.Cache
	ttl       time.Duration
	version   atomic.Uint64
	threshold atomic.Uint64
}

// OpenBadgerStore opens (or creates) a statistics database at path
func OpenBadgerStore(path string, opts BadgerOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil // Disable BadgerDB logs

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	items := opts.CacheItems
	if items <= 0 {
		items = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: items * 10,
		MaxCost:     items,
		BufferItems: 64,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create statistics cache: %w", err)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	s := &BadgerStore{db: db, cache: cache, ttl: ttl}
	s.threshold.Store(DefaultShardingThreshold)
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(thresholdKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sharding threshold")
			}
			s.threshold.Store(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to read sharding threshold: %w", err)
	}
	return s, nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	s.cache.Close()
	return s.db.Close()
}

// Import replaces the database content with a snapshot
func (s *BadgerStore) Import(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if err := s.db.DropPrefix(typePrefix); err != nil {
		return fmt.Errorf("failed to clear types: %w", err)
	}

	threshold := make([]byte, 8)
	binary.BigEndian.PutUint64(threshold, snap.ShardingThreshold)
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(thresholdKey, threshold); err != nil {
			return err
		}
		for _, t := range snap.Types {
			value, err := yaml.Marshal(t)
			if err != nil {
				return fmt.Errorf("failed to encode type %s: %w", t.Label, err)
			}
			if err := txn.Set(typeKey(t.Label), value); err != nil {
				return fmt.Errorf("failed to write type %s: %w", t.Label, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import statistics: %w", err)
	}

	s.version.Add(1)
	s.cache.Clear()
	s.threshold.Store(snap.ShardingThreshold)
	return nil
}

// Snapshot exports the database content
func (s *BadgerStore) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{ShardingThreshold: s.ShardingThreshold()}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = typePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var t TypeInfo
			err := it.Item().Value(func(val []byte) error {
				return yaml.Unmarshal(val, &t)
			})
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}
			snap.Types = append(snap.Types, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	snap.sort()
	return snap, nil
}

// SetShardCount updates the shard count of a type, creating it if needed
func (s *BadgerStore) SetShardCount(label traversal.Label, shards uint64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		t, ok, err := getType(txn, label)
		if err != nil {
			return err
		}
		if !ok {
			t = TypeInfo{Label: label, Kind: KindEntity}
		}
		t.Shards = shards
		value, err := yaml.Marshal(t)
		if err != nil {
			return err
		}
		return txn.Set(typeKey(label), value)
	})
	if err != nil {
		return fmt.Errorf("failed to update shard count of %s: %w", label, err)
	}
	s.version.Add(1)
	s.cache.Del(string(label))
	return nil
}

func getType(txn *badger.Txn, label traversal.Label) (TypeInfo, bool, error) {
	var t TypeInfo
	item, err := txn.Get(typeKey(label))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return t, false, nil
	}
	if err != nil {
		return t, false, err
	}
	err = item.Value(func(val []byte) error {
		return yaml.Unmarshal(val, &t)
	})
	return t, err == nil, err
}

// lookup reads a type through the cache
func (s *BadgerStore) lookup(label traversal.Label) (TypeInfo, bool, error) {
	if v, ok := s.cache.Get(string(label)); ok {
		if t, ok := v.(TypeInfo); ok {
			return t, true, nil
		}
	}

	seen := s.version.Load()
	var t TypeInfo
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		t, found, err = getType(txn, label)
		return err
	})
	if err != nil {
		return TypeInfo{}, false, fmt.Errorf("failed to read type %s: %w", label, err)
	}
	if found {
		s.remember(label, t, seen)
	}
	return t, found, nil
}

// remember caches a type read at version seen. It reports false, caching
// nothing, when a write happened since.
func (s *BadgerStore) remember(label traversal.Label, t TypeInfo, seen uint64) bool {
	if s.version.Load() != seen {
		return false
	}
	return s.cache.SetWithTTL(string(label), t, 1, s.ttl)
}

// ShardCount returns the shard count of a type, zero for unknown types
func (s *BadgerStore) ShardCount(label traversal.Label) (uint64, error) {
	t, _, err := s.lookup(label)
	if err != nil {
		return 0, err
	}
	return t.Shards, nil
}

func (s *BadgerStore) ShardingThreshold() uint64 {
	return s.threshold.Load()
}

func (s *BadgerStore) IsType(label traversal.Label) bool {
	_, ok, err := s.lookup(label)
	return err == nil && ok
}

func (s *BadgerStore) RelationTypesPlayedBy(label traversal.Label) []traversal.Label {
	return relationTypesPlayedBy(label, func(l traversal.Label) (TypeInfo, bool) {
		t, ok, err := s.lookup(l)
		return t, err == nil && ok
	})
}
