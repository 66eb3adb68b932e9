package storage

import (
	"sync"

	"github.com/wbrown/janus-traversal/traversal"
)

// MemoryStore keeps type statistics in memory. It is safe for concurrent
// use.
type MemoryStore struct {
	mu        sync.RWMutex
	types     map[traversal.Label]TypeInfo
	threshold uint64
}

// NewMemoryStore creates a store holding the given snapshot. A nil snapshot
// gives an empty store.
func NewMemoryStore(s *Snapshot) (*MemoryStore, error) {
	m := &MemoryStore{
		types:     make(map[traversal.Label]TypeInfo),
		threshold: DefaultShardingThreshold,
	}
	if s != nil {
		if err := m.Import(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Import replaces the store's content with a snapshot
func (m *MemoryStore) Import(s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	types := make(map[traversal.Label]TypeInfo, len(s.Types))
	for _, t := range s.Types {
		types[t.Label] = t
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = types
	m.threshold = s.ShardingThreshold
	return nil
}

// Snapshot exports the store's content
func (m *MemoryStore) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := &Snapshot{ShardingThreshold: m.threshold}
	for _, t := range m.types {
		s.Types = append(s.Types, t)
	}
	s.sort()
	return s
}

// SetShardCount updates the shard count of a type, creating it if needed
func (m *MemoryStore) SetShardCount(label traversal.Label, shards uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[label]
	if !ok {
		t = TypeInfo{Label: label, Kind: KindEntity}
	}
	t.Shards = shards
	m.types[label] = t
}

// ShardCount returns the shard count of a type, zero for unknown types
func (m *MemoryStore) ShardCount(label traversal.Label) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[label].Shards, nil
}

func (m *MemoryStore) ShardingThreshold() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threshold
}

func (m *MemoryStore) IsType(label traversal.Label) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.types[label]
	return ok
}

func (m *MemoryStore) RelationTypesPlayedBy(label traversal.Label) []traversal.Label {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return relationTypesPlayedBy(label, func(l traversal.Label) (TypeInfo, bool) {
		t, ok := m.types[l]
		return t, ok
	})
}
