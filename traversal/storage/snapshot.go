// Package storage provides the type statistics and schema the traversal
// planner reads: an in-memory store for tests and embedding, and a
// badger-backed store for statistics kept on disk.
package storage

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wbrown/janus-traversal/traversal"
)

// DefaultShardingThreshold is the number of instances a shard holds before
// a new shard is opened
const DefaultShardingThreshold = 10000

// Kind is the kind of a schema type
type Kind string

const (
	KindEntity    Kind = "entity"
	KindRelation  Kind = "relation"
	KindAttribute Kind = "attribute"
	KindRole      Kind = "role"
)

// TypeInfo is the schema and statistics of one type
type TypeInfo struct {
	Label  traversal.Label   `yaml:"label"`
	Kind   Kind              `yaml:"kind"`
	Sub    traversal.Label   `yaml:"sub,omitempty"`   // direct supertype
	Shards uint64            `yaml:"shards"`          // shards holding instances
	Plays  []traversal.Label `yaml:"plays,omitempty"` // relation types this type plays a role in
}

// Snapshot is a complete, serializable set of type statistics
type Snapshot struct {
	ShardingThreshold uint64     `yaml:"sharding_threshold"`
	Types             []TypeInfo `yaml:"types"`
}

// ReadSnapshot decodes a YAML snapshot
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode statistics: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteSnapshot encodes a snapshot as YAML
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}
	return enc.Close()
}

// Validate checks labels are present and unique and fills in defaults
func (s *Snapshot) Validate() error {
	if s.ShardingThreshold == 0 {
		s.ShardingThreshold = DefaultShardingThreshold
	}
	seen := make(map[traversal.Label]bool, len(s.Types))
	for i := range s.Types {
		t := &s.Types[i]
		if t.Label == "" {
			return fmt.Errorf("type %d has no label", i)
		}
		if seen[t.Label] {
			return fmt.Errorf("duplicate type %s", t.Label)
		}
		seen[t.Label] = true
		if t.Kind == "" {
			t.Kind = KindEntity
		}
	}
	s.sort()
	return nil
}

func (s *Snapshot) sort() {
	sort.Slice(s.Types, func(i, j int) bool { return s.Types[i].Label < s.Types[j].Label })
}

// relationTypesPlayedBy walks a type and its supertypes collecting the
// relation types they play in, sorted and without duplicates
func relationTypesPlayedBy(label traversal.Label, lookup func(traversal.Label) (TypeInfo, bool)) []traversal.Label {
	seen := make(map[traversal.Label]bool)
	visited := make(map[traversal.Label]bool)
	var out []traversal.Label
	for l := label; l != "" && !visited[l]; {
		visited[l] = true
		info, ok := lookup(l)
		if !ok {
			break
		}
		for _, rel := range info.Plays {
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
		}
		l = info.Sub
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
