// Package metadata implements EdgeVec's per-vector metadata store: a
// mapping from VectorId to a small closed-union value type (String,
// F64, Bool, StringList) enforced at the boundary instead of a dynamic
// interface{} payload.
package metadata

import (
	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/vectorstore"
)

// Kind tags which variant a Value holds.
type Kind uint8

const (
	KindString Kind = iota
	KindF64
	KindBool
	KindStringList
)

// Value is the closed tagged union every metadata field holds. Any
// shape outside these four variants must be rejected at the boundary
// with InvalidInput before it ever reaches a Map.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// String returns a Value holding a UTF-8 string.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// F64 returns a Value holding a float64.
func F64(n float64) Value { return Value{Kind: KindF64, Num: n} }

// NewBool returns a Value holding a bool. Named NewBool (not Bool) to
// avoid shadowing the Value.Bool field when used as Value{}.Bool.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// StringList returns a Value holding an ordered list of strings.
func StringList(l []string) Value {
	return Value{Kind: KindStringList, List: append([]string(nil), l...)}
}

// Map is one document's metadata: key -> Value, keys case-sensitive
// UTF-8 strings, insertion order irrelevant.
type Map map[string]Value

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		if v.Kind == KindStringList {
			v.List = append([]string(nil), v.List...)
		}
		out[k] = v
	}
	return out
}

// Store holds at most one metadata Map per VectorId. It does not carry
// its own tombstone bitmap: metadata is co-tombstoned with dense
// storage, so liveness is the owning index's responsibility (it
// consults vectorstore's tombstones before calling Get).
type Store struct {
	entries map[vectorstore.VectorId]Map
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[vectorstore.VectorId]Map)}
}

// Set replaces (or creates) id's metadata map. There is no in-place
// edit operation: callers replace the whole map through a re-insert
// pathway.
func (s *Store) Set(id vectorstore.VectorId, m Map) {
	if m == nil {
		delete(s.entries, id)
		return
	}
	s.entries[id] = m.Clone()
}

// Get returns a copy of id's metadata map, or ok=false if none is set.
func (s *Store) Get(id vectorstore.VectorId) (Map, bool) {
	m, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// raw returns id's map with no defensive copy, for the filter
// evaluator's hot loop inside the owning package.
func (s *Store) raw(id vectorstore.VectorId) (Map, bool) {
	m, ok := s.entries[id]
	return m, ok
}

// Raw exposes the zero-copy accessor to trusted in-module callers (the
// Index's filtered-search path) that must not pay a copy per candidate.
func (s *Store) Raw(id vectorstore.VectorId) (Map, bool) { return s.raw(id) }

// Delete removes id's metadata entirely (used by compaction, which
// rebuilds a fresh Store rather than mutating this one in place).
func (s *Store) Delete(id vectorstore.VectorId) {
	delete(s.entries, id)
}

// Len returns the number of ids carrying a metadata entry (not the
// number of live vectors in the index, which may be larger if some
// vectors were inserted without metadata).
func (s *Store) Len() int { return len(s.entries) }

// Compact rebuilds the store keeping only ids present in remap,
// re-keyed to their new id, mirroring vectorstore.Storage.Compact's
// remap contract.
func (s *Store) Compact(remap map[vectorstore.VectorId]vectorstore.VectorId) *Store {
	next := New()
	for oldID, newID := range remap {
		if m, ok := s.entries[oldID]; ok {
			next.entries[newID] = m
		}
	}
	return next
}

// SizeBytes estimates the live memory footprint of stored metadata, for
// the memory-pressure monitor.
func (s *Store) SizeBytes() int64 {
	var total int64
	for _, m := range s.entries {
		for k, v := range m {
			total += int64(len(k)) + 24
			switch v.Kind {
			case KindString:
				total += int64(len(v.Str))
			case KindStringList:
				for _, e := range v.List {
					total += int64(len(e))
				}
			}
		}
	}
	return total
}

// Entries returns the store's backing map directly, for the snapshot
// codec's META_ENTRIES section. Callers must not mutate the result.
func (s *Store) Entries() map[vectorstore.VectorId]Map { return s.entries }

// RestoreFromSnapshot rebuilds a Store directly from a decoded
// id->Map mapping.
func RestoreFromSnapshot(entries map[vectorstore.VectorId]Map) *Store {
	return &Store{entries: entries}
}

// ValidateInterface rejects any dynamic value outside the closed
// {string, float64, bool, []string} shapes EdgeVec accepts at the
// boundary, enforcing the closed Value tagged union before it reaches a
// Map. Hosts marshaling JSON (or any other dynamic format) should
// funnel through this before calling Set.
func ValidateInterface(v interface{}) (Value, error) {
	switch t := v.(type) {
	case string:
		return String(t), nil
	case float64:
		return F64(t), nil
	case float32:
		return F64(float64(t)), nil
	case int:
		return F64(float64(t)), nil
	case int64:
		return F64(float64(t)), nil
	case bool:
		return NewBool(t), nil
	case []string:
		return StringList(t), nil
	default:
		return Value{}, apperr.Newf("metadata.ValidateInterface", apperr.InvalidInput,
			"unsupported metadata value type %T", v)
	}
}
