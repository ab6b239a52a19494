// Package vectorstore owns the contiguous f32 payload buffer for dense
// vectors: monotonic VectorId assignment, soft-delete, and compaction.
// The HNSW graph holds only VectorIds; it never touches this buffer
// directly.
package vectorstore

import (
	"math"

	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/internal/bitset"
	"github.com/edgevec/edgevec/internal/idalloc"
)

// VectorId is the monotonic identifier assigned to every inserted dense
// vector. Ids are never reused, even after deletion.
type VectorId uint64

// Storage owns one contiguous buffer of count*dim float32 values.
type Storage struct {
	dim     int
	buf     []float32 // len == count*dim
	tombs   *bitset.Set
	ids     *idalloc.Allocator
}

// New returns an empty Storage fixed to dim components per vector.
func New(dim int) *Storage {
	return &Storage{
		dim:   dim,
		tombs: bitset.New(),
		ids:   &idalloc.Allocator{},
	}
}

// Dim returns the fixed vector dimensionality.
func (s *Storage) Dim() int { return s.dim }

// Insert validates dimension, copies vec into the buffer, and returns a
// freshly assigned VectorId.
func (s *Storage) Insert(vec []float32) (VectorId, error) {
	if len(vec) != s.dim {
		return 0, apperr.Newf("vectorstore.Insert", apperr.DimensionMismatch,
			"expected dim %d, got %d", s.dim, len(vec))
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return 0, apperr.New("vectorstore.Insert", apperr.InvalidInput, errNaNInf)
		}
	}

	id := VectorId(s.ids.Next())
	s.buf = append(s.buf, vec...)
	s.tombs.Push()
	return id, nil
}

// Get returns a copy of the stored vector, or ok=false if id is unknown
// or tombstoned.
func (s *Storage) Get(id VectorId) (vec []float32, ok bool) {
	idx := int(id)
	if idx < 0 || idx >= s.tombs.Len() || s.tombs.Test(idx) {
		return nil, false
	}
	start := idx * s.dim
	out := make([]float32, s.dim)
	copy(out, s.buf[start:start+s.dim])
	return out, true
}

// raw returns the live slice (no copy) for callers inside this module
// that need read-only access in a hot loop (the HNSW graph's distance
// computation). Callers must not mutate the returned slice.
func (s *Storage) raw(id VectorId) ([]float32, bool) {
	idx := int(id)
	if idx < 0 || idx >= s.tombs.Len() || s.tombs.Test(idx) {
		return nil, false
	}
	start := idx * s.dim
	return s.buf[start : start+s.dim], true
}

// Raw exposes the zero-copy accessor for trusted in-module callers
// (the HNSW graph) that must not pay a copy per distance computation.
func (s *Storage) Raw(id VectorId) ([]float32, bool) { return s.raw(id) }

// RawAny is Raw without the tombstone check. The HNSW graph keeps
// tombstoned nodes resident (and reachable as stepping stones) until
// compaction, so its distance computations must see them; visibility to
// callers outside the graph is still governed by IsDeleted/Get.
func (s *Storage) RawAny(id VectorId) ([]float32, bool) {
	idx := int(id)
	if idx < 0 || idx >= s.tombs.Len() {
		return nil, false
	}
	start := idx * s.dim
	return s.buf[start : start+s.dim], true
}

// Len returns the total number of assigned ids, live or tombstoned.
func (s *Storage) Len() int { return s.tombs.Len() }

// LiveCount returns the number of non-tombstoned vectors.
func (s *Storage) LiveCount() int { return s.tombs.Len() - s.tombs.Count() }

// DeletedCount returns the number of tombstoned vectors.
func (s *Storage) DeletedCount() int { return s.tombs.Count() }

// IsDeleted reports whether id is tombstoned. Returns an IdNotFound
// error for an id never assigned.
func (s *Storage) IsDeleted(id VectorId) (bool, error) {
	idx := int(id)
	if idx < 0 || idx >= s.tombs.Len() {
		return false, apperr.New("vectorstore.IsDeleted", apperr.IDNotFound, errUnknownID)
	}
	return s.tombs.Test(idx), nil
}

// SoftDelete marks id as tombstoned. Returns true if this call newly
// deleted it (idempotent on repeat calls).
func (s *Storage) SoftDelete(id VectorId) (bool, error) {
	idx := int(id)
	if idx < 0 || idx >= s.tombs.Len() {
		return false, apperr.New("vectorstore.SoftDelete", apperr.IDNotFound, errUnknownID)
	}
	return s.tombs.Set(idx), nil
}

// CompactionResult reports what Compact() accomplished.
type CompactionResult struct {
	Moved          int
	ReclaimedBytes int64
}

// Compact rebuilds the buffer from only the live entries, in ascending
// old-id order, reassigning ids 0..LiveCount()-1. It returns the
// mapping from old to new VectorId so callers above (the HNSW graph,
// metadata store) can remap their own id-keyed state. The receiver is
// mutated only on success; callers building a new index during
// compaction should call this on a throwaway Storage and only adopt it
// once every co-tombstoned structure has rebuilt without error.
func (s *Storage) Compact() (CompactionResult, map[VectorId]VectorId) {
	oldLive := s.LiveCount()
	newBuf := make([]float32, 0, oldLive*s.dim)
	remap := make(map[VectorId]VectorId, oldLive)

	next := New(s.dim)
	for oldIdx := 0; oldIdx < s.tombs.Len(); oldIdx++ {
		if s.tombs.Test(oldIdx) {
			continue
		}
		start := oldIdx * s.dim
		newBuf = append(newBuf, s.buf[start:start+s.dim]...)
		newID := VectorId(next.ids.Next())
		next.tombs.Push()
		remap[VectorId(oldIdx)] = newID
	}
	next.buf = newBuf

	reclaimed := int64(s.DeletedCount()) * int64(s.dim) * 4

	*s = *next
	return CompactionResult{Moved: oldLive, ReclaimedBytes: reclaimed}, remap
}

// SizeBytes estimates the live memory footprint of this storage's
// payload buffer, for the memory-pressure monitor.
func (s *Storage) SizeBytes() int64 {
	return int64(len(s.buf)) * 4
}

// RawBuffer returns the full contiguous payload buffer, including
// tombstoned entries, for the snapshot codec's DENSE_VECTORS section.
// Callers must not mutate the returned slice.
func (s *Storage) RawBuffer() []float32 { return s.buf }

// Tombstones exposes the tombstone bitmap directly, for the snapshot
// codec's DENSE_TOMBS section.
func (s *Storage) Tombstones() *bitset.Set { return s.tombs }

// NextID returns the id the allocator will hand out next, for the
// snapshot codec's next_vector_id header field.
func (s *Storage) NextID() uint64 { return s.ids.Peek() }

// RestoreFromSnapshot rebuilds a Storage directly from decoded snapshot
// fields, bypassing Insert's validation (the bytes were already
// validated when first written).
func RestoreFromSnapshot(dim int, buf []float32, tombs *bitset.Set, nextID uint64) *Storage {
	s := New(dim)
	s.buf = buf
	s.tombs = tombs
	s.ids.Reset(nextID)
	return s
}
