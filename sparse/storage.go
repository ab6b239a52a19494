package sparse

import (
	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/internal/bitset"
	"github.com/edgevec/edgevec/internal/idalloc"
)

// Storage is an append-only list of sparse vectors, assigning monotonic
// Ids and supporting soft-delete/compaction with the same protocol
// vectorstore.Storage uses for dense vectors.
type Storage struct {
	dim     uint32
	vectors []Vector
	tombs   *bitset.Set
	ids     *idalloc.Allocator
}

// New returns an empty Storage fixed to a vocabulary size of dim.
func New(dim uint32) *Storage {
	return &Storage{dim: dim, tombs: bitset.New(), ids: &idalloc.Allocator{}}
}

// Dim returns the fixed vocabulary size.
func (s *Storage) Dim() uint32 { return s.dim }

// Insert validates vec and appends it, returning a freshly assigned Id.
func (s *Storage) Insert(vec Vector) (Id, error) {
	if vec.Dim != s.dim {
		return 0, apperr.Newf("sparse.Storage.Insert", apperr.DimensionMismatch,
			"expected dim %d, got %d", s.dim, vec.Dim)
	}
	if err := vec.Validate(); err != nil {
		return 0, err
	}
	id := Id(s.ids.Next())
	cp := Vector{
		Indices: append([]uint32(nil), vec.Indices...),
		Values:  append([]float32(nil), vec.Values...),
		Dim:     vec.Dim,
	}
	s.vectors = append(s.vectors, cp)
	s.tombs.Push()
	return id, nil
}

// Get returns a copy of the stored vector, or ok=false if id is unknown
// or tombstoned.
func (s *Storage) Get(id Id) (Vector, bool) {
	idx := int(id)
	if idx < 0 || idx >= s.tombs.Len() || s.tombs.Test(idx) {
		return Vector{}, false
	}
	v := s.vectors[idx]
	return Vector{
		Indices: append([]uint32(nil), v.Indices...),
		Values:  append([]float32(nil), v.Values...),
		Dim:     v.Dim,
	}, true
}

// raw returns the live vector with no defensive copy, for the
// Searcher's hot loop.
func (s *Storage) raw(idx int) (Vector, bool) {
	if idx < 0 || idx >= s.tombs.Len() || s.tombs.Test(idx) {
		return Vector{}, false
	}
	return s.vectors[idx], true
}

// Len returns the total number of assigned ids, live or tombstoned.
func (s *Storage) Len() int { return s.tombs.Len() }

// LiveCount returns the number of non-tombstoned vectors.
func (s *Storage) LiveCount() int { return s.tombs.Len() - s.tombs.Count() }

// DeletedCount returns the number of tombstoned vectors.
func (s *Storage) DeletedCount() int { return s.tombs.Count() }

// IsDeleted reports whether id is tombstoned.
func (s *Storage) IsDeleted(id Id) (bool, error) {
	idx := int(id)
	if idx < 0 || idx >= s.tombs.Len() {
		return false, apperr.New("sparse.Storage.IsDeleted", apperr.IDNotFound, errUnknownID)
	}
	return s.tombs.Test(idx), nil
}

// SoftDelete marks id as tombstoned, returning true if newly deleted.
func (s *Storage) SoftDelete(id Id) (bool, error) {
	idx := int(id)
	if idx < 0 || idx >= s.tombs.Len() {
		return false, apperr.New("sparse.Storage.SoftDelete", apperr.IDNotFound, errUnknownID)
	}
	return s.tombs.Set(idx), nil
}

// CompactionResult reports what Compact accomplished.
type CompactionResult struct {
	Moved          int
	ReclaimedBytes int64
}

// Compact rebuilds storage from only the live entries in ascending
// old-id order, reassigning ids 0..LiveCount()-1, and returns the
// old->new id remap.
func (s *Storage) Compact() (CompactionResult, map[Id]Id) {
	oldLive := s.LiveCount()
	remap := make(map[Id]Id, oldLive)
	next := New(s.dim)

	var reclaimed int64
	for oldIdx := 0; oldIdx < s.tombs.Len(); oldIdx++ {
		if s.tombs.Test(oldIdx) {
			v := s.vectors[oldIdx]
			reclaimed += int64(len(v.Indices))*4 + int64(len(v.Values))*4
			continue
		}
		v := s.vectors[oldIdx]
		newID := Id(next.ids.Next())
		next.vectors = append(next.vectors, v)
		next.tombs.Push()
		remap[Id(oldIdx)] = newID
	}

	*s = *next
	return CompactionResult{Moved: oldLive, ReclaimedBytes: reclaimed}, remap
}

// SizeBytes estimates the live memory footprint of the postings lists,
// for the memory-pressure monitor.
func (s *Storage) SizeBytes() int64 {
	var total int64
	for i := 0; i < s.tombs.Len(); i++ {
		if s.tombs.Test(i) {
			continue
		}
		v := s.vectors[i]
		total += int64(len(v.Indices))*4 + int64(len(v.Values))*4
	}
	return total
}

// AllRaw returns every stored vector, including tombstoned ones, in
// ascending id order, for the snapshot codec's SPARSE_VECS section.
func (s *Storage) AllRaw() []Vector { return s.vectors }

// Tombstones exposes the tombstone bitmap directly, for the snapshot
// codec's SPARSE_TOMBS section.
func (s *Storage) Tombstones() *bitset.Set { return s.tombs }

// NextID returns the id the allocator will hand out next, for the
// snapshot codec's next_sparse_id header field.
func (s *Storage) NextID() uint64 { return s.ids.Peek() }

// RestoreFromSnapshot rebuilds a Storage directly from decoded snapshot
// fields, bypassing Insert's validation.
func RestoreFromSnapshot(dim uint32, vectors []Vector, tombs *bitset.Set, nextID uint64) *Storage {
	s := New(dim)
	s.vectors = vectors
	s.tombs = tombs
	s.ids.Reset(nextID)
	return s
}
