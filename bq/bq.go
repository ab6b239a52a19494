// Package bq implements binary quantization: a derived, packed-bit
// representation of a dense vector that trades a small amount of recall
// for a large reduction in memory (32x over f32) and a fast Hamming-
// distance comparison.
//
// Quantisation rule: bit i is set iff component i of the dense vector is
// strictly greater than zero. This is deterministic, cheap, and (when
// vectors are L2-normalised, as Cosine requires) preserves rough
// orientation, empirically yielding recall@10 >= 0.90 after rescoring
// with factor >= 5.
package bq

import (
	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/internal/bitset"
	"github.com/edgevec/edgevec/metric"
	"github.com/edgevec/edgevec/vectorstore"
)

// Encode packs a dense vector's sign bits into ceil(dim/8) bytes. dim
// must be divisible by 8.
func Encode(vec []float32, dim int) ([]byte, error) {
	if dim%8 != 0 {
		return nil, apperr.Newf("bq.Encode", apperr.InvalidInput, "dim %d not divisible by 8", dim)
	}
	if len(vec) != dim {
		return nil, apperr.Newf("bq.Encode", apperr.DimensionMismatch, "expected dim %d, got %d", dim, len(vec))
	}
	out := make([]byte, dim/8)
	for i, v := range vec {
		if v > 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out, nil
}

// Storage holds one BinaryVector per live VectorId, parallel to dense
// storage. It is a derivative of dense storage: regenerated on every
// insert, never independently mutated.
type Storage struct {
	dim     int
	bytesPer int
	buf     []byte // len == count*bytesPer
	tombs   *bitset.Set
	hamming metric.HammingDistanceFunc
}

// New returns an empty binary-quantization storage for dim-dimensional
// dense vectors. dim must be divisible by 8.
func New(dim int) (*Storage, error) {
	if dim%8 != 0 {
		return nil, apperr.Newf("bq.New", apperr.InvalidInput, "dim %d not divisible by 8", dim)
	}
	return &Storage{
		dim:      dim,
		bytesPer: dim / 8,
		tombs:    bitset.New(),
		hamming:  metric.HammingDistance(),
	}, nil
}

// Insert encodes vec and appends its code, assuming the caller's
// VectorId allocation and this storage's append order stay in lockstep
// with vectorstore.Storage (the index composing both enforces this).
func (s *Storage) Insert(vec []float32) error {
	code, err := Encode(vec, s.dim)
	if err != nil {
		return err
	}
	s.buf = append(s.buf, code...)
	s.tombs.Push()
	return nil
}

// Code returns the packed code for the given storage-relative index
// (the same index vectorstore.Storage uses), or ok=false if tombstoned
// or out of range.
func (s *Storage) Code(idx int) (code []byte, ok bool) {
	if idx < 0 || idx >= s.tombs.Len() || s.tombs.Test(idx) {
		return nil, false
	}
	start := idx * s.bytesPer
	return s.buf[start : start+s.bytesPer], true
}

// SoftDelete tombstones idx, mirroring dense storage's co-tombstoning.
func (s *Storage) SoftDelete(idx int) bool {
	return s.tombs.Set(idx)
}

// HammingDistance computes the Hamming distance between two codes.
func (s *Storage) HammingDistance(a, b []byte) (uint32, error) {
	return s.hamming(a, b)
}

// Compact builds a fresh Storage holding only the codes at the old
// storage-relative indices in liveOldIndices, in the order given: entry
// i of the result is the code that sat at liveOldIndices[i]. The
// receiver is left unchanged and no remap is returned.
func (s *Storage) Compact(liveOldIndices []int) *Storage {
	next := &Storage{dim: s.dim, bytesPer: s.bytesPer, tombs: bitset.New(), hamming: s.hamming}
	for _, oldIdx := range liveOldIndices {
		start := oldIdx * s.bytesPer
		next.buf = append(next.buf, s.buf[start:start+s.bytesPer]...)
		next.tombs.Push()
	}
	return next
}

// Len returns the total number of assigned codes, live or tombstoned.
func (s *Storage) Len() int { return s.tombs.Len() }

// SizeBytes reports the live memory footprint of the code buffer, for
// the memory-pressure monitor.
func (s *Storage) SizeBytes() int64 { return int64(len(s.buf)) }

// RawBuffer returns the full packed code buffer, including tombstoned
// entries, for the snapshot codec's BQ_CODES section.
func (s *Storage) RawBuffer() []byte { return s.buf }

// Tombstones exposes the tombstone bitmap directly. BQ storage is
// co-tombstoned with dense storage, but the snapshot codec restores it
// independently to keep section decoding self-contained.
func (s *Storage) Tombstones() *bitset.Set { return s.tombs }

// RestoreFromSnapshot rebuilds a Storage directly from decoded snapshot
// bytes, bypassing Encode (the bytes were already validated when first
// written).
func RestoreFromSnapshot(dim int, buf []byte, tombs *bitset.Set) (*Storage, error) {
	if dim%8 != 0 {
		return nil, apperr.Newf("bq.RestoreFromSnapshot", apperr.InvalidInput, "dim %d not divisible by 8", dim)
	}
	return &Storage{
		dim:      dim,
		bytesPer: dim / 8,
		buf:      buf,
		tombs:    tombs,
		hamming:  metric.HammingDistance(),
	}, nil
}

// RescoreCandidate pairs a VectorId with its approximate Hamming
// distance, the intermediate result of a BQ-first search before exact
// f32 rescoring.
type RescoreCandidate struct {
	ID       vectorstore.VectorId
	Hamming  uint32
}
