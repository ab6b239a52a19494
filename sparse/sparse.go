// Package sparse implements EdgeVec's sparse-vector index: a BM25/TF-IDF
// shaped sorted-postings representation, append-only storage with
// tombstones and compaction (mirroring vectorstore's protocol), and a
// brute-force two-pointer searcher.
//
// Sparse vectors are independent of dense vectors; only the hybrid
// layer relates the two id spaces, and only when their numeric values
// happen to match.
package sparse

import (
	"math"

	"github.com/edgevec/edgevec/internal/apperr"
)

// Id is the monotonic identifier assigned to every inserted sparse
// vector, a separate id space from vectorstore.VectorId.
type Id uint64

// Vector is a sparse feature vector: parallel ascending-index arrays
// over a vocabulary of size Dim. Indices must be strictly ascending
// with no duplicates, all less than Dim, and len(Indices) == len(Values).
type Vector struct {
	Indices []uint32
	Values  []float32
	Dim     uint32
}

// Validate checks the structural invariants a Vector must satisfy.
func (v Vector) Validate() error {
	if len(v.Indices) != len(v.Values) {
		return apperr.Newf("sparse.Vector.Validate", apperr.InvalidInput,
			"indices length %d != values length %d", len(v.Indices), len(v.Values))
	}
	if uint32(len(v.Indices)) > v.Dim {
		return apperr.Newf("sparse.Vector.Validate", apperr.InvalidInput,
			"nnz %d exceeds dim %d", len(v.Indices), v.Dim)
	}
	for i, idx := range v.Indices {
		if idx >= v.Dim {
			return apperr.Newf("sparse.Vector.Validate", apperr.InvalidInput,
				"index %d out of range for dim %d", idx, v.Dim)
		}
		if math.IsNaN(float64(v.Values[i])) || math.IsInf(float64(v.Values[i]), 0) {
			return apperr.New("sparse.Vector.Validate", apperr.InvalidInput, errNaNInf)
		}
		if i > 0 && idx <= v.Indices[i-1] {
			return apperr.New("sparse.Vector.Validate", apperr.InvalidInput, errUnsorted)
		}
	}
	return nil
}
