package bq

import (
	"container/heap"
	"sort"

	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/vectorstore"
)

// Search returns the top-k live codes by ascending Hamming distance to
// queryCode, breaking ties by ascending VectorId, mirroring
// sparse.Searcher.Search's bounded min-heap scan.
func (s *Storage) Search(queryCode []byte, k int) ([]RescoreCandidate, error) {
	if k < 1 {
		return nil, apperr.New("bq.Search", apperr.InvalidParameter, errBadK)
	}

	h := &candidateMaxHeap{}
	heap.Init(h)

	for idx := 0; idx < s.tombs.Len(); idx++ {
		code, ok := s.Code(idx)
		if !ok {
			continue
		}
		d, err := s.hamming(queryCode, code)
		if err != nil {
			return nil, err
		}
		cand := RescoreCandidate{ID: vectorstore.VectorId(idx), Hamming: d}
		if h.Len() < k {
			heap.Push(h, cand)
			continue
		}
		if better(cand, (*h)[0]) {
			heap.Pop(h)
			heap.Push(h, cand)
		}
	}

	out := make([]RescoreCandidate, h.Len())
	copy(out, *h)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out, nil
}

// better reports whether a ranks ahead of b: smaller Hamming distance
// wins, ties broken by ascending ID.
func better(a, b RescoreCandidate) bool {
	if a.Hamming != b.Hamming {
		return a.Hamming < b.Hamming
	}
	return a.ID < b.ID
}

// candidateMaxHeap keeps the worst (largest-Hamming) candidate on top
// so a bounded top-k scan can cheaply evict it.
type candidateMaxHeap []RescoreCandidate

func (h candidateMaxHeap) Len() int      { return len(h) }
func (h candidateMaxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h candidateMaxHeap) Less(i, j int) bool {
	return better(h[j], h[i])
}
func (h *candidateMaxHeap) Push(x interface{}) { *h = append(*h, x.(RescoreCandidate)) }
func (h *candidateMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
