package sparse

import (
	"container/heap"
	"sort"

	"github.com/edgevec/edgevec/internal/apperr"
)

// Searcher performs brute-force top-k search over a Storage's live
// sparse vectors, scoring by dot product. Since both the query and
// every stored vector hold strictly ascending index arrays, the dot
// product is computed by a two-pointer merge in O(nnz_a+nnz_b), rather
// than a hash lookup.
type Searcher struct {
	store *Storage
}

// NewSearcher wraps store for querying. It holds no state of its own:
// every search reflects the store's current live set.
func NewSearcher(store *Storage) *Searcher {
	return &Searcher{store: store}
}

// Match pairs a sparse Id with its dot-product score against a query.
type Match struct {
	ID    Id
	Score float32
}

// Search returns the top-k matches by descending dot product,
// skipping tombstoned entries and breaking ties by ascending Id.
func (s *Searcher) Search(query Vector, k int) ([]Match, error) {
	if k < 1 {
		return nil, apperr.New("sparse.Searcher.Search", apperr.InvalidParameter, errBadK)
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	h := &matchMinHeap{}
	heap.Init(h)

	for idx := 0; idx < s.store.Len(); idx++ {
		v, ok := s.store.raw(idx)
		if !ok {
			continue
		}
		score := dotMerge(query, v)
		cand := Match{ID: Id(idx), Score: score}
		if h.Len() < k {
			heap.Push(h, cand)
			continue
		}
		if better(cand, (*h)[0]) {
			heap.Pop(h)
			heap.Push(h, cand)
		}
	}

	out := make([]Match, h.Len())
	copy(out, *h)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out, nil
}

// dotMerge computes sum(a.Values[i]*b.Values[j]) over indices shared
// between a and b, advancing whichever pointer lags, since both index
// arrays are strictly ascending.
func dotMerge(a, b Vector) float32 {
	var sum float32
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] < b.Indices[j]:
			i++
		case a.Indices[i] > b.Indices[j]:
			j++
		default:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		}
	}
	return sum
}

// better reports whether a should rank ahead of b: higher score wins,
// ties broken by ascending Id for determinism.
func better(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// matchMinHeap keeps the worst-scoring candidate on top so a
// bounded top-k scan can cheaply evict it.
type matchMinHeap []Match

func (h matchMinHeap) Len() int      { return len(h) }
func (h matchMinHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h matchMinHeap) Less(i, j int) bool {
	// Min-heap on "worst first": worst means NOT better.
	return better(h[j], h[i])
}
func (h *matchMinHeap) Push(x interface{}) { *h = append(*h, x.(Match)) }
func (h *matchMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
