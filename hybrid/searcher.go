package hybrid

import (
	"github.com/edgevec/edgevec/hnsw"
	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/sparse"
)

// SearchConfig controls one HybridSearcher.Search call. DenseK or SparseK
// of 0 triggers a degenerate single-side mode: sparse_k==0 yields
// dense-only, dense_k==0 yields sparse-only.
type SearchConfig struct {
	DenseK  int
	SparseK int
	FinalK  int
	Fusion  FusionConfig

	// DenseFilter restricts which dense candidates may occupy a result
	// slot (e.g. a liveness check excluding soft-deleted ids, optionally
	// ANDed with a metadata predicate). Nil runs an unfiltered Graph.Search.
	DenseFilter hnsw.Filter
}

// HybridSearcher runs a dense HNSW search and a sparse search
// independently, converts the dense distance list to a similarity list,
// and fuses the two rankings.
type HybridSearcher struct {
	Graph  *hnsw.Graph
	Sparse *sparse.Searcher
}

// NewHybridSearcher builds a HybridSearcher over an HNSW graph and a
// sparse searcher sharing the same document id space.
func NewHybridSearcher(graph *hnsw.Graph, sparseSearcher *sparse.Searcher) *HybridSearcher {
	return &HybridSearcher{Graph: graph, Sparse: sparseSearcher}
}

// Search runs SearchConfig.DenseK/SparseK on each side, fuses them per
// cfg.Fusion, and returns the top FinalK Results.
func (h *HybridSearcher) Search(denseQuery []float32, sparseQuery sparse.Vector, cfg SearchConfig) ([]Result, error) {
	var denseList, sparseList []RankedItem

	if cfg.DenseK > 0 {
		if h.Graph == nil {
			return nil, apperr.New("hybrid.Search", apperr.InvalidParameter, errNoDenseIndex)
		}
		var hits []hnsw.Result
		var err error
		if cfg.DenseFilter != nil {
			hits, err = h.Graph.SearchFiltered(denseQuery, cfg.DenseK, 0, cfg.DenseFilter)
		} else {
			hits, err = h.Graph.Search(denseQuery, cfg.DenseK)
		}
		if err != nil {
			return nil, err
		}
		denseList = make([]RankedItem, len(hits))
		for i, hit := range hits {
			denseList[i] = RankedItem{ID: uint64(hit.ID), Score: distanceToSimilarity(hit.Dist)}
		}
	}

	if cfg.SparseK > 0 {
		if h.Sparse == nil {
			return nil, apperr.New("hybrid.Search", apperr.InvalidParameter, errNoSparseIndex)
		}
		hits, err := h.Sparse.Search(sparseQuery, cfg.SparseK)
		if err != nil {
			return nil, err
		}
		sparseList = make([]RankedItem, len(hits))
		for i, hit := range hits {
			sparseList[i] = RankedItem{ID: uint64(hit.ID), Score: float64(hit.Score)}
		}
	}

	switch {
	case cfg.DenseK == 0 && cfg.SparseK == 0:
		return nil, nil
	case cfg.SparseK == 0:
		return denseOnly(denseList, cfg.FinalK), nil
	case cfg.DenseK == 0:
		return sparseOnly(sparseList, cfg.FinalK), nil
	default:
		return Fuse(denseList, sparseList, cfg.Fusion, cfg.FinalK), nil
	}
}

// distanceToSimilarity maps an HNSW distance (0 == identical, larger is
// farther) to a non-negative similarity score so it can feed either
// fusion algorithm, which both assume higher-is-better non-negative
// inputs.
func distanceToSimilarity(dist float32) float64 {
	return 1.0 / (1.0 + float64(dist))
}

func denseOnly(list []RankedItem, n int) []Result {
	out := make([]Result, 0, len(list))
	for i, item := range list {
		out = append(out, Result{
			ID: item.ID, Score: item.Score,
			HasDense: true, DenseRank: i + 1, DenseScore: item.Score,
		})
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func sparseOnly(list []RankedItem, n int) []Result {
	out := make([]Result, 0, len(list))
	for i, item := range list {
		out = append(out, Result{
			ID: item.ID, Score: item.Score,
			HasSparse: true, SparseRank: i + 1, SparseScore: item.Score,
		})
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
