// Package hybrid fuses a dense (HNSW) ranked list with a sparse
// (BM25/TF-IDF style) ranked list into a single ordering, via either
// Reciprocal Rank Fusion or min-max-normalised linear combination.
package hybrid

import "sort"

// DocID is the numeric identifier space both the dense and sparse sides
// are compared on. EdgeVec never correlates dense VectorIds and sparse
// Ids automatically; the caller is responsible for using the same
// numeric value on both sides when a document should be treated as one
// entity by the fuser.
type DocID = uint64

// RankedItem is one entry of an input list handed to a fusion function:
// descending by Score, i.e. index 0 is the best match.
type RankedItem struct {
	ID    DocID
	Score float64
}

// FusionMode selects which of the two fusion algorithms HybridSearcher
// applies.
type FusionMode int

const (
	FusionRRF FusionMode = iota
	FusionLinear
)

// FusionConfig controls fusion behavior. KRRF only applies to FusionRRF;
// Alpha only applies to FusionLinear.
type FusionConfig struct {
	Mode  FusionMode
	KRRF  int
	Alpha float64
}

// DefaultFusionConfig returns RRF fusion with k_rrf=60, the value
// recommended in the original Cormack et al. paper and used throughout
// the retrieved reference implementations.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{Mode: FusionRRF, KRRF: 60, Alpha: 0.5}
}

// Result is one fused document: its combined score plus its rank/score
// on each side that produced it, when present.
type Result struct {
	ID          DocID
	Score       float64
	DenseRank   int
	DenseScore  float64
	HasDense    bool
	SparseRank  int
	SparseScore float64
	HasSparse   bool
}

// FuseRRF combines dense and sparse into the top n documents by
// Reciprocal Rank Fusion score: sum over the lists a document appears in
// of 1/(kRRF+rank), rank being the list's 1-based position. A document
// absent from a list contributes 0 for that side. Ties are broken by
// ascending DocID.
func FuseRRF(dense, sparse []RankedItem, kRRF, n int) []Result {
	if kRRF <= 0 {
		kRRF = 60
	}
	acc := make(map[DocID]*Result)

	for i, item := range dense {
		rank := i + 1
		r := getOrInit(acc, item.ID)
		r.HasDense = true
		r.DenseRank = rank
		r.DenseScore = item.Score
		r.Score += 1.0 / float64(kRRF+rank)
	}
	for i, item := range sparse {
		rank := i + 1
		r := getOrInit(acc, item.ID)
		r.HasSparse = true
		r.SparseRank = rank
		r.SparseScore = item.Score
		r.Score += 1.0 / float64(kRRF+rank)
	}

	return topN(acc, n)
}

// FuseLinear combines dense and sparse by independently min-max
// normalising each list (zero range normalises every entry to 1.0,
// absence from a list contributes 0.0) then taking
// alpha*norm_dense + (1-alpha)*norm_sparse. alpha is clamped to [0,1].
func FuseLinear(dense, sparse []RankedItem, alpha float64, n int) []Result {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	denseNorm := minMaxNormalize(dense)
	sparseNorm := minMaxNormalize(sparse)

	acc := make(map[DocID]*Result)
	for i, item := range dense {
		r := getOrInit(acc, item.ID)
		r.HasDense = true
		r.DenseRank = i + 1
		r.DenseScore = item.Score
		r.Score += alpha * denseNorm[item.ID]
	}
	for i, item := range sparse {
		r := getOrInit(acc, item.ID)
		r.HasSparse = true
		r.SparseRank = i + 1
		r.SparseScore = item.Score
		r.Score += (1 - alpha) * sparseNorm[item.ID]
	}

	return topN(acc, n)
}

// Fuse dispatches to FuseRRF or FuseLinear according to cfg.Mode.
func Fuse(dense, sparse []RankedItem, cfg FusionConfig, n int) []Result {
	if cfg.Mode == FusionLinear {
		return FuseLinear(dense, sparse, cfg.Alpha, n)
	}
	return FuseRRF(dense, sparse, cfg.KRRF, n)
}

func getOrInit(acc map[DocID]*Result, id DocID) *Result {
	r, ok := acc[id]
	if !ok {
		r = &Result{ID: id}
		acc[id] = r
	}
	return r
}

func minMaxNormalize(list []RankedItem) map[DocID]float64 {
	out := make(map[DocID]float64, len(list))
	if len(list) == 0 {
		return out
	}
	min, max := list[0].Score, list[0].Score
	for _, item := range list {
		if item.Score < min {
			min = item.Score
		}
		if item.Score > max {
			max = item.Score
		}
	}
	rangeVal := max - min
	for _, item := range list {
		if rangeVal == 0 {
			out[item.ID] = 1.0
		} else {
			out[item.ID] = (item.Score - min) / rangeVal
		}
	}
	return out
}

func topN(acc map[DocID]*Result, n int) []Result {
	out := make([]Result, 0, len(acc))
	for _, r := range acc {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
