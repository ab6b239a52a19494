package edgevec

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/edgevec/edgevec/bq"
	"github.com/edgevec/edgevec/hnsw"
	"github.com/edgevec/edgevec/hybrid"
	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/memorypressure"
	"github.com/edgevec/edgevec/metadata"
	"github.com/edgevec/edgevec/metadata/filter"
	"github.com/edgevec/edgevec/metric"
	"github.com/edgevec/edgevec/snapshot"
	"github.com/edgevec/edgevec/sparse"
	"github.com/edgevec/edgevec/vectorstore"
)

// VectorId re-exports vectorstore.VectorId at the public boundary so
// callers never need to import the subpackage directly.
type VectorId = vectorstore.VectorId

// SparseId re-exports sparse.Id at the public boundary.
type SparseId = sparse.Id

// SearchResult pairs a VectorId with its distance to the query, in the
// metric the Index was built with ("lower is closer" uniformly across
// every metric).
type SearchResult struct {
	ID   VectorId
	Dist float32
}

// BQSearchResult pairs a VectorId with its approximate Hamming distance
// from a SearchBQ call (no f32 rescoring applied).
type BQSearchResult struct {
	ID      VectorId
	Hamming uint32
}

// CompactionResult reports what Compact accomplished.
type CompactionResult struct {
	Moved          int
	ReclaimedBytes int64
}

// Index is the public, composed EdgeVec index: an HNSW graph over dense
// f32 vectors, an optional binary-quantized mirror, per-vector metadata
// with a filter DSL, an independent sparse index, hybrid fusion, and a
// versioned snapshot codec — every subsystem the dependency graph
// names, composed rather than inherited (see doc.go).
//
// Index carries no internal lock: it is single-threaded and
// cooperative, exactly. Read methods (Get, Search*, VectorCount, ...)
// do not mutate; write methods (Insert*, SoftDelete, Compact,
// LoadSnapshot, SetMemoryConfig) do, and so does CreateSnapshot, which
// records the identifier LastSnapshotID reports. A
// caller sharing an Index across goroutines must supply its own
// exclusion.
type Index struct {
	cfg    IndexConfig
	dim    int
	metric metric.Metric
	distFn metric.DenseDistanceFunc
	logger Logger

	dense *vectorstore.Storage
	graph *hnsw.Graph
	bq    *bq.Storage // nil unless cfg.UseBQ
	meta  *metadata.Store

	sparseStore    *sparse.Storage
	sparseSearcher *sparse.Searcher

	memCfg           memorypressure.Config
	totalBytesBudget int64
	lastSnapshotID   string
}

// NewIndex builds an empty Index from cfg. cfg.Dimensions must be > 0;
// if cfg.UseBQ is set, cfg.Dimensions must be divisible by 8 (the
// binary-quantization packing requirement).
func NewIndex(cfg IndexConfig) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, apperr.New("edgevec.NewIndex", apperr.InvalidParameter, errBadDimensions)
	}
	distFn, err := metric.DenseDistance(cfg.Metric)
	if err != nil {
		return nil, err
	}

	dense := vectorstore.New(cfg.Dimensions)

	var bqStore *bq.Storage
	if cfg.UseBQ {
		bqStore, err = bq.New(cfg.Dimensions)
		if err != nil {
			return nil, err
		}
	}

	idx := &Index{
		cfg:    cfg,
		dim:    cfg.Dimensions,
		metric: cfg.Metric,
		distFn: distFn,
		logger: NopLogger(),
		dense:  dense,
		bq:     bqStore,
		meta:   metadata.New(),
		memCfg: cfg.MemoryConfig,
	}
	graph, err := hnsw.New(cfg.hnswParams(), distFn, idx.dense.RawAny)
	if err != nil {
		return nil, err
	}
	idx.graph = graph
	return idx, nil
}

// SetLogger attaches a structured logger; the default is NopLogger.
func (idx *Index) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger()
	}
	idx.logger = l
}

// Dimensions returns the fixed vector dimensionality.
func (idx *Index) Dimensions() int { return idx.dim }

// Metric returns the configured distance metric.
func (idx *Index) Metric() metric.Metric { return idx.metric }

// normalizeForMetric returns an L2-normalised copy of vec when the index
// uses Cosine (which is implemented as a raw dot product and therefore
// requires unit-norm inputs), and vec unchanged for
// every other metric.
func (idx *Index) normalizeForMetric(vec []float32) []float32 {
	if idx.metric != metric.Cosine {
		return vec
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sumSq))
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// Insert validates vec's dimension, assigns a fresh VectorId, and links
// it into the graph (and the BQ mirror, if enabled). Fails with
// MemoryCritical if the memory-pressure policy blocks inserts.
func (idx *Index) Insert(vec []float32) (VectorId, error) {
	return idx.InsertWithMetadata(vec, nil)
}

// InsertWithMetadata is Insert plus an atomic metadata write. md may be
// nil (equivalent to plain Insert).
func (idx *Index) InsertWithMetadata(vec []float32, md metadata.Map) (VectorId, error) {
	if len(vec) != idx.dim {
		return 0, apperr.Newf("edgevec.Insert", apperr.DimensionMismatch,
			"expected dim %d, got %d", idx.dim, len(vec))
	}
	if !idx.CanInsert() {
		return 0, apperr.New("edgevec.Insert", apperr.MemoryCritical, errMemoryCritical)
	}

	normalized := idx.normalizeForMetric(vec)

	id, err := idx.dense.Insert(normalized)
	if err != nil {
		return 0, err
	}
	if idx.bq != nil {
		if err := idx.bq.Insert(normalized); err != nil {
			return 0, err
		}
	}
	if md != nil {
		idx.meta.Set(id, md)
	}
	if err := idx.graph.Insert(id, normalized); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns a copy of the stored vector, or ok=false if id is unknown
// or soft-deleted.
func (idx *Index) Get(id VectorId) ([]float32, bool) {
	return idx.dense.Get(id)
}

// GetMetadata returns a copy of id's metadata map, or ok=false if id is
// unknown, soft-deleted, or carries no metadata.
func (idx *Index) GetMetadata(id VectorId) (metadata.Map, bool) {
	if deleted, err := idx.dense.IsDeleted(id); err != nil || deleted {
		return nil, false
	}
	return idx.meta.Get(id)
}

// liveFilter is the implicit predicate every public search method
// applies: an id may occupy a result slot only if it is not
// soft-deleted. The HNSW graph still traverses through tombstoned
// nodes as stepping stones (traversal is unconditional so graph
// connectivity is preserved); liveFilter only gates result visibility.
func (idx *Index) liveFilter() hnsw.Filter {
	return func(id vectorstore.VectorId) bool {
		deleted, err := idx.dense.IsDeleted(id)
		return err == nil && !deleted
	}
}

func toSearchResults(res []hnsw.Result) []SearchResult {
	out := make([]SearchResult, len(res))
	for i, r := range res {
		out[i] = SearchResult{ID: r.ID, Dist: r.Dist}
	}
	return out
}

// Search returns the k nearest live vectors to query by the index's
// configured metric. Returns an empty, non-error result on an empty
// index (the EmptyIndex boundary behaviour).
func (idx *Index) Search(query []float32, k int) ([]SearchResult, error) {
	return idx.SearchFiltered(query, "", k)
}

// SearchFiltered is Search restricted to ids whose metadata satisfies
// filterExpr (parsed once per call via metadata/filter). An empty
// filterExpr is equivalent to no filter. The result may hold fewer than
// k entries if the frontier exhausts before k matches are found; this
// is not an error.
func (idx *Index) SearchFiltered(query []float32, filterExpr string, k int) ([]SearchResult, error) {
	if len(query) != idx.dim {
		return nil, apperr.Newf("edgevec.Search", apperr.DimensionMismatch,
			"expected dim %d, got %d", idx.dim, len(query))
	}
	if k < 1 {
		return nil, apperr.New("edgevec.Search", apperr.InvalidParameter, errBadK)
	}

	normalized := idx.normalizeForMetric(query)
	live := idx.liveFilter()

	combined := live
	if filterExpr != "" {
		expr, err := filter.Parse(filterExpr)
		if err != nil {
			return nil, err
		}
		evalFn := filter.Compile(expr)
		combined = func(id vectorstore.VectorId) bool {
			if !live(id) {
				return false
			}
			doc, _ := idx.meta.Raw(id)
			return evalFn(doc)
		}
	}

	res, err := idx.graph.SearchFiltered(normalized, k, idx.cfg.EfSearch, combined)
	if err != nil {
		return nil, err
	}
	return toSearchResults(res), nil
}

// SearchBQ returns the k nearest live vectors to query by Hamming
// distance over binary-quantized codes, with no f32 rescoring. Fails
// with BqDisabled if the index was not built with UseBQ.
func (idx *Index) SearchBQ(query []float32, k int) ([]BQSearchResult, error) {
	if idx.bq == nil {
		return nil, apperr.New("edgevec.SearchBQ", apperr.BQDisabled, errBQDisabled)
	}
	if len(query) != idx.dim {
		return nil, apperr.Newf("edgevec.SearchBQ", apperr.DimensionMismatch,
			"expected dim %d, got %d", idx.dim, len(query))
	}
	if k < 1 {
		return nil, apperr.New("edgevec.SearchBQ", apperr.InvalidParameter, errBadK)
	}

	normalized := idx.normalizeForMetric(query)
	code, err := bq.Encode(normalized, idx.dim)
	if err != nil {
		return nil, err
	}
	candidates, err := idx.bq.Search(code, k)
	if err != nil {
		return nil, err
	}
	out := make([]BQSearchResult, len(candidates))
	for i, c := range candidates {
		out[i] = BQSearchResult{ID: c.ID, Hamming: c.Hamming}
	}
	return out, nil
}

// SearchBQRescored performs the two-stage BQ search: Hamming-rank the
// top k*rescoreFactor candidates by
// binary-quantized code, then rescore each with exact f32 distance and
// return the top k by that exact distance. Fails with BqDisabled if the
// index was not built with UseBQ.
func (idx *Index) SearchBQRescored(query []float32, k, rescoreFactor int) ([]SearchResult, error) {
	if idx.bq == nil {
		return nil, apperr.New("edgevec.SearchBQRescored", apperr.BQDisabled, errBQDisabled)
	}
	if len(query) != idx.dim {
		return nil, apperr.Newf("edgevec.SearchBQRescored", apperr.DimensionMismatch,
			"expected dim %d, got %d", idx.dim, len(query))
	}
	if k < 1 {
		return nil, apperr.New("edgevec.SearchBQRescored", apperr.InvalidParameter, errBadK)
	}
	if rescoreFactor < 1 {
		return nil, apperr.New("edgevec.SearchBQRescored", apperr.InvalidParameter, errBadRescoreFactor)
	}

	normalized := idx.normalizeForMetric(query)
	code, err := bq.Encode(normalized, idx.dim)
	if err != nil {
		return nil, err
	}

	candidates, err := idx.bq.Search(code, k*rescoreFactor)
	if err != nil {
		return nil, err
	}

	rescored := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		vec, ok := idx.dense.Get(c.ID)
		if !ok {
			continue
		}
		d, err := idx.distFn(normalized, vec)
		if err != nil {
			return nil, err
		}
		rescored = append(rescored, SearchResult{ID: c.ID, Dist: d})
	}
	sort.Slice(rescored, func(i, j int) bool {
		if rescored[i].Dist != rescored[j].Dist {
			return rescored[i].Dist < rescored[j].Dist
		}
		return rescored[i].ID < rescored[j].ID
	})
	if len(rescored) > k {
		rescored = rescored[:k]
	}
	return rescored, nil
}

// InsertSparse validates and appends a sparse vector, returning a
// freshly assigned SparseId. The sparse id space is independent of
// VectorId (the alignment contract); callers aligning dense
// and sparse documents must insert in lockstep or keep an external map.
func (idx *Index) InsertSparse(indices []uint32, values []float32, dim uint32) (SparseId, error) {
	if idx.sparseStore == nil {
		idx.sparseStore = sparse.New(dim)
		idx.sparseSearcher = sparse.NewSearcher(idx.sparseStore)
	}
	return idx.sparseStore.Insert(sparse.Vector{Indices: indices, Values: values, Dim: dim})
}

// SearchSparse returns the top-k sparse matches by descending dot
// product against query.
func (idx *Index) SearchSparse(query sparse.Vector, k int) ([]sparse.Match, error) {
	if idx.sparseSearcher == nil {
		return nil, nil
	}
	return idx.sparseSearcher.Search(query, k)
}

// SoftDeleteSparse tombstones a sparse id, independent of dense
// soft-delete (sparse is tombstoned independently).
func (idx *Index) SoftDeleteSparse(id SparseId) (bool, error) {
	if idx.sparseStore == nil {
		return false, apperr.New("edgevec.SoftDeleteSparse", apperr.IDNotFound, errUnknownSparseID)
	}
	return idx.sparseStore.SoftDelete(id)
}

// SearchHybrid fuses an HNSW dense search with a sparse search per cfg's
// fusion mode. DenseK==0 yields sparse-only; SparseK==0
// yields dense-only. Dense distances are converted to a non-negative
// similarity before fusion, a responsibility the orchestrator (not the
// fuser) owns.
func (idx *Index) SearchHybrid(denseQuery []float32, sparseQuery sparse.Vector, cfg hybrid.SearchConfig) ([]hybrid.Result, error) {
	if cfg.DenseK > 0 && len(denseQuery) != idx.dim {
		return nil, apperr.Newf("edgevec.SearchHybrid", apperr.DimensionMismatch,
			"expected dim %d, got %d", idx.dim, len(denseQuery))
	}
	cfg.DenseFilter = idx.liveFilter()
	searcher := hybrid.NewHybridSearcher(idx.graph, idx.sparseSearcher)
	var normalized []float32
	if cfg.DenseK > 0 {
		normalized = idx.normalizeForMetric(denseQuery)
	}
	return searcher.Search(normalized, sparseQuery, cfg)
}

// SoftDelete tombstones id (and, if BQ is enabled, its co-tombstoned
// binary-quantized code). Idempotent: returns true only if this call
// newly deleted id.
func (idx *Index) SoftDelete(id VectorId) (bool, error) {
	newlyDeleted, err := idx.dense.SoftDelete(id)
	if err != nil {
		return false, err
	}
	if newlyDeleted && idx.bq != nil {
		idx.bq.SoftDelete(int(id))
	}
	return newlyDeleted, nil
}

// IsDeleted reports whether id is soft-deleted.
func (idx *Index) IsDeleted(id VectorId) (bool, error) {
	return idx.dense.IsDeleted(id)
}

// VectorCount returns the total number of assigned ids, live or
// soft-deleted.
func (idx *Index) VectorCount() int { return idx.dense.Len() }

// LiveCount returns the number of live (non-tombstoned) vectors.
func (idx *Index) LiveCount() int { return idx.dense.LiveCount() }

// DeletedCount returns the number of soft-deleted vectors.
func (idx *Index) DeletedCount() int { return idx.dense.DeletedCount() }

// NeedsCompaction reports whether deleted_count >= cleanup_threshold *
// total_count. A threshold <= 0 selects the default threshold of 0.5.
func (idx *Index) NeedsCompaction(threshold float64) bool {
	total := idx.dense.Len()
	if total == 0 {
		return false
	}
	if threshold <= 0 {
		threshold = 0.5
	}
	return float64(idx.dense.DeletedCount()) >= threshold*float64(total)
}

// Compact rebuilds dense storage, the BQ mirror, metadata, and the HNSW
// graph from only the live entries, reassigning compact ids starting at
// 0. All work happens on freshly allocated structures; the receiver is
// only mutated once every rebuilt structure has succeeded, so a failure
// mid-compaction leaves the original Index intact (the atomicity
// rule for compact()).
func (idx *Index) Compact() (CompactionResult, error) {
	oldLen := idx.dense.Len()
	liveOldIndices := make([]int, 0, idx.dense.LiveCount())
	tombs := idx.dense.Tombstones()
	for i := 0; i < oldLen; i++ {
		if !tombs.Test(i) {
			liveOldIndices = append(liveOldIndices, i)
		}
	}

	newDense := &vectorstore.Storage{}
	*newDense = *idx.dense
	result, remap := newDense.Compact()

	var newBQ *bq.Storage
	if idx.bq != nil {
		newBQ = idx.bq.Compact(liveOldIndices)
	}
	newMeta := idx.meta.Compact(remap)

	newGraph, err := hnsw.New(idx.cfg.hnswParams(), idx.distFn, newDense.RawAny)
	if err != nil {
		return CompactionResult{}, err
	}
	for _, oldIdx := range liveOldIndices {
		newID := remap[vectorstore.VectorId(oldIdx)]
		vec, ok := newDense.Get(newID)
		if !ok {
			continue
		}
		if err := newGraph.Insert(newID, vec); err != nil {
			return CompactionResult{}, err
		}
	}

	idx.dense = newDense
	idx.bq = newBQ
	idx.meta = newMeta
	idx.graph = newGraph

	return CompactionResult{Moved: result.Moved, ReclaimedBytes: result.ReclaimedBytes}, nil
}

// sizeBytes sums every owned buffer's live footprint, the monotone
// "used_bytes" observation a memory-pressure monitor needs (no allocator hook is
// available in pure, cgo-free Go — see DESIGN.md's Open Question
// resolution).
func (idx *Index) sizeBytes() int64 {
	total := idx.dense.SizeBytes() + idx.meta.SizeBytes() + idx.graph.SizeBytes()
	if idx.bq != nil {
		total += idx.bq.SizeBytes()
	}
	if idx.sparseStore != nil {
		total += idx.sparseStore.SizeBytes()
	}
	return total
}

// GetMemoryPressure observes current usage against cfg.MemoryConfig's
// thresholds. TotalBytes is the caller-supplied capacity budget
// (cfg.MemoryConfig carries no budget of its own; see SetMemoryBudget)
// — 0 if never configured, which Observe treats as "nothing meaningful
// to divide by" and always reports Normal.
func (idx *Index) GetMemoryPressure() memorypressure.Status {
	return memorypressure.Observe(idx.sizeBytes(), idx.totalBytesBudget, idx.memCfg)
}

// SetMemoryConfig overrides the memory-pressure thresholds and
// block-on-critical policy.
func (idx *Index) SetMemoryConfig(cfg memorypressure.Config) {
	idx.memCfg = cfg
}

// SetMemoryBudget fixes the total byte budget GetMemoryPressure divides
// used_bytes by (the total_bytes field; EdgeVec has no
// runtime page-count API to sample in a cgo-free, WASM-embeddable
// build, so the host supplies its own budget explicitly).
func (idx *Index) SetMemoryBudget(totalBytes int64) {
	idx.totalBytesBudget = totalBytes
}

// CanInsert reports whether an Insert should be allowed to proceed
// under the current memory-pressure policy.
func (idx *Index) CanInsert() bool {
	return idx.memCfg.CanInsert(idx.GetMemoryPressure())
}

// CreateSnapshot serialises the entire live index (including
// tombstones, so soft-delete survives a reload) into the v0.4 wire
// format. LastSnapshotID() reports a content-derived
// identifier for the bytes this call just produced.
func (idx *Index) CreateSnapshot() ([]byte, error) {
	data, err := snapshot.Encode(snapshot.Input{
		Dimensions: idx.dim,
		Metric:     idx.metric,
		Dense:      idx.dense,
		Graph:      idx.graph,
		BQ:         idx.bq,
		Metadata:   idx.meta,
		Sparse:     idx.sparseStore,
	})
	if err != nil {
		return nil, err
	}
	idx.lastSnapshotID = uuid.NewSHA1(uuid.NameSpaceOID, data).String()
	return data, nil
}

// LastSnapshotID returns the content-derived identifier of the most
// recent CreateSnapshot call, or "" if none has run yet.
func (idx *Index) LastSnapshotID() string { return idx.lastSnapshotID }

// LoadSnapshot decodes data and, only on full success, replaces the
// current state atomically. A malformed snapshot leaves the receiver
// untouched: load_snapshot builds into a new index instance and only
// swaps in on full success.
func (idx *Index) LoadSnapshot(data []byte) error {
	out, err := snapshot.Decode(data)
	if err != nil {
		return err
	}

	idx.dim = out.Dimensions
	idx.metric = out.Metric
	distFn, err := metric.DenseDistance(out.Metric)
	if err != nil {
		return err
	}
	idx.distFn = distFn
	idx.dense = out.Dense
	idx.graph = out.Graph
	idx.bq = out.BQ
	idx.meta = out.Metadata
	if idx.meta == nil {
		idx.meta = metadata.New()
	}
	idx.sparseStore = out.Sparse
	if idx.sparseStore != nil {
		idx.sparseSearcher = sparse.NewSearcher(idx.sparseStore)
	} else {
		idx.sparseSearcher = nil
	}
	idx.cfg.Dimensions = out.Dimensions
	idx.cfg.Metric = out.Metric
	if idx.graph != nil {
		idx.cfg.M = idx.graph.Params().M
		idx.cfg.EfConstruction = idx.graph.Params().EfConstruction
		idx.cfg.EfSearch = idx.graph.Params().EfSearch
		idx.cfg.RngSeed = idx.graph.Params().Seed
	}
	idx.cfg.UseBQ = idx.bq != nil
	return nil
}
