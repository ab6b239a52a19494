package edgevec

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgevec/edgevec/hybrid"
	"github.com/edgevec/edgevec/memorypressure"
	"github.com/edgevec/edgevec/metadata"
	"github.com/edgevec/edgevec/sparse"
)

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sumSq))
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// TestS1DenseInsertAndExactTop3 covers:
// insert 4 unit vectors, query near A, expect order A, C, B.
func TestS1DenseInsertAndExactTop3(t *testing.T) {
	cfg := NewIndexConfig(4, WithEfConstruction(200))
	idx, err := NewIndex(cfg)
	require.NoError(t, err)

	vecs := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		normalize([]float32{0.7071, 0.7071, 0, 0}),
		{0, 0, 1, 0},
	}
	var ids []VectorId
	for _, v := range vecs {
		id, err := idx.Insert(v)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	res, err := idx.Search(normalize([]float32{0.9, 0.1, 0, 0}), 3)
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, ids[0], res[0].ID) // A
	assert.Equal(t, ids[2], res[1].ID) // C
	assert.Equal(t, ids[1], res[2].ID) // B
}

// TestS2FilterRestrictsResultsToMatchingMetadata covers: a
// metadata filter must exclude a closer vector that fails the predicate
// and admit a farther one that passes it.
func TestS2FilterRestrictsResultsToMatchingMetadata(t *testing.T) {
	cfg := NewIndexConfig(4, WithEfConstruction(200))
	idx, err := NewIndex(cfg)
	require.NoError(t, err)

	closeButExcluded := normalize([]float32{1, 0, 0, 0})
	fartherButIncluded := normalize([]float32{0.8, 0.6, 0, 0})

	_, err = idx.InsertWithMetadata(closeButExcluded, metadata.Map{"category": metadata.String("b")})
	require.NoError(t, err)
	idB, err := idx.InsertWithMetadata(fartherButIncluded, metadata.Map{"category": metadata.String("a")})
	require.NoError(t, err)

	res, err := idx.SearchFiltered(normalize([]float32{1, 0, 0, 0}), `category == "a"`, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, idB, res[0].ID)
}

// TestS3SoftDeletedVectorIsInvisibleToSearchAndGet covers soft-delete then search.
func TestS3SoftDeletedVectorIsInvisibleToSearchAndGet(t *testing.T) {
	cfg := NewIndexConfig(4)
	idx, err := NewIndex(cfg)
	require.NoError(t, err)

	vecs := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
	var ids []VectorId
	for _, v := range vecs {
		id, err := idx.Insert(v)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	deleted, err := idx.SoftDelete(ids[0])
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok := idx.Get(ids[0])
	assert.False(t, ok)

	res, err := idx.Search(normalize([]float32{1, 0, 0, 0}), 3)
	require.NoError(t, err)
	for _, r := range res {
		assert.NotEqual(t, ids[0], r.ID)
	}

	deletedAgain, err := idx.SoftDelete(ids[0])
	require.NoError(t, err)
	assert.False(t, deletedAgain, "soft delete must be idempotent")
}

// TestS4SnapshotRoundTripPreservesBQAndMetadata covers: a
// decoded snapshot reproduces live vectors, tombstones, BQ codes, and
// metadata exactly.
func TestS4SnapshotRoundTripPreservesBQAndMetadata(t *testing.T) {
	cfg := NewIndexConfig(8, WithBQ(true))
	idx, err := NewIndex(cfg)
	require.NoError(t, err)

	v1 := normalize([]float32{1, 2, 3, 4, 5, 6, 7, 8})
	v2 := normalize([]float32{-1, -2, -3, -4, -5, -6, -7, -8})

	id1, err := idx.InsertWithMetadata(v1, metadata.Map{"tag": metadata.String("alpha")})
	require.NoError(t, err)
	id2, err := idx.Insert(v2)
	require.NoError(t, err)
	_, err = idx.SoftDelete(id2)
	require.NoError(t, err)

	data, err := idx.CreateSnapshot()
	require.NoError(t, err)
	require.NotEmpty(t, idx.LastSnapshotID())

	reloaded, err := NewIndex(NewIndexConfig(8))
	require.NoError(t, err)
	require.NoError(t, reloaded.LoadSnapshot(data))

	got, ok := reloaded.Get(id1)
	require.True(t, ok)
	for i := range got {
		assert.InDelta(t, v1[i], got[i], 1e-6)
	}

	_, ok = reloaded.Get(id2)
	assert.False(t, ok, "tombstoned vector must stay invisible after reload")

	md, ok := reloaded.GetMetadata(id1)
	require.True(t, ok)
	assert.Equal(t, "alpha", md["tag"].Str)

	bqRes, err := reloaded.SearchBQ(v1, 1)
	require.NoError(t, err)
	require.Len(t, bqRes, 1)
	assert.Equal(t, id1, bqRes[0].ID)
}

// TestS5HybridRRFFusion covers RRF hybrid fusion: document A equals the
// dense query and alone shares the sparse query's feature, so it ranks
// #1 on both sides and must rank #1 after fusion.
func TestS5HybridRRFFusion(t *testing.T) {
	cfg := NewIndexConfig(4)
	idx, err := NewIndex(cfg)
	require.NoError(t, err)

	vecA := []float32{1, 0, 0, 0}
	vecB := []float32{0, 1, 0, 0}
	idA, err := idx.Insert(vecA)
	require.NoError(t, err)
	idB, err := idx.Insert(vecB)
	require.NoError(t, err)

	_, err = idx.InsertSparse([]uint32{0}, []float32{1}, 4)
	require.NoError(t, err)
	sparseIDB, err := idx.InsertSparse([]uint32{1}, []float32{1}, 4)
	require.NoError(t, err)
	_ = sparseIDB

	hybridCfg := hybrid.SearchConfig{DenseK: 2, SparseK: 2, FinalK: 2, Fusion: hybrid.DefaultFusionConfig()}
	results, err := idx.SearchHybrid(vecA, sparse.Vector{Indices: []uint32{0}, Values: []float32{1}, Dim: 4}, hybridCfg)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, uint64(idA), results[0].ID)
	_ = idB
}

// TestS6CompactionPreservesLiveContent covers
// property 5: after Compact, a brute-force scan of raw dense bytes for
// the surviving ids must match what was live before compaction (an
// approximate index's HNSW search result is not guaranteed to be
// bit-identical across a structural rebuild, so the invariant is
// checked on stored content, not graph traversal order).
func TestS6CompactionPreservesLiveContent(t *testing.T) {
	cfg := NewIndexConfig(4)
	idx, err := NewIndex(cfg)
	require.NoError(t, err)

	vecs := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	var ids []VectorId
	for _, v := range vecs {
		id, err := idx.Insert(v)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err = idx.SoftDelete(ids[1])
	require.NoError(t, err)

	wantLive := map[string][]float32{}
	for i, id := range ids {
		if i == 1 {
			continue
		}
		v, ok := idx.Get(id)
		require.True(t, ok)
		wantLive[fmtVec(v)] = v
	}

	result, err := idx.Compact()
	require.NoError(t, err)
	assert.Equal(t, 3, result.Moved)
	assert.Equal(t, 3, idx.VectorCount())
	assert.Equal(t, 0, idx.DeletedCount())

	gotLive := map[string][]float32{}
	for id := VectorId(0); int(id) < idx.VectorCount(); id++ {
		v, ok := idx.Get(id)
		require.True(t, ok)
		gotLive[fmtVec(v)] = v
	}
	assert.Equal(t, len(wantLive), len(gotLive))
	for k := range wantLive {
		_, ok := gotLive[k]
		assert.True(t, ok, "compacted index lost a live vector")
	}

	res, err := idx.Search([]float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func fmtVec(v []float32) string {
	return fmt.Sprintf("%v", v)
}

func TestInsertRejectsWrongDimension(t *testing.T) {
	idx, err := NewIndex(NewIndexConfig(4))
	require.NoError(t, err)

	_, err = idx.Insert([]float32{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, KindDimensionMismatch, err.(*Error).Kind)
}

func TestSearchOnEmptyIndexReturnsEmptyNotError(t *testing.T) {
	idx, err := NewIndex(NewIndexConfig(4))
	require.NoError(t, err)

	res, err := idx.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearchKLargerThanLiveCountTruncatesWithoutError(t *testing.T) {
	idx, err := NewIndex(NewIndexConfig(4))
	require.NoError(t, err)
	_, err = idx.Insert([]float32{1, 0, 0, 0})
	require.NoError(t, err)

	res, err := idx.Search([]float32{1, 0, 0, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestFilterOverAbsentFieldExcludesEverythingExceptIsNull(t *testing.T) {
	idx, err := NewIndex(NewIndexConfig(4))
	require.NoError(t, err)
	_, err = idx.Insert([]float32{1, 0, 0, 0}) // no metadata at all
	require.NoError(t, err)

	res, err := idx.SearchFiltered([]float32{1, 0, 0, 0}, `category == "a"`, 5)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = idx.SearchFiltered([]float32{1, 0, 0, 0}, `category IS NULL`, 5)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestBQRequiresDimensionDivisibleByEight(t *testing.T) {
	_, err := NewIndex(NewIndexConfig(5, WithBQ(true)))
	require.Error(t, err)
}

func TestSearchBQFailsWhenDisabled(t *testing.T) {
	idx, err := NewIndex(NewIndexConfig(8))
	require.NoError(t, err)

	_, err = idx.SearchBQ([]float32{1, 0, 0, 0, 0, 0, 0, 0}, 1)
	require.Error(t, err)
	assert.Equal(t, KindBQDisabled, err.(*Error).Kind)
}

func TestLoadSnapshotRejectsCorruptedBytesWithoutMutatingIndex(t *testing.T) {
	idx, err := NewIndex(NewIndexConfig(4))
	require.NoError(t, err)
	id, err := idx.Insert([]float32{1, 0, 0, 0})
	require.NoError(t, err)

	err = idx.LoadSnapshot([]byte("not a snapshot"))
	require.Error(t, err)

	v, ok := idx.Get(id)
	require.True(t, ok, "a failed LoadSnapshot must leave the existing index untouched")
	assert.Equal(t, []float32{1, 0, 0, 0}, v)
}

func TestMemoryPressureBlocksInsertWhenCritical(t *testing.T) {
	cfg := NewIndexConfig(4)
	idx, err := NewIndex(cfg)
	require.NoError(t, err)

	_, err = idx.Insert([]float32{1, 0, 0, 0})
	require.NoError(t, err)

	// Budget so small that the vector just inserted already exceeds it,
	// tripping Critical for the next insert attempt.
	idx.SetMemoryBudget(1)
	idx.SetMemoryConfig(memorypressure.Config{
		WarningThreshold:       0.01,
		CriticalThreshold:      0.01,
		BlockInsertsOnCritical: true,
	})

	_, err = idx.Insert([]float32{0, 1, 0, 0})
	require.Error(t, err)
	assert.Equal(t, KindMemoryCritical, err.(*Error).Kind)
}
