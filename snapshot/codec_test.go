package snapshot

import (
	"testing"

	"github.com/edgevec/edgevec/bq"
	"github.com/edgevec/edgevec/hnsw"
	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/metadata"
	"github.com/edgevec/edgevec/metric"
	"github.com/edgevec/edgevec/sparse"
	"github.com/edgevec/edgevec/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T, dim int) Input {
	t.Helper()
	dense := vectorstore.New(dim)
	dist, err := metric.DenseDistance(metric.L2)
	require.NoError(t, err)

	graph, err := hnsw.New(hnsw.Params{M: 8, M0: 16, EfConstruction: 32, EfSearch: 16, Seed: 7}, dist, dense.RawAny)
	require.NoError(t, err)

	bqStore, err := bq.New(dim)
	require.NoError(t, err)

	meta := metadata.New()
	sp := sparse.New(50)

	for i := 0; i < 12; i++ {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32((i+j)%7) - 3
		}
		id, err := dense.Insert(vec)
		require.NoError(t, err)
		require.NoError(t, graph.Insert(id, vec))
		require.NoError(t, bqStore.Insert(vec))
		meta.Set(id, metadata.Map{"idx": metadata.F64(float64(i)), "even": metadata.NewBool(i%2 == 0)})
		_, err = sp.Insert(sparse.Vector{Indices: []uint32{uint32(i % 50)}, Values: []float32{1}, Dim: 50})
		require.NoError(t, err)
	}
	_, err = dense.SoftDelete(vectorstore.VectorId(3))
	require.NoError(t, err)
	_, err = dense.SoftDelete(vectorstore.VectorId(7))
	require.NoError(t, err)

	return Input{
		Dimensions: dim,
		Metric:     metric.L2,
		Dense:      dense,
		Graph:      graph,
		BQ:         bqStore,
		Metadata:   meta,
		Sparse:     sp,
	}
}

func TestEncodeDecodeRoundTripPreservesVectorCountAndTombstones(t *testing.T) {
	in := buildFixture(t, 16)

	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, in.Dense.Len(), out.Dense.Len())
	assert.Equal(t, in.Dense.LiveCount(), out.Dense.LiveCount())

	deleted3, err := out.Dense.IsDeleted(vectorstore.VectorId(3))
	require.NoError(t, err)
	assert.True(t, deleted3)
	deleted7, err := out.Dense.IsDeleted(vectorstore.VectorId(7))
	require.NoError(t, err)
	assert.True(t, deleted7)

	origVec, _ := in.Dense.Get(vectorstore.VectorId(5))
	gotVec, ok := out.Dense.Get(vectorstore.VectorId(5))
	require.True(t, ok)
	assert.Equal(t, origVec, gotVec)

	origMeta, _ := in.Metadata.Get(vectorstore.VectorId(5))
	gotMeta, ok := out.Metadata.Get(vectorstore.VectorId(5))
	require.True(t, ok)
	assert.Equal(t, origMeta["idx"].Num, gotMeta["idx"].Num)
	assert.Equal(t, origMeta["even"].Bool, gotMeta["even"].Bool)

	require.NotNil(t, out.BQ)
	origCode, _ := in.BQ.Code(5)
	gotCode, ok := out.BQ.Code(5)
	require.True(t, ok)
	assert.Equal(t, origCode, gotCode)

	require.NotNil(t, out.Sparse)
	assert.Equal(t, in.Sparse.LiveCount(), out.Sparse.LiveCount())
}

func TestEncodeDecodeRoundTripSearchAgreesOnOrder(t *testing.T) {
	in := buildFixture(t, 16)
	data, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)

	query := make([]float32, 16)
	for i := range query {
		query[i] = float32(i%7) - 3
	}

	origResults, err := in.Graph.Search(query, 5)
	require.NoError(t, err)
	gotResults, err := out.Graph.Search(query, 5)
	require.NoError(t, err)

	require.Equal(t, len(origResults), len(gotResults))
	for i := range origResults {
		assert.Equal(t, origResults[i].ID, gotResults[i].ID)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data := []byte("not-a-snapshot-at-all-000000000000000000000000")
	_, err := Decode(data)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.SnapshotCorrupted, appErr.Kind)
}

func TestDecodeRejectsUnsupportedMajorVersion(t *testing.T) {
	in := buildFixture(t, 8)
	data, err := Encode(in)
	require.NoError(t, err)

	corrupted := append([]byte(nil), data...)
	corrupted[4] = 1 // version_major

	_, err = Decode(corrupted)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.UnsupportedFormatVersion, appErr.Kind)
}

func TestDecodeRejectsCRCMismatch(t *testing.T) {
	in := buildFixture(t, 8)
	data, err := Encode(in)
	require.NoError(t, err)

	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err = Decode(corrupted)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.SnapshotCorrupted, appErr.Kind)
}

func TestDecodeRejectsTruncatedTrailingSection(t *testing.T) {
	in := buildFixture(t, 8)
	data, err := Encode(in)
	require.NoError(t, err)

	truncated := data[:len(data)-3]
	_, err = Decode(truncated)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.SnapshotCorrupted, appErr.Kind)
}

func TestEncodeWithoutOptionalComponentsOmitsTheirFlags(t *testing.T) {
	dense := vectorstore.New(4)
	dist, err := metric.DenseDistance(metric.Dot)
	require.NoError(t, err)
	graph, err := hnsw.New(hnsw.DefaultParams(), dist, dense.RawAny)
	require.NoError(t, err)

	vec := []float32{1, 2, 3, 4}
	id, err := dense.Insert(vec)
	require.NoError(t, err)
	require.NoError(t, graph.Insert(id, vec))

	data, err := Encode(Input{Dimensions: 4, Metric: metric.Dot, Dense: dense, Graph: graph})
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Nil(t, out.BQ)
	assert.Nil(t, out.Metadata)
	assert.Nil(t, out.Sparse)
}
