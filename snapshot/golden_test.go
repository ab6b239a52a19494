package snapshot

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/edgevec/edgevec/bq"
	"github.com/edgevec/edgevec/hnsw"
	"github.com/edgevec/edgevec/metadata"
	"github.com/edgevec/edgevec/sparse"
	"github.com/edgevec/edgevec/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests pin the v0.4 wire-exact byte layout of each section, field
// by field, so a decode-only round trip can't mask an encoder that
// drifts from what a reader in another implementation expects.

func TestGraphParamsWireLayout(t *testing.T) {
	dist := func(a, b []float32) (float32, error) { return 0, nil }
	getVec := func(id vectorstore.VectorId) ([]float32, bool) { return nil, false }
	g := hnsw.NewFromSnapshot(hnsw.Params{M: 8, M0: 16, EfConstruction: 64, EfSearch: 32, Seed: 99}, dist, getVec)

	b := encodeGraphParams(g)
	require.Len(t, b, 4+4+4+4+8+4+8)

	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(b[0:4]), "M")
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(b[4:8]), "M0")
	assert.Equal(t, uint32(64), binary.LittleEndian.Uint32(b[8:12]), "ef_construction")
	assert.Equal(t, uint32(32), binary.LittleEndian.Uint32(b[12:16]), "ef_search")
	assert.Equal(t, noEntryPointID, binary.LittleEndian.Uint64(b[16:24]), "entry_point_id sentinel when empty")
	assert.Equal(t, int32(0), int32(binary.LittleEndian.Uint32(b[24:28])), "top_layer zero value before any node is restored")
	assert.Equal(t, int64(99), int64(binary.LittleEndian.Uint64(b[28:36])), "rng_seed")

	g.RestoreNode(vectorstore.VectorId(0), [][]hnsw.Result{{}})
	g.SetEntryPoint(vectorstore.VectorId(0), 0)
	b = encodeGraphParams(g)
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(b[16:24]), "real entry_point_id")
	assert.Equal(t, int32(0), int32(binary.LittleEndian.Uint32(b[24:28])), "top_layer")
}

func TestGraphLayersWireLayout(t *testing.T) {
	dist := func(a, b []float32) (float32, error) { return 0, nil }
	getVec := func(id vectorstore.VectorId) ([]float32, bool) { return nil, false }
	g := hnsw.NewFromSnapshot(hnsw.DefaultParams(), dist, getVec)

	// Node 0: top_layer 1, layer 1 has 1 edge to id 5 (dist 0.5), layer 0 has 0 edges.
	g.RestoreNode(vectorstore.VectorId(0), [][]hnsw.Result{
		{},
		{{ID: vectorstore.VectorId(5), Dist: 0.5}},
	})

	b := encodeGraphLayers(g)
	require.Len(t, b, 2+2+ /*layer1*/ (8+4)+2 /*layer0*/)

	off := 0
	topLayer := binary.LittleEndian.Uint16(b[off : off+2])
	assert.Equal(t, uint16(1), topLayer)
	off += 2

	degreeL1 := binary.LittleEndian.Uint16(b[off : off+2])
	assert.Equal(t, uint16(1), degreeL1, "top-down: layer 1 written before layer 0")
	off += 2
	edgeID := binary.LittleEndian.Uint64(b[off : off+8])
	assert.Equal(t, uint64(5), edgeID)
	off += 8
	edgeDistBits := binary.LittleEndian.Uint32(b[off : off+4])
	assert.InDelta(t, float32(0.5), math.Float32frombits(edgeDistBits), 1e-9)
	off += 4

	degreeL0 := binary.LittleEndian.Uint16(b[off : off+2])
	assert.Equal(t, uint16(0), degreeL0, "layer 0 written last")
	off += 2

	assert.Equal(t, len(b), off, "no trailing count or id fields")
}

func TestBQCodesWireLayout(t *testing.T) {
	store, err := bq.New(8)
	require.NoError(t, err)
	require.NoError(t, store.Insert([]float32{1, -1, 1, -1, 1, -1, 1, -1}))
	require.NoError(t, store.Insert([]float32{-1, -1, -1, -1, -1, -1, -1, -1}))

	b := encodeBQCodes(store, 1)
	require.Len(t, b, 4+2, "count u32 + 2 codes of 1 byte each, no bytes-per-code field")
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(t, store.RawBuffer(), b[4:])
}

func TestMetaEntriesWireLayout(t *testing.T) {
	store := metadata.New()
	store.Set(vectorstore.VectorId(3), metadata.Map{"k": metadata.F64(1)})

	b := encodeMetaEntries(store)
	off := 0
	count := binary.LittleEndian.Uint32(b[off : off+4])
	assert.Equal(t, uint32(1), count)
	off += 4
	id := binary.LittleEndian.Uint64(b[off : off+8])
	assert.Equal(t, uint64(3), id)
	off += 8
	nKeys := binary.LittleEndian.Uint16(b[off : off+2])
	assert.Equal(t, uint16(1), nKeys, "n_keys is u16")
	off += 2
	keyLen := binary.LittleEndian.Uint16(b[off : off+2])
	assert.Equal(t, uint16(1), keyLen, "keylen is u16")
	off += 2
	assert.Equal(t, "k", string(b[off:off+1]))
}

func TestSparseVecsWireLayout(t *testing.T) {
	s := sparse.New(50)
	_, err := s.Insert(sparse.Vector{Indices: []uint32{2, 4}, Values: []float32{1, 2}, Dim: 50})
	require.NoError(t, err)
	_, err = s.Insert(sparse.Vector{Indices: []uint32{1}, Values: []float32{3}, Dim: 50})
	require.NoError(t, err)

	b := encodeSparseVecs(s)
	off := 0
	count := binary.LittleEndian.Uint32(b[off : off+4])
	assert.Equal(t, uint32(2), count)
	off += 4
	dim := binary.LittleEndian.Uint32(b[off : off+4])
	assert.Equal(t, uint32(50), dim, "dim appears once, right after count")
	off += 4

	nnz0 := binary.LittleEndian.Uint32(b[off : off+4])
	assert.Equal(t, uint32(2), nnz0)
	off += 4 + int(nnz0)*4 + int(nnz0)*4 // indices then values, no per-vector dim

	nnz1 := binary.LittleEndian.Uint32(b[off : off+4])
	assert.Equal(t, uint32(1), nnz1)
	off += 4 + int(nnz1)*4 + int(nnz1)*4

	assert.Equal(t, len(b), off, "no per-vector dim field trailing each entry")
}
