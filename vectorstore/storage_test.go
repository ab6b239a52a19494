package vectorstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	s := New(3)
	id, err := s.Insert([]float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, VectorId(0), id)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)
}

func TestInsertDimensionMismatch(t *testing.T) {
	s := New(3)
	_, err := s.Insert([]float32{1, 2})
	require.Error(t, err)
}

func TestInsertRejectsNaN(t *testing.T) {
	s := New(2)
	_, err := s.Insert([]float32{float32(math.NaN()), 1})
	require.Error(t, err)
}

func TestMonotonicIds(t *testing.T) {
	s := New(1)
	var ids []VectorId
	for i := 0; i < 5; i++ {
		id, err := s.Insert([]float32{float32(i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for i, id := range ids {
		assert.Equal(t, VectorId(i), id)
	}
}

func TestSoftDeleteIdempotentAndInvisible(t *testing.T) {
	s := New(1)
	id, _ := s.Insert([]float32{1})

	first, err := s.SoftDelete(id)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.SoftDelete(id)
	require.NoError(t, err)
	assert.False(t, second)

	_, ok := s.Get(id)
	assert.False(t, ok)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.LiveCount())
	assert.Equal(t, 1, s.DeletedCount())
}

func TestSoftDeleteUnknownID(t *testing.T) {
	s := New(1)
	_, err := s.SoftDelete(VectorId(42))
	require.Error(t, err)
}

func TestCompactPreservesLiveVectorsInOrder(t *testing.T) {
	s := New(1)
	var ids []VectorId
	for i := 0; i < 5; i++ {
		id, _ := s.Insert([]float32{float32(i)})
		ids = append(ids, id)
	}
	_, _ = s.SoftDelete(ids[1])
	_, _ = s.SoftDelete(ids[3])

	result, remap := s.Compact()
	assert.Equal(t, 3, result.Moved)
	assert.Equal(t, 3, s.LiveCount())
	assert.Equal(t, 0, s.DeletedCount())

	newID0, ok := remap[ids[0]]
	require.True(t, ok)
	v, ok := s.Get(newID0)
	require.True(t, ok)
	assert.Equal(t, float32(0), v[0])

	newID4, ok := remap[ids[4]]
	require.True(t, ok)
	v, ok = s.Get(newID4)
	require.True(t, ok)
	assert.Equal(t, float32(4), v[0])

	_, stillThere := remap[ids[1]]
	assert.False(t, stillThere)
}

func TestLiveCountInvariant(t *testing.T) {
	s := New(1)
	for i := 0; i < 10; i++ {
		_, _ = s.Insert([]float32{float32(i)})
	}
	_, _ = s.SoftDelete(VectorId(2))
	_, _ = s.SoftDelete(VectorId(5))

	assert.Equal(t, s.Len()-s.DeletedCount(), s.LiveCount())
}
