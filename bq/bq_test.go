package bq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRejectsNonByteAlignedDim(t *testing.T) {
	_, err := Encode([]float32{1, 2, 3}, 3)
	require.Error(t, err)
}

func TestEncodeSignRule(t *testing.T) {
	vec := []float32{1, -1, 0, 2, -2, 3, -3, 0.0001}
	code, err := Encode(vec, 8)
	require.NoError(t, err)
	require.Len(t, code, 1)

	want := byte(0)
	want |= 1 << 0 // 1 > 0
	// -1 not set
	// 0 not set (strictly greater than zero required)
	want |= 1 << 3 // 2 > 0
	// -2 not set
	want |= 1 << 5 // 3 > 0
	// -3 not set
	want |= 1 << 7 // 0.0001 > 0
	assert.Equal(t, want, code[0])
}

func TestStorageInsertAndHamming(t *testing.T) {
	s, err := New(8)
	require.NoError(t, err)

	require.NoError(t, s.Insert([]float32{1, 1, 1, 1, 1, 1, 1, 1}))
	require.NoError(t, s.Insert([]float32{-1, -1, -1, -1, -1, -1, -1, -1}))

	c0, ok := s.Code(0)
	require.True(t, ok)
	c1, ok := s.Code(1)
	require.True(t, ok)

	d, err := s.HammingDistance(c0, c1)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), d)
}

func TestStorageNewRejectsBadDim(t *testing.T) {
	_, err := New(5)
	require.Error(t, err)
}

func TestCompactKeepsOnlyLiveIndices(t *testing.T) {
	s, err := New(8)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		vec := make([]float32, 8)
		vec[0] = float32(i) + 1
		require.NoError(t, s.Insert(vec))
	}
	next := s.Compact([]int{0, 2})
	assert.Equal(t, 2, next.Len())
}
