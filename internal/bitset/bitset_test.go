package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetIdempotent(t *testing.T) {
	s := New()
	s.Grow(10)
	assert.True(t, s.Set(3))
	assert.False(t, s.Set(3))
	assert.Equal(t, 1, s.Count())
	assert.True(t, s.Test(3))
	assert.False(t, s.Test(4))
}

func TestBytesRoundTrip(t *testing.T) {
	s := New()
	s.Grow(20)
	s.Set(0)
	s.Set(7)
	s.Set(19)

	b := s.Bytes()
	s2 := FromBytes(b, 20)

	for i := 0; i < 20; i++ {
		assert.Equal(t, s.Test(i), s2.Test(i), "bit %d", i)
	}
}

func TestTestOutOfRangeIsFalse(t *testing.T) {
	s := New()
	s.Grow(4)
	assert.False(t, s.Test(100))
	assert.False(t, s.Test(-1))
}
