package metadata

import (
	"testing"

	"github.com/edgevec/edgevec/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetRoundTrip(t *testing.T) {
	s := New()
	m := Map{"category": String("news"), "score": F64(0.9)}
	s.Set(1, m)

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "news", got["category"].Str)
	assert.Equal(t, 0.9, got["score"].Num)
}

func TestGetReturnsDefensiveCopy(t *testing.T) {
	s := New()
	s.Set(1, Map{"tags": StringList([]string{"a", "b"})})

	got, _ := s.Get(1)
	got["tags"] = StringList([]string{"mutated"})

	got2, _ := s.Get(1)
	assert.Equal(t, []string{"a", "b"}, got2["tags"].List)
}

func TestSetNilDeletes(t *testing.T) {
	s := New()
	s.Set(1, Map{"a": String("x")})
	s.Set(1, nil)

	_, ok := s.Get(1)
	assert.False(t, ok)
}

func TestCompactRemapsSurvivingIds(t *testing.T) {
	s := New()
	s.Set(vectorstore.VectorId(1), Map{"a": String("x")})
	s.Set(vectorstore.VectorId(2), Map{"a": String("y")})

	remap := map[vectorstore.VectorId]vectorstore.VectorId{
		vectorstore.VectorId(1): vectorstore.VectorId(0),
	}
	next := s.Compact(remap)

	got, ok := next.Get(vectorstore.VectorId(0))
	require.True(t, ok)
	assert.Equal(t, "x", got["a"].Str)

	_, ok = next.Get(vectorstore.VectorId(2))
	assert.False(t, ok)
}

func TestValidateInterfaceRejectsUnsupportedType(t *testing.T) {
	_, err := ValidateInterface(struct{}{})
	require.Error(t, err)
}

func TestValidateInterfaceAcceptsClosedShapes(t *testing.T) {
	v, err := ValidateInterface("hello")
	require.NoError(t, err)
	assert.Equal(t, KindString, v.Kind)

	v, err = ValidateInterface(42)
	require.NoError(t, err)
	assert.Equal(t, KindF64, v.Kind)
	assert.Equal(t, 42.0, v.Num)

	v, err = ValidateInterface(true)
	require.NoError(t, err)
	assert.Equal(t, KindBool, v.Kind)

	v, err = ValidateInterface([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, KindStringList, v.Kind)
}
