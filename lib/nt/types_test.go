package nt

import (
	"testing"

	"github.com/ValentinKolb/dNT/lib/wire"
	"github.com/stretchr/testify/assert"
)

func TestEntryTypeFrom(t *testing.T) {
	tags := []wire.Type{
		wire.TypeUnassigned, wire.TypeBoolean, wire.TypeDouble, wire.TypeString, wire.TypeRaw,
		wire.TypeBooleanArray, wire.TypeDoubleArray, wire.TypeStringArray, wire.TypeRpc,
	}
	for _, tag := range tags {
		assert.Equal(t, uint32(tag), uint32(EntryTypeFrom(tag)))
	}

	assert.Equal(t, EntryType(0x02), TypeDouble)
	assert.Equal(t, EntryType(0x40), TypeStringArray)
	assert.Equal(t, "Double", TypeDouble.String())
}

func TestEntryTypeFromUnknownTagPanics(t *testing.T) {
	for _, tag := range []wire.Type{0x03, 0x100, 0xffffffff} {
		assert.Panics(t, func() { EntryTypeFrom(tag) }, "tag 0x%x", uint32(tag))
	}
}

func TestMaskAlgebra(t *testing.T) {
	for _, typ := range EntryTypes {
		// all() | T == new(T)
		assert.Equal(t, NewMask(typ), MaskAll().With(typ), typ.String())
		// idempotent
		assert.Equal(t, NewMask(typ), NewMask(typ).With(typ))
		for _, other := range EntryTypes {
			// commutative
			assert.Equal(t, NewMask(typ).With(other), NewMask(other).With(typ))
			assert.Equal(t, NewMask(typ).Or(NewMask(other)), NewMask(other).Or(NewMask(typ)))
		}
	}

	a, b, c := NewMask(TypeBoolean), NewMask(TypeDouble), NewMask(TypeRaw)
	assert.Equal(t, a.Or(b).Or(c), a.Or(b.Or(c)))
}

func TestMaskMatches(t *testing.T) {
	for _, typ := range EntryTypes {
		assert.True(t, MaskAll().Matches(typ), "zero mask must match %s", typ)
	}

	m := NewMask(TypeDouble, TypeString)
	assert.True(t, m.Matches(TypeDouble))
	assert.True(t, m.Matches(TypeString))
	assert.False(t, m.Matches(TypeBoolean))
	assert.False(t, m.Matches(TypeDoubleArray))
	assert.Equal(t, []EntryType{TypeDouble, TypeString}, m.Types())
	assert.Nil(t, MaskAll().Types())
}
