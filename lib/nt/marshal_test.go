package nt

import (
	"testing"

	"github.com/ValentinKolb/dNT/lib/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roundTripValues = []Value{
	Bool(true),
	Bool(false),
	Double(0),
	Double(-12.75),
	String(""),
	String("hello, wörld"),
	Raw{},
	Raw{0x00, 0xff, 0x10},
	BoolArray{},
	BoolArray{true, false, true},
	DoubleArray{},
	DoubleArray{1, -2.5, 1e300},
	StringArray{},
	StringArray{"", "a", "ünï"},
}

func TestRoundTrip(t *testing.T) {
	a := wire.NewAllocator()
	for _, stamp := range []NetworkTime{0, 1, 1 << 40} {
		for _, v := range roundTripValues {
			w := ToWire(v, stamp, a)
			assert.Equal(t, uint32(v.Type()), uint32(w.Type))
			assert.Equal(t, uint64(stamp), w.LastChange)

			back, err := FromWire(w)
			w.Dispose()

			require.NoError(t, err)
			assert.True(t, Equal(v, back), "round trip of %#v gave %#v", v, back)
		}
	}
	assert.Zero(t, a.Live())
}

func TestRoundTripThroughCodec(t *testing.T) {
	a := wire.NewAllocator()
	for _, v := range roundTripValues {
		w := ToWire(v, 7, a)
		data, err := wire.Encode(w)
		w.Dispose()
		require.NoError(t, err)

		decoded, err := wire.Decode(data, a)
		require.NoError(t, err)
		back, err := FromWire(decoded)
		decoded.Dispose()

		require.NoError(t, err)
		assert.True(t, Equal(v, back), "%#v", v)
	}
	assert.Zero(t, a.Live())
}

func TestBoolArrayExpansion(t *testing.T) {
	src := BoolArray{true, false, false, true}
	w := ToWire(src, 0, nil)
	defer w.Dispose()

	flags := w.Data.BoolArray.Data()
	require.Len(t, flags, len(src))
	for i, b := range src {
		want := wire.Bool(0)
		if b {
			want = 1
		}
		assert.Equal(t, want, flags[i], "element %d", i)
	}
}

func TestFromWireCopies(t *testing.T) {
	a := wire.NewAllocator()
	w := ToWire(Raw{1, 2, 3}, 0, a)
	v, err := FromWire(w)
	require.NoError(t, err)

	// mutating the wire buffer must not affect the value
	w.Data.String.Data()[0] = 9
	w.Dispose()
	assert.Equal(t, Value(Raw{1, 2, 3}), v)
}

func TestStringArrayAllocations(t *testing.T) {
	a := wire.NewAllocator()
	w := ToWire(StringArray{"a", "b", "c"}, 0, a)
	// one buffer per element plus the outer array
	assert.Equal(t, int64(4), a.Live())
	w.Dispose()
	assert.Zero(t, a.Live())
}

func TestFromWireRpc(t *testing.T) {
	w := &wire.Value{Type: wire.TypeRpc, Data: wire.Data{String: wire.NewString(nil, "call")}}
	defer w.Dispose()

	v, err := FromWire(w)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFromWirePreconditions(t *testing.T) {
	t.Run("Unassigned", func(t *testing.T) {
		assert.Panics(t, func() { _, _ = FromWire(&wire.Value{Type: wire.TypeUnassigned}) })
	})

	t.Run("InvalidUTF8String", func(t *testing.T) {
		w := &wire.Value{Type: wire.TypeString, Data: wire.Data{String: wire.AllocFrom(nil, []byte{0xff, 0xfe})}}
		defer w.Dispose()
		assert.Panics(t, func() { _, _ = FromWire(w) })
	})

	t.Run("InvalidUTF8StringArrayElement", func(t *testing.T) {
		w := &wire.Value{Type: wire.TypeStringArray}
		w.Data.StringArray = wire.AllocFrom(nil, []*wire.Buffer[byte]{
			wire.NewString(nil, "ok"),
			wire.AllocFrom(nil, []byte{0xc3}),
		})
		defer w.Dispose()
		assert.Panics(t, func() { _, _ = FromWire(w) })
	})

	t.Run("UnknownTag", func(t *testing.T) {
		assert.Panics(t, func() { _, _ = FromWire(&wire.Value{Type: 0x03}) })
	})

	t.Run("ToWireNil", func(t *testing.T) {
		assert.Panics(t, func() { ToWire(nil, 0, nil) })
	})

	t.Run("InvalidUTF8Raw", func(t *testing.T) {
		// Raw carries arbitrary bytes
		w := &wire.Value{Type: wire.TypeRaw, Data: wire.Data{String: wire.AllocFrom(nil, []byte{0xff})}}
		defer w.Dispose()
		v, err := FromWire(w)
		require.NoError(t, err)
		assert.Equal(t, Value(Raw{0xff}), v)
	})
}
