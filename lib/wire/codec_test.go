package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testValues returns one value per tag, allocated from a
func testValues(a *Allocator) []*Value {
	strs := Alloc[*Buffer[byte]](a, 3)
	strs.Data()[0] = NewString(a, "x")
	strs.Data()[1] = NewString(a, "")
	strs.Data()[2] = NewString(a, "zeta")

	return []*Value{
		{Type: TypeUnassigned},
		{Type: TypeBoolean, LastChange: 1, Data: Data{Boolean: 1}},
		{Type: TypeBoolean, LastChange: 2, Data: Data{Boolean: 0}},
		{Type: TypeDouble, LastChange: 3, Data: Data{Double: math.Inf(-1)}},
		{Type: TypeString, LastChange: 4, Data: Data{String: NewString(a, "hello")}},
		{Type: TypeString, LastChange: 5, Data: Data{String: NewString(a, "")}},
		{Type: TypeRaw, LastChange: 6, Data: Data{String: AllocFrom(a, []byte{0, 0xff, 3})}},
		{Type: TypeRpc, LastChange: 7, Data: Data{String: AllocFrom(a, []byte{1})}},
		{Type: TypeBooleanArray, LastChange: 8, Data: Data{BoolArray: AllocFrom(a, []Bool{1, 0, 1})}},
		{Type: TypeBooleanArray, LastChange: 9, Data: Data{BoolArray: Alloc[Bool](a, 0)}},
		{Type: TypeDoubleArray, LastChange: 10, Data: Data{DoubleArray: AllocFrom(a, []float64{0, -1.25, 1e300})}},
		{Type: TypeStringArray, LastChange: math.MaxUint64, Data: Data{StringArray: strs}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := NewAllocator()

	for _, v := range testValues(a) {
		t.Run(v.Type.String(), func(t *testing.T) {
			data, err := Encode(v)
			require.NoError(t, err)
			require.Len(t, data, SizeBytes(v))

			decoded, err := Decode(data, a)
			require.NoError(t, err)

			assert.Equal(t, v.Type, decoded.Type)
			assert.Equal(t, v.LastChange, decoded.LastChange)

			again, err := Encode(decoded)
			require.NoError(t, err)
			assert.Equal(t, data, again)

			decoded.Dispose()
		})
		v.Dispose()
	}

	assert.Equal(t, int64(0), a.Live())
}

func TestPeekHeader(t *testing.T) {
	v := &Value{Type: TypeDouble, LastChange: 42, Data: Data{Double: 2}}
	data, err := Encode(v)
	require.NoError(t, err)

	typ, stamp, err := PeekHeader(data)
	require.NoError(t, err)
	assert.Equal(t, TypeDouble, typ)
	assert.Equal(t, uint64(42), stamp)

	_, _, err = PeekHeader(data[:3])
	assert.Error(t, err)

	_, _, err = PeekHeader([]byte{0x03, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	a := NewAllocator()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated double", []byte{byte(TypeDouble), 0, 0, 0, 0, 0, 0, 0, 0, 1, 2}},
		{"huge count", []byte{byte(TypeDoubleArray), 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}},
		{"trailing bytes", []byte{byte(TypeBoolean), 0, 0, 0, 0, 0, 0, 0, 0, 1, 9}},
		{"truncated string element", []byte{byte(TypeStringArray), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 1, 'a', 0, 0, 0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, a)
			assert.Error(t, err)
		})
	}

	// no buffer of a failed decode may survive
	assert.Equal(t, int64(0), a.Live())
}

func TestHandlesRoundTrip(t *testing.T) {
	a := NewAllocator()
	data := EncodeHandles([]Handle{1, 7, 42})

	buf, err := DecodeHandles(data, a)
	require.NoError(t, err)
	assert.Equal(t, []Handle{1, 7, 42}, buf.Data())
	buf.Dispose()

	_, err = DecodeHandles(data[:len(data)-1], a)
	assert.Error(t, err)
	assert.Equal(t, int64(0), a.Live())
}

func TestConnectionsRoundTrip(t *testing.T) {
	a := NewAllocator()
	c := NewConnectionArray(a, 2)
	c.Set(0, "server", "127.0.0.1", 1735, 99, 0x0300)
	c.Set(1, "", "", 0, 0, 0)

	decoded, err := DecodeConnections(EncodeConnections(c), a)
	require.NoError(t, err)
	require.Equal(t, 2, decoded.Len())

	first := decoded.Data()[0]
	assert.Equal(t, "server", StringOf(first.RemoteID))
	assert.Equal(t, "127.0.0.1", StringOf(first.RemoteIP))
	assert.Equal(t, uint32(1735), first.RemotePort)
	assert.Equal(t, uint64(99), first.LastUpdate)
	assert.Equal(t, uint32(0x0300), first.ProtocolVersion)

	decoded.Dispose()
	c.Dispose()
	assert.Equal(t, int64(0), a.Live())
}
