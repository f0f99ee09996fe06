package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorCountsLiveBuffers(t *testing.T) {
	a := NewAllocator()

	b1 := Alloc[byte](a, 4)
	b2 := NewString(a, "hello")
	require.Equal(t, int64(2), a.Live())
	require.Equal(t, uint64(2), a.Allocated())

	b1.Dispose()
	assert.Equal(t, int64(1), a.Live())
	assert.Equal(t, "hello", StringOf(b2))

	b2.Dispose()
	assert.Equal(t, int64(0), a.Live())
	assert.Equal(t, uint64(2), a.Allocated())
}

func TestBufferDoubleDisposePanics(t *testing.T) {
	b := Alloc[Bool](nil, 3)
	b.Dispose()
	assert.True(t, b.Disposed())
	assert.Panics(t, func() { b.Dispose() })
	assert.Panics(t, func() { _ = b.Data() })
}

func TestNilBufferIsEmpty(t *testing.T) {
	var b *Buffer[float64]
	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.Data())
	assert.NotPanics(t, func() { b.Dispose() })
}

func TestValueDisposeReleasesNestedBuffers(t *testing.T) {
	a := NewAllocator()

	arr := Alloc[*Buffer[byte]](a, 2)
	arr.Data()[0] = NewString(a, "a")
	arr.Data()[1] = NewString(a, "bc")
	v := &Value{Type: TypeStringArray, Data: Data{StringArray: arr}}
	require.Equal(t, int64(3), a.Live())

	v.Dispose()
	assert.Equal(t, int64(0), a.Live())
	assert.True(t, v.Disposed())
	assert.Panics(t, func() { v.Dispose() })
}

func TestScalarValueDisposeOnce(t *testing.T) {
	v := &Value{Type: TypeDouble, Data: Data{Double: 1.5}}
	v.Dispose()
	assert.Panics(t, func() { v.Dispose() })
}

func TestConnectionArrayDispose(t *testing.T) {
	a := NewAllocator()
	c := NewConnectionArray(a, 2)
	c.Set(0, "peer-1", "10.0.0.1", 1735, 7, 0x0300)
	c.Set(1, "peer-2", "::1", 1736, 8, 0x0300)
	require.Equal(t, int64(5), a.Live())
	assert.Equal(t, "peer-2", StringOf(c.Data()[1].RemoteID))

	c.Dispose()
	assert.Equal(t, int64(0), a.Live())
	assert.True(t, c.Disposed())
}
