package nt

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/dNT/lib/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryExistence(t *testing.T) {
	inst, svc := newTestInstance(t)
	e := inst.GetEntry("/never/written")

	assert.Equal(t, TypeUnassigned, e.Type())
	assert.False(t, e.Exists())
	assert.Zero(t, e.LastChanged())

	v, err := e.GetValue()
	require.NoError(t, err)
	assert.Nil(t, v)

	name, ok := e.Name()
	assert.True(t, ok)
	assert.Equal(t, "/never/written", name)
	requireNoLeaks(t, svc)
}

func TestEntrySetGet(t *testing.T) {
	inst, svc := newTestInstance(t)

	for i, v := range roundTripValues {
		e := inst.GetEntry("/values/" + string(rune('a'+i)))
		require.NoError(t, e.SetValue(v))

		assert.True(t, e.Exists())
		assert.Equal(t, v.Type(), e.Type())
		assert.NotZero(t, e.LastChanged())

		got, err := e.GetValue()
		require.NoError(t, err)
		assert.True(t, Equal(v, got), "%#v != %#v", v, got)
	}
	requireNoLeaks(t, svc)
}

func TestEntryTypeMismatch(t *testing.T) {
	inst, svc := newTestInstance(t)
	e := inst.GetEntry("/typed")
	require.NoError(t, e.SetValue(Double(1)))

	err := e.SetValue(String("a"))
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, TypeDouble, mismatch.Current)

	// the stored value is untouched
	v, err := e.GetValue()
	require.NoError(t, err)
	assert.Equal(t, Value(Double(1)), v)
	requireNoLeaks(t, svc)
}

func TestEntrySetNil(t *testing.T) {
	inst, _ := newTestInstance(t)
	assert.ErrorIs(t, inst.GetEntry("/nil").SetValue(nil), ErrNilValue)
}

func TestEntryHandleEquality(t *testing.T) {
	inst, _ := newTestInstance(t)
	a := inst.GetEntry("/same")
	b := inst.GetEntry("/same")
	c := inst.GetEntry("/other")

	assert.True(t, a == b)
	assert.False(t, a == c)

	set := map[Entry]int{a: 1}
	set[b]++
	assert.Equal(t, 2, set[a])

	// the same path on another instance is a different entry
	other, _ := newTestInstance(t)
	assert.False(t, a == other.GetEntry("/same"))
}

func TestEditCounter(t *testing.T) {
	inst, svc := newTestInstance(t)
	e := NewTable(inst, "/foo/bar").Get("baz")

	name, ok := e.Name()
	require.True(t, ok)
	assert.Equal(t, "/foo/bar/baz", name)

	require.NoError(t, e.SetValue(Double(0)))
	last := e.LastChanged()
	for i := 1; i <= 10; i++ {
		applied := e.Edit(func(v Value) Value {
			return MapDouble(v, func(d float64) float64 { return d + 1.0 })
		})
		require.True(t, applied)

		v, err := e.GetValue()
		require.NoError(t, err)
		assert.Equal(t, Value(Double(float64(i))), v)

		assert.Greater(t, e.LastChanged(), last)
		last = e.LastChanged()
	}
	requireNoLeaks(t, svc)
}

func TestEditMissingEntry(t *testing.T) {
	inst, _ := newTestInstance(t)
	called := false
	applied := inst.GetEntry("/missing").Edit(func(v Value) Value {
		called = true
		return v
	})
	assert.False(t, applied)
	assert.False(t, called)
}

func TestEditMismatchStillReportsAttempt(t *testing.T) {
	inst, _ := newTestInstance(t)
	e := inst.GetEntry("/mismatch")
	require.NoError(t, e.SetValue(Double(1)))

	assert.True(t, e.Edit(func(Value) Value { return String("no") }))
	v, _ := e.GetValue()
	assert.Equal(t, Value(Double(1)), v)
}

func TestRpcEntry(t *testing.T) {
	inst, svc := newTestInstance(t)
	e := inst.GetEntry("/rpc")

	w := &wire.Value{Type: wire.TypeRpc, Data: wire.Data{String: wire.NewString(svc.Allocator(), "def")}}
	ok, err := svc.SetEntryValue(e.Handle(), w)
	w.Dispose()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, TypeRpc, e.Type())
	v, err := e.GetValue()
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	called := false
	assert.False(t, e.Edit(func(v Value) Value { called = true; return v }))
	assert.False(t, called)
	requireNoLeaks(t, svc)
}

func TestEntryNonUTF8Name(t *testing.T) {
	inst, _ := newTestInstance(t)
	e := inst.GetEntry("/bad/\xff")

	name, ok := e.Name()
	assert.False(t, ok)
	assert.Empty(t, name)
	assert.Equal(t, []byte("/bad/\xff"), e.NameBytes())
}

func TestEntryServiceFailure(t *testing.T) {
	svc := &brokenService{Service: newTestService(t)}
	inst := NewInstance(svc)
	e := inst.GetEntry("/remote")

	assert.Equal(t, TypeUnassigned, e.Type())
	assert.False(t, e.Exists())
	assert.Zero(t, e.LastChanged())
	_, ok := e.Name()
	assert.False(t, ok)

	_, err := e.GetValue()
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.ErrorIs(t, err, errBrokenLink)

	err = e.SetValue(Double(1))
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	assert.False(t, e.Edit(func(v Value) Value { return v }))
	assert.Nil(t, inst.GetAllEntries())
	// the failed write still released its buffers
	requireNoLeaks(t, svc.Service)
}
