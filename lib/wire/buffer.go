package wire

import (
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Allocator
// --------------------------------------------------------------------------

// Allocator hands out buffers and keeps count of the ones not yet disposed.
// A nil *Allocator is valid and simply does not count.
//
// Thread-safety: All methods are safe for concurrent use.
type Allocator struct {
	live      atomic.Int64
	allocated atomic.Uint64
}

// NewAllocator creates a new counting allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Live returns the number of buffers that were allocated but not disposed yet.
func (a *Allocator) Live() int64 {
	if a == nil {
		return 0
	}
	return a.live.Load()
}

// Allocated returns the total number of buffers ever allocated.
func (a *Allocator) Allocated() uint64 {
	if a == nil {
		return 0
	}
	return a.allocated.Load()
}

// --------------------------------------------------------------------------
// Buffer
// --------------------------------------------------------------------------

// Buffer is a separately allocated array that belongs to whoever holds the
// pointer. It must be disposed exactly once; reading a disposed buffer or
// disposing it twice panics.
type Buffer[T any] struct {
	alloc    *Allocator
	data     []T
	disposed atomic.Bool
}

// Alloc allocates a zeroed buffer of n elements from a.
func Alloc[T any](a *Allocator, n int) *Buffer[T] {
	if a != nil {
		a.live.Add(1)
		a.allocated.Add(1)
	}
	return &Buffer[T]{alloc: a, data: make([]T, n)}
}

// AllocFrom allocates a buffer from a and copies src into it.
func AllocFrom[T any](a *Allocator, src []T) *Buffer[T] {
	b := Alloc[T](a, len(src))
	copy(b.data, src)
	return b
}

// NewString allocates a byte buffer holding s.
func NewString(a *Allocator, s string) *Buffer[byte] {
	b := Alloc[byte](a, len(s))
	copy(b.data, s)
	return b
}

// Len returns the number of elements. A nil buffer has length zero.
func (b *Buffer[T]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Data returns the backing slice. The slice is only valid until Dispose.
func (b *Buffer[T]) Data() []T {
	if b == nil {
		return nil
	}
	if b.disposed.Load() {
		panic("wire: use of disposed buffer")
	}
	return b.data
}

// Disposed reports whether the buffer was already released.
func (b *Buffer[T]) Disposed() bool {
	return b != nil && b.disposed.Load()
}

// Dispose releases the buffer. Disposing a nil buffer is a no-op.
func (b *Buffer[T]) Dispose() {
	if b == nil {
		return
	}
	if !b.disposed.CompareAndSwap(false, true) {
		panic("wire: buffer disposed twice")
	}
	b.data = nil
	if b.alloc != nil {
		b.alloc.live.Add(-1)
	}
}

// StringOf copies the content of a byte buffer into a Go string.
func StringOf(b *Buffer[byte]) string {
	return string(b.Data())
}
