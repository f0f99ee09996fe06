// Package wire defines the representation in which values, handle lists and
// connection descriptors cross the boundary between the typed client layer
// (package nt) and a network table service.
//
// The central type is Value, a tagged union: a Type tag, a change stamp and a
// Data record in which only the member selected by the tag is meaningful.
// Scalars (Boolean, Double) are embedded directly, while strings, raw bytes
// and all arrays live in separately allocated Buffer values.
//
// Ownership:
//
//   - Every Buffer is allocated from an Allocator and belongs to whoever holds
//     the pointer. It must be disposed exactly once. Reading a disposed buffer
//     or disposing it twice panics, which turns lifetime mistakes into loud
//     failures instead of silent corruption.
//   - Value.Dispose and ConnectionArray.Dispose release all nested buffers.
//   - Allocator.Live reports the number of buffers not yet disposed, which
//     lets tests assert that a code path neither leaks nor double frees.
//
// Booleans use a wide representation on the wire: one 32-bit Bool flag per
// element (0 or 1) instead of Go's one byte bool.
//
// The package also contains a compact binary codec (Encode, Decode,
// EncodeHandles, DecodeConnections, ...) used for persistence and for the RPC
// layer.
package wire
