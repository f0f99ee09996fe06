// Package nt is the client side of a network table: a hierarchical store of
// typed values that a service shares between participants.
//
// The package focuses on:
//   - Value: a closed sum type (Bool, Double, String, Raw and the array
//     variants) and its conversion to and from the wire representation
//   - Entry: a cheap, comparable handle to one key
//   - Table: a prefix scoped cache of entries with sub-tables
//   - Instance: the entry point tying the above to a service.IService
//
// Ownership:
//
// ToWire allocates every string and array payload from the service's
// wire.Allocator. The caller disposes the result once the service has read
// it. FromWire deep-copies, so a Value never aliases wire buffers; the wire
// value is disposed right after conversion. Entry does both with defer, so no
// buffer leaks on error paths.
//
// Errors:
//
//   - a write of the wrong type fails with *TypeMismatchError holding the type
//     the entry currently has
//   - reading an Rpc entry fails with ErrUnsupportedType
//   - service failures are wrapped in ErrServiceUnavailable; accessors without
//     an error result (Type, LastChanged, Name) log them and return zero values
//   - violated service contracts (invalid UTF-8, unknown type tags, reading an
//     unassigned value, use of a closed connection snapshot) panic
//
// Example:
//
//	inst := nt.DefaultInstance()
//	table := inst.GetTable("/foo/bar")
//	entry := table.Get("baz")
//	_ = entry.SetValue(nt.Double(0))
//	entry.Edit(func(v nt.Value) nt.Value {
//		return nt.MapDouble(v, func(d float64) float64 { return d + 1 })
//	})
package nt
