// Package service defines the primitives a network table client talks to.
//
// The IService interface is deliberately small and handle based: names are
// resolved once into opaque wire.Handle values, and every other call refers
// to an entry by its handle. Values cross the interface as wire.Value
// records whose buffers are taken from the service's wire.Allocator, so a
// leak or double release is visible in tests.
//
// Implementations:
//
//   - Local Service (local): keeps entries in a db.KVDB in the same process,
//     uses the database write index as change stamp and optionally persists
//     the table to a file. The RPC server hosts one local service per instance.
//     Available in the "github.com/ValentinKolb/dNT/lib/service/local" package.
//
//   - RPC Client: forwards every primitive to a remote server.
//     Available in the "github.com/ValentinKolb/dNT/rpc/client" package.
//
// Errors:
//
// Service level failures are reported as *Error values carrying a RetCode.
// A rejected write caused by a type mismatch is not an error; SetEntryValue
// reports it through its boolean result.
package service
