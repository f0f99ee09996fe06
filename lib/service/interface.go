package service

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dNT/lib/db"
	"github.com/ValentinKolb/dNT/lib/wire"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by a service.
type DBFactory func() (db.KVDB, error)

// IService is the set of primitives a network table client is built on.
// Implementations are the in-process local service and the RPC client.
//
// Ownership: every *wire.Value, *wire.Buffer and *wire.ConnectionArray
// returned by a service belongs to the caller, who must dispose it exactly
// once. Values passed to SetEntryValue stay owned by the caller.
// All methods are safe for concurrent use.
type IService interface {
	// ResolveEntry returns the handle for a full entry name, creating the
	// handle on first use. Resolving the same name twice yields the same handle.
	ResolveEntry(name string) (h wire.Handle, err error)
	// GetEntryType returns wire.Unassigned if the entry holds no value.
	GetEntryType(h wire.Handle) (t wire.Type, err error)
	// GetEntryLastChange returns the change stamp of the last accepted write, 0 if none.
	GetEntryLastChange(h wire.Handle) (stamp uint64, err error)
	// GetEntryName returns a copy of the full entry name.
	GetEntryName(h wire.Handle) (name []byte, err error)
	// GetEntryValue returns the current value. The value has type
	// wire.Unassigned if the entry holds nothing.
	GetEntryValue(h wire.Handle) (v *wire.Value, err error)
	// SetEntryValue stores v if the entry is unassigned or holds the same type.
	// ok is false if the write was rejected because of a type mismatch.
	// The stamp stored with the value is assigned by the service.
	SetEntryValue(h wire.Handle, v *wire.Value) (ok bool, err error)
	// ListEntries returns the handles of all assigned entries whose name starts
	// with prefix and whose type matches mask (0 matches every type).
	ListEntries(prefix string, mask uint32) (handles *wire.Buffer[wire.Handle], err error)
	// ListConnections returns a snapshot of the current remote peers.
	ListConnections() (conns *wire.ConnectionArray, err error)
	// Now returns the current value of the service clock in change stamp units.
	Now() (stamp uint64, err error)

	// Flush pushes pending state to its destination (peers or persistence).
	Flush() (err error)
	// IsConnected reports connectivity as seen by the implementation: a local
	// service has at least one registered peer, a remote client reached its
	// server with the last request.
	IsConnected() (ok bool)
	// SetNetworkIdentity sets the name this node announces to peers.
	SetNetworkIdentity(name string) (err error)
	// SetUpdateRate sets the interval of periodic flushes.
	SetUpdateRate(d time.Duration) (err error)
	// DeleteAllEntries removes the values of all entries. Handles stay valid.
	DeleteAllEntries() (err error)
	// Allocator returns the allocator that buffers returned by the service are taken from.
	Allocator() *wire.Allocator
	// Close releases the service. Further calls return an error.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ServiceError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is a service error with the same code,
// so errors.Is(err, service.NewError(service.RetCClosed, "")) matches any closed error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new service error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the service or its database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCInvalidHandle                       // 4: The handle was never issued by this service.
	RetCClosed                              // 5: The service was closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCInvalidHandle:
		return "InvalidHandle"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
