package nt

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType is returned when an entry holds a type that has no
	// Value mapping (Rpc).
	ErrUnsupportedType = errors.New("nt: unsupported entry type")

	// ErrServiceUnavailable wraps failures of the underlying service, e.g. a
	// broken connection to a remote server.
	ErrServiceUnavailable = errors.New("nt: service unavailable")

	// ErrNilValue is returned by SetValue when called with a nil Value.
	ErrNilValue = errors.New("nt: nil value")
)

// TypeMismatchError is returned when the service rejects a write because the
// entry holds a different type. Current is the type the entry holds.
type TypeMismatchError struct {
	Current EntryType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("nt: type mismatch, entry holds %s", e.Current)
}

func serviceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrServiceUnavailable, op, err)
}
