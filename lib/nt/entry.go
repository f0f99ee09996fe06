package nt

import (
	"errors"
	"unicode/utf8"

	"github.com/ValentinKolb/dNT/lib/wire"
)

// Entry is a resolved handle to a key of the network table. It holds no
// buffers and can be copied, compared and used as a map key freely.
//
// Resolving always succeeds, also for keys that were never written:
// existence is a property of the current type, not of the handle.
// The zero Entry is not usable.
type Entry struct {
	inst   *Instance
	handle wire.Handle
}

// Handle returns the service handle of the entry.
func (e Entry) Handle() wire.Handle {
	return e.handle
}

// Instance returns the instance the entry was resolved against.
func (e Entry) Instance() *Instance {
	return e.inst
}

// Type returns the type of the current value, TypeUnassigned if there is none.
// Service failures are logged and reported as TypeUnassigned.
func (e Entry) Type() EntryType {
	t, err := e.inst.svc.GetEntryType(e.handle)
	if err != nil {
		Logger.Warningf("reading type of entry %d: %v", e.handle, err)
		return TypeUnassigned
	}
	return EntryTypeFrom(t)
}

// Exists reports whether the entry currently holds a value.
func (e Entry) Exists() bool {
	return e.Type() != TypeUnassigned
}

// LastChanged returns the stamp of the last accepted write (0 if none).
func (e Entry) LastChanged() NetworkTime {
	stamp, err := e.inst.svc.GetEntryLastChange(e.handle)
	if err != nil {
		Logger.Warningf("reading last change of entry %d: %v", e.handle, err)
		return 0
	}
	return NetworkTime(stamp)
}

// NameBytes returns the raw name of the entry, nil on service failure.
func (e Entry) NameBytes() []byte {
	name, err := e.inst.svc.GetEntryName(e.handle)
	if err != nil {
		Logger.Warningf("reading name of entry %d: %v", e.handle, err)
		return nil
	}
	return name
}

// Name returns the full name of the entry. ok is false if the name is not
// valid UTF-8 or could not be read.
func (e Entry) Name() (name string, ok bool) {
	b := e.NameBytes()
	if b == nil || !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// GetValue returns a snapshot of the current value, or nil if the entry
// holds none. ErrUnsupportedType is returned for Rpc entries.
func (e Entry) GetValue() (Value, error) {
	w, err := e.inst.svc.GetEntryValue(e.handle)
	if err != nil {
		return nil, serviceError("get value", err)
	}
	defer w.Dispose()

	if w.Type == wire.TypeUnassigned {
		return nil, nil
	}
	return FromWire(w)
}

// SetValue submits v. The service assigns the change stamp.
// If the entry holds a value of another type the write is rejected with a
// *TypeMismatchError carrying that type.
func (e Entry) SetValue(v Value) error {
	if v == nil {
		return ErrNilValue
	}

	w := ToWire(v, 0, e.inst.svc.Allocator())
	defer w.Dispose()

	ok, err := e.inst.svc.SetEntryValue(e.handle, w)
	if err != nil {
		return serviceError("set value", err)
	}
	if !ok {
		return &TypeMismatchError{Current: e.Type()}
	}
	return nil
}

// Edit reads the current value, applies fn and writes the result back.
// There is no compare-and-swap, concurrent editors race and the last write wins.
//
// Edit returns false if the entry held no readable value (fn is not called)
// and true once a write was attempted. The outcome of the write is not
// reported; use GetValue and SetValue when it matters.
func (e Entry) Edit(fn func(Value) Value) bool {
	v, err := e.GetValue()
	if err != nil {
		if !errors.Is(err, ErrUnsupportedType) {
			Logger.Warningf("edit of entry %d: %v", e.handle, err)
		}
		return false
	}
	if v == nil {
		return false
	}

	if err := e.SetValue(fn(v)); err != nil {
		Logger.Debugf("edit of entry %d not applied: %v", e.handle, err)
	}
	return true
}
