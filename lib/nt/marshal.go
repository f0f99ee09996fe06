package nt

import (
	"fmt"
	"unicode/utf8"

	"github.com/ValentinKolb/dNT/lib/wire"
)

// ToWire converts v into a wire record stamped with lastChange. String, Raw
// and every array payload are copied into buffers taken from a.
//
// The caller owns the result and must Dispose it exactly once, after the
// consumer has read it. ToWire panics if v is nil.
func ToWire(v Value, lastChange NetworkTime, a *wire.Allocator) *wire.Value {
	w := &wire.Value{LastChange: uint64(lastChange)}

	switch x := v.(type) {
	case Bool:
		w.Type = wire.TypeBoolean
		w.Data.Boolean = wire.BoolOf(bool(x))
	case Double:
		w.Type = wire.TypeDouble
		w.Data.Double = float64(x)
	case String:
		w.Type = wire.TypeString
		w.Data.String = wire.NewString(a, string(x))
	case Raw:
		w.Type = wire.TypeRaw
		w.Data.String = wire.AllocFrom(a, []byte(x))
	case BoolArray:
		// one 32-bit flag per element
		w.Type = wire.TypeBooleanArray
		w.Data.BoolArray = wire.Alloc[wire.Bool](a, len(x))
		flags := w.Data.BoolArray.Data()
		for i, b := range x {
			flags[i] = wire.BoolOf(b)
		}
	case DoubleArray:
		w.Type = wire.TypeDoubleArray
		w.Data.DoubleArray = wire.AllocFrom(a, []float64(x))
	case StringArray:
		w.Type = wire.TypeStringArray
		w.Data.StringArray = wire.Alloc[*wire.Buffer[byte]](a, len(x))
		elems := w.Data.StringArray.Data()
		for i, s := range x {
			elems[i] = wire.NewString(a, s)
		}
	default:
		panic(fmt.Sprintf("nt: cannot convert %T to a wire value", v))
	}

	return w
}

// FromWire deep-copies a wire record into an owned Value. The record stays
// owned by the caller, who must dispose it whatever FromWire returns.
//
// Reading an unassigned record or a string that is not valid UTF-8 violates
// the service contract and panics. Rpc records return ErrUnsupportedType.
func FromWire(w *wire.Value) (Value, error) {
	switch EntryTypeFrom(w.Type) {
	case TypeUnassigned:
		panic("nt: value read from an unassigned entry")
	case TypeRpc:
		return nil, ErrUnsupportedType
	case TypeBoolean:
		return Bool(w.Data.Boolean != 0), nil
	case TypeDouble:
		return Double(w.Data.Double), nil
	case TypeString:
		return String(validUTF8(w.Data.String.Data())), nil
	case TypeRaw:
		src := w.Data.String.Data()
		out := make(Raw, len(src))
		copy(out, src)
		return out, nil
	case TypeBooleanArray:
		src := w.Data.BoolArray.Data()
		out := make(BoolArray, len(src))
		for i, b := range src {
			out[i] = b != 0
		}
		return out, nil
	case TypeDoubleArray:
		src := w.Data.DoubleArray.Data()
		out := make(DoubleArray, len(src))
		copy(out, src)
		return out, nil
	case TypeStringArray:
		src := w.Data.StringArray.Data()
		out := make(StringArray, len(src))
		for i, s := range src {
			out[i] = validUTF8(s.Data())
		}
		return out, nil
	}
	panic("unreachable")
}

// validUTF8 copies b into a string, panicking if it is not valid UTF-8.
func validUTF8(b []byte) string {
	if !utf8.Valid(b) {
		panic(fmt.Sprintf("nt: service returned invalid UTF-8 string %q", b))
	}
	return string(b)
}
