package nt

import (
	"bytes"
	"fmt"
	"math"
	"slices"
)

// Value is a typed network table value. It is one of Bool, BoolArray,
// Double, DoubleArray, String, StringArray or Raw. A Value owns its data;
// values returned by this package never alias service memory.
type Value interface {
	// Type returns the entry type the value is stored as.
	Type() EntryType
	isValue()
}

type (
	Bool        bool
	BoolArray   []bool
	Double      float64
	DoubleArray []float64
	String      string
	StringArray []string
	Raw         []byte
)

func (Bool) Type() EntryType        { return TypeBoolean }
func (BoolArray) Type() EntryType   { return TypeBooleanArray }
func (Double) Type() EntryType      { return TypeDouble }
func (DoubleArray) Type() EntryType { return TypeDoubleArray }
func (String) Type() EntryType      { return TypeString }
func (StringArray) Type() EntryType { return TypeStringArray }
func (Raw) Type() EntryType         { return TypeRaw }

func (Bool) isValue()        {}
func (BoolArray) isValue()   {}
func (Double) isValue()      {}
func (DoubleArray) isValue() {}
func (String) isValue()      {}
func (StringArray) isValue() {}
func (Raw) isValue()         {}

// --------------------------------------------------------------------------
// Map operations
// --------------------------------------------------------------------------

// MapBool applies fn if v is a Bool and returns v unchanged otherwise.
func MapBool(v Value, fn func(bool) bool) Value {
	if b, ok := v.(Bool); ok {
		return Bool(fn(bool(b)))
	}
	return v
}

// MapDouble applies fn if v is a Double and returns v unchanged otherwise.
func MapDouble(v Value, fn func(float64) float64) Value {
	if d, ok := v.(Double); ok {
		return Double(fn(float64(d)))
	}
	return v
}

// MapString applies fn if v is a String and returns v unchanged otherwise.
func MapString(v Value, fn func(string) string) Value {
	if s, ok := v.(String); ok {
		return String(fn(string(s)))
	}
	return v
}

// MapRaw applies fn if v is Raw and returns v unchanged otherwise.
func MapRaw(v Value, fn func([]byte) []byte) Value {
	if r, ok := v.(Raw); ok {
		return Raw(fn([]byte(r)))
	}
	return v
}

// MapBoolArray applies fn if v is a BoolArray and returns v unchanged otherwise.
func MapBoolArray(v Value, fn func([]bool) []bool) Value {
	if a, ok := v.(BoolArray); ok {
		return BoolArray(fn([]bool(a)))
	}
	return v
}

// MapDoubleArray applies fn if v is a DoubleArray and returns v unchanged otherwise.
func MapDoubleArray(v Value, fn func([]float64) []float64) Value {
	if a, ok := v.(DoubleArray); ok {
		return DoubleArray(fn([]float64(a)))
	}
	return v
}

// MapStringArray applies fn if v is a StringArray and returns v unchanged otherwise.
func MapStringArray(v Value, fn func([]string) []string) Value {
	if a, ok := v.(StringArray); ok {
		return StringArray(fn([]string(a)))
	}
	return v
}

// --------------------------------------------------------------------------
// Comparison and conversion
// --------------------------------------------------------------------------

// Equal reports whether a and b are the same variant with equal payloads.
// A nil and an empty sequence are equal, and NaN equals NaN.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Double:
		y, ok := b.(Double)
		return ok && sameFloat(float64(x), float64(y))
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Raw:
		y, ok := b.(Raw)
		return ok && bytes.Equal(x, y)
	case BoolArray:
		y, ok := b.(BoolArray)
		return ok && slices.Equal(x, y)
	case DoubleArray:
		y, ok := b.(DoubleArray)
		return ok && slices.EqualFunc(x, y, sameFloat)
	case StringArray:
		y, ok := b.(StringArray)
		return ok && slices.Equal(x, y)
	}
	return false
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// Native returns the payload of v as a plain Go value
// (bool, []bool, float64, []float64, string, []string or []byte).
func Native(v Value) any {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case BoolArray:
		return []bool(x)
	case Double:
		return float64(x)
	case DoubleArray:
		return []float64(x)
	case String:
		return string(x)
	case StringArray:
		return []string(x)
	case Raw:
		return []byte(x)
	}
	return nil
}

// FromNative converts a plain Go value into a Value. Integers become Doubles
// and []any is accepted if all elements share one scalar kind.
func FromNative(x any) (Value, error) {
	switch v := x.(type) {
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case float64:
		return Double(v), nil
	case float32:
		return Double(v), nil
	case int:
		return Double(v), nil
	case int64:
		return Double(v), nil
	case uint64:
		return Double(v), nil
	case string:
		return String(v), nil
	case []byte:
		return Raw(slices.Clone(v)), nil
	case []bool:
		return BoolArray(slices.Clone(v)), nil
	case []float64:
		return DoubleArray(slices.Clone(v)), nil
	case []string:
		return StringArray(slices.Clone(v)), nil
	case []any:
		return fromAnySlice(v)
	}
	return nil, fmt.Errorf("nt: cannot convert %T to a value", x)
}

func fromAnySlice(items []any) (Value, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("nt: cannot infer the type of an empty array")
	}
	first, err := FromNative(items[0])
	if err != nil {
		return nil, err
	}

	switch first.(type) {
	case Bool:
		out := make(BoolArray, len(items))
		for i, item := range items {
			b, ok := item.(bool)
			if !ok {
				return nil, fmt.Errorf("nt: mixed array, element %d is %T", i, item)
			}
			out[i] = b
		}
		return out, nil
	case Double:
		out := make(DoubleArray, len(items))
		for i, item := range items {
			d, err := FromNative(item)
			if err != nil {
				return nil, err
			}
			f, ok := d.(Double)
			if !ok {
				return nil, fmt.Errorf("nt: mixed array, element %d is %T", i, item)
			}
			out[i] = float64(f)
		}
		return out, nil
	case String:
		out := make(StringArray, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("nt: mixed array, element %d is %T", i, item)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("nt: unsupported array element %T", items[0])
}
