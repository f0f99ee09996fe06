package wire

// --------------------------------------------------------------------------
// Tagged Union
// --------------------------------------------------------------------------

// Value is the tagged-union record exchanged with a service.
// Type selects which member of Data is meaningful; the other members are zero.
// String, Raw and Rpc payloads share Data.String.
type Value struct {
	Type       Type
	LastChange uint64
	Data       Data

	disposed bool
}

// Data holds the payload of a Value. Scalars are embedded, everything else
// lives in buffers owned by the Value.
type Data struct {
	Boolean     Bool
	Double      float64
	String      *Buffer[byte]
	BoolArray   *Buffer[Bool]
	DoubleArray *Buffer[float64]
	StringArray *Buffer[*Buffer[byte]]
}

// Dispose releases every buffer referenced by the value. It must be called
// exactly once per value, regardless of its type.
func (v *Value) Dispose() {
	if v == nil {
		return
	}
	if v.disposed {
		panic("wire: value disposed twice")
	}
	v.disposed = true

	switch v.Type {
	case TypeString, TypeRaw, TypeRpc:
		v.Data.String.Dispose()
	case TypeBooleanArray:
		v.Data.BoolArray.Dispose()
	case TypeDoubleArray:
		v.Data.DoubleArray.Dispose()
	case TypeStringArray:
		if v.Data.StringArray != nil {
			for _, s := range v.Data.StringArray.Data() {
				s.Dispose()
			}
			v.Data.StringArray.Dispose()
		}
	}
	v.Data = Data{}
}

// Disposed reports whether Dispose was already called.
func (v *Value) Disposed() bool {
	return v.disposed
}
