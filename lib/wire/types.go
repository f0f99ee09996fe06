package wire

import "fmt"

// --------------------------------------------------------------------------
// Type Tags
// --------------------------------------------------------------------------

// Type is the tag of a wire value. The numeric values are part of the wire
// format and double as bits of an entry type mask.
type Type uint32

const (
	TypeUnassigned   Type = 0x00 // No entry exists at the key
	TypeBoolean      Type = 0x01
	TypeDouble       Type = 0x02
	TypeString       Type = 0x04
	TypeRaw          Type = 0x08
	TypeBooleanArray Type = 0x10
	TypeDoubleArray  Type = 0x20
	TypeStringArray  Type = 0x40
	TypeRpc          Type = 0x80
)

// Valid reports whether t is one of the defined tags.
func (t Type) Valid() bool {
	switch t {
	case TypeUnassigned, TypeBoolean, TypeDouble, TypeString, TypeRaw,
		TypeBooleanArray, TypeDoubleArray, TypeStringArray, TypeRpc:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t {
	case TypeUnassigned:
		return "Unassigned"
	case TypeBoolean:
		return "Boolean"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	case TypeRaw:
		return "Raw"
	case TypeBooleanArray:
		return "BooleanArray"
	case TypeDoubleArray:
		return "DoubleArray"
	case TypeStringArray:
		return "StringArray"
	case TypeRpc:
		return "Rpc"
	default:
		return fmt.Sprintf("Type(0x%02x)", uint32(t))
	}
}

// --------------------------------------------------------------------------
// Handles
// --------------------------------------------------------------------------

// Handle identifies a resolved entry inside one service instance.
// The zero handle is never handed out and marks a failed resolution.
type Handle uint32

// InvalidHandle is returned when a name could not be resolved.
const InvalidHandle Handle = 0

// Bool is the wide boolean flag used by the wire format: one 32-bit word per
// boolean, 0 for false and 1 for true.
type Bool int32

// BoolOf converts a native bool into its wire flag.
func BoolOf(b bool) Bool {
	if b {
		return 1
	}
	return 0
}
