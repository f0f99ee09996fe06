package nt

import (
	"fmt"

	"github.com/ValentinKolb/dNT/lib/wire"
)

// --------------------------------------------------------------------------
// EntryType
// --------------------------------------------------------------------------

// EntryType is the type of the value an entry currently holds.
// The numeric values are the wire tags.
type EntryType uint32

const (
	TypeUnassigned   EntryType = EntryType(wire.TypeUnassigned) // No entry exists at the key
	TypeBoolean      EntryType = EntryType(wire.TypeBoolean)
	TypeDouble       EntryType = EntryType(wire.TypeDouble)
	TypeString       EntryType = EntryType(wire.TypeString)
	TypeRaw          EntryType = EntryType(wire.TypeRaw)
	TypeBooleanArray EntryType = EntryType(wire.TypeBooleanArray)
	TypeDoubleArray  EntryType = EntryType(wire.TypeDoubleArray)
	TypeStringArray  EntryType = EntryType(wire.TypeStringArray)
	TypeRpc          EntryType = EntryType(wire.TypeRpc) // Recognized, but has no Value mapping
)

// EntryTypes lists every defined type except TypeUnassigned.
var EntryTypes = []EntryType{
	TypeBoolean, TypeDouble, TypeString, TypeRaw,
	TypeBooleanArray, TypeDoubleArray, TypeStringArray, TypeRpc,
}

// EntryTypeFrom converts a wire tag. It panics on tags outside the defined set,
// which a conforming service never emits.
func EntryTypeFrom(tag wire.Type) EntryType {
	if !tag.Valid() {
		panic(fmt.Sprintf("nt: unknown entry type tag 0x%02x", uint32(tag)))
	}
	return EntryType(tag)
}

// Wire returns the wire tag of t.
func (t EntryType) Wire() wire.Type {
	return wire.Type(t)
}

func (t EntryType) String() string {
	return wire.Type(t).String()
}

// --------------------------------------------------------------------------
// EntryMask
// --------------------------------------------------------------------------

// EntryMask filters entries by type. The zero mask matches every type.
type EntryMask uint32

// MaskAll returns the zero mask, which matches every type.
func MaskAll() EntryMask {
	return 0
}

// NewMask returns a mask matching exactly the given types.
func NewMask(types ...EntryType) EntryMask {
	var m EntryMask
	for _, t := range types {
		m = m.With(t)
	}
	return m
}

// With returns m extended by t.
func (m EntryMask) With(t EntryType) EntryMask {
	return m | EntryMask(t)
}

// Or combines two masks.
func (m EntryMask) Or(o EntryMask) EntryMask {
	return m | o
}

// Matches reports whether an entry of type t passes the filter.
func (m EntryMask) Matches(t EntryType) bool {
	return m == 0 || uint32(m)&uint32(t) != 0
}

// Types returns the types selected by m, nil for the zero mask.
func (m EntryMask) Types() []EntryType {
	var result []EntryType
	for _, t := range EntryTypes {
		if uint32(m)&uint32(t) != 0 {
			result = append(result, t)
		}
	}
	return result
}
