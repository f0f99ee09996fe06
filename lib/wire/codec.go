package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// --------------------------------------------------------------------------
// Value Codec
// --------------------------------------------------------------------------

/*
	Encoded value layout (all integers big endian):

	1 byte  type tag
	8 bytes last change
	payload, depending on the tag:
	  Boolean       1 byte (0 or 1)
	  Double        8 bytes (IEEE 754 bits)
	  String/Raw/Rpc 4 bytes length + N bytes
	  BooleanArray  4 bytes count + count bytes
	  DoubleArray   4 bytes count + count*8 bytes
	  StringArray   4 bytes count + count*(4 bytes length + N bytes)
	  Unassigned    no payload
*/

const headerSize = 1 + 8

// SizeBytes returns the exact number of bytes Encode produces for v.
func SizeBytes(v *Value) int {
	size := headerSize
	switch v.Type {
	case TypeBoolean:
		size += 1
	case TypeDouble:
		size += 8
	case TypeString, TypeRaw, TypeRpc:
		size += 4 + v.Data.String.Len()
	case TypeBooleanArray:
		size += 4 + v.Data.BoolArray.Len()
	case TypeDoubleArray:
		size += 4 + 8*v.Data.DoubleArray.Len()
	case TypeStringArray:
		size += 4
		for _, s := range v.Data.StringArray.Data() {
			size += 4 + s.Len()
		}
	}
	return size
}

// Encode serializes a wire value. The value is only read, ownership stays with the caller.
func Encode(v *Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot encode nil value")
	}
	if !v.Type.Valid() {
		return nil, fmt.Errorf("cannot encode value with unknown type %s", v.Type)
	}

	result := make([]byte, SizeBytes(v))
	result[0] = byte(v.Type)
	binary.BigEndian.PutUint64(result[1:9], v.LastChange)
	pos := headerSize

	putBytes := func(b []byte) {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(b)))
		pos += 4
		copy(result[pos:pos+len(b)], b)
		pos += len(b)
	}

	switch v.Type {
	case TypeBoolean:
		if v.Data.Boolean != 0 {
			result[pos] = 1
		}
	case TypeDouble:
		binary.BigEndian.PutUint64(result[pos:pos+8], math.Float64bits(v.Data.Double))
	case TypeString, TypeRaw, TypeRpc:
		putBytes(v.Data.String.Data())
	case TypeBooleanArray:
		arr := v.Data.BoolArray.Data()
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(arr)))
		pos += 4
		for _, b := range arr {
			if b != 0 {
				result[pos] = 1
			}
			pos++
		}
	case TypeDoubleArray:
		arr := v.Data.DoubleArray.Data()
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(arr)))
		pos += 4
		for _, d := range arr {
			binary.BigEndian.PutUint64(result[pos:pos+8], math.Float64bits(d))
			pos += 8
		}
	case TypeStringArray:
		arr := v.Data.StringArray.Data()
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(arr)))
		pos += 4
		for _, s := range arr {
			putBytes(s.Data())
		}
	}

	return result, nil
}

// PeekHeader reads the type tag and change stamp without decoding the payload.
func PeekHeader(data []byte) (Type, uint64, error) {
	if len(data) < headerSize {
		return TypeUnassigned, 0, fmt.Errorf("data too short for value header")
	}
	t := Type(data[0])
	if !t.Valid() {
		return TypeUnassigned, 0, fmt.Errorf("unknown type tag 0x%02x", data[0])
	}
	return t, binary.BigEndian.Uint64(data[1:9]), nil
}

// Decode parses an encoded value, allocating every payload buffer from a.
// On error all buffers allocated so far are released again.
func Decode(data []byte, a *Allocator) (*Value, error) {
	t, lastChange, err := PeekHeader(data)
	if err != nil {
		return nil, err
	}

	v := &Value{Type: t, LastChange: lastChange}
	r := reader{data: data, pos: headerSize}

	switch t {
	case TypeBoolean:
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		v.Data.Boolean = BoolOf(b != 0)
	case TypeDouble:
		bits, err := r.readUint64()
		if err != nil {
			return nil, err
		}
		v.Data.Double = math.Float64frombits(bits)
	case TypeString, TypeRaw, TypeRpc:
		b, err := r.readBytes()
		if err != nil {
			return nil, err
		}
		v.Data.String = AllocFrom(a, b)
	case TypeBooleanArray:
		n, err := r.readCount(1)
		if err != nil {
			return nil, err
		}
		v.Data.BoolArray = Alloc[Bool](a, n)
		arr := v.Data.BoolArray.Data()
		for i := range arr {
			b, _ := r.readByte()
			arr[i] = BoolOf(b != 0)
		}
	case TypeDoubleArray:
		n, err := r.readCount(8)
		if err != nil {
			return nil, err
		}
		v.Data.DoubleArray = Alloc[float64](a, n)
		arr := v.Data.DoubleArray.Data()
		for i := range arr {
			bits, _ := r.readUint64()
			arr[i] = math.Float64frombits(bits)
		}
	case TypeStringArray:
		n, err := r.readCount(4)
		if err != nil {
			return nil, err
		}
		v.Data.StringArray = Alloc[*Buffer[byte]](a, n)
		arr := v.Data.StringArray.Data()
		for i := range arr {
			b, err := r.readBytes()
			if err != nil {
				v.Dispose()
				return nil, err
			}
			arr[i] = AllocFrom(a, b)
		}
	}

	if r.pos != len(data) {
		v.Dispose()
		return nil, fmt.Errorf("%d trailing bytes after %s value", len(data)-r.pos, t)
	}

	return v, nil
}

// --------------------------------------------------------------------------
// Handle and Connection Array Codec
// --------------------------------------------------------------------------

// EncodeHandles serializes a list of handles as a count followed by 4 bytes per handle.
func EncodeHandles(handles []Handle) []byte {
	result := make([]byte, 4+4*len(handles))
	binary.BigEndian.PutUint32(result[0:4], uint32(len(handles)))
	for i, h := range handles {
		binary.BigEndian.PutUint32(result[4+4*i:8+4*i], uint32(h))
	}
	return result
}

// DecodeHandles parses the output of EncodeHandles into a buffer allocated from a.
func DecodeHandles(data []byte, a *Allocator) (*Buffer[Handle], error) {
	r := reader{data: data}
	n, err := r.readCount(4)
	if err != nil {
		return nil, err
	}
	if r.pos+4*n != len(data) {
		return nil, fmt.Errorf("handle array length mismatch")
	}
	buf := Alloc[Handle](a, n)
	arr := buf.Data()
	for i := range arr {
		h, _ := r.readUint32()
		arr[i] = Handle(h)
	}
	return buf, nil
}

// EncodeConnections serializes a connection array.
func EncodeConnections(c *ConnectionArray) []byte {
	size := 4
	for _, info := range c.Data() {
		size += 4 + info.RemoteID.Len() + 4 + info.RemoteIP.Len() + 4 + 8 + 4
	}

	result := make([]byte, size)
	binary.BigEndian.PutUint32(result[0:4], uint32(c.Len()))
	pos := 4

	putBytes := func(b []byte) {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(b)))
		pos += 4
		copy(result[pos:pos+len(b)], b)
		pos += len(b)
	}

	for _, info := range c.Data() {
		putBytes(info.RemoteID.Data())
		putBytes(info.RemoteIP.Data())
		binary.BigEndian.PutUint32(result[pos:pos+4], info.RemotePort)
		binary.BigEndian.PutUint64(result[pos+4:pos+12], info.LastUpdate)
		binary.BigEndian.PutUint32(result[pos+12:pos+16], info.ProtocolVersion)
		pos += 16
	}

	return result
}

// DecodeConnections parses the output of EncodeConnections into an array allocated from a.
func DecodeConnections(data []byte, a *Allocator) (*ConnectionArray, error) {
	r := reader{data: data}
	n, err := r.readCount(4 + 4 + 16)
	if err != nil {
		return nil, err
	}

	arr := NewConnectionArray(a, n)
	for i := 0; i < n; i++ {
		id, err := r.readBytes()
		if err != nil {
			arr.Dispose()
			return nil, err
		}
		ip, err := r.readBytes()
		if err != nil {
			arr.Dispose()
			return nil, err
		}
		port, err := r.readUint32()
		if err != nil {
			arr.Dispose()
			return nil, err
		}
		lastUpdate, err := r.readUint64()
		if err != nil {
			arr.Dispose()
			return nil, err
		}
		version, err := r.readUint32()
		if err != nil {
			arr.Dispose()
			return nil, err
		}
		arr.Set(i, string(id), string(ip), port, lastUpdate, version)
	}

	return arr, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// reader is a bounds checked cursor over encoded data
type reader struct {
	data []byte
	pos  int
}

func (r *reader) readByte() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("data too short at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// readBytes reads a length prefixed byte slice (aliasing the input)
func (r *reader) readBytes() ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.data) {
		return nil, fmt.Errorf("data too short for %d bytes at offset %d", n, r.pos)
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

// readCount reads an element count and checks that at least minSize bytes per
// element remain, so a corrupt count cannot trigger a huge allocation
func (r *reader) readCount(minSize int) (int, error) {
	n, err := r.readUint32()
	if err != nil {
		return 0, err
	}
	if (len(r.data)-r.pos)/minSize < int(n) {
		return 0, fmt.Errorf("element count %d exceeds remaining data", n)
	}
	return int(n), nil
}
