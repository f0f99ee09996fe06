package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dNT/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: MsgType (1 byte), flags (1 byte), then every present field in flag
// order. Strings and byte slices are prefixed with a uint32 length, all
// integers are big endian.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey    byte = 1 << 0
	hasHandle byte = 1 << 1
	hasArg    byte = 1 << 2
	hasValue  byte = 1 << 3
	hasOk     byte = 1 << 4
	hasCode   byte = 1 << 5
	hasErr    byte = 1 << 6
	hasMeta   byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, 2, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags byte
	if msg.Key != "" {
		flags |= hasKey
		result = appendBytes(result, []byte(msg.Key))
	}
	if msg.Handle != 0 {
		flags |= hasHandle
		result = binary.BigEndian.AppendUint32(result, msg.Handle)
	}
	if msg.Arg != 0 {
		flags |= hasArg
		result = binary.BigEndian.AppendUint64(result, msg.Arg)
	}
	// nil and empty values are distinct
	if msg.Value != nil {
		flags |= hasValue
		result = appendBytes(result, msg.Value)
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Code != 0 {
		flags |= hasCode
		result = append(result, msg.Code)
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendBytes(result, []byte(msg.Err))
	}
	if msg.Meta != nil {
		flags |= hasMeta
		result = appendBytes(result, msg.Meta)
	}

	result[1] = flags
	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	r := binaryReader{data: data, pos: 2}

	msg.Key = ""
	if flags&hasKey != 0 {
		key, err := r.bytes("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	}

	msg.Handle = 0
	if flags&hasHandle != 0 {
		if !r.has(4) {
			return fmt.Errorf("data too short for handle")
		}
		msg.Handle = binary.BigEndian.Uint32(data[r.pos:])
		r.pos += 4
	}

	msg.Arg = 0
	if flags&hasArg != 0 {
		if !r.has(8) {
			return fmt.Errorf("data too short for arg")
		}
		msg.Arg = binary.BigEndian.Uint64(data[r.pos:])
		r.pos += 8
	}

	msg.Value = nil
	if flags&hasValue != 0 {
		value, err := r.bytes("value")
		if err != nil {
			return err
		}
		msg.Value = append(make([]byte, 0, len(value)), value...)
	}

	msg.Ok = flags&hasOk != 0

	msg.Code = 0
	if flags&hasCode != 0 {
		if !r.has(1) {
			return fmt.Errorf("data too short for code")
		}
		msg.Code = data[r.pos]
		r.pos++
	}

	msg.Err = ""
	if flags&hasErr != 0 {
		e, err := r.bytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(e)
	}

	msg.Meta = nil
	if flags&hasMeta != 0 {
		meta, err := r.bytes("meta")
		if err != nil {
			return err
		}
		msg.Meta = append(make([]byte, 0, len(meta)), meta...)
	}

	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := 2
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Handle != 0 {
		size += 4
	}
	if msg.Arg != 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Code != 0 {
		size++
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}
	return size
}

func appendBytes(dst, src []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(src)))
	return append(dst, src...)
}

type binaryReader struct {
	data []byte
	pos  int
}

func (r *binaryReader) has(n int) bool {
	return r.pos+n <= len(r.data)
}

// bytes reads a length prefixed field. The result aliases the input.
func (r *binaryReader) bytes(field string) ([]byte, error) {
	if !r.has(4) {
		return nil, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	if n < 0 || !r.has(n) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
