package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key    string `json:"key,omitempty"`    // Used for: SetIdentity, Hello
	Handle uint32 `json:"handle,omitempty"` // Used for: all per-entry operations
	Arg    uint64 `json:"arg,omitempty"`    // Used for: List (mask), Hello (protocol version), responses carrying a stamp, type or handle
	Value  []byte `json:"value,omitempty"`  // Used for: Resolve and List (name bytes), SetValue (request), GetValue, GetName, List, ListConnections (response)

	// Response only fields
	Ok   bool   `json:"ok,omitempty"`   // Used for: SetValue responses
	Code uint8  `json:"code,omitempty"` // service.RetCode of a failed operation
	Err  string `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Identity of the calling client
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewHelloRequest announces a client identity and its protocol version
func NewHelloRequest(identity string, protocolVersion uint32) *Message {
	return &Message{
		MsgType: MsgTHello,
		Key:     identity,
		Arg:     uint64(protocolVersion),
	}
}

// NewResolveRequest creates a new ResolveEntry request. Names are not
// required to be valid UTF-8, so they travel as bytes.
func NewResolveRequest(name string) *Message {
	return &Message{
		MsgType: MsgTNTResolve,
		Value:   []byte(name),
	}
}

// NewHandleRequest creates a request for one of the per-entry read operations
// (GetType, GetLastChange, GetName, GetValue)
func NewHandleRequest(t MessageType, handle uint32) *Message {
	return &Message{
		MsgType: t,
		Handle:  handle,
	}
}

// NewSetValueRequest creates a new SetEntryValue request. value holds the
// wire encoding of the value.
func NewSetValueRequest(handle uint32, value []byte) *Message {
	return &Message{
		MsgType: MsgTNTSetValue,
		Handle:  handle,
		Value:   value,
	}
}

// NewListRequest creates a new ListEntries request
func NewListRequest(prefix string, mask uint32) *Message {
	return &Message{
		MsgType: MsgTNTList,
		Value:   []byte(prefix),
		Arg:     uint64(mask),
	}
}

// NewSetIdentityRequest creates a new SetIdentity request
func NewSetIdentityRequest(identity string) *Message {
	return &Message{
		MsgType: MsgTNTSetIdentity,
		Key:     identity,
	}
}

// NewControlRequest creates a request without arguments
// (ListConnections, Now, Flush, DeleteAll)
func NewControlRequest(t MessageType) *Message {
	return &Message{
		MsgType: t,
	}
}

// NewResponse creates a response of the given type
func NewResponse(t MessageType, err error) *Message {
	msg := &Message{
		MsgType: t,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewArgResponse creates a response carrying a numeric result
func NewArgResponse(t MessageType, arg uint64, err error) *Message {
	msg := NewResponse(t, err)
	msg.Arg = arg
	return msg
}

// NewValueResponse creates a response carrying a byte payload
func NewValueResponse(t MessageType, value []byte, err error) *Message {
	msg := NewResponse(t, err)
	msg.Value = value
	return msg
}

// NewSetValueResponse creates a new SetEntryValue response
func NewSetValueResponse(ok bool, err error) *Message {
	msg := NewResponse(MsgTNTSetValue, err)
	msg.Ok = ok
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTSuccess:
		return "success"
	case MsgTError:
		return "error"
	case MsgTHello:
		return "hello"
	case MsgTNTResolve:
		return "resolve"
	case MsgTNTGetType:
		return "getType"
	case MsgTNTGetLastChange:
		return "getLastChange"
	case MsgTNTGetName:
		return "getName"
	case MsgTNTGetValue:
		return "getValue"
	case MsgTNTSetValue:
		return "setValue"
	case MsgTNTList:
		return "list"
	case MsgTNTListConnections:
		return "listConnections"
	case MsgTNTNow:
		return "now"
	case MsgTNTFlush:
		return "flush"
	case MsgTNTDeleteAll:
		return "deleteAll"
	case MsgTNTSetIdentity:
		return "setIdentity"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for candidate := MsgTSuccess; candidate <= msgTLast; candidate++ {
		if candidate.String() == s {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred
	MsgTHello               // Registers the calling client as a peer

	// Entry operations

	MsgTNTResolve       // Resolve a name to a handle
	MsgTNTGetType       // Type of an entry
	MsgTNTGetLastChange // Change stamp of an entry
	MsgTNTGetName       // Name of an entry
	MsgTNTGetValue      // Value of an entry
	MsgTNTSetValue      // Type-checked write of an entry
	MsgTNTList          // Handles of entries matching prefix and mask

	// Instance operations

	MsgTNTListConnections // Snapshot of connected peers
	MsgTNTNow             // Current server clock
	MsgTNTFlush           // Persist pending changes
	MsgTNTDeleteAll       // Delete all values
	MsgTNTSetIdentity     // Rename the calling client

	msgTLast = MsgTNTSetIdentity
)
