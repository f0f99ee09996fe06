package nt

import (
	"iter"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dNT/lib/wire"
)

// ConnectionSnapshot owns a connection array returned by the service.
// Close releases it; every ConnectionInfo taken from the snapshot becomes
// invalid at that point and panics when used.
type ConnectionSnapshot struct {
	arr    *wire.ConnectionArray
	closed atomic.Bool
	once   sync.Once
}

func newConnectionSnapshot(arr *wire.ConnectionArray) *ConnectionSnapshot {
	return &ConnectionSnapshot{arr: arr}
}

// Close releases the backing array. Calling Close more than once is safe,
// the array is disposed only once.
func (s *ConnectionSnapshot) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.arr.Dispose()
	})
}

func (s *ConnectionSnapshot) checkOpen() {
	if s.closed.Load() {
		panic("nt: use of closed connection snapshot")
	}
}

// Len returns the number of connections.
func (s *ConnectionSnapshot) Len() int {
	s.checkOpen()
	return s.arr.Len()
}

// At returns a view of the i-th connection.
func (s *ConnectionSnapshot) At(i int) ConnectionInfo {
	s.checkOpen()
	if i < 0 || i >= s.arr.Len() {
		panic("nt: connection index out of range")
	}
	return ConnectionInfo{snap: s, idx: i}
}

// All iterates over the connections in order.
func (s *ConnectionSnapshot) All() iter.Seq2[int, ConnectionInfo] {
	return func(yield func(int, ConnectionInfo) bool) {
		for i := 0; i < s.Len(); i++ {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}

// Details copies every connection out of the snapshot.
func (s *ConnectionSnapshot) Details() []ConnectionDetails {
	result := make([]ConnectionDetails, 0, s.Len())
	for _, c := range s.All() {
		result = append(result, c.Details())
	}
	return result
}

// ConnectionInfo is a read-only view of one connection. It is only valid
// while its snapshot is open.
type ConnectionInfo struct {
	snap *ConnectionSnapshot
	idx  int
}

func (c ConnectionInfo) info() *wire.ConnectionInfo {
	c.snap.checkOpen()
	return &c.snap.arr.Data()[c.idx]
}

// RemoteID returns the network identity of the peer.
func (c ConnectionInfo) RemoteID() string {
	return wire.StringOf(c.info().RemoteID)
}

// RemoteIPString returns the remote address as reported by the service.
func (c ConnectionInfo) RemoteIPString() string {
	return wire.StringOf(c.info().RemoteIP)
}

// RemoteIP parses the remote address.
func (c ConnectionInfo) RemoteIP() (netip.Addr, error) {
	return netip.ParseAddr(c.RemoteIPString())
}

func (c ConnectionInfo) RemotePort() uint32 {
	return c.info().RemotePort
}

// LastUpdate returns the stamp of the last message received from the peer.
func (c ConnectionInfo) LastUpdate() NetworkTime {
	return NetworkTime(c.info().LastUpdate)
}

func (c ConnectionInfo) ProtocolVersion() uint32 {
	return c.info().ProtocolVersion
}

// Details copies the connection into an owned value that outlives the snapshot.
func (c ConnectionInfo) Details() ConnectionDetails {
	return ConnectionDetails{
		RemoteID:        c.RemoteID(),
		RemoteIP:        c.RemoteIPString(),
		RemotePort:      c.RemotePort(),
		LastUpdate:      c.LastUpdate(),
		ProtocolVersion: c.ProtocolVersion(),
	}
}

// ConnectionDetails is an owned copy of a connection descriptor.
type ConnectionDetails struct {
	RemoteID        string      `json:"remote_id" yaml:"remote_id"`
	RemoteIP        string      `json:"remote_ip" yaml:"remote_ip"`
	RemotePort      uint32      `json:"remote_port" yaml:"remote_port"`
	LastUpdate      NetworkTime `json:"last_update" yaml:"last_update"`
	ProtocolVersion uint32      `json:"protocol_version" yaml:"protocol_version"`
}
