package wire

// ConnectionInfo describes one peer connection. Its strings are owned by the
// ConnectionArray that contains it.
type ConnectionInfo struct {
	RemoteID        *Buffer[byte]
	RemoteIP        *Buffer[byte]
	RemotePort      uint32
	LastUpdate      uint64
	ProtocolVersion uint32
}

// ConnectionArray is a service-allocated array of connection descriptors.
type ConnectionArray struct {
	alloc *Allocator
	buf   *Buffer[ConnectionInfo]
}

// NewConnectionArray allocates an array of n empty descriptors.
func NewConnectionArray(a *Allocator, n int) *ConnectionArray {
	return &ConnectionArray{alloc: a, buf: Alloc[ConnectionInfo](a, n)}
}

// Set fills slot i, allocating the string fields from the array's allocator.
func (c *ConnectionArray) Set(i int, remoteID, remoteIP string, port uint32, lastUpdate uint64, protocolVersion uint32) {
	slot := &c.buf.Data()[i]
	slot.RemoteID.Dispose()
	slot.RemoteIP.Dispose()
	*slot = ConnectionInfo{
		RemoteID:        NewString(c.alloc, remoteID),
		RemoteIP:        NewString(c.alloc, remoteIP),
		RemotePort:      port,
		LastUpdate:      lastUpdate,
		ProtocolVersion: protocolVersion,
	}
}

// Len returns the number of descriptors.
func (c *ConnectionArray) Len() int {
	if c == nil {
		return 0
	}
	return c.buf.Len()
}

// Data returns the descriptors. Valid until Dispose.
func (c *ConnectionArray) Data() []ConnectionInfo {
	if c == nil {
		return nil
	}
	return c.buf.Data()
}

// Disposed reports whether the array was released.
func (c *ConnectionArray) Disposed() bool {
	return c != nil && c.buf.Disposed()
}

// Dispose releases the descriptor strings and the array itself.
func (c *ConnectionArray) Dispose() {
	if c == nil {
		return
	}
	for _, info := range c.buf.Data() {
		info.RemoteID.Dispose()
		info.RemoteIP.Dispose()
	}
	c.buf.Dispose()
}
