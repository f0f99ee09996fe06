// Package base implements the framing shared by the stream based transports
// (tcp and unix). Protocol specific parts are injected through the
// IClientConnector and IServerConnector interfaces.
//
// Every message travels in a frame of instance ID (8 bytes), request ID
// (8 bytes), payload length (4 bytes) and payload, all big endian.
//
// Client side:
//
//   - Multiple connections per endpoint with round-robin selection.
//   - Requests are correlated with responses by request ID, so many
//     goroutines can share one connection.
//   - Failed sends are retried with exponential backoff. A lost connection
//     fails its pending requests and is redialed by the next Send.
//
// Server side:
//
//   - One goroutine per connection reads frames, a bounded number of workers
//     per connection runs the handler.
//   - Read buffers come from a sync.Pool.
//   - When a connection ends, the registered close handler is called so that
//     the server can forget the peer.
package base
