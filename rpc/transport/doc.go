// Package transport defines the interfaces for moving serialized messages
// between RPC clients and servers.
//
// Key Components:
//
//   - IRPCClientTransport: client side, sends a request to a numbered
//     instance and waits for the response.
//
//   - IRPCServerTransport: server side, hands every request together with
//     the connection it arrived on to a ServerHandleFunc, and reports closed
//     connections to a ServerCloseFunc so that peers can be forgotten.
//
// Implementations live in the tcp, unix and http subpackages; tcp and unix
// share the framing code in base.
package transport
