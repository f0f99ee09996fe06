// Package tcp implements the TCP socket transport of the RPC system on top
// of the framing in the base package.
//
// Key Components:
//
//   - clientConnector: dials endpoints and applies the TCPConf and
//     SocketConf options (no delay, buffer sizes, keep-alive, linger).
//
//   - serverConnector: listens on the configured endpoint and identifies
//     each connection by its remote address.
//
// The default server buffer size is 512 KB.
package tcp
