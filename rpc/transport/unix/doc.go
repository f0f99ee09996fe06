// Package unix implements the Unix domain socket transport of the RPC system
// on top of the framing in the base package. Useful when client and server
// run on the same host.
//
// Unix socket clients have no address, so every peer is reported as
// LocalAddr and connections are told apart by a sequence number.
package unix
