// Package rpc exposes network tables instances over the network. A server
// hosts one or more local services, a client implements service.IService on
// top of a transport, so an nt.Instance works the same way in-process and
// remotely.
//
// The package is organized into several subpackages:
//
//   - common: the Message protocol, configuration structures and logging.
//
//   - transport: network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options
//     (Binary, JSON, GOB).
//
//   - client: service.IService implementation that forwards every call to a
//     remote server.
//
//   - server: dispatches incoming messages to the hosted services and
//     records request metrics.
package rpc
