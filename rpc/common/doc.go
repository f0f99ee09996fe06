// Package common provides the data structures shared by the RPC client,
// server and transports of dNT.
//
// Key Components:
//
//   - Message: the single structure used for all requests and responses.
//     Which fields are set depends on the MessageType. Entry values travel
//     in their wire encoding (see lib/wire), so the RPC layer never needs to
//     know about individual value types.
//
//   - MessageType: enumeration of all supported operations, split into
//     entry operations (resolve, get, set, list) and instance operations
//     (connections, clock, flush, delete all, identity).
//
//   - ServerConfig / ClientConfig: configuration of the server and client
//     components with human readable String() renderers.
//
//   - Logger: a dragonboat logger.ILogger implementation with a
//     "LEVEL | name | message" format. InitLoggers configures every named
//     logger of the module.
package common
