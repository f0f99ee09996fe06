// Package http implements the HTTP transport of the RPC system.
//
// Requests are POSTed to /{instanceId} with the serialized message as body.
// The server also exposes the VictoriaMetrics registry on GET /metrics.
//
// Key Components:
//
//   - httpClientTransport: round-robin over the configured endpoints with
//     a retry per request. Endpoints without a scheme get http://.
//
//   - httpServerTransport: a net/http server. Connections are tracked
//     through http.Server.ConnState, so a peer disappears when its
//     keep-alive connection closes.
//
// The client transport is safe for concurrent use.
package http
