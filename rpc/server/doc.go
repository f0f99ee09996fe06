// Package server implements the RPC server of the network tables system.
// It hosts one or more network tables instances behind a single transport
// and maps incoming messages to the primitives of service.IService.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes a request against an instance.
//
//   - NewNTServerAdapter: Factory function creating the adapter that translates
//     network tables messages to service calls. It also keeps the peer list of
//     the instance current: a hello message registers the calling connection,
//     every other message marks it as active.
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified transport and serializer mechanisms.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Instances: []common.ServerInstance{
//	    {InstanceID: 1, Engine: common.EngineMaple},
//	    {InstanceID: 2, Engine: common.EngineSQLite},
//	  },
//	  Identity:      "robot",
//	  DataDir:       "./data",
//	  UpdateRate:    100 * time.Millisecond,
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 0,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Each instance has its own storage engine and, if DataDir is set, its own
// persistence file. When a connection closes, its peer is removed from every
// instance.
//
// Metrics:
//
//	Request counts, latencies and instance gauges are exposed in Prometheus
//	format, either on /metrics of the http transport or on MetricsEndpoint.
//
// Thread Safety:
//
//	The server is safe for concurrent requests across connections.
//	Serve should be called only once.
package server
