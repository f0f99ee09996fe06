// Package client implements the RPC client of the network tables server.
// RPCService implements service.IService by forwarding every primitive to
// one instance of a remote server, so an nt.Instance can be built on top of
// a remote server the same way as on top of a local service.
//
// Key Components:
//
//   - NewRPCService: Connects the transport, announces the client identity
//     with a hello message and returns the service.
//
//   - invokeRPCRequest: Sends one request and maps error responses to
//     *service.Error values carrying the code reported by the server.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Identity:      "dashboard",
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:8080"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	svc, err := client.NewRPCService(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  panic(err)
//	}
//
//	inst := nt.NewInstance(svc)
//	defer inst.Close()
//
//	inst.GetEntry("/SmartDashboard/speed").SetValue(nt.Double(1.5))
//
// Values are transferred in the wire encoding. Buffers returned by the
// service are taken from the client's own allocator.
//
// Thread Safety:
//
//	RPCService is safe for concurrent use. Requests may be multiplexed over
//	several connections depending on the transport configuration.
package client
