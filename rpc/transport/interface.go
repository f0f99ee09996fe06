package transport

import (
	"io"

	"github.com/ValentinKolb/dNT/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ConnInfo identifies the client connection a request arrived on
type ConnInfo struct {
	// ID is unique per open connection
	ID string
	// Addr is the "host:port" address of the remote end
	Addr string
}

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes an instance ID, the connection and a request as parameters and returns a response
type ServerHandleFunc func(instanceID uint64, conn ConnInfo, req []byte) (resp []byte)

// ServerCloseFunc is called once a client connection is gone
type ServerCloseFunc func(conn ConnInfo)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// RegisterCloseHandler registers a function called when a connection is closed
	RegisterCloseHandler(handler ServerCloseFunc)
	// Listen starts the transport layer and blocks until Close is called
	Listen(config common.ServerConfig) error
	// Close stops listening and closes all open connections
	Close() error
}

// IMetricsExposer is implemented by server transports that can serve metrics
// next to the RPC endpoint.
type IMetricsExposer interface {
	// SetMetricsWriter sets the function that renders the metrics page
	SetMetricsWriter(write func(w io.Writer))
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the given instance and returns the response
	Send(instanceID uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
