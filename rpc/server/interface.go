package server

import (
	"github.com/ValentinKolb/dNT/lib/db"
	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/ValentinKolb/dNT/rpc/transport"
)

// IPeerService is a service that can be hosted by the RPC server. Besides
// the entry primitives it keeps track of the clients talking to it.
// *local.Service implements it.
type IPeerService interface {
	service.IService
	// RegisterPeer records a client connection after its hello message
	RegisterPeer(key, addr, identity string, protocolVersion uint32)
	// TouchPeer marks a client as active (registering unknown ones)
	TouchPeer(key, addr, identity string)
	// RemovePeer forgets a client connection
	RemovePeer(key string)
	// Identity returns the network identity of the service
	Identity() string
	// GetDBInfo returns statistics of the underlying database
	GetDBInfo() db.DatabaseInfo
}

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Message, the connection it arrived on and a service as parameters.
	// If an error occurs, it should be set in the response
	Handle(req *common.Message, conn transport.ConnInfo, svc IPeerService) (resp *common.Message)
}
