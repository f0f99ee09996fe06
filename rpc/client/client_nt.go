package client

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/lib/service/local"
	"github.com/ValentinKolb/dNT/lib/wire"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/ValentinKolb/dNT/rpc/serializer"
	"github.com/ValentinKolb/dNT/rpc/transport"
	"github.com/google/uuid"
)

// NewRPCService creates a service.IService that forwards every primitive to
// the instance with the given ID on a remote server.
// The transport is connected and the client announces itself with a hello
// message before the service is returned.
func NewRPCService(
	instanceID uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCService, error) {

	if config.Identity == "" {
		config.Identity = "dnt-" + uuid.NewString()
	}

	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	s := &RPCService{
		rpcClientAdapter: rpcClientAdapter{
			instanceID: instanceID,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
		alloc: wire.NewAllocator(),
	}
	s.identity.Store(config.Identity)

	resp, err := s.invoke(common.NewHelloRequest(config.Identity, local.ProtocolVersion))
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	s.serverIdentity = resp.Key
	s.serverVersion = uint32(resp.Arg)

	Logger.Infof("connected to instance %d of %q (protocol version %#x)", instanceID, s.serverIdentity, s.serverVersion)
	return s, nil
}

// RPCService is the client side of a remote network tables instance
type RPCService struct {
	rpcClientAdapter
	alloc          *wire.Allocator
	identity       atomic.Value // string
	serverIdentity string
	serverVersion  uint32
	connected      atomic.Bool
	closed         atomic.Bool
}

// ServerIdentity returns the identity the server announced in its hello response
func (s *RPCService) ServerIdentity() string {
	return s.serverIdentity
}

// invoke sends req and tracks whether the server answered
func (s *RPCService) invoke(req *common.Message) (*common.Message, error) {
	if s.closed.Load() {
		return nil, service.NewError(service.RetCClosed, "service is closed")
	}
	meta := []byte(s.identity.Load().(string))
	resp, err := invokeRPCRequest(s.instanceID, req, meta, s.transport, s.serializer)

	// an error response still proves the server is reachable
	var svcErr *service.Error
	s.connected.Store(err == nil || errors.As(err, &svcErr))
	return resp, err
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the service package in interface.go)
// --------------------------------------------------------------------------

func (s *RPCService) ResolveEntry(name string) (h wire.Handle, err error) {
	resp, err := s.invoke(common.NewResolveRequest(name))
	if err != nil {
		return 0, err
	}
	return wire.Handle(resp.Arg), nil
}

func (s *RPCService) GetEntryType(h wire.Handle) (t wire.Type, err error) {
	resp, err := s.invoke(common.NewHandleRequest(common.MsgTNTGetType, uint32(h)))
	if err != nil {
		return wire.TypeUnassigned, err
	}
	return wire.Type(resp.Arg), nil
}

func (s *RPCService) GetEntryLastChange(h wire.Handle) (stamp uint64, err error) {
	resp, err := s.invoke(common.NewHandleRequest(common.MsgTNTGetLastChange, uint32(h)))
	if err != nil {
		return 0, err
	}
	return resp.Arg, nil
}

func (s *RPCService) GetEntryName(h wire.Handle) (name []byte, err error) {
	resp, err := s.invoke(common.NewHandleRequest(common.MsgTNTGetName, uint32(h)))
	if err != nil {
		return nil, err
	}
	if resp.Value == nil {
		return []byte{}, nil
	}
	return resp.Value, nil
}

func (s *RPCService) GetEntryValue(h wire.Handle) (v *wire.Value, err error) {
	resp, err := s.invoke(common.NewHandleRequest(common.MsgTNTGetValue, uint32(h)))
	if err != nil {
		return nil, err
	}
	v, err = wire.Decode(resp.Value, s.alloc)
	if err != nil {
		return nil, service.NewError(service.RetCInternalError, err.Error())
	}
	return v, nil
}

func (s *RPCService) SetEntryValue(h wire.Handle, v *wire.Value) (ok bool, err error) {
	data, err := wire.Encode(v)
	if err != nil {
		return false, service.NewError(service.RetCInvalidOperation, err.Error())
	}
	resp, err := s.invoke(common.NewSetValueRequest(uint32(h), data))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (s *RPCService) ListEntries(prefix string, mask uint32) (handles *wire.Buffer[wire.Handle], err error) {
	resp, err := s.invoke(common.NewListRequest(prefix, mask))
	if err != nil {
		return nil, err
	}
	handles, err = wire.DecodeHandles(resp.Value, s.alloc)
	if err != nil {
		return nil, service.NewError(service.RetCInternalError, err.Error())
	}
	return handles, nil
}

func (s *RPCService) ListConnections() (conns *wire.ConnectionArray, err error) {
	resp, err := s.invoke(common.NewControlRequest(common.MsgTNTListConnections))
	if err != nil {
		return nil, err
	}
	conns, err = wire.DecodeConnections(resp.Value, s.alloc)
	if err != nil {
		return nil, service.NewError(service.RetCInternalError, err.Error())
	}
	return conns, nil
}

func (s *RPCService) Now() (stamp uint64, err error) {
	resp, err := s.invoke(common.NewControlRequest(common.MsgTNTNow))
	if err != nil {
		return 0, err
	}
	return resp.Arg, nil
}

func (s *RPCService) Flush() (err error) {
	_, err = s.invoke(common.NewControlRequest(common.MsgTNTFlush))
	return err
}

// IsConnected reports whether the last request reached the server
func (s *RPCService) IsConnected() (ok bool) {
	return !s.closed.Load() && s.connected.Load()
}

// SetNetworkIdentity renames this client on the server. Later requests
// carry the new identity.
func (s *RPCService) SetNetworkIdentity(name string) (err error) {
	if _, err = s.invoke(common.NewSetIdentityRequest(name)); err != nil {
		return err
	}
	s.identity.Store(name)
	return nil
}

// SetUpdateRate is not supported, the flush rate is a server setting
func (s *RPCService) SetUpdateRate(d time.Duration) (err error) {
	if s.closed.Load() {
		return service.NewError(service.RetCClosed, "service is closed")
	}
	return service.NewError(service.RetCUnsupportedOperation, "update rate is configured on the server")
}

func (s *RPCService) DeleteAllEntries() (err error) {
	_, err = s.invoke(common.NewControlRequest(common.MsgTNTDeleteAll))
	return err
}

func (s *RPCService) Allocator() *wire.Allocator {
	return s.alloc
}

// Close closes the transport. Calling Close more than once is a no-op.
func (s *RPCService) Close() (err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.connected.Store(false)
	return s.transport.Close()
}
