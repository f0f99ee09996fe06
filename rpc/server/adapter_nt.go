package server

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/lib/service/local"
	"github.com/ValentinKolb/dNT/lib/wire"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/ValentinKolb/dNT/rpc/transport"
)

// NewNTServerAdapter creates the adapter that maps messages to service primitives
func NewNTServerAdapter() IRPCServerAdapter {
	return &ntServerAdapterImpl{}
}

type ntServerAdapterImpl struct{}

func (adapter *ntServerAdapterImpl) Handle(req *common.Message, conn transport.ConnInfo, svc IPeerService) *common.Message {
	if svc == nil {
		return common.NewErrorResponse("handler: service is nil")
	}

	// every request counts as a sign of life of the peer
	if req.MsgType != common.MsgTHello && req.MsgType != common.MsgTNTSetIdentity {
		svc.TouchPeer(conn.ID, conn.Addr, string(req.Meta))
	}

	h := wire.Handle(req.Handle)

	var (
		resp *common.Message
		err  error
	)
	switch req.MsgType {
	case common.MsgTHello:
		svc.RegisterPeer(conn.ID, conn.Addr, req.Key, uint32(req.Arg))
		resp = common.NewArgResponse(req.MsgType, uint64(local.ProtocolVersion), nil)
		resp.Key = svc.Identity()

	case common.MsgTNTResolve:
		var handle wire.Handle
		handle, err = svc.ResolveEntry(string(req.Value))
		resp = common.NewArgResponse(req.MsgType, uint64(handle), err)

	case common.MsgTNTGetType:
		var t wire.Type
		t, err = svc.GetEntryType(h)
		resp = common.NewArgResponse(req.MsgType, uint64(t), err)

	case common.MsgTNTGetLastChange:
		var stamp uint64
		stamp, err = svc.GetEntryLastChange(h)
		resp = common.NewArgResponse(req.MsgType, stamp, err)

	case common.MsgTNTGetName:
		var name []byte
		name, err = svc.GetEntryName(h)
		if err == nil && name == nil {
			name = []byte{}
		}
		resp = common.NewValueResponse(req.MsgType, name, err)

	case common.MsgTNTGetValue:
		var data []byte
		data, err = adapter.getValue(h, svc)
		resp = common.NewValueResponse(req.MsgType, data, err)

	case common.MsgTNTSetValue:
		var ok bool
		ok, err = adapter.setValue(h, req.Value, svc)
		resp = common.NewSetValueResponse(ok, err)

	case common.MsgTNTList:
		var handles *wire.Buffer[wire.Handle]
		handles, err = svc.ListEntries(string(req.Value), uint32(req.Arg))
		if err != nil {
			resp = common.NewResponse(req.MsgType, err)
			break
		}
		resp = common.NewValueResponse(req.MsgType, wire.EncodeHandles(handles.Data()), nil)
		handles.Dispose()

	case common.MsgTNTListConnections:
		var conns *wire.ConnectionArray
		conns, err = svc.ListConnections()
		if err != nil {
			resp = common.NewResponse(req.MsgType, err)
			break
		}
		resp = common.NewValueResponse(req.MsgType, wire.EncodeConnections(conns), nil)
		conns.Dispose()

	case common.MsgTNTNow:
		var stamp uint64
		stamp, err = svc.Now()
		resp = common.NewArgResponse(req.MsgType, stamp, err)

	case common.MsgTNTFlush:
		err = svc.Flush()
		resp = common.NewResponse(req.MsgType, err)

	case common.MsgTNTDeleteAll:
		err = svc.DeleteAllEntries()
		resp = common.NewResponse(req.MsgType, err)

	case common.MsgTNTSetIdentity:
		// renames the calling peer, the server keeps its own identity
		svc.TouchPeer(conn.ID, conn.Addr, req.Key)
		resp = common.NewResponse(req.MsgType, nil)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC NTAdapter - Unsupported message type: %s", req.MsgType),
		)
	}

	if err != nil {
		resp.Code = uint8(errorCode(err))
	}
	return resp
}

func (adapter *ntServerAdapterImpl) getValue(h wire.Handle, svc IPeerService) ([]byte, error) {
	v, err := svc.GetEntryValue(h)
	if err != nil {
		return nil, err
	}
	defer v.Dispose()
	return wire.Encode(v)
}

func (adapter *ntServerAdapterImpl) setValue(h wire.Handle, data []byte, svc IPeerService) (bool, error) {
	v, err := wire.Decode(data, svc.Allocator())
	if err != nil {
		return false, service.NewError(service.RetCInvalidOperation, err.Error())
	}
	defer v.Dispose()
	return svc.SetEntryValue(h, v)
}

// errorCode returns the return code carried by err
func errorCode(err error) service.RetCode {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return service.RetCInternalError
}
