package client

import (
	"fmt"

	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/ValentinKolb/dNT/rpc/serializer"
	"github.com/ValentinKolb/dNT/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter stores everything needed to send requests to one instance
type rpcClientAdapter struct {
	instanceID uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest sends a request to the instance and returns the response.
// meta is attached to the request as caller identity.
// A response carrying an error is returned as *service.Error with the code
// reported by the server. The type of the response must match the request.
func invokeRPCRequest(instanceID uint64, req *common.Message, meta []byte, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	req.Meta = meta

	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := transport.Send(instanceID, reqBytes)
	if err != nil {
		return nil, err
	}

	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("RPC NTAdapter - Error: %w", err)
	}

	if resp.MsgType == common.MsgTError || resp.Err != "" {
		code := service.RetCode(resp.Code)
		if code == service.RetCSuccess {
			code = service.RetCInternalError
		}
		return nil, service.NewError(code, resp.Err)
	}

	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC NTAdapter - Unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
