package client

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dNT/lib/nt"
	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/lib/service/local"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/ValentinKolb/dNT/rpc/serializer"
	"github.com/ValentinKolb/dNT/rpc/server"
	"github.com/ValentinKolb/dNT/rpc/transport"
	"github.com/ValentinKolb/dNT/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback is a server and a client transport in one. Requests are handed
// to the server handler without any network in between.
type loopback struct {
	handler transport.ServerHandleFunc
	onClose transport.ServerCloseFunc
	conn    transport.ConnInfo
	down    atomic.Bool
}

var errLinkDown = errors.New("link down")

func (l *loopback) RegisterHandler(h transport.ServerHandleFunc)    { l.handler = h }
func (l *loopback) RegisterCloseHandler(h transport.ServerCloseFunc) { l.onClose = h }
func (l *loopback) Listen(common.ServerConfig) error                 { return nil }
func (l *loopback) Connect(common.ClientConfig) error                { return nil }

func (l *loopback) Send(instanceID uint64, req []byte) ([]byte, error) {
	if l.down.Load() {
		return nil, errLinkDown
	}
	return l.handler(instanceID, l.conn, req), nil
}

func (l *loopback) Close() error {
	if l.onClose != nil {
		l.onClose(l.conn)
	}
	return nil
}

// newLoopbackService returns a client connected to a server hosting one
// local service with the identity "robot" as instance 1
func newLoopbackService(t *testing.T, identity string) (*RPCService, *local.Service, *loopback) {
	t.Helper()
	lb := &loopback{conn: transport.ConnInfo{ID: "loop:1", Addr: "10.0.0.9:5810"}}
	ser := serializer.NewBinarySerializer()

	srv := server.NewRPCServer(common.ServerConfig{}, lb, ser)
	svc, err := local.NewLocalService(&local.Options{Identity: "robot"})
	require.NoError(t, err)
	require.NoError(t, srv.AddInstance(1, svc))
	t.Cleanup(func() { _ = srv.Close() })

	cli, err := NewRPCService(1, common.ClientConfig{Identity: identity}, lb, ser)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })
	return cli, svc, lb
}

func TestInstanceOverRPC(t *testing.T) {
	cli, svc, _ := newLoopbackService(t, "dashboard")
	assert.Equal(t, "robot", cli.ServerIdentity())

	inst := nt.NewInstance(cli)
	speed := inst.GetEntry("/SmartDashboard/speed")
	assert.Equal(t, nt.TypeUnassigned, speed.Type())

	require.NoError(t, speed.SetValue(nt.Double(1.5)))
	v, err := speed.GetValue()
	require.NoError(t, err)
	assert.Equal(t, nt.Double(1.5), v)
	assert.Equal(t, nt.TypeDouble, speed.Type())
	assert.NotZero(t, speed.LastChanged())

	name, ok := speed.Name()
	assert.True(t, ok)
	assert.Equal(t, "/SmartDashboard/speed", name)

	err = speed.SetValue(nt.String("fast"))
	var mismatch *nt.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, nt.TypeDouble, mismatch.Current)

	// same handle as a local resolution on the server
	h, err := svc.ResolveEntry("/SmartDashboard/speed")
	require.NoError(t, err)
	assert.Equal(t, h, speed.Handle())

	require.NoError(t, inst.GetTable("/SmartDashboard").Put("names", nt.StringArray{"a", "b"}))
	assert.Len(t, inst.GetEntriesFiltered("/SmartDashboard/", nt.MaskAll()), 2)
	assert.Len(t, inst.GetEntriesFiltered("", nt.NewMask(nt.TypeStringArray)), 1)

	assert.True(t, speed.Edit(func(v nt.Value) nt.Value {
		return nt.MapDouble(v, func(d float64) float64 { return d + 1 })
	}))
	v, err = speed.GetValue()
	require.NoError(t, err)
	assert.Equal(t, nt.Double(2.5), v)

	require.NoError(t, inst.WithConnections(func(snap *nt.ConnectionSnapshot) error {
		require.Equal(t, 1, snap.Len())
		c := snap.At(0)
		assert.Equal(t, "dashboard", c.RemoteID())
		assert.Equal(t, "10.0.0.9", c.RemoteIPString())
		assert.Equal(t, uint32(5810), c.RemotePort())
		assert.Equal(t, local.ProtocolVersion, c.ProtocolVersion())
		return nil
	}))

	now, err := inst.Now()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, now, speed.LastChanged())

	require.NoError(t, inst.Flush())
	require.NoError(t, inst.DeleteAllEntries())
	assert.Equal(t, nt.TypeUnassigned, speed.Type())

	assert.Zero(t, cli.Allocator().Live())
	assert.Zero(t, svc.Allocator().Live())
}

func TestRPCServiceErrors(t *testing.T) {
	cli, _, lb := newLoopbackService(t, "dashboard")
	assert.True(t, cli.IsConnected())

	_, err := cli.GetEntryType(42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.NewError(service.RetCInvalidHandle, "")))
	// an error response still counts as connected
	assert.True(t, cli.IsConnected())

	err = cli.SetUpdateRate(time.Second)
	assert.True(t, errors.Is(err, service.NewError(service.RetCUnsupportedOperation, "")))

	lb.down.Store(true)
	_, err = cli.Now()
	assert.ErrorIs(t, err, errLinkDown)
	assert.False(t, cli.IsConnected())

	inst := nt.NewInstance(cli)
	assert.Equal(t, nt.TypeUnassigned, inst.GetEntry("/unreachable").Type())
	_, err = inst.Now()
	assert.ErrorIs(t, err, nt.ErrServiceUnavailable)

	lb.down.Store(false)
	_, err = cli.Now()
	require.NoError(t, err)
	assert.True(t, cli.IsConnected())

	require.NoError(t, cli.Close())
	require.NoError(t, cli.Close())
	assert.False(t, cli.IsConnected())
	_, err = cli.ResolveEntry("/foo")
	assert.True(t, errors.Is(err, service.NewError(service.RetCClosed, "")))
}

func TestRPCServiceIdentity(t *testing.T) {
	cli, svc, _ := newLoopbackService(t, "")

	peers := svc.Peers()
	require.Len(t, peers, 1)
	assert.Regexp(t, `^dnt-[0-9a-f-]{36}$`, peers[0].RemoteID)

	require.NoError(t, cli.SetNetworkIdentity("driver"))
	assert.Equal(t, "driver", svc.Peers()[0].RemoteID)

	// the new identity travels with later requests
	_, err := cli.Now()
	require.NoError(t, err)
	assert.Equal(t, "driver", svc.Peers()[0].RemoteID)

	require.NoError(t, cli.Close())
	assert.Empty(t, svc.Peers())
}

func TestRPCServiceOverUnixSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "nt.sock")

	srv := server.NewRPCServer(common.ServerConfig{
		Instances: []common.ServerInstance{{InstanceID: 1, Engine: common.EngineMaple}},
		Identity:  "robot",
		Endpoint:  socket,
	}, unix.NewUnixDefaultServerTransport(), serializer.NewJSONSerializer())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	defer func() {
		require.NoError(t, srv.Close())
		require.NoError(t, <-done)
	}()

	config := common.ClientConfig{
		Identity:      "dashboard",
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{socket},
			RetryCount:             2,
			ConnectionsPerEndpoint: 2,
		},
	}

	var cli *RPCService
	require.Eventually(t, func() bool {
		var err error
		cli, err = NewRPCService(1, config, unix.NewUnixClientTransport(), serializer.NewJSONSerializer())
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	inst := nt.NewInstance(cli)
	flag := inst.GetEntry("/robot/enabled")
	require.NoError(t, flag.SetValue(nt.Bool(true)))
	v, err := flag.GetValue()
	require.NoError(t, err)
	assert.Equal(t, nt.Bool(true), v)

	hosted, ok := srv.Instance(1)
	require.True(t, ok)
	assert.True(t, hosted.IsConnected())

	require.NoError(t, inst.Close())
	require.Eventually(t, func() bool {
		return !hosted.IsConnected()
	}, 2*time.Second, 20*time.Millisecond)
}
