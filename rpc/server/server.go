package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/dNT/lib/db"
	"github.com/ValentinKolb/dNT/lib/db/engines/maple"
	"github.com/ValentinKolb/dNT/lib/db/engines/sqlite"
	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/lib/service/local"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/ValentinKolb/dNT/rpc/serializer"
	"github.com/ValentinKolb/dNT/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverInstance is a network tables instance hosted by the RPC server
type serverInstance struct {
	Service IPeerService
	Adapter IRPCServerAdapter
}

// RPCServer hosts a set of instances behind one transport
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	instances  *xsync.MapOf[uint64, serverInstance]
	metrics    *serverMetrics
	metricsSrv *http.Server
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	t transport.IRPCServerTransport,
	ser serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &RPCServer{
		config:     config,
		transport:  t,
		serializer: ser,
		instances:  xsync.NewMapOf[uint64, serverInstance](),
		metrics:    newServerMetrics(),
	}

	t.RegisterHandler(s.Handle)
	t.RegisterCloseHandler(s.connectionClosed)
	if exposer, ok := t.(transport.IMetricsExposer); ok {
		exposer.SetMetricsWriter(s.WriteMetrics)
	}

	return s
}

// --------------------------------------------------------------------------
// Instances
// --------------------------------------------------------------------------

// AddInstance hosts svc under the given ID. Adding an ID twice is an error.
// The server closes svc on Close.
func (s *RPCServer) AddInstance(instanceID uint64, svc IPeerService) error {
	_, loaded := s.instances.LoadOrStore(instanceID, serverInstance{
		Service: svc,
		Adapter: NewNTServerAdapter(),
	})
	if loaded {
		return fmt.Errorf("instance %d already exists", instanceID)
	}
	s.metrics.registerInstance(instanceID, svc)
	return nil
}

// Instance returns the service hosted under instanceID
func (s *RPCServer) Instance(instanceID uint64) (IPeerService, bool) {
	inst, ok := s.instances.Load(instanceID)
	return inst.Service, ok
}

// dbFactory returns the database factory and persistence file of an instance
func (s *RPCServer) dbFactory(inst common.ServerInstance) (service.DBFactory, string, error) {
	switch inst.Engine {
	case common.EngineMaple, "":
		persistFile := ""
		if s.config.DataDir != "" {
			persistFile = filepath.Join(s.config.DataDir, fmt.Sprintf("instance-%d.maple", inst.InstanceID))
		}
		return func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil }, persistFile, nil
	case common.EngineSQLite:
		path := ""
		if s.config.DataDir != "" {
			path = filepath.Join(s.config.DataDir, fmt.Sprintf("instance-%d.sqlite", inst.InstanceID))
		}
		return func() (db.KVDB, error) { return sqlite.NewSQLiteDB(&sqlite.DBOptions{Path: path}) }, "", nil
	default:
		return nil, "", fmt.Errorf("invalid engine %q for instance %d", inst.Engine, inst.InstanceID)
	}
}

// init creates the configured instances
func (s *RPCServer) init() error {
	if s.config.DataDir != "" {
		if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	for _, inst := range s.config.Instances {
		factory, persistFile, err := s.dbFactory(inst)
		if err != nil {
			return err
		}

		svc, err := local.NewLocalService(&local.Options{
			Identity:    s.config.Identity,
			DB:          factory,
			PersistFile: persistFile,
			UpdateRate:  s.config.UpdateRate,
		})
		if err != nil {
			return fmt.Errorf("failed to create instance %d: %w", inst.InstanceID, err)
		}
		if err := s.AddInstance(inst.InstanceID, svc); err != nil {
			_ = svc.Close()
			return err
		}
		Logger.Infof("created %s instance %d", inst.Engine, inst.InstanceID)
	}

	Logger.Infof("dNT setup completed successfully")
	return nil
}

// --------------------------------------------------------------------------
// Request handling
// --------------------------------------------------------------------------

// Handle decodes a request, dispatches it to the addressed instance and
// returns the serialized response. It is the transport's ServerHandleFunc.
func (s *RPCServer) Handle(instanceID uint64, conn transport.ConnInfo, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	inst, ok := s.instances.Load(instanceID)
	if !ok {
		s.metrics.rejected("unknown_instance")
		respMsg = common.NewErrorResponse(fmt.Sprintf("instance %d not found", instanceID))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		s.metrics.rejected("malformed")
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		start := time.Now()
		respMsg = inst.Adapter.Handle(&msg, conn, inst.Service)
		s.metrics.observe(instanceID, &msg, respMsg, time.Since(start).Seconds())
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// connectionClosed forgets the peer of a closed connection in every instance
func (s *RPCServer) connectionClosed(conn transport.ConnInfo) {
	s.instances.Range(func(_ uint64, inst serverInstance) bool {
		inst.Service.RemovePeer(conn.ID)
		return true
	})
}

// WriteMetrics writes all metrics of the server in Prometheus text format
func (s *RPCServer) WriteMetrics(w io.Writer) {
	s.metrics.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Serve creates the configured instances and blocks in the transport until Close
func (s *RPCServer) Serve() error {
	Logger.Infof("%s", s.config.String())

	if err := s.init(); err != nil {
		return err
	}

	if s.config.MetricsEndpoint != "" {
		s.serveMetrics()
	}

	return s.transport.Listen(s.config)
}

// serveMetrics exposes /metrics on a separate listener
func (s *RPCServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		s.WriteMetrics(w)
	})
	s.metricsSrv = &http.Server{Addr: s.config.MetricsEndpoint, Handler: mux}

	go func() {
		Logger.Infof("Serving metrics on %s", s.config.MetricsEndpoint)
		if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint failed: %v", err)
		}
	}()
}

// Close stops the transport and closes (and thereby flushes) all instances
func (s *RPCServer) Close() error {
	var errs []error
	if err := s.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.instances.Range(func(id uint64, inst serverInstance) bool {
		if err := inst.Service.Close(); err != nil {
			errs = append(errs, fmt.Errorf("instance %d: %w", id, err))
		}
		return true
	})
	return errors.Join(errs...)
}
