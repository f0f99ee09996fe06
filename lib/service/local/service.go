package local

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dNT/lib/db"
	"github.com/ValentinKolb/dNT/lib/db/engines/maple"
	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/lib/wire"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("service")

// ProtocolVersion is reported for peers that did not announce a version.
const ProtocolVersion uint32 = 0x0300

// Options configures a local service
type Options struct {
	// Identity is the network identity of this node (default "dnt-<uuid>").
	Identity string
	// DB creates the database holding the entries (default: maple engine).
	DB service.DBFactory
	// PersistFile is loaded on start if it exists and written on every Flush.
	// An empty path disables persistence.
	PersistFile string
	// UpdateRate is the interval of periodic flushes (0 disables them).
	UpdateRate time.Duration
}

// Service is an in-process implementation of service.IService.
type Service struct {
	db    db.KVDB
	index atomic.Uint64
	alloc *wire.Allocator

	// handle registry
	handles    *xsync.MapOf[string, wire.Handle]
	names      *xsync.MapOf[wire.Handle, string]
	nextHandle atomic.Uint32

	peers *xsync.MapOf[string, *Peer]

	identity    atomic.Value // string
	persistFile string
	flushMu     sync.Mutex

	rateCh    chan time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewLocalService creates a service backed by a local database.
// This service is not distributed; remote peers reach it through the RPC server.
func NewLocalService(opts *Options) (*Service, error) {
	if opts == nil {
		opts = &Options{}
	}

	factory := opts.DB
	if factory == nil {
		factory = func() (db.KVDB, error) {
			return maple.NewMapleDB(nil), nil
		}
	}
	database, err := factory()
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	s := &Service{
		db:          database,
		alloc:       wire.NewAllocator(),
		handles:     xsync.NewMapOf[string, wire.Handle](),
		names:       xsync.NewMapOf[wire.Handle, string](),
		peers:       xsync.NewMapOf[string, *Peer](),
		persistFile: opts.PersistFile,
		rateCh:      make(chan time.Duration, 1),
		done:        make(chan struct{}),
	}

	identity := opts.Identity
	if identity == "" {
		identity = "dnt-" + uuid.NewString()
	}
	s.identity.Store(identity)

	if err := s.load(); err != nil {
		database.Close()
		return nil, err
	}
	s.index.Store(database.WriteIdx())

	s.wg.Add(1)
	go s.flushLoop(opts.UpdateRate)

	Logger.Infof("created local service %q (persist file: %q)", identity, s.persistFile)
	return s, nil
}

// incAndGetIndex increments the index and returns the new value.
// Every write gets a unique index, which doubles as the change stamp.
func (s *Service) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// Identity returns the current network identity.
func (s *Service) Identity() string {
	return s.identity.Load().(string)
}

func (s *Service) checkOpen() error {
	if s.closed.Load() {
		return service.NewError(service.RetCClosed, "service is closed")
	}
	return nil
}

func (s *Service) nameOf(h wire.Handle) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	name, ok := s.names.Load(h)
	if !ok {
		return "", service.NewError(service.RetCInvalidHandle, fmt.Sprintf("unknown handle %d", h))
	}
	return name, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see service/interface.go)
// --------------------------------------------------------------------------

func (s *Service) ResolveEntry(name string) (wire.Handle, error) {
	if err := s.checkOpen(); err != nil {
		return wire.InvalidHandle, err
	}
	h, _ := s.handles.LoadOrCompute(name, func() wire.Handle {
		h := wire.Handle(s.nextHandle.Add(1))
		s.names.Store(h, name)
		return h
	})
	return h, nil
}

func (s *Service) GetEntryType(h wire.Handle) (wire.Type, error) {
	name, err := s.nameOf(h)
	if err != nil {
		return wire.TypeUnassigned, err
	}
	data, _, ok := s.db.Get(name)
	if !ok {
		return wire.TypeUnassigned, nil
	}
	t, _, err := wire.PeekHeader(data)
	if err != nil {
		return wire.TypeUnassigned, service.NewError(service.RetCInternalError, err.Error())
	}
	return t, nil
}

func (s *Service) GetEntryLastChange(h wire.Handle) (uint64, error) {
	name, err := s.nameOf(h)
	if err != nil {
		return 0, err
	}
	_, idx, ok := s.db.Get(name)
	if !ok {
		return 0, nil
	}
	return idx, nil
}

func (s *Service) GetEntryName(h wire.Handle) ([]byte, error) {
	name, err := s.nameOf(h)
	if err != nil {
		return nil, err
	}
	return []byte(name), nil
}

func (s *Service) GetEntryValue(h wire.Handle) (*wire.Value, error) {
	name, err := s.nameOf(h)
	if err != nil {
		return nil, err
	}
	if !s.db.SupportsFeature(db.FeatureGet) {
		return nil, service.NewError(service.RetCUnsupportedOperation, "Get operation is not supported")
	}

	data, idx, ok := s.db.Get(name)
	if !ok {
		return &wire.Value{Type: wire.TypeUnassigned}, nil
	}
	v, err := wire.Decode(data, s.alloc)
	if err != nil {
		return nil, service.NewError(service.RetCInternalError, fmt.Sprintf("corrupt value for %q: %v", name, err))
	}
	v.LastChange = idx
	return v, nil
}

func (s *Service) SetEntryValue(h wire.Handle, v *wire.Value) (bool, error) {
	name, err := s.nameOf(h)
	if err != nil {
		return false, err
	}
	if v == nil || v.Type == wire.TypeUnassigned {
		return false, service.NewError(service.RetCInvalidOperation, "cannot store an unassigned value")
	}
	if !s.db.SupportsFeature(db.FeatureSetIf) {
		return false, service.NewError(service.RetCUnsupportedOperation, "SetIf operation is not supported")
	}

	sameType := func(old []byte, loaded bool) bool {
		if !loaded {
			return true
		}
		t, _, err := wire.PeekHeader(old)
		return err == nil && t == v.Type
	}

	// the stored copy carries the service stamp, the caller's record is not modified
	stamped := *v
	for {
		stamped.LastChange = s.incAndGetIndex()
		data, err := wire.Encode(&stamped)
		if err != nil {
			return false, service.NewError(service.RetCInvalidOperation, err.Error())
		}

		switch res := s.db.SetIf(name, data, stamped.LastChange, sameType); res {
		case db.SetIfApplied:
			return true, nil
		case db.SetIfRejected:
			return false, nil
		case db.SetIfStale:
			// a concurrent writer stored a newer stamp first, write again on top of it
			continue
		default:
			return false, service.NewError(service.RetCInternalError, fmt.Sprintf("writing %q: %s", name, res))
		}
	}
}

func (s *Service) ListEntries(prefix string, mask uint32) (*wire.Buffer[wire.Handle], error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if !s.db.SupportsFeature(db.FeatureRange) {
		return nil, service.NewError(service.RetCUnsupportedOperation, "Range operation is not supported")
	}

	var names []string
	s.db.Range(prefix, func(key string, value []byte, _ uint64) bool {
		t, _, err := wire.PeekHeader(value)
		if err != nil {
			Logger.Warningf("skipping corrupt entry %q: %v", key, err)
			return true
		}
		if mask == 0 || uint32(t)&mask != 0 {
			names = append(names, key)
		}
		return true
	})
	sort.Strings(names)

	handles := wire.Alloc[wire.Handle](s.alloc, len(names))
	for i, name := range names {
		h, err := s.ResolveEntry(name)
		if err != nil {
			handles.Dispose()
			return nil, err
		}
		handles.Data()[i] = h
	}
	return handles, nil
}

func (s *Service) ListConnections() (*wire.ConnectionArray, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	peers := s.Peers()
	conns := wire.NewConnectionArray(s.alloc, len(peers))
	for i, p := range peers {
		conns.Set(i, p.RemoteID, p.RemoteIP, p.RemotePort, p.LastUpdate, p.ProtocolVersion)
	}
	return conns, nil
}

// Now returns the current write index.
func (s *Service) Now() (uint64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.index.Load(), nil
}

func (s *Service) IsConnected() bool {
	return !s.closed.Load() && s.peers.Size() > 0
}

func (s *Service) SetNetworkIdentity(name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.identity.Store(name)
	return nil
}

func (s *Service) SetUpdateRate(d time.Duration) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if d < 0 {
		return service.NewError(service.RetCInvalidOperation, "update rate must not be negative")
	}
	// only the latest rate matters
	select {
	case <-s.rateCh:
	default:
	}
	s.rateCh <- d
	return nil
}

func (s *Service) DeleteAllEntries() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.db.SupportsFeature(db.FeatureRange | db.FeatureDelete) {
		return service.NewError(service.RetCUnsupportedOperation, "Delete operation is not supported")
	}

	var keys []string
	s.db.Range("", func(key string, _ []byte, _ uint64) bool {
		keys = append(keys, key)
		return true
	})
	for _, key := range keys {
		s.db.Delete(key, s.incAndGetIndex())
	}
	Logger.Infof("deleted %d entries", len(keys))
	return nil
}

func (s *Service) Allocator() *wire.Allocator {
	return s.alloc
}

// GetDBInfo returns metadata about the database underlying the service.
func (s *Service) GetDBInfo() db.DatabaseInfo {
	return s.db.GetInfo()
}

// Close stops periodic flushing, writes a final snapshot and closes the database.
// Calling Close more than once is a no-op.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		err = s.flush()
		s.closed.Store(true)
		if closeErr := s.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		Logger.Infof("closed local service %q", s.Identity())
	})
	return err
}

// flushLoop flushes at the configured rate until the service is closed.
func (s *Service) flushLoop(rate time.Duration) {
	defer s.wg.Done()

	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	reset := func(d time.Duration) {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		if d > 0 {
			ticker = time.NewTicker(d)
			tick = ticker.C
		}
	}
	reset(rate)
	defer reset(0)

	for {
		select {
		case <-s.done:
			return
		case d := <-s.rateCh:
			reset(d)
		case <-tick:
			if err := s.flush(); err != nil {
				Logger.Errorf("periodic flush failed: %v", err)
			}
		}
	}
}
