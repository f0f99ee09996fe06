package nt

import (
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/lib/service/local"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("nt")

// Instance is the entry point to one network table service. It borrows the
// service; Close closes it.
type Instance struct {
	svc service.IService
}

// NewInstance creates an instance on top of svc.
func NewInstance(svc service.IService) *Instance {
	return &Instance{svc: svc}
}

var defaultInstance struct {
	once sync.Once
	inst *Instance
}

// DefaultInstance returns the process-wide instance backed by an in-process
// local service with default options. It is created on first use and never closed.
func DefaultInstance() *Instance {
	defaultInstance.once.Do(func() {
		svc, err := local.NewLocalService(nil)
		if err != nil {
			panic(fmt.Sprintf("nt: creating default service: %v", err))
		}
		defaultInstance.inst = NewInstance(svc)
	})
	return defaultInstance.inst
}

// Service returns the underlying service.
func (inst *Instance) Service() service.IService {
	return inst.svc
}

func (inst *Instance) resolve(path string) (Entry, error) {
	h, err := inst.svc.ResolveEntry(path)
	return Entry{inst: inst, handle: h}, err
}

// --------------------------------------------------------------------------
// Entries
// --------------------------------------------------------------------------

// GetEntry resolves a full path. A failed resolution is logged and yields an
// entry that reports TypeUnassigned.
func (inst *Instance) GetEntry(path string) Entry {
	e, err := inst.resolve(path)
	if err != nil {
		Logger.Warningf("resolving %q: %v", path, err)
	}
	return e
}

// GetTable returns a new table rooted at prefix.
func (inst *Instance) GetTable(prefix string) *Table {
	return NewTable(inst, prefix)
}

// GetAllEntries lists every existing entry.
func (inst *Instance) GetAllEntries() []Entry {
	return inst.GetEntriesFiltered("", MaskAll())
}

// GetEntriesFiltered lists the existing entries whose name starts with prefix
// and whose type matches mask. Service failures are logged and yield nil.
func (inst *Instance) GetEntriesFiltered(prefix string, mask EntryMask) []Entry {
	handles, err := inst.svc.ListEntries(prefix, uint32(mask))
	if err != nil {
		Logger.Errorf("listing entries below %q: %v", prefix, err)
		return nil
	}
	if handles == nil {
		panic("nt: service returned no entry array")
	}
	defer handles.Dispose()

	entries := make([]Entry, handles.Len())
	for i, h := range handles.Data() {
		entries[i] = Entry{inst: inst, handle: h}
	}
	return entries
}

// DeleteAllEntries removes the values of all entries.
func (inst *Instance) DeleteAllEntries() error {
	if err := inst.svc.DeleteAllEntries(); err != nil {
		return serviceError("delete all entries", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Connections
// --------------------------------------------------------------------------

// GetConnections returns a snapshot of the current connections.
// The caller must Close it.
func (inst *Instance) GetConnections() (*ConnectionSnapshot, error) {
	arr, err := inst.svc.ListConnections()
	if err != nil {
		return nil, serviceError("list connections", err)
	}
	return newConnectionSnapshot(arr), nil
}

// WithConnections calls fn with a snapshot that is closed when fn returns.
func (inst *Instance) WithConnections(fn func(*ConnectionSnapshot) error) error {
	snap, err := inst.GetConnections()
	if err != nil {
		return err
	}
	defer snap.Close()
	return fn(snap)
}

// IsConnected reports the connectivity of the underlying service. For a local
// service that is at least one registered peer, for an RPC client it is
// whether the last request reached the server.
func (inst *Instance) IsConnected() bool {
	return inst.svc.IsConnected()
}

// --------------------------------------------------------------------------
// Service control
// --------------------------------------------------------------------------

// Flush pushes pending changes immediately instead of waiting for the next update.
func (inst *Instance) Flush() error {
	if err := inst.svc.Flush(); err != nil {
		return serviceError("flush", err)
	}
	return nil
}

// SetNetworkIdentity sets the name announced to peers.
func (inst *Instance) SetNetworkIdentity(name string) error {
	if err := inst.svc.SetNetworkIdentity(name); err != nil {
		return serviceError("set network identity", err)
	}
	return nil
}

// SetUpdateRate sets the periodic update interval.
func (inst *Instance) SetUpdateRate(d time.Duration) error {
	if err := inst.svc.SetUpdateRate(d); err != nil {
		return serviceError("set update rate", err)
	}
	return nil
}

// Now returns the current service clock.
func (inst *Instance) Now() (NetworkTime, error) {
	stamp, err := inst.svc.Now()
	if err != nil {
		return 0, serviceError("now", err)
	}
	return NetworkTime(stamp), nil
}

// Close closes the underlying service. Entries and tables of the instance
// must not be used afterwards.
func (inst *Instance) Close() error {
	return inst.svc.Close()
}
