package local

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dNT/lib/db"
	"github.com/ValentinKolb/dNT/lib/db/engines/maple"
	"github.com/ValentinKolb/dNT/lib/db/engines/sqlite"
	"github.com/ValentinKolb/dNT/lib/service"
	"github.com/ValentinKolb/dNT/lib/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, opts *Options) *Service {
	t.Helper()
	s, err := NewLocalService(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func double(s *Service, d float64) *wire.Value {
	return &wire.Value{Type: wire.TypeDouble, Data: wire.Data{Double: d}}
}

func str(s *Service, v string) *wire.Value {
	return &wire.Value{Type: wire.TypeString, Data: wire.Data{String: wire.NewString(s.Allocator(), v)}}
}

func TestResolveEntryIsIdempotent(t *testing.T) {
	s := newService(t, nil)

	a, err := s.ResolveEntry("/foo")
	require.NoError(t, err)
	b, err := s.ResolveEntry("/bar")
	require.NoError(t, err)
	again, err := s.ResolveEntry("/foo")
	require.NoError(t, err)

	assert.Equal(t, wire.Handle(1), a)
	assert.Equal(t, wire.Handle(2), b)
	assert.Equal(t, a, again)

	name, err := s.GetEntryName(b)
	require.NoError(t, err)
	assert.Equal(t, []byte("/bar"), name)
}

func TestUnknownHandle(t *testing.T) {
	s := newService(t, nil)

	_, err := s.GetEntryType(42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.NewError(service.RetCInvalidHandle, "")))
}

func TestSetAndGetValue(t *testing.T) {
	s := newService(t, nil)
	h, _ := s.ResolveEntry("/foo/bar")

	typ, err := s.GetEntryType(h)
	require.NoError(t, err)
	assert.Equal(t, wire.TypeUnassigned, typ)

	v := str(s, "hello")
	ok, err := s.SetEntryValue(h, v)
	v.Dispose()
	require.NoError(t, err)
	require.True(t, ok)

	typ, _ = s.GetEntryType(h)
	assert.Equal(t, wire.TypeString, typ)

	got, err := s.GetEntryValue(h)
	require.NoError(t, err)
	assert.Equal(t, wire.TypeString, got.Type)
	assert.Equal(t, "hello", wire.StringOf(got.Data.String))

	stamp, _ := s.GetEntryLastChange(h)
	assert.Equal(t, stamp, got.LastChange)
	assert.NotZero(t, stamp)
	got.Dispose()

	assert.Zero(t, s.Allocator().Live())
}

func TestSetEntryValueRejectsTypeChange(t *testing.T) {
	s := newService(t, nil)
	h, _ := s.ResolveEntry("/typed")

	ok, err := s.SetEntryValue(h, double(s, 1.5))
	require.NoError(t, err)
	require.True(t, ok)

	v := str(s, "nope")
	ok, err = s.SetEntryValue(h, v)
	v.Dispose()
	require.NoError(t, err)
	assert.False(t, ok)

	typ, _ := s.GetEntryType(h)
	assert.Equal(t, wire.TypeDouble, typ)

	ok, err = s.SetEntryValue(h, double(s, 2.5))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentSetEntryValueSameType(t *testing.T) {
	tests := []struct {
		name    string
		factory service.DBFactory
		ops     int
	}{
		{name: "maple", ops: 2000},
		{name: "sqlite", ops: 200, factory: func() (db.KVDB, error) {
			return sqlite.NewSQLiteDB(nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(t, &Options{DB: tt.factory})
			h, _ := s.ResolveEntry("/race")

			const writers = 8
			var (
				wg       sync.WaitGroup
				rejected atomic.Int64
				failed   atomic.Int64
			)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < tt.ops; i++ {
						ok, err := s.SetEntryValue(h, double(s, float64(w*tt.ops+i)))
						if err != nil {
							failed.Add(1)
						} else if !ok {
							rejected.Add(1)
						}
					}
				}(w)
			}
			wg.Wait()

			assert.Zero(t, failed.Load())
			assert.Zero(t, rejected.Load(), "same type writes must never be rejected")

			// the stored stamp belongs to the last applied write
			stamp, err := s.GetEntryLastChange(h)
			require.NoError(t, err)
			v, err := s.GetEntryValue(h)
			require.NoError(t, err)
			defer v.Dispose()
			assert.Equal(t, wire.TypeDouble, v.Type)
			assert.Equal(t, stamp, v.LastChange)
		})
	}
}

func TestSetEntryValueRejectsUnassigned(t *testing.T) {
	s := newService(t, nil)
	h, _ := s.ResolveEntry("/x")

	_, err := s.SetEntryValue(h, &wire.Value{Type: wire.TypeUnassigned})
	assert.True(t, errors.Is(err, service.NewError(service.RetCInvalidOperation, "")))
}

func TestStampsIncrease(t *testing.T) {
	s := newService(t, nil)
	h, _ := s.ResolveEntry("/counter")

	var last uint64
	for i := 0; i < 5; i++ {
		_, err := s.SetEntryValue(h, double(s, float64(i)))
		require.NoError(t, err)
		stamp, _ := s.GetEntryLastChange(h)
		assert.Greater(t, stamp, last)
		last = stamp
	}
	now, err := s.Now()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, now, last)
}

func TestListEntries(t *testing.T) {
	s := newService(t, nil)

	set := func(name string, v *wire.Value) {
		h, _ := s.ResolveEntry(name)
		_, err := s.SetEntryValue(h, v)
		require.NoError(t, err)
		v.Dispose()
	}
	set("/foo/a", double(s, 1))
	set("/foo/b", str(s, "b"))
	set("/foo/bar/c", double(s, 3))
	set("/other", double(s, 4))
	// resolved but never assigned
	_, _ = s.ResolveEntry("/foo/empty")

	names := func(prefix string, mask uint32) []string {
		handles, err := s.ListEntries(prefix, mask)
		require.NoError(t, err)
		defer handles.Dispose()
		var result []string
		for _, h := range handles.Data() {
			n, _ := s.GetEntryName(h)
			result = append(result, string(n))
		}
		return result
	}

	assert.Equal(t, []string{"/foo/a", "/foo/b", "/foo/bar/c"}, names("/foo/", 0))
	assert.Equal(t, []string{"/foo/a", "/foo/bar/c"}, names("/foo/", uint32(wire.TypeDouble)))
	assert.Equal(t, []string{"/foo/b"}, names("", uint32(wire.TypeString)))
	assert.Len(t, names("", 0), 4)
	assert.Empty(t, names("/none", 0))
	assert.Zero(t, s.Allocator().Live())
}

// closingDB closes the service between the range scan and handle resolution
type closingDB struct {
	db.KVDB
	onRange func()
}

func (c *closingDB) Range(prefix string, fn db.RangeFunc) {
	c.KVDB.Range(prefix, fn)
	if c.onRange != nil {
		c.onRange()
	}
}

func TestListEntriesReportsCloseDuringListing(t *testing.T) {
	wrapped := &closingDB{KVDB: maple.NewMapleDB(nil)}
	s := newService(t, &Options{DB: func() (db.KVDB, error) { return wrapped, nil }})

	h, _ := s.ResolveEntry("/listed")
	_, err := s.SetEntryValue(h, double(s, 1))
	require.NoError(t, err)

	wrapped.onRange = func() { _ = s.Close() }

	handles, err := s.ListEntries("", 0)
	assert.Nil(t, handles)
	assert.True(t, errors.Is(err, service.NewError(service.RetCClosed, "")))
	assert.Zero(t, s.Allocator().Live())
}

func TestDeleteAllEntriesKeepsHandles(t *testing.T) {
	s := newService(t, nil)
	h, _ := s.ResolveEntry("/foo")
	_, _ = s.SetEntryValue(h, double(s, 1))

	require.NoError(t, s.DeleteAllEntries())

	typ, err := s.GetEntryType(h)
	require.NoError(t, err)
	assert.Equal(t, wire.TypeUnassigned, typ)

	again, _ := s.ResolveEntry("/foo")
	assert.Equal(t, h, again)

	// a deleted entry accepts any type again
	v := str(s, "now a string")
	ok, _ := s.SetEntryValue(h, v)
	v.Dispose()
	assert.True(t, ok)
}

func TestPeers(t *testing.T) {
	s := newService(t, nil)
	assert.False(t, s.IsConnected())

	s.RegisterPeer("a", "10.0.0.2:5810", "robot", 0)
	s.RegisterPeer("b", "127.0.0.1:0", "dashboard", 0x0400)
	assert.True(t, s.IsConnected())

	conns, err := s.ListConnections()
	require.NoError(t, err)
	require.Equal(t, 2, conns.Len())
	first, second := conns.Data()[0], conns.Data()[1]
	assert.Equal(t, "10.0.0.2", wire.StringOf(first.RemoteIP))
	assert.Equal(t, uint32(5810), first.RemotePort)
	assert.Equal(t, "robot", wire.StringOf(first.RemoteID))
	assert.Equal(t, ProtocolVersion, first.ProtocolVersion)
	assert.Equal(t, uint32(0x0400), second.ProtocolVersion)
	conns.Dispose()

	h, _ := s.ResolveEntry("/tick")
	_, _ = s.SetEntryValue(h, double(s, 1))
	s.TouchPeer("a", "10.0.0.2:5810", "")
	peers := s.Peers()
	assert.Equal(t, uint64(1), peers[0].LastUpdate)
	assert.Equal(t, "robot", peers[0].RemoteID)

	s.TouchPeer("c", "10.0.0.3:1", "late")
	assert.Len(t, s.Peers(), 3)

	s.RemovePeer("a")
	s.RemovePeer("b")
	s.RemovePeer("c")
	assert.False(t, s.IsConnected())
	assert.Zero(t, s.Allocator().Live())
}

func TestIdentity(t *testing.T) {
	s := newService(t, nil)
	assert.Regexp(t, `^dnt-[0-9a-f-]{36}$`, s.Identity())

	require.NoError(t, s.SetNetworkIdentity("robot"))
	assert.Equal(t, "robot", s.Identity())
}

func TestPersistence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nt.snapshot")

	first, err := NewLocalService(&Options{PersistFile: file})
	require.NoError(t, err)
	h, _ := first.ResolveEntry("/persist/me")
	_, err = first.SetEntryValue(h, double(first, 4.2))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newService(t, &Options{PersistFile: file})
	h, _ = second.ResolveEntry("/persist/me")
	v, err := second.GetEntryValue(h)
	require.NoError(t, err)
	defer v.Dispose()
	assert.Equal(t, wire.TypeDouble, v.Type)
	assert.Equal(t, 4.2, v.Data.Double)

	// the clock continues after the restored stamps
	now, _ := second.Now()
	assert.GreaterOrEqual(t, now, v.LastChange)
}

func TestPeriodicFlush(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nt.snapshot")
	s := newService(t, &Options{PersistFile: file})
	require.NoError(t, s.SetUpdateRate(10*time.Millisecond))

	h, _ := s.ResolveEntry("/flush")
	_, _ = s.SetEntryValue(h, double(s, 1))

	assert.Eventually(t, func() bool {
		f, err := os.Open(file)
		if err != nil {
			return false
		}
		defer f.Close()
		snapshot := maple.NewMapleDB(nil)
		return snapshot.Load(f) == nil && snapshot.Has("/flush")
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nt.db")
	s := newService(t, &Options{DB: func() (db.KVDB, error) {
		return sqlite.NewSQLiteDB(&sqlite.DBOptions{Path: path})
	}})

	h, _ := s.ResolveEntry("/sql/value")
	ok, err := s.SetEntryValue(h, double(s, 9))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sqlite", string(s.GetDBInfo().DbType))
}

func TestClosedService(t *testing.T) {
	s, err := NewLocalService(nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.ResolveEntry("/x")
	assert.True(t, errors.Is(err, service.NewError(service.RetCClosed, "")))
	assert.False(t, s.IsConnected())
}

var _ service.IService = (*Service)(nil)
