package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/dNT/lib/db"
	dbtesting "github.com/ValentinKolb/dNT/lib/db/testing"
)

func newTestDB(t testing.TB) db.KVDB {
	database, err := NewSQLiteDB(nil)
	if err != nil {
		t.Fatalf("NewSQLiteDB failed: %v", err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "SQLiteDB", func() db.KVDB {
		return newTestDB(t)
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "SQLiteDB", func() db.KVDB {
		return newTestDB(b)
	})
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nt.db")

	first, err := NewSQLiteDB(&DBOptions{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first.Set("/foo/bar", []byte("baz"), 7)
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewSQLiteDB(&DBOptions{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	value, idx, ok := second.Get("/foo/bar")
	if !ok || string(value) != "baz" || idx != 7 {
		t.Errorf("Get after reopen = %q, %d, %v", value, idx, ok)
	}
	if second.WriteIdx() != 7 {
		t.Errorf("WriteIdx after reopen = %d, want 7", second.WriteIdx())
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		prefix string
		upper  string
		ok     bool
	}{
		{"", "", false},
		{"/foo", "/fop", true},
		{"a\xff", "b", true},
		{"\xff\xff", "", false},
	}
	for _, tt := range tests {
		upper, ok := prefixUpperBound([]byte(tt.prefix))
		if ok != tt.ok || string(upper) != tt.upper {
			t.Errorf("prefixUpperBound(%q) = %q, %v; want %q, %v", tt.prefix, upper, ok, tt.upper, tt.ok)
		}
	}
}
