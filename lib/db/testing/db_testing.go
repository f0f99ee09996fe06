package testing

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dNT/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("WriteIndex", func(t *testing.T) {
			testWriteIndex(t, factory())
		})

		t.Run("StaleWrite", func(t *testing.T) {
			testStaleWrite(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("SetIf", func(t *testing.T) {
			testSetIf(t, factory())
		})

		t.Run("ConcurrentSetIf", func(t *testing.T) {
			testConcurrentSetIf(t, factory())
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func rangeKeys(database db.KVDB, prefix string) []string {
	var keys []string
	database.Range(prefix, func(key string, _ []byte, _ uint64) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "/test/key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1, 1)

	result, _, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2, 2)

	result, _, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, _, exists = database.Get("/nonexistent"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _, _ := database.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _, _ := database.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	input := []byte("mutable")
	database.Set(testKey, input, 3)
	input[0] = 'X'
	if stored, _, _ := database.Get(testKey); !bytes.Equal(stored, []byte("mutable")) {
		t.Errorf("Set should copy the value, got %s", stored)
	}
}

func testWriteIndex(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	database.Set("/a", []byte("a"), 5)
	database.Set("/b", []byte("b"), 9)

	if _, idx, _ := database.Get("/a"); idx != 5 {
		t.Errorf("Expected write index 5 for /a, got %d", idx)
	}
	if _, idx, _ := database.Get("/b"); idx != 9 {
		t.Errorf("Expected write index 9 for /b, got %d", idx)
	}
	if database.WriteIdx() != 9 {
		t.Errorf("Expected database write index 9, got %d", database.WriteIdx())
	}

	database.SetWriteIdx(3)
	if database.WriteIdx() != 9 {
		t.Errorf("Write index must not decrease, got %d", database.WriteIdx())
	}

	database.SetWriteIdx(20)
	if database.WriteIdx() != 20 {
		t.Errorf("Expected write index 20, got %d", database.WriteIdx())
	}
}

func testStaleWrite(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	database.Set("/stale", []byte("new"), 10)
	database.Set("/stale", []byte("old"), 4)

	value, idx, _ := database.Get("/stale")
	if !bytes.Equal(value, []byte("new")) || idx != 10 {
		t.Errorf("Stale write was applied: got %s at %d", value, idx)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	testKey := "/delete/me"
	database.Set(testKey, []byte("value"), 1)
	database.Delete(testKey, 2)

	if _, _, exists := database.Get(testKey); exists {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	// deleting a missing key is a no-op
	database.Delete("/never/set", 3)
	if database.Has("/never/set") {
		t.Errorf("Delete must not create keys")
	}

	database.Set(testKey, []byte("again"), 4)
	if value, _, exists := database.Get(testKey); !exists || !bytes.Equal(value, []byte("again")) {
		t.Errorf("Expected key %s to be writable after Delete", testKey)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas)

	if database.Has("/has") {
		t.Errorf("Expected Has to return false for unset key")
	}
	database.Set("/has", nil, 1)
	if !database.Has("/has") {
		t.Errorf("Expected Has to return true for key with empty value")
	}
}

func testSetIf(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetIf|db.FeatureGet)

	ifUnset := func(_ []byte, loaded bool) bool { return !loaded }

	if res := database.SetIf("/cond", []byte("first"), 1, ifUnset); res != db.SetIfApplied {
		t.Fatalf("Expected SetIf on missing key to succeed, got %s", res)
	}
	if res := database.SetIf("/cond", []byte("second"), 2, ifUnset); res != db.SetIfRejected {
		t.Errorf("Expected SetIf to be rejected on existing key, got %s", res)
	}
	if value, _, _ := database.Get("/cond"); !bytes.Equal(value, []byte("first")) {
		t.Errorf("Rejected SetIf changed the value to %s", value)
	}

	var seen []byte
	res := database.SetIf("/cond", []byte("third"), 3, func(old []byte, loaded bool) bool {
		seen = append([]byte(nil), old...)
		return loaded && bytes.Equal(old, []byte("first"))
	})
	if res != db.SetIfApplied {
		t.Errorf("Expected SetIf with matching old value to succeed, got %s", res)
	}
	if !bytes.Equal(seen, []byte("first")) {
		t.Errorf("Condition saw %s, expected first", seen)
	}

	// a rejected SetIf on a missing key must not create it
	if res := database.SetIf("/absent", []byte("x"), 4, func([]byte, bool) bool { return false }); res != db.SetIfRejected {
		t.Errorf("Expected SetIf to be rejected, got %s", res)
	}
	if database.Has("/absent") {
		t.Errorf("Rejected SetIf created key")
	}

	// an older index loses without consulting the condition
	consulted := false
	res = database.SetIf("/cond", []byte("old"), 2, func([]byte, bool) bool {
		consulted = true
		return true
	})
	if res != db.SetIfStale {
		t.Errorf("Expected stale SetIf, got %s", res)
	}
	if consulted {
		t.Errorf("Stale SetIf consulted the condition")
	}
	if value, idx, _ := database.Get("/cond"); !bytes.Equal(value, []byte("third")) || idx != 3 {
		t.Errorf("Stale SetIf changed the entry to %s@%d", value, idx)
	}
}

func testConcurrentSetIf(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetIf)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if database.SetIf("/race", []byte(fmt.Sprint(i)), uint64(i+1), func(_ []byte, loaded bool) bool {
				return !loaded
			}) == db.SetIfApplied {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("Expected exactly one SetIf to win, got %d", winners.Load())
	}
}

func testRange(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureRange)

	for i, key := range []string{"/foo/a", "/foo/b", "/foo/bar/c", "/foobar", "/other"} {
		database.Set(key, []byte(key), uint64(i+1))
	}

	if got := rangeKeys(database, "/foo/"); fmt.Sprint(got) != "[/foo/a /foo/b /foo/bar/c]" {
		t.Errorf("Range(/foo/) = %v", got)
	}
	if got := rangeKeys(database, "/foo"); len(got) != 4 {
		t.Errorf("Range(/foo) returned %d keys, expected 4", len(got))
	}
	if got := rangeKeys(database, ""); len(got) != 5 {
		t.Errorf("Range(\"\") returned %d keys, expected 5", len(got))
	}
	if got := rangeKeys(database, "/none"); len(got) != 0 {
		t.Errorf("Range(/none) returned %v", got)
	}

	database.Range("/foo/bar/c", func(key string, value []byte, idx uint64) bool {
		if !bytes.Equal(value, []byte(key)) || idx != 3 {
			t.Errorf("Range yielded %s=%s@%d", key, value, idx)
		}
		return true
	})

	calls := 0
	database.Range("", func(string, []byte, uint64) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("Range should stop after fn returns false, got %d calls", calls)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	database2 := factory()

	// close the databases after the test
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureSave|db.FeatureLoad)

	numEntries := 1000
	for i := 0; i < numEntries; i++ {
		database.Set(fmt.Sprintf("/save/%d", i), []byte(fmt.Sprintf("value-%d", i)), uint64(i+1))
	}

	// entries present before Load must be replaced
	database2.Set("/stale/entry", []byte("x"), 1)

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}
	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("/save/%d", i)
		value, idx, exists := database2.Get(key)
		if !exists {
			t.Errorf("Key %s not found after Load", key)
			continue
		}
		if !bytes.Equal(value, []byte(fmt.Sprintf("value-%d", i))) {
			t.Errorf("Value mismatch for key %s: got %s", key, value)
		}
		if idx != uint64(i+1) {
			t.Errorf("Write index mismatch for key %s: got %d", key, idx)
		}
	}

	if database2.Has("/stale/entry") {
		t.Errorf("Load should replace existing entries")
	}
	if database2.WriteIdx() < uint64(numEntries) {
		t.Errorf("Expected write index >= %d after Load, got %d", numEntries, database2.WriteIdx())
	}

	if err := database2.Load(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Expected error when loading garbage")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	t.Run("EmptyKey", func(t *testing.T) {
		database.Set("", []byte("empty"), 1)
		if value, _, ok := database.Get(""); !ok || !bytes.Equal(value, []byte("empty")) {
			t.Errorf("Empty key not stored correctly")
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		database.Set("/empty", []byte{}, 2)
		value, _, ok := database.Get("/empty")
		if !ok || len(value) != 0 {
			t.Errorf("Empty value not stored correctly: %v %v", value, ok)
		}
	})

	t.Run("LargeValue", func(t *testing.T) {
		large := bytes.Repeat([]byte{0xAB}, 1<<20)
		database.Set("/large", large, 3)
		if value, _, _ := database.Get("/large"); !bytes.Equal(value, large) {
			t.Errorf("Large value not stored correctly")
		}
	})

	t.Run("BinaryKey", func(t *testing.T) {
		key := "/bin/\x00\xff"
		database.Set(key, []byte("bin"), 4)
		if !database.Has(key) {
			t.Errorf("Binary key not stored correctly")
		}
	})
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureRange)

	var (
		wg    sync.WaitGroup
		index atomic.Uint64
	)
	workers, perWorker := 8, 200
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("/robot/%d/%d", w, i%20)
				database.Set(key, []byte(fmt.Sprint(i)), index.Add(1))
				database.Get(key)
			}
		}(w)
	}
	wg.Wait()

	if got := len(rangeKeys(database, "/robot/")); got != workers*20 {
		t.Errorf("Expected %d keys, got %d", workers*20, got)
	}
	if database.WriteIdx() != uint64(workers*perWorker) {
		t.Errorf("Expected write index %d, got %d", workers*perWorker, database.WriteIdx())
	}
}
