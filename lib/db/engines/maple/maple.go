package maple

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dNT/lib/db"
	"github.com/ValentinKolb/dNT/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/dNT/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for database behavior and structure
const (
	magicNum     = "MAPLEDB\x00" // File format identifier
	mapleVersion = 4             // Database version
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements an in-memory database with sharded data
type mapleImpl struct {
	// guards the shard slice and seed, which Load replaces
	mu sync.RWMutex

	seed      uint64            // Seed for hash function
	shards    []*internal.Shard // Array of shards
	currIndex atomic.Uint64     // Current logical timestamp
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = auto)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(), // Auto-determine based on CPU count
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	return &mapleImpl{
		seed:   util.GenerateSeed(),
		shards: newShards(opts.NumShards),
	}
}

func newShards(n int) []*internal.Shard {
	shards := make([]*internal.Shard, n)
	for i := range shards {
		shards[i] = internal.NewShard()
	}
	return shards
}

// shard returns the shard responsible for the key
func (maple *mapleImpl) shard(key string) *internal.Shard {
	maple.mu.RLock()
	defer maple.mu.RUnlock()
	return internal.GetShard(key, maple.seed, maple.shards)
}

// snapshotShards returns the current shard slice
func (maple *mapleImpl) snapshotShards() []*internal.Shard {
	maple.mu.RLock()
	defer maple.mu.RUnlock()
	return maple.shards
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry with the given key, value, and writeIndex.
// Writes with an index older than the stored one are ignored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte, writeIndex uint64) {
	maple.compute(key, value, writeIndex, func(_ []byte, _ bool) (bool, bool) {
		return true, false
	})
}

// SetIf inserts or updates an entry if cond accepts the current value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// cond runs while the key is locked and must not access the database.
func (maple *mapleImpl) SetIf(key string, value []byte, writeIndex uint64, cond db.SetIfFunc) db.SetIfResult {
	return maple.compute(key, value, writeIndex, func(old []byte, loaded bool) (bool, bool) {
		return cond(old, loaded), false
	})
}

// Delete removes an entry with the specified key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string, writeIndex uint64) {
	maple.compute(key, nil, writeIndex, func(_ []byte, _ bool) (bool, bool) {
		return false, true
	})
}

// compute is the shared write path of Set, SetIf and Delete.
// fn decides whether the new value is written or the existing key is deleted.
// It reports whether a write or delete took place, or why not.
func (maple *mapleImpl) compute(key string, value []byte, writeIndex uint64, fn func(old []byte, loaded bool) (write, del bool)) (result db.SetIfResult) {

	// update the current index
	maple.SetWriteIdx(writeIndex)

	shard := maple.shard(key)

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	shard.Data.Compute(key, func(old internal.Record, loaded bool) (internal.Record, bool) {
		// stale writes are ignored
		if loaded && writeIndex < old.Index {
			result = db.SetIfStale
			return old, false
		}

		write, del := fn(old.Value, loaded)
		switch {
		case del:
			result = db.SetIfApplied
			if !loaded {
				result = db.SetIfRejected
			}
			return old, true
		case write:
			result = db.SetIfApplied
			return internal.Record{Value: valueCopy, Index: writeIndex}, false
		default:
			result = db.SetIfRejected
			// delete=true on a missing key keeps the map unchanged
			return old, !loaded
		}
	})

	return result
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a value for a key together with its write index.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, uint64, bool) {
	rec, ok := maple.shard(key).Data.Load(key)
	if !ok {
		return nil, 0, false
	}

	data := make([]byte, len(rec.Value))
	copy(data, rec.Value)
	return data, rec.Index, true
}

// Has checks if a key exists in the database.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Has(key string) bool {
	_, ok := maple.shard(key).Data.Load(key)
	return ok
}

// Range calls fn for every key with the given prefix.
// Entries written concurrently may or may not be visited.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Range(prefix string, fn db.RangeFunc) {
	for _, shard := range maple.snapshotShards() {
		cont := true
		shard.Data.Range(func(key string, rec internal.Record) bool {
			if !strings.HasPrefix(key, prefix) {
				return true
			}
			cont = fn(key, rec.Value, rec.Index)
			return cont
		})
		if !cont {
			return
		}
	}
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the database to the writer
//
// Thread-safety: This function allows concurrent operations with all other functions
// except Load. It takes snapshots of the data without blocking modifications.
func (maple *mapleImpl) Save(w io.Writer) error {
	// Use a buffered writer for better performance
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	type entryToSave struct {
		key string
		rec internal.Record
	}

	var entries []entryToSave
	maple.Range("", func(key string, value []byte, index uint64) bool {
		valueCopy := make([]byte, len(value))
		copy(valueCopy, value)
		entries = append(entries, entryToSave{key, internal.Record{Value: valueCopy, Index: index}})
		return true
	})

	maple.mu.RLock()
	seed := maple.seed
	maple.mu.RUnlock()

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	// Write maple version
	if err := binary.Write(bw, binary.LittleEndian, uint8(mapleVersion)); err != nil {
		return err
	}

	// Write seed
	if err := binary.Write(bw, binary.LittleEndian, seed); err != nil {
		return err
	}

	// Write total data entries count
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, item := range entries {
		// Write key
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(item.key); err != nil {
			return err
		}

		// Write write index
		if err := binary.Write(bw, binary.LittleEndian, item.rec.Index); err != nil {
			return err
		}

		// Write value
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.rec.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(item.rec.Value); err != nil {
			return err
		}
	}

	// Flush buffer to ensure all data is written
	return bw.Flush()
}

// Load restores a database from the reader, replacing all entries.
// On error the database is left unchanged.
//
// Thread-safety: This function should not be called concurrently with Save.
func (maple *mapleImpl) Load(r io.Reader) error {
	// Use a buffered reader for better performance
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	// Read seed
	var seed uint64
	if err := binary.Read(br, binary.LittleEndian, &seed); err != nil {
		return err
	}

	// Read data entries count
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	shards := newShards(len(maple.snapshotShards()))
	var maxIndex uint64

	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return err
		}

		var index uint64
		if err := binary.Read(br, binary.LittleEndian, &index); err != nil {
			return err
		}
		if index > maxIndex {
			maxIndex = index
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		k := string(key)
		internal.GetShard(k, seed, shards).Data.Store(k, internal.Record{Value: value, Index: index})
	}

	maple.mu.Lock()
	maple.shards = shards
	maple.seed = seed
	maple.mu.Unlock()

	// Update current index to the highest seen during load
	maple.SetWriteIdx(maxIndex)

	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	shards := maple.snapshotShards()

	histogram := util.NewSizeHistogram()
	shardSizes := make([]float64, len(shards))
	entries := 0

	for i, shard := range shards {
		size := shard.Data.Size()
		shardSizes[i] = float64(size)
		entries += size
		shard.Data.Range(func(key string, rec internal.Record) bool {
			histogram.AddSample(len(key) + len(rec.Value))
			return true
		})
	}

	// 8 bytes index plus map overhead per entry
	entryOverhead := 24

	meta := &struct {
		CurrentWriteIndex uint64                 `json:"current_write_index"`
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		MedianEntrySize   int                    `json:"median_entry_size"`
		Info              string                 `json:"info"`
	}{
		CurrentWriteIndex: maple.currIndex.Load(),
		ShardCount:        len(shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		MedianEntrySize:   histogram.MedianEstimate(),
		Info:              "SizeBytes is an estimate based on the average entry size.",
	}

	return db.DatabaseInfo{
		Entries:   entries,
		SizeBytes: entries * (histogram.AverageSize() + entryOverhead),
		DbType:    db.ImplMaple,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetIf, db.FeatureDelete,
			db.FeatureGet, db.FeatureHas, db.FeatureRange,
			db.FeatureSave, db.FeatureLoad,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetIf |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureRange |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close releases nothing, the maple engine holds no external resources
func (maple *mapleImpl) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Index and Timestamp Management
// --------------------------------------------------------------------------

// SetWriteIdx safely updates the current index
// It only updates if the new index is greater than the current one
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := maple.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if maple.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}
