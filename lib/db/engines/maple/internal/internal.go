package internal

import (
	"github.com/ValentinKolb/dNT/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Record Type (value with metadata)
// --------------------------------------------------------------------------

// Record stores a value together with the write index of its last change
type Record struct {
	Value []byte // Stored bytes, owned by the shard
	Index uint64 // Write index when this record was created/updated
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database
type Shard struct {
	Data *xsync.MapOf[string, Record]
}

// NewShard creates a new empty shard
func NewShard() *Shard {
	return &Shard{
		Data: xsync.NewMapOf[string, Record](),
	}
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key string, seed uint64, shards []*T) *T {
	return shards[util.ShardIndex(util.HashString(key, seed), len(shards))]
}
