package db

import "io"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple  Implementation = "maple"
	ImplSQLite Implementation = "sqlite"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet    Feature = 1 << iota // Support for Set operations
	FeatureSetIf                      // Support for SetIf operations
	FeatureGet                        // Support for Get operations
	FeatureDelete                     // Support for Delete operations
	FeatureHas                        // Support for Has operations
	FeatureRange                      // Support for prefix Range operations
	FeatureSave                       // Support for Save operations
	FeatureLoad                       // Support for Load operations
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureSetIf:
		return "SetIf"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureRange:
		return "Range"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	Entries           int            `json:"entries"`
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// SetIfFunc decides whether a conditional write may replace the current value.
// old is nil and loaded is false if the key does not exist.
type SetIfFunc func(old []byte, loaded bool) (ok bool)

// SetIfResult is the outcome of a conditional write
type SetIfResult uint8

const (
	SetIfApplied  SetIfResult = iota // the value was written
	SetIfRejected                    // cond declined the write
	SetIfStale                       // the key carries a newer write index, cond was not consulted
	SetIfFailed                      // the engine could not perform the write
)

func (r SetIfResult) String() string {
	switch r {
	case SetIfApplied:
		return "applied"
	case SetIfRejected:
		return "rejected"
	case SetIfStale:
		return "stale"
	case SetIfFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RangeFunc is called for every key visited by Range. Returning false stops the iteration.
type RangeFunc func(key string, value []byte, writeIndex uint64) (cont bool)

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for key-value database implementations.
// It provides methods for basic operations like Set, Get, Delete, and various utility functions.
// Any implementation of this interface must manage keys in a consistent way.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry with the given key, value, and writeIndex.
	// If the key already exists, the old value should be overwritten.
	// The writeIndex parameter is used as a logical timestamp for the entry.
	Set(key string, value []byte, writeIndex uint64)

	// SetIf inserts or updates an entry only if cond approves the current state of the key.
	// The check and the write happen atomically with respect to other writes on the same key.
	// A write whose index is older than the stored one reports SetIfStale, so callers can
	// tell a lost race apart from a declined condition.
	SetIf(key string, value []byte, writeIndex uint64, cond SetIfFunc) SetIfResult

	// Delete removes an entry with the specified key.
	// The key should be removed from the database and not be findable anymore.
	Delete(key string, writeIndex uint64)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves a copy of the value for an exact key together with the write index of its last change.
	// The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, writeIndex uint64, loaded bool)

	// Has checks whether a key exists in the database.
	Has(key string) (loaded bool)

	// Range calls fn for every key starting with prefix. The order is unspecified.
	// The value passed to fn must not be retained after fn returns.
	Range(prefix string, fn RangeFunc)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load replaces the database state with the data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Returns true if the feature is supported, false otherwise.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// --------------------------------------------------------------------------
	// Write Index Operations
	// --------------------------------------------------------------------------

	// SetWriteIdx sets the current index of the database only if the provided index is greater than the current index.
	SetWriteIdx(index uint64)

	// WriteIdx returns the current index of the database .
	WriteIdx() (index uint64)

	// Close closes the database.
	Close() (err error)
}
