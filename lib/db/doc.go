// Package db provides a standardized interface for the storage engines that
// back a network table service. It defines the KVDB interface that allows for
// consistent interaction with various database backends while abstracting
// implementation details.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Feature discovery through capability flags
//   - Standardized persistence operations
//   - Metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for basic operations (Set, Get, Has, Delete),
//     an atomic conditional write (SetIf), prefix enumeration (Range),
//     metadata retrieval (GetInfo), and persistence operations (Save, Load).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. This allows clients to
//     discover supported operations at runtime.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for the different database backends ("maple" and "sqlite").
//
// Note on the Write Index:
//   - All write operations require a write-index parameter that serves as a
//     logical timestamp. The network table service uses it as the change stamp
//     of an entry, so Get returns it next to the value.
//   - Monotonicity Guarantee: All implementations must ensure that the write-index only increases
//     monotonically. Attempts to set a write-index lower than the current one must be ignored.
//
// Related Packages:
//
// The engines/maple package (github.com/ValentinKolb/dNT/lib/db/engines/maple) provides a
// sharded in-memory implementation with binary snapshot persistence.
//
// The engines/sqlite package (github.com/ValentinKolb/dNT/lib/db/engines/sqlite) stores
// entries in a SQLite database file.
//
// The testing package (github.com/ValentinKolb/dNT/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
