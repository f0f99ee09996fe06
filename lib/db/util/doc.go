// Package util provides utility functions for database implementations that
// satisfy the db.KVDB interface.
//
// The package contains:
//   - functions: Seed generation and a seeded FNV-1a string hash used for sharding
//     and for deriving stable numeric ids from names
//   - statistics: Shard distribution statistics and an entry size histogram for GetInfo
package util
