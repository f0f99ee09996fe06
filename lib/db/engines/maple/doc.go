// Package maple implements an in-memory key-value database (KVDB) that backs
// the local network table service. It provides a complete implementation of
// the db.KVDB interface with a focus on thread safety and cheap prefix scans.
//
// Key Components:
//
//   - mapleImpl: The central database structure implementing db.KVDB. It manages shards
//     and maintains a monotonically increasing write index. The write index itself is
//     supplied by the caller; the network table service uses it as the change stamp
//     of an entry.
//
//   - Shard: A partition of the key space backed by an xsync.MapOf keyed by the
//     full entry name. Keys are assigned to shards with util.HashString and a
//     database-specific seed, right-shifted by 7 bits to use the higher-quality bits.
//
//   - Record: The stored value plus the write index of its last change.
//
// Internal Mechanisms:
//
//   - Stale Write Prevention: A write is only applied if its write index is greater
//     than or equal to the index stored for the key.
//
//   - Conditional Writes: SetIf evaluates its condition inside xsync's Compute, so the
//     check and the write are atomic for one key. The network table service uses this
//     to reject writes whose type differs from the stored entry. A stale write reports
//     db.SetIfStale instead of db.SetIfRejected, so a lost race is not read as a
//     declined condition.
//
//   - Prefix Ranges: Range walks every shard and filters by prefix. The view is fuzzy,
//     entries written during the walk may or may not be seen.
//
//   - Persistence Format:
//     1. Magic number "MAPLEDB\x00" to identify the file format
//     2. Version number (currently 4)
//     3. Database seed value for hash function consistency
//     4. Number of entries
//     5. For each entry: key length, key, write index, value length, value bytes
//     Save produces a fuzzy snapshot. Load builds new shards and swaps them in only
//     once the whole snapshot was read.
package maple
