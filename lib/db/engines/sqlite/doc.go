// Package sqlite implements db.KVDB on top of SQLite (modernc.org/sqlite, no cgo).
//
// Entries live in a single table keyed by the raw key bytes. Writes whose
// index is older than the stored one are ignored (SetIf reports them as
// db.SetIfStale). SetIf runs its condition inside a transaction and Range is
// an ordered key-range scan.
// Because the data already lives in a file, Save and Load are mostly useful
// to move a table between engines; they use their own snapshot format.
//
// The KVDB write methods do not return errors. SQLite failures are logged
// through the "db" logger and the call behaves as a no-op.
package sqlite
