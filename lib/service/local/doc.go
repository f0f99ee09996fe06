// Package local provides an in-process implementation of service.IService.
//
// Entries are stored in a db.KVDB (maple by default) under their full name.
// The stored bytes are the wire codec encoding of the value, so the type of
// an entry can be read from the first byte without decoding the payload.
//
// Every write takes the next value of an atomic write index (the same scheme
// the database uses for stale write detection). That index is the change
// stamp reported by GetEntryLastChange and the clock returned by Now.
//
// Handles are dense integers starting at 1, assigned on first resolution of a
// name and kept for the lifetime of the service, even after DeleteAllEntries.
//
// Persistence is optional: with a persist file the service loads it on start,
// writes it on Flush, periodically at the update rate, and once more on Close.
//
// The RPC server registers its clients as peers; they are reported by
// ListConnections and make IsConnected return true.
package local
