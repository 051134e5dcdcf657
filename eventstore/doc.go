// Package eventstore defines the storage-agnostic types of the append-only
// event log: the StorableEvent DTO exchanged with engines, the StoredEvent
// read back with its assigned positions, the sentinel errors shared by all
// engines, and the Logger interface engines log through.
//
// The Postgres engine lives in the postgresengine subpackage.
package eventstore
