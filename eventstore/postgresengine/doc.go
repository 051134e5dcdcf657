// Package postgresengine provides the PostgreSQL implementation of the event store.
//
// The engine persists events into a single append-only table. Each event row
// carries the aggregate it belongs to, its per-aggregate version, and a global
// sequence number. Appends assign versions atomically in one SQL statement, so
// concurrent writers to the same aggregate are serialized by the unique index
// on (aggregate_id, aggregate_version) instead of explicit locks.
//
// The engine supports multiple database libraries through adapters:
// pgx.Pool, sql.DB (database/sql), and sqlx.DB.
package postgresengine
