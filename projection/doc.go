// Package projection derives the queryable loans view from the event log.
//
// The view is a flat denormalized row per loan, rebuilt by replaying the
// loan's complete history and upserted as a whole. It is eventually consistent
// with the event log: a read between an append and the following projection
// may see stale data. Re-running a projection is always safe.
package projection
