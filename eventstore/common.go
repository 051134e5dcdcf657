package eventstore

import (
	"errors"
)

var ErrEmptyEventsTableName = errors.New("empty events table name supplied")
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrInvalidStreamBatchSize = errors.New("stream batch size must be positive")

// ErrConcurrencyConflict is returned when two appenders raced for the same
// aggregate and this one lost. The failed append left nothing behind; retrying
// re-reads the winner's committed version and continues from there.
var ErrConcurrencyConflict = errors.New("concurrency conflict, aggregate version already taken")

var ErrBuildingQueryFailed = errors.New("building query failed")
var ErrQueryingEventsFailed = errors.New("querying events failed")
var ErrScanningDBRowFailed = errors.New("scanning database row failed")
var ErrBuildingStorableEventFailed = errors.New("building storable event from database row failed")
var ErrAppendingEventFailed = errors.New("appending events failed")
var ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
