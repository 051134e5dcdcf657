package postgresengine

import (
	"loanledger/eventstore"
)

// Option defines a functional option for configuring the EventStore.
type Option func(*EventStore) error

// WithTableName sets a custom table name for the EventStore.
func WithTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		es.eventTableName = tableName

		return nil
	}
}

// WithLogger sets a logger for the EventStore to enable debug logging
// of SQL queries with their execution duration as well as operational logging.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger

		return nil
	}
}

// WithStreamBatchSize sets the number of events StreamAll reads per page.
func WithStreamBatchSize(size uint) Option {
	return func(es *EventStore) error {
		if size == 0 {
			return eventstore.ErrInvalidStreamBatchSize
		}

		es.streamBatchSize = size

		return nil
	}
}
