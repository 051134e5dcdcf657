package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"loanledger/eventstore"
	"loanledger/eventstore/postgresengine/internal/adapters"
)

const (
	defaultEventTableName  = "events"
	defaultAggregateType   = "Loan"
	defaultStreamBatchSize = 500

	// How often a lost version race is retried before the conflict is surfaced.
	// Each retry re-reads the winner's committed max version, so retries only
	// fail again if yet another appender won in the meantime.
	appendMaxAttempts = 4

	logMsgBuildSelectQueryFailed   = "failed to build select query"
	logMsgDBQueryFailed            = "database query execution failed"
	logMsgCloseRowsFailed          = "failed to close database rows"
	logMsgScanRowFailed            = "failed to scan database row"
	logMsgBuildStorableEventFailed = "failed to build storable event from database row"
	logMsgBuildInsertQueryFailed   = "failed to build insert query"
	logMsgDBExecFailed             = "database execution failed during event append"
	logMsgRowsAffectedFailed       = "failed to get rows affected count"
	logMsgEventsLoaded             = "events loaded"
	logMsgEventsAppended           = "events appended"
	logMsgEventsStreamed           = "events streamed"
	logMsgConcurrencyConflict      = "concurrency conflict detected"
	logMsgSQLExecuted              = "executed sql for: "
	logMsgOperation                = "eventstore operation: "
	logAttrError                   = "error"
	logAttrQuery                   = "query"
	logAttrEventType               = "event_type"
	logAttrEventCount              = "event_count"
	logAttrDurationMS              = "duration_ms"
	logAttrAggregateID             = "aggregate_id"
	logAttrAttempt                 = "attempt"
	logAttrRowsAffected            = "rows_affected"
	logActionLoad                  = "load"
	logActionAppend                = "append"
	logActionStream                = "stream"

	colAggregateID      = "aggregate_id"
	colAggregateVersion = "aggregate_version"
	colAggregateType    = "aggregate_type"
	colEventType        = "event_type"
	colEventData        = "event_data"
	colMetadata         = "metadata"
	colOccurredAt       = "occurred_at"
	colSequenceNumber   = "sequence_number"

	cteCurrent            = "current"
	cteVals               = "vals"
	aliasCurrentVersion   = "current_version"
	colVersionOffset      = "version_offset"
	dialectPostgres       = "postgres"
	castUUID              = "?::uuid"
	castText              = "?::text"
	castInt               = "?::int"
	castTimestamp         = "?::timestamp with time zone"
	castJsonb             = "?::jsonb"
	exprAssignVersion     = "current.current_version + vals.version_offset"
	tracerName            = "loanledger/eventstore"
	spanAppend            = "eventstore.append"
	spanLoad              = "eventstore.load"
	spanStream            = "eventstore.stream"
	attrAggregateID      = "aggregate.id"
	attrEventCount       = "event.count"
	attrConflictDetected = "conflict.detected"
	attrAfterSequence    = "stream.after_sequence"
	attrStreamedEvents   = "stream.event_count"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

// EventStore is the PostgreSQL engine for the append-only event log.
//
// Events are stored per aggregate with a strictly increasing, gapless
// aggregate_version, plus a global sequence_number used by StreamAll.
// Version assignment and insert happen in one atomic statement, so two
// concurrent appenders for the same aggregate can never both claim the
// same next version.
type EventStore struct {
	db              adapters.DBAdapter
	eventTableName  string
	aggregateType   string
	streamBatchSize uint
	logger          eventstore.Logger
	tracer          trace.Tracer
}

type queryResultRow struct {
	eventType  string
	occurredAt time.Time
	payload    []byte
	metadata   []byte
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapter(db), options...)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), options...)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapter(db), options...)
}

func newEventStore(db adapters.DBAdapter, options ...Option) (EventStore, error) {
	es := EventStore{
		db:              db,
		eventTableName:  defaultEventTableName,
		aggregateType:   defaultAggregateType,
		streamBatchSize: defaultStreamBatchSize,
		tracer:          otel.Tracer(tracerName),
	}

	for _, option := range options {
		if err := option(&es); err != nil {
			return EventStore{}, err
		}
	}

	return es, nil
}

// Append atomically appends one or multiple eventstore.StorableEvent(s) for the
// given aggregate.
//
// Within a single statement the current max aggregate_version is read and the
// batch is inserted with versions current+1 .. current+N, in order. When two
// appenders race for the same aggregate, the unique (aggregate_id,
// aggregate_version) index rejects the loser; the append is then re-executed
// and observes the winner's committed version. After appendMaxAttempts lost
// races, eventstore.ErrConcurrencyConflict is returned.
//
// Appending an empty batch is a no-op success.
func (es EventStore) Append(ctx context.Context, aggregateID uuid.UUID, events ...eventstore.StorableEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, span := es.tracer.Start(ctx, spanAppend, trace.WithAttributes(
		attribute.String(attrAggregateID, aggregateID.String()),
		attribute.Int(attrEventCount, len(events)),
	))
	defer span.End()

	sqlQuery, buildQueryErr := es.buildAppendQuery(aggregateID, events)
	if buildQueryErr != nil {
		return buildQueryErr
	}

	for attempt := 1; ; attempt++ {
		rowsAffected, duration, execErr := es.executeAppendQuery(ctx, sqlQuery)

		switch {
		case execErr == nil:
			if err := es.validateAppendResult(rowsAffected, len(events)); err != nil {
				return err
			}

			es.logOperation(
				logMsgEventsAppended,
				logAttrAggregateID, aggregateID.String(),
				logAttrEventCount, len(events),
				logAttrDurationMS, es.durationToMilliseconds(duration),
			)

			return nil

		case errors.Is(execErr, eventstore.ErrConcurrencyConflict):
			span.SetAttributes(attribute.Bool(attrConflictDetected, true))
			es.logOperation(
				logMsgConcurrencyConflict,
				logAttrAggregateID, aggregateID.String(),
				logAttrAttempt, attempt,
			)

			if attempt >= appendMaxAttempts {
				return eventstore.ErrConcurrencyConflict
			}

			// Re-executing the same statement re-reads the committed max
			// version, so the retry continues from the winner's version.

		default:
			return execErr
		}
	}
}

// Load retrieves the complete event history of one aggregate, ascending by
// aggregate_version. An aggregate without events yields an empty slice.
func (es EventStore) Load(ctx context.Context, aggregateID uuid.UUID) (eventstore.StorableEvents, error) {
	var empty eventstore.StorableEvents

	ctx, span := es.tracer.Start(ctx, spanLoad, trace.WithAttributes(
		attribute.String(attrAggregateID, aggregateID.String()),
	))
	defer span.End()

	sqlQuery, buildQueryErr := es.buildLoadQuery(aggregateID)
	if buildQueryErr != nil {
		return empty, buildQueryErr
	}

	rows, duration, queryErr := es.executeQuery(ctx, sqlQuery, logActionLoad)
	if queryErr != nil {
		return empty, queryErr
	}
	defer es.closeRows(rows)

	eventStream, scanErr := es.processQueryResults(rows)
	if scanErr != nil {
		return empty, scanErr
	}

	span.SetAttributes(attribute.Int(attrEventCount, len(eventStream)))

	es.logOperation(
		logMsgEventsLoaded,
		logAttrAggregateID, aggregateID.String(),
		logAttrEventCount, len(eventStream),
		logAttrDurationMS, es.durationToMilliseconds(duration))

	return eventStream, nil
}

// StreamAll invokes fn for every event in the store, across all aggregates,
// ordered by the global sequence_number.
//
// The log is read in batches of the configured size, so the full log is never
// materialized in memory. An error from fn stops the stream and is returned.
func (es EventStore) StreamAll(ctx context.Context, fn func(eventstore.StoredEvent) error) error {
	return es.StreamFrom(ctx, 0, fn)
}

// StreamFrom behaves like StreamAll but starts after the given sequence number,
// which makes an interrupted stream restartable from its last processed event.
func (es EventStore) StreamFrom(ctx context.Context, afterSequence uint, fn func(eventstore.StoredEvent) error) error {
	ctx, span := es.tracer.Start(ctx, spanStream, trace.WithAttributes(
		attribute.Int(attrAfterSequence, int(afterSequence)),
	))
	defer span.End()

	cursor := afterSequence
	total := 0

	for {
		batch, err := es.streamBatch(ctx, cursor)
		if err != nil {
			return err
		}

		if len(batch) == 0 {
			span.SetAttributes(attribute.Int(attrStreamedEvents, total))
			es.logOperation(logMsgEventsStreamed, logAttrEventCount, total)

			return nil
		}

		for _, storedEvent := range batch {
			if fnErr := fn(storedEvent); fnErr != nil {
				return fnErr
			}

			cursor = storedEvent.SequenceNumber
			total++
		}
	}
}

func (es EventStore) streamBatch(ctx context.Context, afterSequence uint) ([]eventstore.StoredEvent, error) {
	sqlQuery, buildQueryErr := es.buildStreamQuery(afterSequence)
	if buildQueryErr != nil {
		return nil, buildQueryErr
	}

	rows, _, queryErr := es.executeQuery(ctx, sqlQuery, logActionStream)
	if queryErr != nil {
		return nil, queryErr
	}
	defer es.closeRows(rows)

	batch := make([]eventstore.StoredEvent, 0, es.streamBatchSize)

	for rows.Next() {
		var result queryResultRow
		var aggregateIDString string
		var aggregateVersion uint
		var sequenceNumber uint

		rowScanErr := rows.Scan(
			&aggregateIDString,
			&aggregateVersion,
			&result.eventType,
			&result.occurredAt,
			&result.payload,
			&result.metadata,
			&sequenceNumber,
		)
		if rowScanErr != nil {
			es.logError(logMsgScanRowFailed, logAttrError, rowScanErr.Error())

			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, rowScanErr)
		}

		aggregateID, parseErr := uuid.Parse(aggregateIDString)
		if parseErr != nil {
			es.logError(logMsgScanRowFailed, logAttrError, parseErr.Error())

			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, parseErr)
		}

		event, buildStorableErr := eventstore.BuildStorableEvent(
			result.eventType, result.occurredAt, result.payload, result.metadata)
		if buildStorableErr != nil {
			es.logError(logMsgBuildStorableEventFailed, logAttrError, buildStorableErr.Error(), logAttrEventType, result.eventType)

			return nil, errors.Join(eventstore.ErrBuildingStorableEventFailed, buildStorableErr)
		}

		batch = append(batch, eventstore.StoredEvent{
			StorableEvent:    event,
			AggregateID:      aggregateID,
			AggregateVersion: aggregateVersion,
			SequenceNumber:   sequenceNumber,
		})
	}

	return batch, nil
}

// executeQuery executes the SQL query and returns rows with timing information.
func (es EventStore) executeQuery(ctx context.Context, sqlQuery string, action string) (
	adapters.DBRows,
	time.Duration,
	error,
) {

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, action, duration)

	if queryErr != nil {
		es.logError(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)

		return nil, duration, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}

	return rows, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (es EventStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if es.logger != nil {
			es.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// processQueryResults converts database rows into storable events.
func (es EventStore) processQueryResults(rows adapters.DBRows) (eventstore.StorableEvents, error) {
	var empty eventstore.StorableEvents
	result := queryResultRow{}
	eventStream := make(eventstore.StorableEvents, 0)

	for rows.Next() {
		rowScanErr := rows.Scan(&result.eventType, &result.occurredAt, &result.payload, &result.metadata)
		if rowScanErr != nil {
			es.logError(logMsgScanRowFailed, logAttrError, rowScanErr.Error())

			return empty, errors.Join(eventstore.ErrScanningDBRowFailed, rowScanErr)
		}

		event, buildStorableErr := eventstore.BuildStorableEvent(
			result.eventType, result.occurredAt, result.payload, result.metadata)
		if buildStorableErr != nil {
			es.logError(logMsgBuildStorableEventFailed, logAttrError, buildStorableErr.Error(), logAttrEventType, result.eventType)

			return empty, errors.Join(eventstore.ErrBuildingStorableEventFailed, buildStorableErr)
		}

		eventStream = append(eventStream, event)
	}

	return eventStream, nil
}

// executeAppendQuery executes the SQL append query and returns rows affected and duration.
func (es EventStore) executeAppendQuery(ctx context.Context, sqlQuery string) (
	rowsAffectedInt64,
	queryDuration,
	error,
) {

	start := time.Now()
	tag, execErr := es.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(sqlQuery, logActionAppend, duration)

	if execErr != nil {
		if adapters.IsUniqueViolation(execErr) {
			return 0, duration, errors.Join(eventstore.ErrConcurrencyConflict, execErr)
		}

		es.logError(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)

		return 0, duration, errors.Join(eventstore.ErrAppendingEventFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := tag.RowsAffected()
	if rowsAffectedErr != nil {
		es.logError(logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())

		return 0, duration, errors.Join(eventstore.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, duration, nil
}

// validateAppendResult checks that the whole batch was inserted.
func (es EventStore) validateAppendResult(rowsAffected int64, expectedEventCount int) error {
	if rowsAffected < int64(expectedEventCount) {
		es.logError(
			logMsgDBExecFailed,
			logAttrEventCount, expectedEventCount,
			logAttrRowsAffected, rowsAffected,
		)

		return eventstore.ErrAppendingEventFailed
	}

	return nil
}

// buildAppendQuery builds the single-statement append: a CTE reads the current
// max version for the aggregate, the values CTE carries one row per event with
// its offset into the batch, and the INSERT..SELECT joins the two so every row
// gets its version assigned from the same snapshot the statement reads.
func (es EventStore) buildAppendQuery(aggregateID uuid.UUID, events eventstore.StorableEvents) (sqlQueryString, error) {
	builder := goqu.Dialect(dialectPostgres)

	currentStmt := builder.
		From(es.eventTableName).
		Select(goqu.COALESCE(goqu.MAX(colAggregateVersion), 0).As(aliasCurrentVersion)).
		Where(goqu.Ex{colAggregateID: aggregateID.String()})

	unionStatements := make([]*goqu.SelectDataset, len(events))
	for i, event := range events {
		unionStatements[i] = builder.
			Select(
				goqu.L(castInt, i+1).As(colVersionOffset),
				goqu.L(castText, event.EventType).As(colEventType),
				goqu.L(castTimestamp, event.OccurredAt).As(colOccurredAt),
				goqu.L(castJsonb, event.PayloadJSON).As(colEventData),
				goqu.L(castJsonb, event.MetadataJSON).As(colMetadata),
			)
	}

	valuesStmt := unionStatements[0]
	for i := 1; i < len(unionStatements); i++ {
		valuesStmt = valuesStmt.UnionAll(unionStatements[i])
	}

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(colAggregateID, colAggregateVersion, colAggregateType, colEventType, colEventData, colMetadata, colOccurredAt).
		With(cteCurrent, currentStmt).
		With(cteVals, valuesStmt).
		FromQuery(
			builder.From(cteCurrent, cteVals).
				Select(
					goqu.L(castUUID, aggregateID.String()),
					goqu.L(exprAssignVersion),
					goqu.L(castText, es.aggregateType),
					goqu.I(cteVals+"."+colEventType),
					goqu.I(cteVals+"."+colEventData),
					goqu.I(cteVals+"."+colMetadata),
					goqu.I(cteVals+"."+colOccurredAt),
				).
				Order(goqu.I(cteVals + "." + colVersionOffset).Asc()),
		)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		es.logError(logMsgBuildInsertQueryFailed, logAttrError, toSQLErr.Error(), logAttrEventCount, len(events))

		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) buildLoadQuery(aggregateID uuid.UUID) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(colEventType, colOccurredAt, colEventData, colMetadata).
		Where(goqu.Ex{colAggregateID: aggregateID.String()}).
		Order(goqu.I(colAggregateVersion).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		es.logError(logMsgBuildSelectQueryFailed, logAttrError, toSQLErr.Error())

		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) buildStreamQuery(afterSequence uint) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(
			colAggregateID, colAggregateVersion, colEventType,
			colOccurredAt, colEventData, colMetadata, colSequenceNumber,
		).
		Where(goqu.C(colSequenceNumber).Gt(afterSequence)).
		Order(goqu.I(colSequenceNumber).Asc()).
		Limit(es.streamBatchSize)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		es.logError(logMsgBuildSelectQueryFailed, logAttrError, toSQLErr.Error())

		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (es EventStore) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, es.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (es EventStore) logOperation(action string, args ...any) {
	if es.logger != nil {
		es.logger.Info(logMsgOperation+action, args...)
	}
}

// logError logs critical failures if the logger is configured.
func (es EventStore) logError(msg string, args ...any) {
	if es.logger != nil {
		es.logger.Error(msg, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (es EventStore) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
