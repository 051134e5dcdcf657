package postgresengine_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanledger/core"
	"loanledger/eventstore"
	"loanledger/eventstore/postgresengine"
	"loanledger/migrations"
	"loanledger/shell"
)

// Integration tests run only against a real database, pointed to by
// LOANLEDGER_TEST_DB_DSN. The schema is migrated and the events table
// truncated before each test.
func givenIntegrationStore(t *testing.T, options ...postgresengine.Option) postgresengine.EventStore {
	t.Helper()

	dsn := os.Getenv("LOANLEDGER_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("LOANLEDGER_TEST_DB_DSN not set, skipping database integration test")
	}

	ctx := context.Background()

	pool, poolErr := pgxpool.New(ctx, dsn)
	require.NoError(t, poolErr)
	t.Cleanup(pool.Close)

	sqlDB, openErr := sql.Open("postgres", dsn)
	require.NoError(t, openErr)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.Up(ctx, sqlDB))

	_, truncateErr := pool.Exec(ctx, "TRUNCATE TABLE events RESTART IDENTITY")
	require.NoError(t, truncateErr)

	es, storeErr := postgresengine.NewEventStoreFromPGXPool(pool, options...)
	require.NoError(t, storeErr)

	return es
}

func givenLoanedEvent(t *testing.T, loanID core.LoanID, occurredAt time.Time) eventstore.StorableEvent {
	t.Helper()

	event := core.BuildBookLoaned(
		loanID, core.NewBookID(), core.NewMemberID(), occurredAt, occurredAt.Add(core.LoanPeriod), core.NewStaffID())

	storableEvent, err := shell.StorableEventWithEmptyMetadataFrom(event)
	require.NoError(t, err)

	return storableEvent
}

func Test_Append_Load_RoundTrip(t *testing.T) {
	// arrange
	es := givenIntegrationStore(t)
	loanID := core.NewLoanID()
	occurredAt := time.Now().UTC().Truncate(time.Millisecond)
	storableEvent := givenLoanedEvent(t, loanID, occurredAt)

	// act
	require.NoError(t, es.Append(context.Background(), loanID.UUID, storableEvent))
	loaded, loadErr := es.Load(context.Background(), loanID.UUID)

	// assert
	require.NoError(t, loadErr)
	require.Len(t, loaded, 1)
	assert.Equal(t, core.BookLoanedEventType, loaded[0].EventType)
	assert.JSONEq(t, string(storableEvent.PayloadJSON), string(loaded[0].PayloadJSON))
}

func Test_Append_ConcurrentAppenders_YieldGaplessVersions(t *testing.T) {
	// arrange
	es := givenIntegrationStore(t)
	loanID := core.NewLoanID()
	occurredAt := time.Now().UTC().Truncate(time.Millisecond)

	const appenders = 3

	// act: all appenders race for the same aggregate
	var wg sync.WaitGroup
	errs := make([]error, appenders)
	for i := 0; i < appenders; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = es.Append(context.Background(), loanID.UUID, givenLoanedEvent(t, loanID, occurredAt))
		}()
	}
	wg.Wait()

	// assert: every append converged after its internal retry
	for _, err := range errs {
		require.NoError(t, err)
	}

	versions := make([]uint, 0, appenders)
	streamErr := es.StreamAll(context.Background(), func(stored eventstore.StoredEvent) error {
		require.Equal(t, loanID.UUID, stored.AggregateID)
		versions = append(versions, stored.AggregateVersion)

		return nil
	})
	require.NoError(t, streamErr)

	require.Len(t, versions, appenders)
	for i, version := range versions {
		assert.Equal(t, uint(i+1), version)
	}
}

func Test_StreamAll_PagesThroughTheWholeLog(t *testing.T) {
	// arrange: batch size far below the event count forces paging
	es := givenIntegrationStore(t, postgresengine.WithStreamBatchSize(7))
	occurredAt := time.Now().UTC().Truncate(time.Millisecond)

	const loanCount = 20
	for n := 0; n < loanCount; n++ {
		loanID := core.NewLoanID()
		require.NoError(t, es.Append(context.Background(), loanID.UUID, givenLoanedEvent(t, loanID, occurredAt)))
	}

	// act
	var sequences []uint
	streamErr := es.StreamAll(context.Background(), func(stored eventstore.StoredEvent) error {
		sequences = append(sequences, stored.SequenceNumber)

		return nil
	})

	// assert: every event exactly once, in global sequence order
	require.NoError(t, streamErr)
	require.Len(t, sequences, loanCount)
	for i := 1; i < len(sequences); i++ {
		assert.Greater(t, sequences[i], sequences[i-1])
	}
}

func Test_StreamFrom_ResumesAfterSequence(t *testing.T) {
	// arrange
	es := givenIntegrationStore(t)
	occurredAt := time.Now().UTC().Truncate(time.Millisecond)

	seen := make([]uint, 0)
	for n := 0; n < 5; n++ {
		loanID := core.NewLoanID()
		require.NoError(t, es.Append(context.Background(), loanID.UUID, givenLoanedEvent(t, loanID, occurredAt)))
	}
	require.NoError(t, es.StreamAll(context.Background(), func(stored eventstore.StoredEvent) error {
		seen = append(seen, stored.SequenceNumber)

		return nil
	}))
	require.Len(t, seen, 5)

	// act: restart after the second event
	var resumed []uint
	streamErr := es.StreamFrom(context.Background(), seen[1], func(stored eventstore.StoredEvent) error {
		resumed = append(resumed, stored.SequenceNumber)

		return nil
	})

	// assert
	require.NoError(t, streamErr)
	assert.Equal(t, seen[2:], resumed)
}

func Test_Load_UnknownAggregate_ReturnsEmptyHistory(t *testing.T) {
	// arrange
	es := givenIntegrationStore(t)

	// act
	loaded, err := es.Load(context.Background(), uuid.New())

	// assert
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
