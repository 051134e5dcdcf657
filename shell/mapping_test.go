package shell_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanledger/core"
	"loanledger/eventstore"
	"loanledger/shell"
)

func Test_StorableEventFrom_And_DomainEventFrom_RoundTrip_BookLoaned(t *testing.T) {
	// arrange
	loanedAt := time.Now().UTC().Truncate(time.Millisecond)
	event := core.BuildBookLoaned(
		core.NewLoanID(),
		core.NewBookID(),
		core.NewMemberID(),
		loanedAt,
		loanedAt.Add(core.LoanPeriod),
		core.NewStaffID(),
	)
	metadata := shell.BuildEventMetadata(uuid.New(), uuid.New(), uuid.New())

	// act
	storableEvent, toErr := shell.StorableEventFrom(event, metadata)
	require.NoError(t, toErr)
	domainEvent, fromErr := shell.DomainEventFrom(storableEvent)
	require.NoError(t, fromErr)

	// assert
	assert.Equal(t, core.BookLoanedEventType, storableEvent.EventType)
	assert.Equal(t, event, domainEvent)

	metadataBack, metaErr := shell.EventMetadataFrom(storableEvent)
	require.NoError(t, metaErr)
	assert.Equal(t, metadata, metadataBack)
}

func Test_StorableEventFrom_And_DomainEventFrom_RoundTrip_LoanExtended(t *testing.T) {
	// arrange
	extendedAt := time.Now().UTC().Truncate(time.Millisecond)
	oldDueDate := extendedAt.Add(2 * 24 * time.Hour)
	event := core.BuildLoanExtended(core.NewLoanID(), oldDueDate, oldDueDate.Add(core.LoanPeriod), extendedAt, 1)

	// act
	storableEvent, toErr := shell.StorableEventWithEmptyMetadataFrom(event)
	require.NoError(t, toErr)
	domainEvent, fromErr := shell.DomainEventFrom(storableEvent)
	require.NoError(t, fromErr)

	// assert
	assert.Equal(t, event, domainEvent)
}

func Test_StorableEventFrom_And_DomainEventFrom_RoundTrip_BookReturned(t *testing.T) {
	// arrange
	returnedAt := time.Now().UTC().Truncate(time.Millisecond)
	event := core.BuildBookReturned(core.NewLoanID(), core.NewBookID(), core.NewMemberID(), returnedAt, true)

	// act
	storableEvent, toErr := shell.StorableEventWithEmptyMetadataFrom(event)
	require.NoError(t, toErr)
	domainEvent, fromErr := shell.DomainEventFrom(storableEvent)
	require.NoError(t, fromErr)

	// assert
	assert.Equal(t, event, domainEvent)
}

func Test_StorableEventFrom_And_DomainEventFrom_RoundTrip_LoanBecameOverdue(t *testing.T) {
	// arrange
	detectedAt := time.Now().UTC().Truncate(time.Millisecond)
	event := core.BuildLoanBecameOverdue(
		core.NewLoanID(), core.NewBookID(), core.NewMemberID(), detectedAt.Add(-24*time.Hour), detectedAt)

	// act
	storableEvent, toErr := shell.StorableEventWithEmptyMetadataFrom(event)
	require.NoError(t, toErr)
	domainEvent, fromErr := shell.DomainEventFrom(storableEvent)
	require.NoError(t, fromErr)

	// assert
	assert.Equal(t, event, domainEvent)
}

func Test_DomainEventFrom_UnknownEventType_ReturnsError(t *testing.T) {
	// arrange
	storableEvent, buildErr := eventstore.BuildStorableEventWithEmptyMetadata(
		"SomethingElseEntirely", time.Now(), []byte(`{}`))
	require.NoError(t, buildErr)

	// act
	domainEvent, err := shell.DomainEventFrom(storableEvent)

	// assert
	assert.Nil(t, domainEvent)
	assert.ErrorIs(t, err, shell.ErrMappingToDomainEventUnknownEventType)
}

func Test_DomainEventsFrom_PreservesOrder(t *testing.T) {
	// arrange
	loanID := core.NewLoanID()
	bookID := core.NewBookID()
	memberID := core.NewMemberID()
	loanedAt := time.Now().UTC().Truncate(time.Millisecond)

	loaned := core.BuildBookLoaned(loanID, bookID, memberID, loanedAt, loanedAt.Add(core.LoanPeriod), core.NewStaffID())
	returned := core.BuildBookReturned(loanID, bookID, memberID, loanedAt.Add(24*time.Hour), false)

	storableLoaned, err := shell.StorableEventWithEmptyMetadataFrom(loaned)
	require.NoError(t, err)
	storableReturned, err := shell.StorableEventWithEmptyMetadataFrom(returned)
	require.NoError(t, err)

	// act
	domainEvents, convErr := shell.DomainEventsFrom(eventstore.StorableEvents{storableLoaned, storableReturned})

	// assert
	require.NoError(t, convErr)
	require.Len(t, domainEvents, 2)
	assert.Equal(t, loaned, domainEvents[0])
	assert.Equal(t, returned, domainEvents[1])
}
