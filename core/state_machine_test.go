package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanledger/core"
)

func Test_LoanBook_CreatesActiveLoanWithCorrectDueDate(t *testing.T) {
	// arrange
	bookID := core.NewBookID()
	memberID := core.NewMemberID()
	staffID := core.NewStaffID()
	loanedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// act
	loan, event := core.LoanBook(bookID, memberID, staffID, loanedAt)

	// assert
	assert.Equal(t, bookID, loan.BookID)
	assert.Equal(t, memberID, loan.MemberID)
	assert.Equal(t, staffID, loan.CreatedBy)
	assert.Equal(t, loanedAt.Add(core.LoanPeriod), loan.DueDate)
	assert.Equal(t, 0, loan.ExtensionCount.Value())

	assert.Equal(t, loan.LoanID, event.LoanID)
	assert.Equal(t, loan.DueDate, event.DueDate)
	assert.Equal(t, loanedAt, event.LoanedAt)
}

func Test_ExtendLoan_Success(t *testing.T) {
	// arrange
	loanedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loan, _ := core.LoanBook(core.NewBookID(), core.NewMemberID(), core.NewStaffID(), loanedAt)
	extendedAt := loanedAt.Add(5 * 24 * time.Hour)

	// act
	extended, event, err := core.ExtendLoan(loan, extendedAt)

	// assert
	require.NoError(t, err)
	assert.Equal(t, loanedAt.Add(2*core.LoanPeriod), extended.DueDate)
	assert.Equal(t, 1, extended.ExtensionCount.Value())
	assert.Equal(t, extendedAt, extended.UpdatedAt)

	assert.Equal(t, loan.DueDate, event.OldDueDate)
	assert.Equal(t, extended.DueDate, event.NewDueDate)
	assert.Equal(t, 1, event.ExtensionCount)
}

func Test_ExtendLoan_FailsWhenAlreadyExtended(t *testing.T) {
	// arrange
	loanedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loan, _ := core.LoanBook(core.NewBookID(), core.NewMemberID(), core.NewStaffID(), loanedAt)
	extended, _, err := core.ExtendLoan(loan, loanedAt.Add(24*time.Hour))
	require.NoError(t, err)

	// act
	_, _, err = core.ExtendLoan(extended, loanedAt.Add(48*time.Hour))

	// assert
	assert.ErrorIs(t, err, core.ErrExtensionLimitExceeded)

	// the first extension must be unchanged
	assert.Equal(t, 1, extended.ExtensionCount.Value())
	assert.Equal(t, loanedAt.Add(2*core.LoanPeriod), extended.DueDate)
}

func Test_ReturnBook_Success_FromActive(t *testing.T) {
	// arrange
	loanedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loan, _ := core.LoanBook(core.NewBookID(), core.NewMemberID(), core.NewStaffID(), loanedAt)
	returnedAt := loanedAt.Add(7 * 24 * time.Hour)

	// act
	returned, event, err := core.ReturnBook(loan, returnedAt)

	// assert
	require.NoError(t, err)
	assert.Equal(t, returnedAt, returned.ReturnedAt)
	assert.False(t, event.WasOverdue)
}

func Test_ReturnBook_DetectsLateReturnFromActive(t *testing.T) {
	// arrange
	loanedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loan, _ := core.LoanBook(core.NewBookID(), core.NewMemberID(), core.NewStaffID(), loanedAt)
	returnedAt := loanedAt.Add(20 * 24 * time.Hour) // due after 14 days

	// act
	_, event, err := core.ReturnBook(loan, returnedAt)

	// assert
	require.NoError(t, err)
	assert.True(t, event.WasOverdue)
}

func Test_ReturnBook_FromOverdue_IsAlwaysOverdue(t *testing.T) {
	// arrange
	loanedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loan, loanedEvent := core.LoanBook(core.NewBookID(), core.NewMemberID(), core.NewStaffID(), loanedAt)

	overdueEvent := core.BuildLoanBecameOverdue(
		loan.LoanID, loan.BookID, loan.MemberID, loan.DueDate, loanedAt.Add(15*24*time.Hour))

	current, err := core.ReplayEvents(core.DomainEvents{loanedEvent, overdueEvent})
	require.NoError(t, err)

	// act
	_, event, err := core.ReturnBook(current, loanedAt.Add(16*24*time.Hour))

	// assert
	require.NoError(t, err)
	assert.True(t, event.WasOverdue)
}

func Test_ReturnBook_FailsWhenAlreadyReturned(t *testing.T) {
	// arrange
	loanedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loan, _ := core.LoanBook(core.NewBookID(), core.NewMemberID(), core.NewStaffID(), loanedAt)
	returned, _, err := core.ReturnBook(loan, loanedAt.Add(24*time.Hour))
	require.NoError(t, err)

	// act
	_, _, err = core.ReturnBook(returned, loanedAt.Add(48*time.Hour))

	// assert
	assert.ErrorIs(t, err, core.ErrAlreadyReturned)
}

func Test_IsOverdue(t *testing.T) {
	loanedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	loan, loanedEvent := core.LoanBook(core.NewBookID(), core.NewMemberID(), core.NewStaffID(), loanedAt)

	t.Run("false for active loan before due date", func(t *testing.T) {
		assert.False(t, core.IsOverdue(loan, loanedAt.Add(10*24*time.Hour)))
	})

	t.Run("true for active loan past due date", func(t *testing.T) {
		assert.True(t, core.IsOverdue(loan, loanedAt.Add(15*24*time.Hour)))
	})

	t.Run("true for overdue loan regardless of now", func(t *testing.T) {
		overdueEvent := core.BuildLoanBecameOverdue(
			loan.LoanID, loan.BookID, loan.MemberID, loan.DueDate, loanedAt.Add(15*24*time.Hour))
		current, err := core.ReplayEvents(core.DomainEvents{loanedEvent, overdueEvent})
		require.NoError(t, err)

		assert.True(t, core.IsOverdue(current, loanedAt))
	})

	t.Run("false for returned loan", func(t *testing.T) {
		returned, _, err := core.ReturnBook(loan, loanedAt.Add(20*24*time.Hour))
		require.NoError(t, err)

		assert.False(t, core.IsOverdue(returned, loanedAt.Add(30*24*time.Hour)))
	})
}
