package core

import (
	"fmt"
	"time"
)

// LoanBook lends a book to a member. This is a pure function with no side
// effects: it returns the new aggregate state together with the event that
// has to be appended to make the state durable.
//
// Business rules:
//
//	GIVEN: a book, a member and the staff member handling the loan
//	WHEN: the loan is created
//	THEN: the loan is Active, due in one loan period, with zero extensions
func LoanBook(bookID BookID, memberID MemberID, staffID StaffID, loanedAt time.Time) (ActiveLoan, BookLoaned) {
	loanID := NewLoanID()
	dueDate := loanedAt.Add(LoanPeriod)

	loan := ActiveLoan{
		LoanCore: LoanCore{
			LoanID:         loanID,
			BookID:         bookID,
			MemberID:       memberID,
			LoanedAt:       loanedAt,
			DueDate:        dueDate,
			ExtensionCount: NewExtensionCount(),
			CreatedBy:      staffID,
			CreatedAt:      loanedAt,
			UpdatedAt:      loanedAt,
		},
	}

	event := BuildBookLoaned(loanID, bookID, memberID, loanedAt, dueDate, staffID)

	return loan, event
}

// ExtendLoan pushes the due date of an active loan out by one loan period.
// Only ActiveLoan is accepted; the type system rules out extending overdue or
// returned loans here, callers translate those states into business errors.
//
// Business rules:
//
//	GIVEN: an active loan
//	WHEN: an extension is requested
//	THEN: due date += one loan period, extension count += 1
//	ERROR: ErrExtensionLimitExceeded if the loan was already extended once
func ExtendLoan(loan ActiveLoan, extendedAt time.Time) (ActiveLoan, LoanExtended, error) {
	newCount, err := loan.ExtensionCount.Increment()
	if err != nil {
		return ActiveLoan{}, LoanExtended{}, err
	}

	oldDueDate := loan.DueDate
	newDueDate := oldDueDate.Add(LoanPeriod)

	newLoan := loan
	newLoan.DueDate = newDueDate
	newLoan.ExtensionCount = newCount
	newLoan.UpdatedAt = extendedAt

	event := BuildLoanExtended(loan.LoanID, oldDueDate, newDueDate, extendedAt, newCount.Value())

	return newLoan, event, nil
}

// ReturnBook closes a loan. Both active and overdue loans are accepted, the
// library takes books back even when they are late.
//
// Business rules:
//
//	GIVEN: an active or overdue loan
//	WHEN: the book is returned
//	THEN: the loan is Returned; was-overdue is recorded when the loan was
//	      overdue, or the return happened after the due date
//	ERROR: ErrAlreadyReturned if the loan is already in its terminal state
func ReturnBook(loan Loan, returnedAt time.Time) (ReturnedLoan, BookReturned, error) {
	var core LoanCore
	var wasOverdue bool

	switch l := loan.(type) {
	case ActiveLoan:
		core = l.LoanCore
		wasOverdue = returnedAt.After(l.DueDate)

	case OverdueLoan:
		core = l.LoanCore
		wasOverdue = true

	case ReturnedLoan:
		return ReturnedLoan{}, BookReturned{}, ErrAlreadyReturned

	default:
		return ReturnedLoan{}, BookReturned{}, fmt.Errorf("%w: unknown loan state %T", ErrCorruptHistory, loan)
	}

	core.UpdatedAt = returnedAt

	newLoan := ReturnedLoan{
		LoanCore:   core,
		ReturnedAt: returnedAt,
	}

	event := BuildBookReturned(core.LoanID, core.BookID, core.MemberID, returnedAt, wasOverdue)

	return newLoan, event, nil
}

// IsOverdue reports whether the loan is late at the given instant:
// true for OverdueLoan, true for an ActiveLoan past its due date,
// always false for ReturnedLoan.
func IsOverdue(loan Loan, now time.Time) bool {
	switch l := loan.(type) {
	case OverdueLoan:
		return true

	case ActiveLoan:
		return now.After(l.DueDate)

	default:
		return false
	}
}

// ApplyEvent is the deterministic fold step of the loan state machine.
// A nil prior state means no events have been applied yet.
//
// Valid transitions:
//
//	(none)  --BookLoaned-->        Active
//	Active  --LoanExtended-->      Active
//	Active  --LoanBecameOverdue--> Overdue
//	Active  --BookReturned-->      Returned
//	Overdue --BookReturned-->      Returned
//
// Every other (state, event) pairing returns ErrCorruptHistory. That is an
// integrity fault and must never be coerced into a business error: valid
// command handling can not produce such a history.
func ApplyEvent(prior Loan, event DomainEvent) (Loan, error) {
	if prior != nil && prior.Core().LoanID != event.AggregateID() {
		return nil, fmt.Errorf("%w: event %s for loan %s applied to loan %s",
			ErrCorruptHistory, event.EventType(), event.AggregateID(), prior.Core().LoanID)
	}

	switch e := event.(type) {
	case BookLoaned:
		if prior != nil {
			return nil, invalidTransition(prior, event)
		}

		return ActiveLoan{
			LoanCore: LoanCore{
				LoanID:         e.LoanID,
				BookID:         e.BookID,
				MemberID:       e.MemberID,
				LoanedAt:       e.LoanedAt,
				DueDate:        e.DueDate,
				ExtensionCount: NewExtensionCount(),
				CreatedBy:      e.LoanedBy,
				CreatedAt:      e.LoanedAt,
				UpdatedAt:      e.LoanedAt,
			},
		}, nil

	case LoanExtended:
		active, ok := prior.(ActiveLoan)
		if !ok {
			return nil, invalidTransition(prior, event)
		}

		count, countErr := ExtensionCountFromInt(e.ExtensionCount)
		if countErr != nil {
			return nil, fmt.Errorf("%w: invalid extension count %d in persisted event",
				ErrCorruptHistory, e.ExtensionCount)
		}

		active.DueDate = e.NewDueDate
		active.ExtensionCount = count
		active.UpdatedAt = e.ExtendedAt

		return active, nil

	case LoanBecameOverdue:
		active, ok := prior.(ActiveLoan)
		if !ok {
			return nil, invalidTransition(prior, event)
		}

		core := active.LoanCore
		core.UpdatedAt = e.DetectedAt

		return OverdueLoan{LoanCore: core}, nil

	case BookReturned:
		var core LoanCore

		switch l := prior.(type) {
		case ActiveLoan:
			core = l.LoanCore
		case OverdueLoan:
			core = l.LoanCore
		default:
			return nil, invalidTransition(prior, event)
		}

		core.UpdatedAt = e.ReturnedAt

		return ReturnedLoan{LoanCore: core, ReturnedAt: e.ReturnedAt}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event type %s", ErrCorruptHistory, event.EventType())
	}
}

// ReplayEvents left-folds ApplyEvent over an ordered event history.
// It returns (nil, nil) for an empty history. Replay is deterministic:
// the same input sequence always yields the same state.
func ReplayEvents(events DomainEvents) (Loan, error) {
	var loan Loan

	for _, event := range events {
		next, err := ApplyEvent(loan, event)
		if err != nil {
			return nil, err
		}

		loan = next
	}

	return loan, nil
}

func invalidTransition(prior Loan, event DomainEvent) error {
	state := "none"

	switch prior.(type) {
	case ActiveLoan:
		state = "active"
	case OverdueLoan:
		state = "overdue"
	case ReturnedLoan:
		state = "returned"
	}

	return fmt.Errorf("%w: event %s cannot apply to %s loan", ErrCorruptHistory, event.EventType(), state)
}
