package app

import "errors"

// MaxActiveLoansPerMember is the loan limit enforced before lending.
const MaxActiveLoansPerMember = 5

// Business rule violations. All are rejected before any event is appended and
// are never retried. Extension and return rule violations come from the core
// package (core.ErrExtensionLimitExceeded, core.ErrCannotExtendOverdue,
// core.ErrAlreadyReturned) and pass through unchanged.
var (
	// ErrMemberNotFound rejects a command for an unknown member.
	ErrMemberNotFound = errors.New("member not found")

	// ErrBookNotAvailable rejects lending a book that is not available.
	ErrBookNotAvailable = errors.New("book not available for loan")

	// ErrMemberHasOverdueLoan rejects lending to a member holding overdue loans.
	ErrMemberHasOverdueLoan = errors.New("member has overdue loans")

	// ErrLoanLimitExceeded rejects lending beyond MaxActiveLoansPerMember.
	ErrLoanLimitExceeded = errors.New("member has reached the active loan limit")

	// ErrLoanNotFound is returned when a command names a loan with no history.
	ErrLoanNotFound = errors.New("loan not found")
)
