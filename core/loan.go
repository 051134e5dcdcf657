package core

import "time"

// LoanPeriod is how long a book may be kept, both at creation and per extension.
const LoanPeriod = 14 * 24 * time.Hour

// LoanCore holds the fields shared by every loan state.
type LoanCore struct {
	LoanID         LoanID
	BookID         BookID
	MemberID       MemberID
	LoanedAt       time.Time
	DueDate        time.Time
	ExtensionCount ExtensionCount
	CreatedBy      StaffID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Loan is a closed sum type over the three loan states. The only
// implementations are ActiveLoan, OverdueLoan and ReturnedLoan; a returned-at
// timestamp exists only on ReturnedLoan, so "returned without a timestamp"
// cannot be represented.
type Loan interface {
	Core() LoanCore

	sealed()
}

// ActiveLoan is a loan within its due date that may still be extended.
type ActiveLoan struct {
	LoanCore
}

// Core returns the shared loan fields.
func (l ActiveLoan) Core() LoanCore { return l.LoanCore }

func (l ActiveLoan) sealed() {}

// OverdueLoan is a loan past its due date that has not been returned.
// It can no longer be extended.
type OverdueLoan struct {
	LoanCore
}

// Core returns the shared loan fields.
func (l OverdueLoan) Core() LoanCore { return l.LoanCore }

func (l OverdueLoan) sealed() {}

// ReturnedLoan is the terminal state. No further transitions are valid.
type ReturnedLoan struct {
	LoanCore

	ReturnedAt time.Time
}

// Core returns the shared loan fields.
func (l ReturnedLoan) Core() LoanCore { return l.LoanCore }

func (l ReturnedLoan) sealed() {}
