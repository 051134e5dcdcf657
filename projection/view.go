package projection

import (
	"errors"
	"time"

	"loanledger/core"
)

// ErrInvalidStatus is returned when a status label is not one of the three known values.
var ErrInvalidStatus = errors.New("invalid loan status")

// Status is the view's label for the loan state.
type Status string

const (
	StatusActive   Status = "active"
	StatusOverdue  Status = "overdue"
	StatusReturned Status = "returned"
)

// ParseStatus validates a status label read from outside the package.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusOverdue, StatusReturned:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// LoanView is one denormalized row of the loans view. It mirrors the loan
// aggregate's final state; ReturnedAt is set only for returned loans.
type LoanView struct {
	LoanID         core.LoanID   `db:"loan_id" json:"loan_id"`
	BookID         core.BookID   `db:"book_id" json:"book_id"`
	MemberID       core.MemberID `db:"member_id" json:"member_id"`
	LoanedAt       time.Time     `db:"loaned_at" json:"loaned_at"`
	DueDate        time.Time     `db:"due_date" json:"due_date"`
	ReturnedAt     *time.Time    `db:"returned_at" json:"returned_at,omitempty"`
	ExtensionCount int           `db:"extension_count" json:"extension_count"`
	Status         Status        `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// ViewFromLoan maps a replayed aggregate to its view row. The status label is
// derived from the concrete state, never stored in the aggregate itself.
func ViewFromLoan(loan core.Loan) LoanView {
	loanCore := loan.Core()

	view := LoanView{
		LoanID:         loanCore.LoanID,
		BookID:         loanCore.BookID,
		MemberID:       loanCore.MemberID,
		LoanedAt:       loanCore.LoanedAt,
		DueDate:        loanCore.DueDate,
		ExtensionCount: loanCore.ExtensionCount.Value(),
		CreatedAt:      loanCore.CreatedAt,
		UpdatedAt:      loanCore.UpdatedAt,
	}

	switch state := loan.(type) {
	case core.ActiveLoan:
		view.Status = StatusActive
	case core.OverdueLoan:
		view.Status = StatusOverdue
	case core.ReturnedLoan:
		returnedAt := state.ReturnedAt
		view.Status = StatusReturned
		view.ReturnedAt = &returnedAt
	}

	return view
}
