package core

import "time"

// LoanExtendedEventType is the event type discriminator.
const LoanExtendedEventType = "LoanExtended"

// LoanExtended records that the due date of a loan was pushed out by one
// loan period. At most one of these can exist per loan history.
type LoanExtended struct {
	LoanID         LoanID    `json:"loan_id"`
	OldDueDate     time.Time `json:"old_due_date"`
	NewDueDate     time.Time `json:"new_due_date"`
	ExtendedAt     time.Time `json:"extended_at"`
	ExtensionCount int       `json:"extension_count"`
}

// BuildLoanExtended creates a new LoanExtended event.
func BuildLoanExtended(
	loanID LoanID,
	oldDueDate time.Time,
	newDueDate time.Time,
	extendedAt time.Time,
	extensionCount int,
) LoanExtended {

	return LoanExtended{
		LoanID:         loanID,
		OldDueDate:     oldDueDate,
		NewDueDate:     newDueDate,
		ExtendedAt:     extendedAt,
		ExtensionCount: extensionCount,
	}
}

// EventType returns the event type discriminator.
func (e LoanExtended) EventType() string {
	return LoanExtendedEventType
}

// OccurredAt returns when this event occurred.
func (e LoanExtended) OccurredAt() time.Time {
	return e.ExtendedAt
}

// AggregateID returns the loan this event belongs to.
func (e LoanExtended) AggregateID() LoanID {
	return e.LoanID
}
