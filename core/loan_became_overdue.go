package core

import "time"

// LoanBecameOverdueEventType is the event type discriminator.
const LoanBecameOverdueEventType = "LoanBecameOverdue"

// LoanBecameOverdue records that the overdue sweep found an active loan past
// its due date. Only the sweep emits this event, never a command handler.
type LoanBecameOverdue struct {
	LoanID     LoanID    `json:"loan_id"`
	BookID     BookID    `json:"book_id"`
	MemberID   MemberID  `json:"member_id"`
	DueDate    time.Time `json:"due_date"`
	DetectedAt time.Time `json:"detected_at"`
}

// BuildLoanBecameOverdue creates a new LoanBecameOverdue event.
func BuildLoanBecameOverdue(
	loanID LoanID,
	bookID BookID,
	memberID MemberID,
	dueDate time.Time,
	detectedAt time.Time,
) LoanBecameOverdue {

	return LoanBecameOverdue{
		LoanID:     loanID,
		BookID:     bookID,
		MemberID:   memberID,
		DueDate:    dueDate,
		DetectedAt: detectedAt,
	}
}

// EventType returns the event type discriminator.
func (e LoanBecameOverdue) EventType() string {
	return LoanBecameOverdueEventType
}

// OccurredAt returns when this event occurred.
func (e LoanBecameOverdue) OccurredAt() time.Time {
	return e.DetectedAt
}

// AggregateID returns the loan this event belongs to.
func (e LoanBecameOverdue) AggregateID() LoanID {
	return e.LoanID
}
