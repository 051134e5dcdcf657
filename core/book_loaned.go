package core

import "time"

// BookLoanedEventType is the event type discriminator.
const BookLoanedEventType = "BookLoaned"

// BookLoaned records that a book was lent to a member. It is the first event
// in every loan history and carries everything needed to rebuild the initial state.
type BookLoaned struct {
	LoanID   LoanID    `json:"loan_id"`
	BookID   BookID    `json:"book_id"`
	MemberID MemberID  `json:"member_id"`
	LoanedAt time.Time `json:"loaned_at"`
	DueDate  time.Time `json:"due_date"`
	LoanedBy StaffID   `json:"loaned_by"`
}

// BuildBookLoaned creates a new BookLoaned event.
func BuildBookLoaned(
	loanID LoanID,
	bookID BookID,
	memberID MemberID,
	loanedAt time.Time,
	dueDate time.Time,
	loanedBy StaffID,
) BookLoaned {

	return BookLoaned{
		LoanID:   loanID,
		BookID:   bookID,
		MemberID: memberID,
		LoanedAt: loanedAt,
		DueDate:  dueDate,
		LoanedBy: loanedBy,
	}
}

// EventType returns the event type discriminator.
func (e BookLoaned) EventType() string {
	return BookLoanedEventType
}

// OccurredAt returns when this event occurred.
func (e BookLoaned) OccurredAt() time.Time {
	return e.LoanedAt
}

// AggregateID returns the loan this event belongs to.
func (e BookLoaned) AggregateID() LoanID {
	return e.LoanID
}
