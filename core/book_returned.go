package core

import "time"

// BookReturnedEventType is the event type discriminator.
const BookReturnedEventType = "BookReturned"

// BookReturned records that the member brought the book back. It is terminal:
// no further events are valid for the loan afterwards.
type BookReturned struct {
	LoanID     LoanID    `json:"loan_id"`
	BookID     BookID    `json:"book_id"`
	MemberID   MemberID  `json:"member_id"`
	ReturnedAt time.Time `json:"returned_at"`
	WasOverdue bool      `json:"was_overdue"`
}

// BuildBookReturned creates a new BookReturned event.
func BuildBookReturned(
	loanID LoanID,
	bookID BookID,
	memberID MemberID,
	returnedAt time.Time,
	wasOverdue bool,
) BookReturned {

	return BookReturned{
		LoanID:     loanID,
		BookID:     bookID,
		MemberID:   memberID,
		ReturnedAt: returnedAt,
		WasOverdue: wasOverdue,
	}
}

// EventType returns the event type discriminator.
func (e BookReturned) EventType() string {
	return BookReturnedEventType
}

// OccurredAt returns when this event occurred.
func (e BookReturned) OccurredAt() time.Time {
	return e.ReturnedAt
}

// AggregateID returns the loan this event belongs to.
func (e BookReturned) AggregateID() LoanID {
	return e.LoanID
}
