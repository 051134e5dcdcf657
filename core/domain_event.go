package core

import "time"

// DomainEvents is a slice of DomainEvent instances.
type DomainEvents = []DomainEvent

// DomainEvent is one of the four immutable facts recorded for a loan.
// The set is closed: BookLoaned, LoanExtended, BookReturned, LoanBecameOverdue.
type DomainEvent interface {
	// EventType returns the string discriminator for this event type.
	EventType() string

	// OccurredAt returns when this event occurred.
	OccurredAt() time.Time

	// AggregateID returns the loan this event belongs to.
	AggregateID() LoanID
}
