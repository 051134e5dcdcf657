package ports

import (
	"context"

	"loanledger/core"
)

// MemberService answers membership questions owned by the membership context.
type MemberService interface {
	// Exists reports whether the member is known and in good standing.
	Exists(ctx context.Context, memberID core.MemberID) (bool, error)

	// HasOverdueLoans reports whether the member currently holds any overdue loan.
	HasOverdueLoans(ctx context.Context, memberID core.MemberID) (bool, error)
}

// BookService answers catalog questions owned by the catalog context.
type BookService interface {
	// IsAvailableForLoan reports whether the book can be lent right now.
	IsAvailableForLoan(ctx context.Context, bookID core.BookID) (bool, error)

	// GetTitle returns the book's display title for notifications.
	GetTitle(ctx context.Context, bookID core.BookID) (string, error)
}

// NotificationService delivers member-facing messages. Delivery guarantees,
// including idempotency on redelivery, are the implementation's concern.
type NotificationService interface {
	SendOverdue(ctx context.Context, memberID core.MemberID, bookTitle string) error
	SendExtension(ctx context.Context, memberID core.MemberID, bookTitle string) error
	SendReturn(ctx context.Context, memberID core.MemberID, bookTitle string, wasOverdue bool) error
}
