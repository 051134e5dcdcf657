package app

import (
	"context"
	"time"

	"loanledger/core"
	"loanledger/projection"
)

// GetLoan returns the view row for one loan.
// Returns projection.ErrLoanNotFound for an unknown id.
func (s *LoanService) GetLoan(ctx context.Context, loanID core.LoanID) (projection.LoanView, error) {
	return s.views.GetByID(ctx, loanID)
}

// LoansForMember returns all loans of one member, most recent first.
func (s *LoanService) LoansForMember(ctx context.Context, memberID core.MemberID) ([]projection.LoanView, error) {
	return s.views.FindByMember(ctx, memberID)
}

// ActiveLoansForMember returns the member's currently active loans.
func (s *LoanService) ActiveLoansForMember(ctx context.Context, memberID core.MemberID) ([]projection.LoanView, error) {
	return s.views.ActiveLoansForMember(ctx, memberID)
}

// OverdueCandidates returns loans the view believes are overdue as of now.
// The list is a filter over eventually consistent data; only the sweep's
// authoritative replay decides actual transitions.
func (s *LoanService) OverdueCandidates(ctx context.Context, now time.Time) ([]projection.LoanView, error) {
	return s.views.FindOverdueCandidates(ctx, now)
}
