package app

import (
	"context"

	"loanledger/core"
)

// LoanBook lends a book to a member and returns the new loan's id.
//
// Checks, in order, before anything is written: the member exists, the book is
// available, the member holds no overdue loans, and the member is under the
// active loan limit. A rejected command has zero side effects.
func (s *LoanService) LoanBook(
	ctx context.Context,
	bookID core.BookID,
	memberID core.MemberID,
	staffID core.StaffID,
) (core.LoanID, error) {

	if err := s.checkLoanPreconditions(ctx, bookID, memberID); err != nil {
		if isBusinessRuleViolation(err) {
			s.logInfo("loan command rejected",
				"book_id", bookID.String(), "member_id", memberID.String(), "reason", err.Error())
		}

		return core.LoanID{}, err
	}

	loan, loaned := core.LoanBook(bookID, memberID, staffID, s.clock())

	if err := s.appendAndProject(ctx, loan.LoanID, loaned); err != nil {
		return core.LoanID{}, err
	}

	s.logInfo("book loaned",
		"loan_id", loan.LoanID.String(),
		"book_id", bookID.String(),
		"member_id", memberID.String(),
		"due_date", loan.DueDate)

	return loan.LoanID, nil
}

func (s *LoanService) checkLoanPreconditions(ctx context.Context, bookID core.BookID, memberID core.MemberID) error {
	memberExists, memberErr := s.members.Exists(ctx, memberID)
	if memberErr != nil {
		return memberErr
	}
	if !memberExists {
		return ErrMemberNotFound
	}

	bookAvailable, bookErr := s.books.IsAvailableForLoan(ctx, bookID)
	if bookErr != nil {
		return bookErr
	}
	if !bookAvailable {
		return ErrBookNotAvailable
	}

	hasOverdue, overdueErr := s.members.HasOverdueLoans(ctx, memberID)
	if overdueErr != nil {
		return overdueErr
	}
	if hasOverdue {
		return ErrMemberHasOverdueLoan
	}

	activeLoans, activeErr := s.views.ActiveLoansForMember(ctx, memberID)
	if activeErr != nil {
		return activeErr
	}
	if len(activeLoans) >= MaxActiveLoansPerMember {
		return ErrLoanLimitExceeded
	}

	return nil
}

// ExtendLoan pushes the loan's due date out by one loan period.
//
// The aggregate is replayed to its authoritative state first: overdue loans
// cannot be extended, returned loans reject everything, and a second extension
// fails inside the state machine. On success the member gets an extension
// confirmation naming the book.
func (s *LoanService) ExtendLoan(ctx context.Context, loanID core.LoanID) error {
	loan, loadErr := s.loadLoan(ctx, loanID)
	if loadErr != nil {
		return loadErr
	}

	activeLoan, ok := loan.(core.ActiveLoan)
	if !ok {
		err := stateToExtensionError(loan)
		s.logInfo("extend command rejected", "loan_id", loanID.String(), "reason", err.Error())

		return err
	}

	extendedLoan, extended, extendErr := core.ExtendLoan(activeLoan, s.clock())
	if extendErr != nil {
		s.logInfo("extend command rejected", "loan_id", loanID.String(), "reason", extendErr.Error())

		return extendErr
	}

	if err := s.appendAndProject(ctx, loanID, extended); err != nil {
		return err
	}

	s.logInfo("loan extended",
		"loan_id", loanID.String(), "new_due_date", extendedLoan.DueDate)

	title := s.bookTitle(ctx, extendedLoan.BookID)
	s.notify(func() error {
		return s.notifications.SendExtension(ctx, extendedLoan.MemberID, title)
	}, "extension", loanID)

	return nil
}

func stateToExtensionError(loan core.Loan) error {
	switch loan.(type) {
	case core.OverdueLoan:
		return core.ErrCannotExtendOverdue
	case core.ReturnedLoan:
		return core.ErrAlreadyReturned
	default:
		return core.ErrCorruptHistory
	}
}

// ReturnBook closes a loan, whether on time or late. The member gets a return
// confirmation that names the book and says whether the return was overdue.
func (s *LoanService) ReturnBook(ctx context.Context, loanID core.LoanID) error {
	loan, loadErr := s.loadLoan(ctx, loanID)
	if loadErr != nil {
		return loadErr
	}

	returnedLoan, returned, returnErr := core.ReturnBook(loan, s.clock())
	if returnErr != nil {
		s.logInfo("return command rejected", "loan_id", loanID.String(), "reason", returnErr.Error())

		return returnErr
	}

	if err := s.appendAndProject(ctx, loanID, returned); err != nil {
		return err
	}

	s.logInfo("book returned",
		"loan_id", loanID.String(), "was_overdue", returned.WasOverdue)

	title := s.bookTitle(ctx, returnedLoan.BookID)
	s.notify(func() error {
		return s.notifications.SendReturn(ctx, returnedLoan.MemberID, title, returned.WasOverdue)
	}, "return", loanID)

	return nil
}
