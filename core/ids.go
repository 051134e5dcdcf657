package core

import (
	"github.com/google/uuid"
)

// LoanID identifies one loan aggregate. It is assigned once at creation and
// never changes.
type LoanID struct {
	uuid.UUID
}

// NewLoanID creates a random LoanID.
func NewLoanID() LoanID {
	return LoanID{uuid.New()}
}

// LoanIDFromString parses a LoanID from its string representation.
func LoanIDFromString(s string) (LoanID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return LoanID{}, err
	}

	return LoanID{id}, nil
}

// BookID references a book in the catalog context. The loan context only
// knows the ID, never the book details.
type BookID struct {
	uuid.UUID
}

// NewBookID creates a random BookID.
func NewBookID() BookID {
	return BookID{uuid.New()}
}

// BookIDFromString parses a BookID from its string representation.
func BookIDFromString(s string) (BookID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BookID{}, err
	}

	return BookID{id}, nil
}

// MemberID references a member in the membership context.
type MemberID struct {
	uuid.UUID
}

// NewMemberID creates a random MemberID.
func NewMemberID() MemberID {
	return MemberID{uuid.New()}
}

// MemberIDFromString parses a MemberID from its string representation.
func MemberIDFromString(s string) (MemberID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MemberID{}, err
	}

	return MemberID{id}, nil
}

// StaffID references the staff member who performed an operation.
type StaffID struct {
	uuid.UUID
}

// NewStaffID creates a random StaffID.
func NewStaffID() StaffID {
	return StaffID{uuid.New()}
}

// StaffIDFromString parses a StaffID from its string representation.
func StaffIDFromString(s string) (StaffID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return StaffID{}, err
	}

	return StaffID{id}, nil
}
