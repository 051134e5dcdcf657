package core

import "errors"

var (
	// ErrAlreadyReturned is returned when an operation is attempted on a loan
	// that has reached its terminal state.
	ErrAlreadyReturned = errors.New("loan has already been returned")

	// ErrCannotExtendOverdue is returned when an extension is attempted on an
	// overdue loan.
	ErrCannotExtendOverdue = errors.New("cannot extend an overdue loan")

	// ErrCorruptHistory signals an event that is not a valid transition from
	// the state preceding it. This is an integrity fault, not a business
	// rejection: it means the persisted history is corrupted or was written
	// by incompatible code, and callers must not coerce it into a default state.
	ErrCorruptHistory = errors.New("corrupt event history")
)
