// Package core contains the pure domain of the loan lifecycle: identifiers,
// the four domain events, the Loan sum type and the state machine functions
// that create, transition and replay it.
//
// Nothing in this package performs I/O or touches a clock. All transition
// functions take the relevant instant as a parameter and return new immutable
// values together with the event that records the change, which keeps every
// business rule testable without infrastructure.
package core
