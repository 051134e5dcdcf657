// Package app wires the pure loan state machine to the event store, the view
// projection and the external collaborator ports. It holds the command
// handlers, the query surface over the loans view, and the overdue sweep.
//
// Business checks run strictly before any event is appended; a rejected
// command leaves zero side effects behind.
package app
