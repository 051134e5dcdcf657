// Package ports declares the external capabilities the loan lifecycle calls
// but does not implement: member lookups, book lookups and notifications.
// In-memory fakes are provided for tests and local wiring.
package ports
