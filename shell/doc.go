// Package shell contains the technical glue between the pure domain in core
// and the event store: serialization of domain events to storable events and
// back, event metadata handling, and retry logic for concurrency conflicts.
package shell
