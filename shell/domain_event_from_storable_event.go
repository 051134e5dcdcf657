package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"loanledger/core"
	"loanledger/eventstore"
)

var (
	// ErrMappingToDomainEventFailed is returned when domain event conversion fails.
	ErrMappingToDomainEventFailed = errors.New("mapping to domain event failed")

	// ErrMappingToDomainEventUnknownEventType is returned for unrecognized event types.
	// A history containing one is corrupt, not merely stale.
	ErrMappingToDomainEventUnknownEventType = errors.New("unknown event type")
)

// DomainEventsFrom converts multiple StorableEvents to DomainEvents.
func DomainEventsFrom(storableEvents eventstore.StorableEvents) (core.DomainEvents, error) {
	domainEvents := make(core.DomainEvents, 0, len(storableEvents))

	for _, storableEvent := range storableEvents {
		domainEvent, err := DomainEventFrom(storableEvent)
		if err != nil {
			return nil, err
		}

		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, nil
}

// DomainEventFrom converts a StorableEvent to its corresponding DomainEvent.
func DomainEventFrom(storableEvent eventstore.StorableEvent) (core.DomainEvent, error) {
	switch storableEvent.EventType {
	case core.BookLoanedEventType:
		return unmarshalBookLoaned(storableEvent.PayloadJSON)

	case core.LoanExtendedEventType:
		return unmarshalLoanExtended(storableEvent.PayloadJSON)

	case core.BookReturnedEventType:
		return unmarshalBookReturned(storableEvent.PayloadJSON)

	case core.LoanBecameOverdueEventType:
		return unmarshalLoanBecameOverdue(storableEvent.PayloadJSON)

	default:
		return nil, errors.Join(ErrMappingToDomainEventFailed, ErrMappingToDomainEventUnknownEventType)
	}
}

func unmarshalBookLoaned(payloadJSON []byte) (core.DomainEvent, error) {
	payload := new(core.BookLoaned)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, payload)
	if err != nil {
		return core.BookLoaned{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return *payload, nil
}

func unmarshalLoanExtended(payloadJSON []byte) (core.DomainEvent, error) {
	payload := new(core.LoanExtended)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, payload)
	if err != nil {
		return core.LoanExtended{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return *payload, nil
}

func unmarshalBookReturned(payloadJSON []byte) (core.DomainEvent, error) {
	payload := new(core.BookReturned)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, payload)
	if err != nil {
		return core.BookReturned{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return *payload, nil
}

func unmarshalLoanBecameOverdue(payloadJSON []byte) (core.DomainEvent, error) {
	payload := new(core.LoanBecameOverdue)

	err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, payload)
	if err != nil {
		return core.LoanBecameOverdue{}, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return *payload, nil
}
