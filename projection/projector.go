package projection

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"loanledger/core"
	"loanledger/eventstore"
	"loanledger/shell"
)

// ErrProjectionFailed wraps any failure while rebuilding a view row.
var ErrProjectionFailed = errors.New("projecting loan view failed")

// EventHistoryLoader loads the complete ordered event history of one aggregate.
// postgresengine.EventStore satisfies it.
type EventHistoryLoader interface {
	Load(ctx context.Context, aggregateID uuid.UUID) (eventstore.StorableEvents, error)
}

// ViewSaver persists one complete view row, insert or full overwrite.
type ViewSaver interface {
	Save(ctx context.Context, view LoanView) error
}

// Projector rebuilds the view row for one loan from its full event history.
//
// Every write carries the complete reconstructed state, never a field-level
// delta, so a projection can never be partially applied.
type Projector struct {
	events EventHistoryLoader
	views  ViewSaver
	logger eventstore.Logger
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithProjectorLogger sets a logger for projection visibility.
func WithProjectorLogger(logger eventstore.Logger) ProjectorOption {
	return func(p *Projector) {
		p.logger = logger
	}
}

// NewProjector creates a Projector over the given event history source and view sink.
func NewProjector(events EventHistoryLoader, views ViewSaver, options ...ProjectorOption) Projector {
	p := Projector{
		events: events,
		views:  views,
	}

	for _, option := range options {
		option(&p)
	}

	return p
}

// Project loads the loan's history, replays it to the authoritative state and
// upserts the resulting view row. An empty history is a no-op success, so
// projecting an unknown loan id is harmless.
//
// Corrupt histories surface core.ErrCorruptHistory through the returned error
// and must not be coerced into a default row.
func (p Projector) Project(ctx context.Context, loanID core.LoanID) error {
	storableEvents, loadErr := p.events.Load(ctx, loanID.UUID)
	if loadErr != nil {
		return errors.Join(ErrProjectionFailed, loadErr)
	}

	if len(storableEvents) == 0 {
		return nil
	}

	domainEvents, mapErr := shell.DomainEventsFrom(storableEvents)
	if mapErr != nil {
		return errors.Join(ErrProjectionFailed, mapErr)
	}

	loan, replayErr := core.ReplayEvents(domainEvents)
	if replayErr != nil {
		return errors.Join(ErrProjectionFailed, replayErr)
	}

	view := ViewFromLoan(loan)

	if saveErr := p.views.Save(ctx, view); saveErr != nil {
		return errors.Join(ErrProjectionFailed, saveErr)
	}

	if p.logger != nil {
		p.logger.Debug("loan view projected",
			"loan_id", view.LoanID.String(),
			"status", string(view.Status),
			"event_count", len(domainEvents))
	}

	return nil
}
