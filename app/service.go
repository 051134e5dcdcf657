package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"loanledger/core"
	"loanledger/eventstore"
	"loanledger/ports"
	"loanledger/projection"
	"loanledger/shell"
)

// EventStore is the slice of the engine the service needs: append events for
// one aggregate, load one aggregate's history. postgresengine.EventStore
// satisfies it.
type EventStore interface {
	Append(ctx context.Context, aggregateID uuid.UUID, events ...eventstore.StorableEvent) error
	Load(ctx context.Context, aggregateID uuid.UUID) (eventstore.StorableEvents, error)
}

// ViewStore is the read-model surface the service queries and the projector
// writes. projection.PostgresViewStore satisfies it.
type ViewStore interface {
	Save(ctx context.Context, view projection.LoanView) error
	GetByID(ctx context.Context, loanID core.LoanID) (projection.LoanView, error)
	FindByMember(ctx context.Context, memberID core.MemberID) ([]projection.LoanView, error)
	ActiveLoansForMember(ctx context.Context, memberID core.MemberID) ([]projection.LoanView, error)
	FindOverdueCandidates(ctx context.Context, cutoff time.Time) ([]projection.LoanView, error)
}

// Clock supplies the current time, injected so command timestamps are testable.
type Clock func() time.Time

// LoanService is the command and query surface of the loan lifecycle. All
// dependencies are explicit; there are no ambient singletons.
type LoanService struct {
	events        EventStore
	views         ViewStore
	members       ports.MemberService
	books         ports.BookService
	notifications ports.NotificationService
	projector     projection.Projector
	clock         Clock
	logger        eventstore.Logger
	retryOptions  []shell.RetryOption
}

// LoanServiceOption configures a LoanService.
type LoanServiceOption func(*LoanService)

// WithClock replaces the wall clock, used by tests to pin command timestamps.
func WithClock(clock Clock) LoanServiceOption {
	return func(s *LoanService) {
		s.clock = clock
	}
}

// WithServiceLogger sets a logger for command and query visibility.
func WithServiceLogger(logger eventstore.Logger) LoanServiceOption {
	return func(s *LoanService) {
		s.logger = logger
	}
}

// WithRetryOptions overrides the concurrency conflict retry behavior.
func WithRetryOptions(options ...shell.RetryOption) LoanServiceOption {
	return func(s *LoanService) {
		s.retryOptions = options
	}
}

// NewLoanService creates the service over its five collaborators.
func NewLoanService(
	events EventStore,
	views ViewStore,
	members ports.MemberService,
	books ports.BookService,
	notifications ports.NotificationService,
	options ...LoanServiceOption,
) *LoanService {

	s := &LoanService{
		events:        events,
		views:         views,
		members:       members,
		books:         books,
		notifications: notifications,
		projector:     projection.NewProjector(events, views),
		clock:         time.Now,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// loadLoan replays one aggregate to its authoritative current state.
// Returns ErrLoanNotFound when no events exist for the id.
func (s *LoanService) loadLoan(ctx context.Context, loanID core.LoanID) (core.Loan, error) {
	return replayLoanState(ctx, s.events, loanID)
}

// replayLoanState loads one aggregate's full history and folds it to the
// current state. Never decide a mutation from the view; this is the
// authoritative read.
func replayLoanState(ctx context.Context, events EventStore, loanID core.LoanID) (core.Loan, error) {
	storableEvents, loadErr := events.Load(ctx, loanID.UUID)
	if loadErr != nil {
		return nil, loadErr
	}

	if len(storableEvents) == 0 {
		return nil, ErrLoanNotFound
	}

	domainEvents, mapErr := shell.DomainEventsFrom(storableEvents)
	if mapErr != nil {
		return nil, mapErr
	}

	return core.ReplayEvents(domainEvents)
}

// appendAndProject makes the decided events durable, then refreshes the view.
// The append is wrapped in conflict retry; fn re-decides nothing, it only
// re-appends, so callers must re-load state themselves when they need to.
func (s *LoanService) appendAndProject(ctx context.Context, loanID core.LoanID, events ...core.DomainEvent) error {
	metadata := shell.NewEventMetadata()

	storableEvents, mapErr := shell.StorableEventsFrom(events, metadata)
	if mapErr != nil {
		return mapErr
	}

	appendErr := shell.RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		return s.events.Append(ctx, loanID.UUID, storableEvents...)
	}, s.retryOptions...)
	if appendErr != nil {
		return appendErr
	}

	// The view upsert happens after the commit; a failure here leaves the view
	// stale until the next successful projection, never inconsistent history.
	if projectErr := s.projector.Project(ctx, loanID); projectErr != nil {
		s.logWarn("projection after append failed, view is stale",
			"loan_id", loanID.String(), "error", projectErr.Error())
	}

	return nil
}

func (s *LoanService) notify(send func() error, kind string, loanID core.LoanID) {
	if err := send(); err != nil {
		s.logWarn("sending notification failed",
			"kind", kind, "loan_id", loanID.String(), "error", err.Error())
	}
}

func (s *LoanService) bookTitle(ctx context.Context, bookID core.BookID) string {
	title, err := s.books.GetTitle(ctx, bookID)
	if err != nil {
		s.logWarn("resolving book title failed", "book_id", bookID.String(), "error", err.Error())

		return ""
	}

	return title
}

func (s *LoanService) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *LoanService) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// isBusinessRuleViolation reports whether err is a pre-append rejection rather
// than an infrastructure or integrity fault.
func isBusinessRuleViolation(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrBookNotAvailable) ||
		errors.Is(err, ErrMemberHasOverdueLoan) ||
		errors.Is(err, ErrLoanLimitExceeded) ||
		errors.Is(err, ErrLoanNotFound) ||
		errors.Is(err, core.ErrAlreadyReturned) ||
		errors.Is(err, core.ErrCannotExtendOverdue) ||
		errors.Is(err, core.ErrExtensionLimitExceeded)
}
