package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"loanledger/core"
	"loanledger/eventstore"
	"loanledger/ports"
	"loanledger/projection"
	"loanledger/shell"
)

const defaultSweepConcurrency = 8

// OverdueSweep is the periodic job that transitions late active loans to
// overdue. The view supplies cheap candidates; the decision itself is always
// made on a fresh replay of the aggregate's event history.
//
// The sweep is idempotent: a loan it transitions no longer matches the
// candidate filter, and the authoritative re-check skips loans a concurrent
// return already closed. Re-running or running it concurrently cannot emit
// duplicate events.
type OverdueSweep struct {
	events        EventStore
	views         ViewStore
	books         ports.BookService
	notifications ports.NotificationService
	projector     projection.Projector
	clock         Clock
	logger        eventstore.Logger
	concurrency   int
}

// SweepOption configures an OverdueSweep.
type SweepOption func(*OverdueSweep)

// WithSweepClock replaces the wall clock, used by tests to pin the sweep instant.
func WithSweepClock(clock Clock) SweepOption {
	return func(s *OverdueSweep) {
		s.clock = clock
	}
}

// WithSweepLogger sets a logger for sweep visibility.
func WithSweepLogger(logger eventstore.Logger) SweepOption {
	return func(s *OverdueSweep) {
		s.logger = logger
	}
}

// WithSweepConcurrency bounds how many candidates are processed in parallel.
func WithSweepConcurrency(concurrency int) SweepOption {
	return func(s *OverdueSweep) {
		if concurrency > 0 {
			s.concurrency = concurrency
		}
	}
}

// NewOverdueSweep creates the sweep over its collaborators.
func NewOverdueSweep(
	events EventStore,
	views ViewStore,
	books ports.BookService,
	notifications ports.NotificationService,
	options ...SweepOption,
) *OverdueSweep {

	s := &OverdueSweep{
		events:        events,
		views:         views,
		books:         books,
		notifications: notifications,
		projector:     projection.NewProjector(events, views),
		clock:         time.Now,
		concurrency:   defaultSweepConcurrency,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Run executes one sweep pass and returns how many loans it actually
// transitioned to overdue.
//
// Candidates are processed on a bounded worker pool. A failure on one
// candidate is logged and skipped; it aborts neither the pass nor the other
// candidates. Only context cancellation stops the pass early.
func (s *OverdueSweep) Run(ctx context.Context) (int, error) {
	now := s.clock()

	candidates, candidatesErr := s.views.FindOverdueCandidates(ctx, now)
	if candidatesErr != nil {
		return 0, candidatesErr
	}

	var transitioned atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for _, candidate := range candidates {
		candidate := candidate
		group.Go(func() error {
			didTransition, sweepErr := s.sweepOne(groupCtx, candidate.LoanID, now)
			if sweepErr != nil {
				if errors.Is(sweepErr, context.Canceled) || errors.Is(sweepErr, context.DeadlineExceeded) {
					return sweepErr
				}

				s.logWarn("sweeping candidate failed, skipping",
					"loan_id", candidate.LoanID.String(), "error", sweepErr.Error())

				return nil
			}

			if didTransition {
				transitioned.Add(1)
			}

			return nil
		})
	}

	waitErr := group.Wait()

	count := int(transitioned.Load())
	s.logInfo("overdue sweep finished",
		"candidates", len(candidates), "transitioned", count)

	return count, waitErr
}

// Start runs the sweep every interval until the context is canceled.
// A first pass runs immediately.
func (s *OverdueSweep) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			s.logWarn("overdue sweep pass failed", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sweepOne re-checks one candidate against its authoritative history and
// transitions it when it is genuinely still active and late.
func (s *OverdueSweep) sweepOne(ctx context.Context, loanID core.LoanID, now time.Time) (bool, error) {
	loan, replayErr := replayLoanState(ctx, s.events, loanID)
	if replayErr != nil {
		// A candidate without history means the view ran ahead of a deleted or
		// foreign row; that is a data problem worth surfacing, not skipping.
		return false, replayErr
	}

	activeLoan, isActive := loan.(core.ActiveLoan)
	if !isActive || !core.IsOverdue(loan, now) {
		// A concurrent return or extension beat us to it. Skip silently.
		return false, nil
	}

	becameOverdue := core.BuildLoanBecameOverdue(
		activeLoan.LoanID, activeLoan.BookID, activeLoan.MemberID, activeLoan.DueDate, now)

	storableEvent, mapErr := shell.StorableEventFrom(becameOverdue, shell.NewEventMetadata())
	if mapErr != nil {
		return false, mapErr
	}

	if appendErr := s.events.Append(ctx, loanID.UUID, storableEvent); appendErr != nil {
		if errors.Is(appendErr, eventstore.ErrConcurrencyConflict) {
			// Someone else appended first; the next pass re-evaluates the loan.
			return false, nil
		}

		return false, appendErr
	}

	if projectErr := s.projector.Project(ctx, loanID); projectErr != nil {
		s.logWarn("projection after overdue transition failed, view is stale",
			"loan_id", loanID.String(), "error", projectErr.Error())
	}

	s.notifyOverdue(ctx, activeLoan)

	return true, nil
}

func (s *OverdueSweep) notifyOverdue(ctx context.Context, loan core.ActiveLoan) {
	title, titleErr := s.books.GetTitle(ctx, loan.BookID)
	if titleErr != nil {
		s.logWarn("resolving book title failed", "book_id", loan.BookID.String(), "error", titleErr.Error())
	}

	if sendErr := s.notifications.SendOverdue(ctx, loan.MemberID, title); sendErr != nil {
		s.logWarn("sending overdue notification failed",
			"loan_id", loan.LoanID.String(), "error", sendErr.Error())
	}
}

func (s *OverdueSweep) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *OverdueSweep) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
