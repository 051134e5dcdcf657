package app_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"loanledger/core"
	"loanledger/eventstore"
	"loanledger/projection"
)

// inMemoryEventStore is a map-backed stand-in for the Postgres engine with the
// same per-aggregate ordering guarantees.
type inMemoryEventStore struct {
	mu      sync.Mutex
	streams map[uuid.UUID]eventstore.StorableEvents

	// appendErr, when set, fails the next Append once.
	appendErr error
}

func newInMemoryEventStore() *inMemoryEventStore {
	return &inMemoryEventStore{streams: make(map[uuid.UUID]eventstore.StorableEvents)}
}

func (s *inMemoryEventStore) Append(_ context.Context, aggregateID uuid.UUID, events ...eventstore.StorableEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		err := s.appendErr
		s.appendErr = nil

		return err
	}

	s.streams[aggregateID] = append(s.streams[aggregateID], events...)

	return nil
}

func (s *inMemoryEventStore) Load(_ context.Context, aggregateID uuid.UUID) (eventstore.StorableEvents, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append(eventstore.StorableEvents(nil), s.streams[aggregateID]...), nil
}

// inMemoryViewStore is a map-backed stand-in for the loans view table.
type inMemoryViewStore struct {
	mu   sync.Mutex
	rows map[core.LoanID]projection.LoanView
}

func newInMemoryViewStore() *inMemoryViewStore {
	return &inMemoryViewStore{rows: make(map[core.LoanID]projection.LoanView)}
}

func (s *inMemoryViewStore) Save(_ context.Context, view projection.LoanView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[view.LoanID] = view

	return nil
}

func (s *inMemoryViewStore) GetByID(_ context.Context, loanID core.LoanID) (projection.LoanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, found := s.rows[loanID]
	if !found {
		return projection.LoanView{}, projection.ErrLoanNotFound
	}

	return view, nil
}

func (s *inMemoryViewStore) FindByMember(_ context.Context, memberID core.MemberID) ([]projection.LoanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]projection.LoanView, 0)
	for _, view := range s.rows {
		if view.MemberID == memberID {
			views = append(views, view)
		}
	}

	return views, nil
}

func (s *inMemoryViewStore) ActiveLoansForMember(_ context.Context, memberID core.MemberID) ([]projection.LoanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]projection.LoanView, 0)
	for _, view := range s.rows {
		if view.MemberID == memberID && view.Status == projection.StatusActive {
			views = append(views, view)
		}
	}

	return views, nil
}

func (s *inMemoryViewStore) FindOverdueCandidates(_ context.Context, cutoff time.Time) ([]projection.LoanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]projection.LoanView, 0)
	for _, view := range s.rows {
		if view.Status == projection.StatusActive && view.DueDate.Before(cutoff) {
			views = append(views, view)
		}
	}

	return views, nil
}
