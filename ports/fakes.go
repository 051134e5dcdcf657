package ports

import (
	"context"
	"sync"

	"loanledger/core"
)

// FakeMemberService is a configurable in-memory MemberService.
type FakeMemberService struct {
	mu      sync.RWMutex
	members map[core.MemberID]bool
	overdue map[core.MemberID]bool

	// Err, when set, is returned by every call.
	Err error
}

// NewFakeMemberService creates an empty fake member registry.
func NewFakeMemberService() *FakeMemberService {
	return &FakeMemberService{
		members: make(map[core.MemberID]bool),
		overdue: make(map[core.MemberID]bool),
	}
}

// AddMember registers a member in good standing.
func (f *FakeMemberService) AddMember(memberID core.MemberID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[memberID] = true
}

// SetHasOverdueLoans marks the member as holding overdue loans.
func (f *FakeMemberService) SetHasOverdueLoans(memberID core.MemberID, hasOverdue bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overdue[memberID] = hasOverdue
}

// Exists implements MemberService.
func (f *FakeMemberService) Exists(_ context.Context, memberID core.MemberID) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.members[memberID], nil
}

// HasOverdueLoans implements MemberService.
func (f *FakeMemberService) HasOverdueLoans(_ context.Context, memberID core.MemberID) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.overdue[memberID], nil
}

// FakeBookService is a configurable in-memory BookService.
type FakeBookService struct {
	mu        sync.RWMutex
	available map[core.BookID]bool
	titles    map[core.BookID]string

	// Err, when set, is returned by every call.
	Err error
}

// NewFakeBookService creates an empty fake catalog.
func NewFakeBookService() *FakeBookService {
	return &FakeBookService{
		available: make(map[core.BookID]bool),
		titles:    make(map[core.BookID]string),
	}
}

// AddBook registers an available book with a title.
func (f *FakeBookService) AddBook(bookID core.BookID, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available[bookID] = true
	f.titles[bookID] = title
}

// SetAvailable overrides a book's availability.
func (f *FakeBookService) SetAvailable(bookID core.BookID, isAvailable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available[bookID] = isAvailable
}

// IsAvailableForLoan implements BookService.
func (f *FakeBookService) IsAvailableForLoan(_ context.Context, bookID core.BookID) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.available[bookID], nil
}

// GetTitle implements BookService.
func (f *FakeBookService) GetTitle(_ context.Context, bookID core.BookID) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.titles[bookID], nil
}

// SentNotification records one delivered fake notification.
type SentNotification struct {
	Kind       string
	MemberID   core.MemberID
	BookTitle  string
	WasOverdue bool
}

// FakeNotificationService records notifications instead of delivering them.
type FakeNotificationService struct {
	mu   sync.Mutex
	sent []SentNotification

	// Err, when set, is returned by every call.
	Err error
}

// NewFakeNotificationService creates an empty recording notification service.
func NewFakeNotificationService() *FakeNotificationService {
	return &FakeNotificationService{}
}

// Sent returns a copy of everything recorded so far.
func (f *FakeNotificationService) Sent() []SentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]SentNotification(nil), f.sent...)
}

// SendOverdue implements NotificationService.
func (f *FakeNotificationService) SendOverdue(_ context.Context, memberID core.MemberID, bookTitle string) error {
	return f.record(SentNotification{Kind: "overdue", MemberID: memberID, BookTitle: bookTitle})
}

// SendExtension implements NotificationService.
func (f *FakeNotificationService) SendExtension(_ context.Context, memberID core.MemberID, bookTitle string) error {
	return f.record(SentNotification{Kind: "extension", MemberID: memberID, BookTitle: bookTitle})
}

// SendReturn implements NotificationService.
func (f *FakeNotificationService) SendReturn(_ context.Context, memberID core.MemberID, bookTitle string, wasOverdue bool) error {
	return f.record(SentNotification{Kind: "return", MemberID: memberID, BookTitle: bookTitle, WasOverdue: wasOverdue})
}

func (f *FakeNotificationService) record(notification SentNotification) error {
	if f.Err != nil {
		return f.Err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification)

	return nil
}
