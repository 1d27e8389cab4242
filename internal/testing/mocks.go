package testing

import (
	"context"
	"errors"
	"sync"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrInjected is the default failure returned by mocks configured to fail
var ErrInjected = errors.New("injected failure")

// callTracker records method calls and per-call failures for a mock
type callTracker struct {
	calls map[string]int
	fail  map[string]map[int]error // method -> call number (1-based, 0 = every call) -> error
}

func newCallTracker() callTracker {
	return callTracker{calls: make(map[string]int), fail: make(map[string]map[int]error)}
}

func (c *callTracker) record(method string) error {
	c.calls[method]++
	byCall := c.fail[method]
	if byCall == nil {
		return nil
	}
	if err, ok := byCall[c.calls[method]]; ok {
		return err
	}
	return byCall[0]
}

func (c *callTracker) setError(method string, call int, err error) {
	if c.fail[method] == nil {
		c.fail[method] = make(map[int]error)
	}
	if err == nil {
		delete(c.fail[method], call)
		return
	}
	c.fail[method][call] = err
}

// MockAccountStore is an in-memory AccountStore with failure injection
type MockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	tracker  callTracker
}

// NewMockAccountStore creates a new mock account store
func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{accounts: make(map[string]domain.Account), tracker: newCallTracker()}
}

// SetError makes every call of method fail with err (nil clears it)
func (m *MockAccountStore) SetError(method string, err error) {
	m.SetErrorOnCall(method, 0, err)
}

// SetErrorOnCall makes only the given call number of method fail
func (m *MockAccountStore) SetErrorOnCall(method string, call int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.setError(method, call, err)
}

// Calls returns how many times method was invoked
func (m *MockAccountStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.calls[method]
}

// Get returns the stored account or nil
func (m *MockAccountStore) Get(_ context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tracker.record("Get"); err != nil {
		return nil, err
	}
	acc, ok := m.accounts[username]
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

// Create stores a new account
func (m *MockAccountStore) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tracker.record("Create"); err != nil {
		return err
	}
	if _, exists := m.accounts[account.Username]; exists {
		return domain.ErrUserAlreadyExists
	}
	m.accounts[account.Username] = account
	return nil
}

// SetBalance overwrites the balance of an existing account
func (m *MockAccountStore) SetBalance(_ context.Context, username string, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tracker.record("SetBalance"); err != nil {
		return err
	}
	acc, ok := m.accounts[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	acc.Balance = balance
	m.accounts[username] = acc
	return nil
}

// Balance is a test accessor returning the current balance
func (m *MockAccountStore) Balance(username string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[username].Balance
}

// MockPortfolioStore is an in-memory PortfolioStore with failure injection
type MockPortfolioStore struct {
	mu         sync.Mutex
	portfolios map[string]domain.Portfolio
	tracker    callTracker
}

// NewMockPortfolioStore creates a new mock portfolio store
func NewMockPortfolioStore() *MockPortfolioStore {
	return &MockPortfolioStore{portfolios: make(map[string]domain.Portfolio), tracker: newCallTracker()}
}

// SetError makes every call of method fail with err (nil clears it)
func (m *MockPortfolioStore) SetError(method string, err error) {
	m.SetErrorOnCall(method, 0, err)
}

// SetErrorOnCall makes only the given call number of method fail
func (m *MockPortfolioStore) SetErrorOnCall(method string, call int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.setError(method, call, err)
}

// Calls returns how many times method was invoked
func (m *MockPortfolioStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.calls[method]
}

// Get returns a copy of the stored portfolio
func (m *MockPortfolioStore) Get(_ context.Context, username string) (domain.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tracker.record("Get"); err != nil {
		return nil, err
	}
	return m.portfolios[username].Clone(), nil
}

// Replace overwrites the stored portfolio
func (m *MockPortfolioStore) Replace(_ context.Context, username string, portfolio domain.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tracker.record("Replace"); err != nil {
		return err
	}
	m.portfolios[username] = portfolio.Clone()
	return nil
}

// Snapshot is a test accessor returning the current portfolio
func (m *MockPortfolioStore) Snapshot(username string) domain.Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolios[username].Clone()
}

// MockTransactionLog is an in-memory TransactionLog with failure injection
type MockTransactionLog struct {
	mu      sync.Mutex
	entries []domain.Transaction
	tracker callTracker
}

// NewMockTransactionLog creates a new mock transaction log
func NewMockTransactionLog() *MockTransactionLog {
	return &MockTransactionLog{tracker: newCallTracker()}
}

// SetError makes every call of method fail with err (nil clears it)
func (m *MockTransactionLog) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker.setError(method, 0, err)
}

// Append records a transaction
func (m *MockTransactionLog) Append(_ context.Context, tx domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tracker.record("Append"); err != nil {
		return err
	}
	m.entries = append(m.entries, tx)
	return nil
}

// ListFor returns the user's transactions in insertion order
func (m *MockTransactionLog) ListFor(_ context.Context, username string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tracker.record("ListFor"); err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0)
	for _, tx := range m.entries {
		if tx.Username == username {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Len is a test accessor returning the number of recorded transactions
func (m *MockTransactionLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// SentNotification is one message captured by RecordingSink
type SentNotification struct {
	Username string
	Subject  string
	Body     string
}

// RecordingSink is a NotificationSink that keeps every message it is given
type RecordingSink struct {
	mu   sync.Mutex
	sent []SentNotification
	err  error
}

// NewRecordingSink creates a new recording sink
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// SetError makes Send fail after recording the message
func (s *RecordingSink) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Send records the message
func (s *RecordingSink) Send(_ context.Context, username, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentNotification{Username: username, Subject: subject, Body: body})
	return s.err
}

// Sent returns a copy of the recorded messages
func (s *RecordingSink) Sent() []SentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentNotification, len(s.sent))
	copy(out, s.sent)
	return out
}
