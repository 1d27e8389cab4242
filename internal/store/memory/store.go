// Package memory provides in-process implementations of the account, portfolio
// and transaction stores. Data lives only as long as the process.
package memory

import (
	"context"
	"sync"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/shopspring/decimal"
)

// Store is the shared in-memory state behind the three repositories
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	portfolios   map[string]domain.Portfolio
	transactions map[string][]domain.Transaction
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		accounts:     make(map[string]domain.Account),
		portfolios:   make(map[string]domain.Portfolio),
		transactions: make(map[string][]domain.Transaction),
	}
}

// Accounts returns the AccountStore view of the store
func (s *Store) Accounts() *AccountRepo { return &AccountRepo{s: s} }

// Portfolios returns the PortfolioStore view of the store
func (s *Store) Portfolios() *PortfolioRepo { return &PortfolioRepo{s: s} }

// Transactions returns the TransactionLog view of the store
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

/* ---- Accounts ---- */

// AccountRepo implements domain.AccountStore
type AccountRepo struct{ s *Store }

// Get returns the account or nil when absent
func (r *AccountRepo) Get(ctx context.Context, username string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	acc, ok := r.s.accounts[username]
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

// Create inserts a new account
func (r *AccountRepo) Create(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.accounts[account.Username]; exists {
		return domain.ErrUserAlreadyExists
	}
	r.s.accounts[account.Username] = account
	return nil
}

// SetBalance overwrites the balance of an existing account
func (r *AccountRepo) SetBalance(ctx context.Context, username string, balance decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acc, ok := r.s.accounts[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	acc.Balance = balance
	r.s.accounts[username] = acc
	return nil
}

/* ---- Portfolios ---- */

// PortfolioRepo implements domain.PortfolioStore
type PortfolioRepo struct{ s *Store }

// Get returns a copy of the user's portfolio, empty when none is stored
func (r *PortfolioRepo) Get(ctx context.Context, username string) (domain.Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.portfolios[username].Clone(), nil
}

// Replace overwrites the user's portfolio with a copy of p
func (r *PortfolioRepo) Replace(ctx context.Context, username string, p domain.Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.portfolios[username] = p.Clone()
	return nil
}

/* ---- Transactions ---- */

// TransactionRepo implements domain.TransactionLog
type TransactionRepo struct{ s *Store }

// Append adds tx to the end of the user's log
func (r *TransactionRepo) Append(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.transactions[tx.Username] = append(r.s.transactions[tx.Username], tx)
	return nil
}

// ListFor returns the user's transactions, oldest first
func (r *TransactionRepo) ListFor(ctx context.Context, username string) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	src := r.s.transactions[username]
	out := make([]domain.Transaction, len(src))
	copy(out, src)
	return out, nil
}
