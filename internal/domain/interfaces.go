package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountStore persists user accounts
type AccountStore interface {
	// Get returns the account, or nil when the username is unknown
	Get(ctx context.Context, username string) (*Account, error)

	// Create inserts a new account; ErrUserAlreadyExists if the username is taken
	Create(ctx context.Context, account Account) error

	// SetBalance overwrites the cash balance of an existing account
	SetBalance(ctx context.Context, username string, balance decimal.Decimal) error
}

// PortfolioStore persists the holdings mapping of each user
type PortfolioStore interface {
	// Get returns the portfolio, empty when the user has none
	Get(ctx context.Context, username string) (Portfolio, error)

	// Replace overwrites the full holdings mapping
	Replace(ctx context.Context, username string, portfolio Portfolio) error
}

// TransactionLog is the append-only per-user trade history
type TransactionLog interface {
	Append(ctx context.Context, tx Transaction) error

	// ListFor returns the user's transactions, oldest first
	ListFor(ctx context.Context, username string) ([]Transaction, error)
}

// NotificationSink delivers a message about a user. Failures are never fatal to callers.
type NotificationSink interface {
	Send(ctx context.Context, username, subject, body string) error
}

// QuoteSource supplies current quotes by symbol
type QuoteSource interface {
	Quote(symbol string) (Quote, bool)
	All() []Quote
}
