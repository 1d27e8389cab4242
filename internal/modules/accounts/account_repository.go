// Package accounts manages user accounts: credentials, cash balance and signup.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountRepository is the sqlite-backed AccountStore
type AccountRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		db:  db,
		log: log.With().Str("repo", "accounts").Logger(),
	}
}

// Get returns the account, or nil when the username is unknown
func (r *AccountRepository) Get(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT username, password_hash, balance, created_at FROM accounts WHERE username = ?`

	var (
		acc       domain.Account
		balance   string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(&acc.Username, &acc.PasswordHash, &balance, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query account: %v", domain.ErrStoreUnavailable, err)
	}

	if acc.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("account %s has invalid balance %q: %w", username, balance, err)
	}
	acc.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &acc, nil
}

// Create inserts a new account. An existing username yields ErrUserAlreadyExists.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query := `INSERT INTO accounts (username, password_hash, balance, created_at) VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		account.Username,
		account.PasswordHash,
		account.Balance.String(),
		account.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrUserAlreadyExists, account.Username)
		}
		return fmt.Errorf("%w: failed to insert account: %v", domain.ErrStoreUnavailable, err)
	}

	r.log.Info().Str("username", account.Username).Msg("Account created")
	return nil
}

// SetBalance overwrites the cash balance of an existing account
func (r *AccountRepository) SetBalance(ctx context.Context, username string, balance decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE username = ?`, balance.String(), username)
	if err != nil {
		return fmt.Errorf("%w: failed to update balance: %v", domain.ErrStoreUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to read affected rows: %v", domain.ErrStoreUnavailable, err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// Count returns the number of registered accounts
func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count accounts: %v", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
