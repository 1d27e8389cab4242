package trading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionRepository is the sqlite-backed TransactionLog
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// transactionColumns is the column list read by scanTransaction
const transactionColumns = `id, username, symbol, side, quantity, price, total, executed_at`

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// Append inserts a new transaction record
func (r *TransactionRepository) Append(ctx context.Context, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	query := `
		INSERT INTO transactions
		(id, username, symbol, side, quantity, price, total, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.Username,
		tx.Symbol,
		string(tx.Side),
		tx.Quantity,
		tx.Price.String(),
		tx.Total.String(),
		tx.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert transaction: %v", domain.ErrStoreUnavailable, err)
	}

	r.log.Debug().
		Str("id", tx.ID).
		Str("username", tx.Username).
		Str("symbol", tx.Symbol).
		Str("side", string(tx.Side)).
		Msg("Transaction appended")

	return nil
}

// ListFor returns the user's transactions, oldest first
func (r *TransactionRepository) ListFor(ctx context.Context, username string) ([]domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE username = ? ORDER BY executed_at ASC, seq ASC"

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query transactions: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating transactions: %v", domain.ErrStoreUnavailable, err)
	}

	return txs, nil
}

// Count returns the total number of recorded transactions
func (r *TransactionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count transactions: %v", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var (
		tx         domain.Transaction
		side       string
		price      string
		total      string
		executedAt int64
	)

	if err := rows.Scan(&tx.ID, &tx.Username, &tx.Symbol, &side, &tx.Quantity, &price, &total, &executedAt); err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	var err error
	if tx.Side, err = domain.TradeSideFromString(side); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return tx, fmt.Errorf("transaction %s has invalid price: %w", tx.ID, err)
	}
	if tx.Total, err = decimal.NewFromString(total); err != nil {
		return tx, fmt.Errorf("transaction %s has invalid total: %w", tx.ID, err)
	}
	tx.Timestamp = time.Unix(0, executedAt).UTC()

	return tx, nil
}
