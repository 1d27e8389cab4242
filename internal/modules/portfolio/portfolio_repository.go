// Package portfolio stores per-user holdings and values them against the quote catalog.
package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/papertrader/internal/database"
	"github.com/aristath/papertrader/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PortfolioRepository is the sqlite-backed PortfolioStore
type PortfolioRepository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "portfolios").Logger(),
	}
}

// Get returns the user's holdings. A user without holdings gets an empty portfolio.
func (r *PortfolioRepository) Get(ctx context.Context, username string) (domain.Portfolio, error) {
	query := `SELECT symbol, shares, avg_cost FROM holdings WHERE username = ? ORDER BY symbol`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query holdings: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	p := make(domain.Portfolio)
	for rows.Next() {
		var (
			h       domain.Holding
			avgCost string
		)
		if err := rows.Scan(&h.Symbol, &h.Shares, &avgCost); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		if h.AvgCost, err = decimal.NewFromString(avgCost); err != nil {
			return nil, fmt.Errorf("holding %s/%s has invalid avg cost %q: %w", username, h.Symbol, avgCost, err)
		}
		p[h.Symbol] = h
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating holdings: %v", domain.ErrStoreUnavailable, err)
	}

	return p, nil
}

// Replace overwrites all of the user's holdings in one transaction
func (r *PortfolioRepository) Replace(ctx context.Context, username string, p domain.Portfolio) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("failed to replace portfolio of %s: %w", username, err)
	}

	updatedAt := r.now().Unix()
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE username = ?`, username); err != nil {
			return fmt.Errorf("failed to clear holdings: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO holdings (username, symbol, shares, avg_cost, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare holding insert: %w", err)
		}
		defer stmt.Close()

		for _, symbol := range p.Symbols() {
			h := p[symbol]
			if _, err := stmt.ExecContext(ctx, username, symbol, h.Shares, h.AvgCost.String(), updatedAt); err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", symbol, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO portfolios (username, updated_at) VALUES (?, ?)
			ON CONFLICT(username) DO UPDATE SET updated_at = excluded.updated_at
		`, username, updatedAt)
		if err != nil {
			return fmt.Errorf("failed to touch portfolio: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	r.log.Debug().Str("username", username).Int("holdings", len(p)).Msg("Portfolio replaced")
	return nil
}
