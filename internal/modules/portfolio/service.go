package portfolio

import (
	"context"
	"fmt"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/rs/zerolog"
)

// DashboardRecentLimit is how many transactions the dashboard shows
const DashboardRecentLimit = 10

// Summary is everything the dashboard shows for one user
type Summary struct {
	Valuation
	Transactions []domain.Transaction
}

// PortfolioService assembles read-only views of a user's account.
// It never writes; all mutations go through the trade engine.
type PortfolioService struct {
	accounts   domain.AccountStore
	portfolios domain.PortfolioStore
	txlog      domain.TransactionLog
	quotes     domain.QuoteSource
	log        zerolog.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(
	accounts domain.AccountStore,
	portfolios domain.PortfolioStore,
	txlog domain.TransactionLog,
	quotes domain.QuoteSource,
	log zerolog.Logger,
) *PortfolioService {
	return &PortfolioService{
		accounts:   accounts,
		portfolios: portfolios,
		txlog:      txlog,
		quotes:     quotes,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// Balance returns the user's cash balance
func (s *PortfolioService) Balance(ctx context.Context, username string) (domain.Account, error) {
	acc, err := s.accounts.Get(ctx, username)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	if acc == nil {
		return domain.Account{}, domain.ErrUserNotFound
	}
	return *acc, nil
}

// Valuation returns the user's cash and holdings marked to the current quotes
func (s *PortfolioService) Valuation(ctx context.Context, username string) (Valuation, error) {
	acc, err := s.Balance(ctx, username)
	if err != nil {
		return Valuation{}, err
	}

	holdings, err := s.portfolios.Get(ctx, username)
	if err != nil {
		return Valuation{}, fmt.Errorf("failed to load portfolio: %w", err)
	}

	return Value(acc.Balance, holdings, s.quotes), nil
}

// Transactions returns the user's transactions, newest first. limit <= 0 returns all.
func (s *PortfolioService) Transactions(ctx context.Context, username string, limit int) ([]domain.Transaction, error) {
	txs, err := s.txlog.ListFor(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Summary returns the dashboard view
func (s *PortfolioService) Summary(ctx context.Context, username string) (Summary, error) {
	v, err := s.Valuation(ctx, username)
	if err != nil {
		return Summary{}, err
	}

	txs, err := s.Transactions(ctx, username, DashboardRecentLimit)
	if err != nil {
		return Summary{}, err
	}

	s.log.Debug().
		Str("username", username).
		Int("positions", len(v.Positions)).
		Str("net_worth", v.NetWorth.String()).
		Msg("Built portfolio summary")

	return Summary{Valuation: v, Transactions: txs}, nil
}
