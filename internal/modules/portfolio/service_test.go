package portfolio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/store/memory"
	testhelpers "github.com/aristath/papertrader/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*PortfolioService, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewPortfolioService(store.Accounts(), store.Portfolios(), store.Transactions(), testhelpers.NewStaticQuotes(), zerolog.Nop())
	return svc, store
}

func appendTrades(t *testing.T, log domain.TransactionLog, username string, n int) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, log.Append(context.Background(), domain.Transaction{
			ID:        fmt.Sprintf("tx-%02d", i),
			Username:  username,
			Symbol:    "AAPL",
			Side:      domain.TradeSideBuy,
			Quantity:  1,
			Price:     decimal.NewFromInt(100),
			Total:     decimal.NewFromInt(100),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestSummary(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	testhelpers.SeedAccount(t, store.Accounts(), "alice", "8175.50")
	require.NoError(t, store.Portfolios().Replace(ctx, "alice", domain.Portfolio{
		"AAPL": {Symbol: "AAPL", Shares: 10, AvgCost: decimal.RequireFromString("182.45")},
	}))
	appendTrades(t, store.Transactions(), "alice", DashboardRecentLimit+3)

	summary, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, "8175.5", summary.Balance.String())
	assert.Equal(t, "1824.5", summary.PortfolioValue.String())
	assert.Equal(t, "10000", summary.NetWorth.String())
	require.Len(t, summary.Transactions, DashboardRecentLimit)
	assert.Equal(t, "tx-12", summary.Transactions[0].ID, "newest first")
}

func TestTransactions_AllNewestFirst(t *testing.T) {
	svc, store := newTestService(t)
	appendTrades(t, store.Transactions(), "alice", 3)

	txs, err := svc.Transactions(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []string{"tx-02", "tx-01", "tx-00"}, []string{txs[0].ID, txs[1].ID, txs[2].ID})
}

func TestSummary_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Summary(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestValuation_StoreFailure(t *testing.T) {
	accounts := testhelpers.NewMockAccountStore()
	testhelpers.SeedAccount(t, accounts, "alice", "1")
	folios := testhelpers.NewMockPortfolioStore()
	folios.SetError("Get", testhelpers.ErrInjected)

	svc := NewPortfolioService(accounts, folios, testhelpers.NewMockTransactionLog(), testhelpers.NewStaticQuotes(), zerolog.Nop())
	_, err := svc.Valuation(context.Background(), "alice")
	assert.ErrorIs(t, err, testhelpers.ErrInjected)
}
