package portfolio

import (
	"context"
	"testing"

	"github.com/aristath/papertrader/internal/domain"
	testhelpers "github.com/aristath/papertrader/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *PortfolioRepository {
	t.Helper()
	db, cleanup := testhelpers.NewTestDB(t, "papertrader")
	t.Cleanup(cleanup)
	return NewPortfolioRepository(db.Conn(), zerolog.Nop())
}

func TestPortfolioRepository_GetEmpty(t *testing.T) {
	repo := newTestRepository(t)

	p, err := repo.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Empty(t, p)
}

func TestPortfolioRepository_Replace(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := domain.Portfolio{
		"AAPL": {Symbol: "AAPL", Shares: 15, AvgCost: decimal.RequireFromString("184.966667")},
		"MSFT": {Symbol: "MSFT", Shares: 2, AvgCost: decimal.RequireFromString("380.61")},
	}
	require.NoError(t, repo.Replace(ctx, "alice", first))

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(15), got["AAPL"].Shares)
	assert.Equal(t, "184.966667", got["AAPL"].AvgCost.String())

	// Holdings missing from the new portfolio are removed
	second := domain.Portfolio{
		"AAPL": {Symbol: "AAPL", Shares: 7, AvgCost: decimal.RequireFromString("184.966667")},
	}
	require.NoError(t, repo.Replace(ctx, "alice", second))

	got, err = repo.Get(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got["AAPL"].Shares)

	// Other users are untouched
	require.NoError(t, repo.Replace(ctx, "bob", first))
	require.NoError(t, repo.Replace(ctx, "alice", domain.Portfolio{}))
	got, err = repo.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPortfolioRepository_RejectsInvalid(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, "alice", domain.Portfolio{
		"AAPL": {Symbol: "AAPL", Shares: 1, AvgCost: decimal.NewFromInt(100)},
	}))

	err := repo.Replace(ctx, "alice", domain.Portfolio{
		"AAPL": {Symbol: "AAPL", Shares: 0, AvgCost: decimal.NewFromInt(100)},
	})
	require.Error(t, err)

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got["AAPL"].Shares)
}
