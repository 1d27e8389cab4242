package quotes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := NewDefaultCatalog()

	assert.Equal(t, []string{"AAPL", "AMZN", "GOOGL", "META", "MSFT", "NFLX", "NVIDIA", "TSLA"}, c.Symbols())

	q, ok := c.Quote("aapl")
	require.True(t, ok)
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("182.45")))
	assert.True(t, q.Change.Equal(decimal.RequireFromString("2.35")))

	q, ok = c.Quote("NFLX")
	require.True(t, ok)
	assert.True(t, q.Change.Equal(decimal.RequireFromString("-2.10")))

	_, ok = c.Quote("UNKNOWN")
	assert.False(t, ok)
}

func TestCatalog_AllReturnsCopy(t *testing.T) {
	c := NewDefaultCatalog()
	all := c.All()
	all[0].Name = "changed"
	assert.Equal(t, "Apple Inc.", c.All()[0].Name)
}

func TestNewCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		quotes []domain.Quote
	}{
		{name: "empty symbol", quotes: []domain.Quote{{Symbol: " ", Price: decimal.NewFromInt(1)}}},
		{name: "zero price", quotes: []domain.Quote{{Symbol: "AAPL", Price: decimal.Zero}}},
		{name: "duplicate", quotes: []domain.Quote{
			{Symbol: "AAPL", Price: decimal.NewFromInt(1)},
			{Symbol: "aapl", Price: decimal.NewFromInt(2)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.quotes)
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.yaml")
	content := `quotes:
  - symbol: ibm
    name: IBM Corp.
    price: 170.10
    change: -0.40
  - symbol: ORCL
    name: Oracle Corp.
    price: "120.5"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"IBM", "ORCL"}, c.Symbols())

	q, ok := c.Quote("IBM")
	require.True(t, ok)
	assert.Equal(t, "170.1", q.Price.String())
	assert.Equal(t, "-0.4", q.Change.String())

	q, _ = c.Quote("ORCL")
	assert.True(t, q.Change.IsZero())
}

func TestLoadCatalog_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("quotes: []\n"), 0o600))
	_, err = LoadCatalog(empty)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("quotes:\n  - symbol: X\n    price: abc\n"), 0o600))
	_, err = LoadCatalog(bad)
	assert.Error(t, err)
}
