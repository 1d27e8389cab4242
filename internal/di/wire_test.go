package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/notifications"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:         t.TempDir(),
		StoreBackend:    backend,
		Port:            8080,
		SessionSecret:   "0123456789abcdef0123",
		SessionTTL:      time.Hour,
		StartingBalance: decimal.NewFromInt(10000),
		TradeTimeout:    time.Second,
		NotifyTimeout:   time.Second,
		AWS: config.AWSConfig{
			Region:            "us-east-1",
			UsersTable:        "StockTradingUsers",
			PortfoliosTable:   "StockTradingPortfolios",
			TransactionsTable: "StockTradingTransactions",
		},
		Backup: config.BackupConfig{Prefix: "papertrader/", Schedule: "@daily", RetentionDays: 30},
	}
}

func wire(t *testing.T, cfg *config.Config) (*Container, *JobInstances) {
	t.Helper()
	container, jobs, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })
	return container, jobs
}

func TestWire_Memory(t *testing.T) {
	container, jobs := wire(t, testConfig(t, config.BackendMemory))

	assert.Nil(t, container.DB)
	assert.Nil(t, container.Dynamo)
	assert.NotNil(t, container.AccountStore)
	assert.NotNil(t, container.PortfolioStore)
	assert.NotNil(t, container.TransactionLog)
	assert.NotNil(t, container.Engine)
	assert.NotNil(t, container.Renderer)
	assert.NotNil(t, container.Sessions)
	assert.Nil(t, container.BackupService)
	assert.IsType(t, &notifications.LogSink{}, container.Sink)

	assert.Nil(t, jobs.CheckCoreDatabases)
	assert.Nil(t, jobs.Backup)
	assert.Empty(t, container.Scheduler.Jobs())

	assert.NoError(t, container.PingStore(context.Background()))
	assert.Len(t, container.Quotes.All(), 8)
}

func TestWire_SQLite(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	container, jobs := wire(t, cfg)

	require.NotNil(t, container.DB)
	assert.FileExists(t, cfg.DatabasePath())
	assert.NoError(t, container.PingStore(context.Background()))

	assert.NotNil(t, jobs.CheckCoreDatabases)
	assert.NotNil(t, jobs.CheckWALCheckpoints)
	assert.NotNil(t, jobs.DailyMaintenance)
	assert.Nil(t, jobs.Backup)
	assert.Equal(t, []string{"check_core_databases", "check_wal_checkpoints", "daily_maintenance"}, container.Scheduler.Jobs())
}

func TestWire_SQLiteWithBackups(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	cfg.Backup.Bucket = "snapshots"
	cfg.AWS.AccessKeyID = "test"
	cfg.AWS.SecretAccessKey = "test"

	container, jobs := wire(t, cfg)

	assert.NotNil(t, container.BackupService)
	assert.NotNil(t, jobs.Backup)
	assert.Contains(t, container.Scheduler.Jobs(), "s3_backup")
}

func TestWire_BackupsIgnoredOutsideSQLite(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Backup.Bucket = "snapshots"

	container, jobs := wire(t, cfg)
	assert.Nil(t, container.BackupService)
	assert.Nil(t, jobs.Backup)
}

func TestWire_QuotesFile(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.QuotesFile = filepath.Join(t.TempDir(), "quotes.yaml")
	require.NoError(t, os.WriteFile(cfg.QuotesFile, []byte(`quotes:
  - symbol: ACME
    name: Acme Corp
    price: "12.50"
    change: "0.25"
`), 0o644))

	container, _ := wire(t, cfg)
	q, ok := container.Quotes.Quote("ACME")
	require.True(t, ok)
	assert.Equal(t, "12.5", q.Price.String())

	cfg.QuotesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_UnknownBackend(t *testing.T) {
	_, _, err := Wire(context.Background(), testConfig(t, "postgres"), zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_TradeFlow(t *testing.T) {
	container, _ := wire(t, testConfig(t, config.BackendMemory))
	ctx := context.Background()

	var executed []events.Event
	unsubscribe := container.EventBus.Subscribe(events.TradeExecuted, func(e events.Event) {
		executed = append(executed, e)
	})
	defer unsubscribe()

	_, err := container.AccountService.Signup(ctx, "alice", "secret123")
	require.NoError(t, err)

	result, err := container.Engine.Buy(ctx, "alice", "AAPL", 10, decimal.RequireFromString("182.45"))
	require.NoError(t, err)
	assert.Equal(t, "8175.5", result.Balance.String())

	summary, err := container.PortfolioService.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "8175.5", summary.Balance.String())
	require.Len(t, summary.Transactions, 1)
	assert.Len(t, executed, 1)
}
