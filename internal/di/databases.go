package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/clients/awsconfig"
	"github.com/aristath/papertrader/internal/clients/dynamo"
	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/database"
	"github.com/aristath/papertrader/internal/modules/accounts"
	"github.com/aristath/papertrader/internal/modules/portfolio"
	"github.com/aristath/papertrader/internal/modules/trading"
	"github.com/aristath/papertrader/internal/store/memory"
)

// InitializeStores opens the configured store backend and fills the store ports
func InitializeStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{StoreBackend: cfg.StoreBackend}

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := database.New(database.Config{
			Path:    cfg.DatabasePath(),
			Profile: database.ProfileLedger, // Balances and trades: fsync every write
			Name:    "papertrader",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}

		container.DB = db
		container.AccountStore = accounts.NewAccountRepository(db.Conn(), log)
		container.PortfolioStore = portfolio.NewPortfolioRepository(db.Conn(), log)
		container.TransactionLog = trading.NewTransactionRepository(db.Conn(), log)

	case config.BackendDynamoDB:
		awsCfg, err := container.awsConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}

		client := dynamo.NewFromConfig(awsCfg, dynamo.Tables{
			Users:        cfg.AWS.UsersTable,
			Portfolios:   cfg.AWS.PortfoliosTable,
			Transactions: cfg.AWS.TransactionsTable,
		}, log)

		container.Dynamo = client
		container.AccountStore = client.Accounts()
		container.PortfolioStore = client.Portfolios()
		container.TransactionLog = client.Transactions()

	case config.BackendMemory:
		store := memory.New()
		container.AccountStore = store.Accounts()
		container.PortfolioStore = store.Portfolios()
		container.TransactionLog = store.Transactions()
		log.Warn().Msg("Using in-memory store, all data is lost on restart")

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	log.Info().Str("backend", cfg.StoreBackend).Msg("Store initialized")

	return container, nil
}

// awsConfig loads the AWS config on first use and caches it on the container
func (c *Container) awsConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if c.awsCfg == nil {
		loaded, err := awsconfig.Load(ctx, cfg.AWS)
		if err != nil {
			return aws.Config{}, err
		}
		c.awsCfg = &loaded
	}
	return *c.awsCfg, nil
}
