package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/clients/sns"
	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/modules/accounts"
	"github.com/aristath/papertrader/internal/modules/portfolio"
	"github.com/aristath/papertrader/internal/modules/quotes"
	"github.com/aristath/papertrader/internal/modules/trading"
	"github.com/aristath/papertrader/internal/notifications"
	"github.com/aristath/papertrader/internal/reliability"
	"github.com/aristath/papertrader/internal/session"
	"github.com/aristath/papertrader/internal/web"
	"github.com/aristath/papertrader/pkg/embedded"
)

// InitializeServices builds everything that sits on top of the store ports
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Quote catalog
	if cfg.QuotesFile != "" {
		catalog, err := quotes.LoadCatalog(cfg.QuotesFile)
		if err != nil {
			return err
		}
		container.Quotes = catalog
		log.Info().Str("file", cfg.QuotesFile).Int("symbols", len(catalog.Symbols())).Msg("Quote catalog loaded")
	} else {
		container.Quotes = quotes.NewDefaultCatalog()
	}

	// Events
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Notifications
	if cfg.AWS.SNSTopicARN != "" {
		awsCfg, err := container.awsConfig(ctx, cfg)
		if err != nil {
			return err
		}
		container.Sink = sns.NewSinkFromConfig(awsCfg, cfg.AWS.SNSTopicARN, log)
	} else {
		container.Sink = notifications.NewLogSink(log)
	}
	container.Dispatcher = notifications.NewDispatcher(container.Sink, cfg.NotifyTimeout, notifications.DefaultMaxInFlight, log)
	container.Hub = notifications.NewHub(container.EventBus, log)

	// Core services
	container.Engine = trading.NewEngine(
		container.AccountStore,
		container.PortfolioStore,
		container.TransactionLog,
		container.Quotes,
		container.Dispatcher,
		container.EventManager,
		log,
	)
	container.AccountService = accounts.NewService(
		container.AccountStore,
		container.PortfolioStore,
		container.Engine.Locks(),
		container.EventManager,
		cfg.StartingBalance,
		log,
	)
	container.PortfolioService = portfolio.NewPortfolioService(
		container.AccountStore,
		container.PortfolioStore,
		container.TransactionLog,
		container.Quotes,
		log,
	)

	// Web
	container.Sessions = session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)
	renderer, err := web.NewRenderer(embedded.Templates())
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	container.Renderer = renderer

	// Backups
	if cfg.Backup.Enabled() {
		if container.DB == nil {
			log.Warn().Str("backend", cfg.StoreBackend).Msg("S3 backups only apply to the sqlite backend, skipping")
		} else {
			awsCfg, err := container.awsConfig(ctx, cfg)
			if err != nil {
				return err
			}
			container.BackupService = reliability.NewBackupServiceFromConfig(
				awsCfg,
				container.DB,
				cfg.Backup.Bucket,
				cfg.Backup.Prefix,
				cfg.DataDir,
				container.EventManager,
				log,
			)
		}
	}

	log.Info().Msg("Services initialized")

	return nil
}
