// Package di wires the application's stores, services and background jobs.
package di

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/aristath/papertrader/internal/clients/dynamo"
	"github.com/aristath/papertrader/internal/database"
	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/modules/accounts"
	"github.com/aristath/papertrader/internal/modules/portfolio"
	"github.com/aristath/papertrader/internal/modules/quotes"
	"github.com/aristath/papertrader/internal/modules/trading"
	"github.com/aristath/papertrader/internal/notifications"
	"github.com/aristath/papertrader/internal/reliability"
	"github.com/aristath/papertrader/internal/scheduler"
	"github.com/aristath/papertrader/internal/session"
	"github.com/aristath/papertrader/internal/web"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server.
type Container struct {
	// Store backend; exactly one of DB and Dynamo is set for the sqlite and
	// dynamodb backends, neither for memory
	StoreBackend string
	DB           *database.DB
	Dynamo       *dynamo.Client

	// Collaborator ports
	AccountStore   domain.AccountStore
	PortfolioStore domain.PortfolioStore
	TransactionLog domain.TransactionLog
	Quotes         *quotes.Catalog
	Sink           domain.NotificationSink

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	Dispatcher       *notifications.Dispatcher
	Hub              *notifications.Hub
	Engine           *trading.Engine
	AccountService   *accounts.Service
	PortfolioService *portfolio.PortfolioService
	BackupService    *reliability.BackupService // nil when backups are not configured

	// Web
	Sessions *session.Manager
	Renderer *web.Renderer

	Scheduler *scheduler.Scheduler

	awsCfg *aws.Config
}

// JobInstances holds the scheduled jobs for manual triggering
type JobInstances struct {
	CheckCoreDatabases  scheduler.Job
	CheckWALCheckpoints scheduler.Job
	DailyMaintenance    scheduler.Job
	Backup              scheduler.Job
}

// PingStore checks that the configured store is reachable
func (c *Container) PingStore(ctx context.Context) error {
	switch {
	case c.DB != nil:
		return c.DB.QuickCheck(ctx)
	case c.Dynamo != nil:
		return c.Dynamo.Ping(ctx)
	}
	return nil
}

// Close stops background work and releases the store. Queued notifications
// are drained until ctx expires.
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.Hub != nil {
		c.Hub.Close()
	}
	if c.Dispatcher != nil {
		if err := c.Dispatcher.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
