// Package app wires the shared dependencies every command starts from:
// configuration, logging, error tracking, API clients and the on-disk stores.
package app

import (
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/svanherk/bunqynab/internal/cache"
	"github.com/svanherk/bunqynab/internal/config"
	"github.com/svanherk/bunqynab/internal/logging"
	"github.com/svanherk/bunqynab/internal/mlops"
	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

// App holds the wired dependencies of a running command.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	Bunq *bunq.Client
	Ynab *ynab.Client

	Cache    *cache.Cache
	Tracker  *mlops.Tracker
	Registry *mlops.Registry
	Flags    *mlops.Flags
	Ports    *mlops.Ports
}

// Bootstrap loads the configuration and constructs the shared dependencies.
func Bootstrap(command string) (*App, error) {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New().With().Str("command", command).Logger()

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN})
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialize sentry")
		}
	}

	retryConfig := &bunq.RetryConfig{
		MaxRetries: 3,
		RetryWait:  time.Second,
		MaxWait:    30 * time.Second,
	}

	return &App{
		Config: cfg,
		Logger: logger,
		Bunq: bunq.NewClient(&bunq.ClientOptions{
			APIKey:      cfg.BunqAPIKey,
			RetryConfig: retryConfig,
			Logger:      logger,
		}),
		Ynab: ynab.NewClient(&ynab.ClientOptions{
			Token: cfg.YnabToken,
			RetryConfig: &ynab.RetryConfig{
				MaxRetries: retryConfig.MaxRetries,
				RetryWait:  retryConfig.RetryWait,
				MaxWait:    retryConfig.MaxWait,
			},
			Logger: logger,
		}),
		Cache:    cache.New(filepath.Join(cfg.DataDir, "cache"), cache.DefaultTTL),
		Tracker:  mlops.NewTracker(cfg.DataDir),
		Registry: mlops.NewRegistry(cfg.DataDir),
		Flags:    mlops.NewFlags(cfg.DataDir),
		Ports:    mlops.NewPorts(cfg.DataDir),
	}, nil
}

// Close flushes pending error reports.
func (a *App) Close() {
	if a.Config.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}
}
