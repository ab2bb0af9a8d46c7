// Package cli provides the initialization shared by the reimburse commands:
// configuration, logging, the storage backend and optional integrations.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"reimburse/internal/backend"
	"reimburse/internal/claims"
	"reimburse/internal/config"
	"reimburse/internal/events"
	applog "reimburse/internal/log"
	"reimburse/internal/metrics"
	"reimburse/internal/receipts"
)

// App bundles what every command needs. Fields for integrations a command
// did not ask for are nil.
type App struct {
	Config   *config.Config
	Logger   *applog.Logger
	Backend  *backend.BackendResult
	Claims   *claims.Store
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Events   *events.Client
	Receipts receipts.Store
}

// SetupLogger builds the process logger from cfg and makes it the slog
// default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logger := applog.New(cfg.LoggerConfig())
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig reads .env and the environment and validates the
// result.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Options selects the integrations Init wires.
type Options struct {
	Receipts bool
	Events   bool
}

// Init loads the configuration and opens the storage backend and the
// claim store. Close releases everything it opened.
func Init(ctx context.Context, opts Options) (*App, error) {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := SetupLogger(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	app := &App{Config: cfg, Logger: logger, Metrics: m, Registry: reg}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	storageLogger := logger.WithComponent(applog.ComponentStorage)
	res, err := backend.NewFactory(storageLogger.Slog()).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	app.Backend = res
	storageLogger.InfoContext(ctx, "Storage backend ready", applog.FieldBackend, bcfg.Type.String())

	app.Claims = claims.New(res.Store,
		claims.WithKey(cfg.ClaimsStorageKey),
		claims.WithLogger(logger.WithComponent(applog.ComponentClaims).Slog()),
		claims.WithObserver(m),
	)

	if opts.Receipts {
		if app.Receipts, err = openReceipts(ctx, cfg); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	if opts.Events && cfg.AMQPEnabled() {
		app.Events, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(applog.ComponentEvents).Slog())
		if err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	return app, nil
}

func openReceipts(ctx context.Context, cfg *config.Config) (receipts.Store, error) {
	switch cfg.ReceiptsBackend {
	case "s3":
		return receipts.NewS3(ctx, cfg.S3Bucket, cfg.AWSRegion)
	default:
		return receipts.NewLocal(cfg.ReceiptsDir)
	}
}

// Close releases the AMQP connection and the storage backend.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.Backend != nil {
		errs = append(errs, a.Backend.Close())
	}
	return errors.Join(errs...)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
