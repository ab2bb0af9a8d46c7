package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"reimburse/internal/cache"
	appcli "reimburse/internal/cli"
	apphttp "reimburse/internal/http"
	applog "reimburse/internal/log"
	"reimburse/internal/middleware/ratelimit"
	"reimburse/internal/middleware/security"
	"reimburse/internal/presenter"
	"reimburse/internal/submission"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP API",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "rate-limit",
			Usage: "Write requests allowed per client per minute",
			Value: ratelimit.DefaultConfig().RequestsPerMinute,
		},
		&cli.StringSliceFlag{
			Name:  "trusted-proxy",
			Usage: "Additional CIDR whose forwarding headers are trusted",
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := appcli.SignalContext(cCtx.Context)
	defer stop()

	app, err := appcli.Init(ctx, appcli.Options{Receipts: true, Events: true})
	if err != nil {
		return err
	}
	defer app.Close()

	logger := app.Logger
	cfg := app.Config

	var opts []submission.Option
	opts = append(opts, submission.WithRecorder(app.Metrics))
	if app.Events != nil {
		opts = append(opts, submission.WithNotifier(app.Events))
		logger.InfoContext(ctx, "Submission notifications enabled", "exchange", cfg.AMQPExchange)
	}
	sessions := submission.NewSessions(app.Claims, cfg.MaxDrafts, cfg.DraftTTL,
		logger.WithComponent(applog.ComponentSubmission).Slog(), opts...)
	app.Metrics.TrackOpenForms(sessions.Len)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cCtx.Int("rate-limit")})
	resolver := security.NewClientIPResolver()
	for _, cidr := range cCtx.StringSlice("trusted-proxy") {
		if err := resolver.AddTrustedProxy(cidr); err != nil {
			return err
		}
	}

	janitor := cache.NewJanitor(sweepInterval, logger.WithComponent(applog.ComponentCache).Slog())
	janitor.Register(sessions.Cleaner())
	janitor.Register(limiter.Cleaner())

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Claims:     app.Claims,
		Presenter:  presenter.New(app.Claims, logger.WithComponent(applog.ComponentPresenter).Slog()),
		Sessions:   sessions,
		Receipts:   app.Receipts,
		Metrics:    app.Metrics,
		Gatherer:   app.Registry,
		Health:     app.Backend.Check,
		Limiter:    limiter,
		IPResolver: resolver,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "HTTP server starting", "addr", srv.Addr, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		sessions.Wait()
		return err
	})

	return g.Wait()
}
