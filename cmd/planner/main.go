package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneyplanner/internal/backend"
	"moneyplanner/internal/cli"
	apphttp "moneyplanner/internal/http"
	applog "moneyplanner/internal/log"
	"moneyplanner/internal/metrics"
	"moneyplanner/internal/services"
	"moneyplanner/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.LoadConfig()
	logger.Info("Starting planner", applog.FieldOperation, applog.OpStartup, "backend", cfg.DataBackend)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	prom := metrics.NewPrometheus("planner")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", "error", err)
		}
	}()

	opts := []services.Option{
		services.WithMetrics(prom),
		services.WithCurrency(cfg.Currency()),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	planner := services.NewPlannerService(res.Store, opts...)
	if err := planner.Load(ctx); err != nil {
		logger.Error("Failed to load planner document", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, planner, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RecentLimit:        cfg.RecentLimit,
		Metrics:            prom,
		MetricsHandler:     prom.Handler(),
		Ready:              res.Ping,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The autosaver flushes one last time once gctx is cancelled.
	g.Go(func() error {
		return worker.NewAutosaver(planner, cfg.AutosaveInterval).Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Planner stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Planner stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
