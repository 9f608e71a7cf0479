// Package cli provides common process bootstrap shared by cmd/planner and
// cmd/planner-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneyplanner/internal/config"
	applog "moneyplanner/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given LOG_LEVEL and installs
// it as the slog default.
func SetupLogger(level string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadConfig reads .env and the environment, sets up logging and validates
// the result. Validation failures exit the process.
func LoadConfig(extra ...func(*config.Config) error) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldErrorType, applog.ErrorTypeConfiguration, "error", err)
		os.Exit(1)
	}
	for _, check := range extra {
		if err := check(cfg); err != nil {
			logger.Error("Configuration validation failed", applog.FieldErrorType, applog.ErrorTypeConfiguration, "error", err)
			os.Exit(1)
		}
	}
	return cfg, logger
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func ShutdownContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
