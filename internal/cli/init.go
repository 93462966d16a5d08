// Package cli provides common CLI initialization utilities shared by
// cmd/cardledger and cmd/cardledger-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cardledger/internal/config"
	applog "cardledger/internal/log"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level and makes
// it the default logger. An unparsable level falls back to info.
func SetupLogger(level, component string) *applog.Logger {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Fatal logs err and exits.
func Fatal(logger *applog.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{"error", err}, args...)...)
	os.Exit(1)
}
