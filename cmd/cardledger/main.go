package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cardledger/internal/backend"
	"cardledger/internal/cli"
	apphttp "cardledger/internal/http"
	applog "cardledger/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, res.Store, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SummaryCacheSize:   cfg.SummaryCacheSize,
		SummaryCacheTTL:    cfg.SummaryCacheTTL,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting cardledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events_enabled", res.Events != nil)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err, "port", cfg.Port)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	m := srv.TraceMetrics()
	logger.Info("Server stopped gracefully",
		"requests", m.TotalRequests,
		"errors", m.TotalErrors,
		"avg_response_time", m.AverageResponseTime())
}
