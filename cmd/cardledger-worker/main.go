package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardledger/internal/backend"
	"cardledger/internal/cli"
	"cardledger/internal/config"
	applog "cardledger/internal/log"
	"cardledger/internal/services"
	"cardledger/internal/worker"

	"golang.org/x/sync/errgroup"
)

// workerApp holds the resources the worker runs with.
type workerApp struct {
	backend  *backend.BackendResult
	exporter *worker.ExportWorker
}

// newWorkerApp builds the store, the AMQP consumer and the export target.
// On error everything already opened is closed before returning.
func newWorkerApp(ctx context.Context, cfg *config.Config, factory backend.Factory) (_ *workerApp, err error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid backend configuration: %w", err)
	}

	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize backend: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, res.Cleanup())
		}
	}()

	if res.Events == nil {
		return nil, errors.New("connect to AMQP broker: no AMQP client")
	}

	writer, err := factory.CreateActivityWriter(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize activity export: %w", err)
	}

	return &workerApp{
		backend:  res,
		exporter: worker.NewExportWorker(res.Store, writer, cfg.ExportConcurrency),
	}, nil
}

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	logger.Info("Starting cardledger-worker")

	if !cfg.EventsEnabled() {
		cli.Fatal(logger, "Worker needs ledger events", errors.New("AMQP_URL is not set"))
	}
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		// The memory backend lives in the server process; the worker would see no cards.
		logger.Warn("Worker is not using the sqlite backend, balances will be empty", "backend", cfg.DataBackend)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := newWorkerApp(ctx, cfg, backend.NewFactory(logger.Logger))
	if err != nil {
		cli.Fatal(logger, "Failed to start worker", err)
	}
	defer func() {
		if err := app.backend.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	events := app.backend.Events
	snapshots := services.NewSnapshotProcessor(app.exporter, services.SnapshotProcessorConfig{
		Interval:   cfg.SnapshotInterval,
		RunOnStart: true,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := snapshots.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		return snapshots.Stop(stopCtx)
	})
	g.Go(func() error {
		for {
			err := events.ConsumeEvents(gctx, app.exporter.HandleEvent)
			if gctx.Err() != nil {
				return nil
			}
			logger.Warn("Event consumption stopped, reconnecting", "error", err)
			if err := events.Reconnect(gctx); err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		return
	}
	logger.Info("Worker shutdown complete", "snapshots", snapshots.Runs())
}
