package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cardledger/internal/amqp"
	"cardledger/internal/ports"
	"cardledger/internal/services"
	"cardledger/internal/sheets"
	gsheet "cardledger/internal/sheets/google"
	sheetmem "cardledger/internal/sheets/memory"
	"cardledger/internal/storage"
	"cardledger/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var repo ports.Repository
	switch config.Type {
	case SQLiteBackend:
		sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		repo = sqliteRepo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		repo = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// Ledger events are optional; a broker outage must not stop the store.
	var events *amqp.Client
	var publisher ports.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			events = client
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	store := services.NewCardStore(repo, publisher)
	return &BackendResult{
		Store:  store,
		Events: events,
		Cleanup: func() error {
			var errs []error
			if events != nil {
				errs = append(errs, events.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}, nil
}

// CreateActivityWriter returns the Google Sheets client when a spreadsheet is
// configured and an in-memory log otherwise.
func (f *DefaultFactory) CreateActivityWriter(ctx context.Context, config Config) (sheets.ActivityWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.InfoContext(ctx, "No spreadsheet configured, exporting activity to memory")
		return sheetmem.New(), nil
	}

	cli, err := gsheet.NewWithSpreadsheet(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets export", "sheet", config.GoogleSheetName)
	return cli, nil
}
