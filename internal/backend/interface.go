package backend

import (
	"context"

	"cardledger/internal/amqp"
	"cardledger/internal/services"
	"cardledger/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the card store and the resources behind it.
type BackendResult struct {
	Store *services.CardStore
	// Events is nil when ledger events are disabled.
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend builds a card store over the configured repository.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateActivityWriter builds the export target used by the worker.
	CreateActivityWriter(ctx context.Context, config Config) (sheets.ActivityWriter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Ledger events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Activity export, in memory when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
