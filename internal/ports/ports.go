package ports

import (
	"context"

	"cardledger/internal/core"

	"github.com/google/uuid"
)

// Ports for the persistence collaborator and outbound adapters.
type (
	CardRepository interface {
		InsertCard(ctx context.Context, c core.Card) error
		// UpdateCard overwrites every field but ID and Timestamp.
		UpdateCard(ctx context.Context, c core.Card) error
		GetCard(ctx context.Context, id uuid.UUID) (core.Card, error)
		DeleteCard(ctx context.Context, id uuid.UUID) error
		ListCards(ctx context.Context) ([]core.Card, error)
	}

	TransactionRepository interface {
		InsertTransaction(ctx context.Context, tx core.CardTransaction) error
		GetTransaction(ctx context.Context, id uuid.UUID) (core.CardTransaction, error)
		DeleteTransaction(ctx context.Context, id uuid.UUID) error
		// DeleteTransactionsByCard returns the number of removed rows.
		DeleteTransactionsByCard(ctx context.Context, cardID uuid.UUID) (int, error)
		ListTransactionsByCard(ctx context.Context, cardID uuid.UUID) ([]core.CardTransaction, error)
	}

	// Repository is the persistence boundary of the card store. Lookups of
	// missing rows return an error wrapping core.ErrNotFound.
	Repository interface {
		CardRepository
		TransactionRepository

		// Atomic runs fn against a repository view whose writes are applied
		// all together or not at all.
		Atomic(ctx context.Context, fn func(Repository) error) error
		Ping(ctx context.Context) error
		Close() error
	}

	// EventPublisher announces committed ledger mutations.
	EventPublisher interface {
		Publish(ctx context.Context, e core.LedgerEvent) error
	}
)
