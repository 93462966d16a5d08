package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStore is the single entry point for creating, reading and deleting
// cards and their transactions.
type CardStore struct {
	repo      ports.Repository
	publisher ports.EventPublisher
	clock     func() time.Time
	newID     func() uuid.UUID
}

type Option func(*CardStore)

// WithClock replaces time.Now for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *CardStore) { s.clock = clock }
}

// WithIDGenerator replaces uuid.New for new records.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(s *CardStore) { s.newID = gen }
}

// NewCardStore builds a store over repo. publisher may be nil, in which
// case no ledger events are emitted.
func NewCardStore(repo ports.Repository, publisher ports.EventPublisher, opts ...Option) *CardStore {
	s := &CardStore{
		repo:      repo,
		publisher: publisher,
		clock:     time.Now,
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CardStore) CreateCard(ctx context.Context, f core.CardFields) (core.Card, error) {
	c := core.Card{ID: s.newID(), Timestamp: s.clock().UTC()}
	c.Apply(f)
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}

	if err := s.repo.InsertCard(ctx, c); err != nil {
		return core.Card{}, persistenceError("insert card", err)
	}

	slog.InfoContext(ctx, "Card created", "card_id", c.ID, "type", c.Type, "limit", c.Limit)
	s.publish(ctx, core.LedgerEvent{Type: core.EventCardCreated, CardID: c.ID, CardName: c.Name, Timestamp: c.Timestamp})
	return c, nil
}

func (s *CardStore) GetCard(ctx context.Context, id uuid.UUID) (core.Card, error) {
	c, err := s.repo.GetCard(ctx, id)
	if err != nil {
		return core.Card{}, persistenceError("get card", err)
	}
	return c, nil
}

// UpdateCard applies the non-nil fields of p. The id and creation
// timestamp are kept.
func (s *CardStore) UpdateCard(ctx context.Context, id uuid.UUID, p core.CardPatch) (core.Card, error) {
	c, err := s.repo.GetCard(ctx, id)
	if err != nil {
		return core.Card{}, persistenceError("get card", err)
	}
	if p.IsEmpty() {
		return c, nil
	}

	c.ApplyPatch(p)
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.repo.UpdateCard(ctx, c); err != nil {
		return core.Card{}, persistenceError("update card", err)
	}

	slog.InfoContext(ctx, "Card updated", "card_id", c.ID)
	s.publish(ctx, core.LedgerEvent{Type: core.EventCardUpdated, CardID: c.ID, CardName: c.Name, Timestamp: s.clock().UTC()})
	return c, nil
}

// DeleteCard removes the card and every transaction that references it as
// one unit. On failure nothing is removed.
func (s *CardStore) DeleteCard(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetCard(ctx, id)
	if err != nil {
		return persistenceError("get card", err)
	}

	var removed int
	err = s.repo.Atomic(ctx, func(r ports.Repository) error {
		n, err := r.DeleteTransactionsByCard(ctx, id)
		if err != nil {
			return err
		}
		removed = n
		return r.DeleteCard(ctx, id)
	})
	if err != nil {
		return persistenceError("delete card", err)
	}

	slog.InfoContext(ctx, "Card deleted", "card_id", id, "transactions_removed", removed)
	s.publish(ctx, core.LedgerEvent{Type: core.EventCardDeleted, CardID: id, CardName: c.Name, Timestamp: s.clock().UTC()})
	return nil
}

func (s *CardStore) ListCards(ctx context.Context, by CardSort) ([]core.Card, error) {
	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return nil, persistenceError("list cards", err)
	}
	if cards == nil {
		cards = []core.Card{}
	}
	sortCards(cards, by)
	return cards, nil
}

func (s *CardStore) CreateTransaction(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal) (core.CardTransaction, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.CardTransaction{}, err
	}
	c, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return core.CardTransaction{}, persistenceError("get card", err)
	}

	tx := core.CardTransaction{
		ID:        s.newID(),
		CardID:    cardID,
		Amount:    amount,
		Timestamp: s.clock().UTC(),
	}
	if err := s.repo.InsertTransaction(ctx, tx); err != nil {
		return core.CardTransaction{}, persistenceError("insert transaction", err)
	}

	slog.InfoContext(ctx, "Transaction created", "card_id", cardID, "transaction_id", tx.ID, "amount", tx.Amount.String())
	s.publish(ctx, core.LedgerEvent{
		Type:          core.EventTransactionCreated,
		CardID:        cardID,
		CardName:      c.Name,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Timestamp:     tx.Timestamp,
	})
	return tx, nil
}

func (s *CardStore) GetTransaction(ctx context.Context, id uuid.UUID) (core.CardTransaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return core.CardTransaction{}, persistenceError("get transaction", err)
	}
	return tx, nil
}

func (s *CardStore) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return persistenceError("get transaction", err)
	}
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return persistenceError("delete transaction", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "card_id", tx.CardID, "transaction_id", id)
	ev := core.LedgerEvent{
		Type:          core.EventTransactionDeleted,
		CardID:        tx.CardID,
		TransactionID: id,
		Amount:        tx.Amount,
		Timestamp:     s.clock().UTC(),
	}
	if c, err := s.repo.GetCard(ctx, tx.CardID); err == nil {
		ev.CardName = c.Name
	}
	s.publish(ctx, ev)
	return nil
}

// ListTransactions returns the transactions of cardID. An unknown card has
// no transactions, so the result is empty rather than an error.
func (s *CardStore) ListTransactions(ctx context.Context, cardID uuid.UUID, by TransactionSort) ([]core.CardTransaction, error) {
	txs, err := s.repo.ListTransactionsByCard(ctx, cardID)
	if err != nil {
		return nil, persistenceError("list transactions", err)
	}
	if txs == nil {
		txs = []core.CardTransaction{}
	}
	sortTransactions(txs, by)
	return txs, nil
}

// CardSummary loads a card with its transactions and derives its balance.
func (s *CardStore) CardSummary(ctx context.Context, cardID uuid.UUID) (core.Summary, error) {
	c, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return core.Summary{}, persistenceError("get card", err)
	}
	txs, err := s.repo.ListTransactionsByCard(ctx, cardID)
	if err != nil {
		return core.Summary{}, persistenceError("list transactions", err)
	}
	return core.Summarize(c, txs), nil
}

// Ping checks that the repository is reachable.
func (s *CardStore) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return persistenceError("ping", err)
	}
	return nil
}

func (s *CardStore) Close() error {
	return s.repo.Close()
}

func (s *CardStore) publish(ctx context.Context, e core.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", e.Type, "card_id", e.CardID, "error", err)
		// The local write already succeeded.
	}
}

// persistenceError passes taxonomy errors through and wraps everything else.
func persistenceError(op string, err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrValidation) || errors.Is(err, core.ErrPersistence) {
		return err
	}
	return &core.PersistenceError{Op: op, Err: err}
}
