package memory

import (
	"context"
	"fmt"
	"sync"

	"cardledger/internal/core"
	"cardledger/internal/ports"

	"github.com/google/uuid"
)

// Store keeps cards and transactions in process memory.
type Store struct {
	mu    sync.Mutex
	cards map[uuid.UUID]core.Card
	txs   map[uuid.UUID]core.CardTransaction
}

var _ ports.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		cards: make(map[uuid.UUID]core.Card),
		txs:   make(map[uuid.UUID]core.CardTransaction),
	}
}

// view runs repository operations with the store lock already held.
type view struct{ s *Store }

func (s *Store) InsertCard(ctx context.Context, c core.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.InsertCard(ctx, c)
}

func (s *Store) UpdateCard(ctx context.Context, c core.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.UpdateCard(ctx, c)
}

func (s *Store) GetCard(ctx context.Context, id uuid.UUID) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.GetCard(ctx, id)
}

func (s *Store) DeleteCard(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.DeleteCard(ctx, id)
}

func (s *Store) ListCards(ctx context.Context) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.ListCards(ctx)
}

func (s *Store) InsertTransaction(ctx context.Context, tx core.CardTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.InsertTransaction(ctx, tx)
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (core.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.GetTransaction(ctx, id)
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.DeleteTransaction(ctx, id)
}

func (s *Store) DeleteTransactionsByCard(ctx context.Context, cardID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.DeleteTransactionsByCard(ctx, cardID)
}

func (s *Store) ListTransactionsByCard(ctx context.Context, cardID uuid.UUID) ([]core.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.ListTransactionsByCard(ctx, cardID)
}

// Atomic snapshots both maps and restores them if fn fails.
func (s *Store) Atomic(ctx context.Context, fn func(ports.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view{s}.Atomic(ctx, fn)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len returns the number of stored cards and transactions.
func (s *Store) Len() (cards, txs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards), len(s.txs)
}

func (v view) InsertCard(_ context.Context, c core.Card) error {
	if _, ok := v.s.cards[c.ID]; ok {
		return fmt.Errorf("insert card %s: duplicate id", c.ID)
	}
	v.s.cards[c.ID] = cloneCard(c)
	return nil
}

func (v view) UpdateCard(_ context.Context, c core.Card) error {
	old, ok := v.s.cards[c.ID]
	if !ok {
		return core.NewCardNotFound(c.ID)
	}
	c.Timestamp = old.Timestamp
	v.s.cards[c.ID] = cloneCard(c)
	return nil
}

func (v view) GetCard(_ context.Context, id uuid.UUID) (core.Card, error) {
	c, ok := v.s.cards[id]
	if !ok {
		return core.Card{}, core.NewCardNotFound(id)
	}
	return cloneCard(c), nil
}

func (v view) DeleteCard(_ context.Context, id uuid.UUID) error {
	if _, ok := v.s.cards[id]; !ok {
		return core.NewCardNotFound(id)
	}
	for _, tx := range v.s.txs {
		if tx.CardID == id {
			return fmt.Errorf("delete card %s: transactions still reference it", id)
		}
	}
	delete(v.s.cards, id)
	return nil
}

func (v view) ListCards(context.Context) ([]core.Card, error) {
	out := make([]core.Card, 0, len(v.s.cards))
	for _, c := range v.s.cards {
		out = append(out, cloneCard(c))
	}
	return out, nil
}

func (v view) InsertTransaction(_ context.Context, tx core.CardTransaction) error {
	if _, ok := v.s.cards[tx.CardID]; !ok {
		return core.NewCardNotFound(tx.CardID)
	}
	if _, ok := v.s.txs[tx.ID]; ok {
		return fmt.Errorf("insert transaction %s: duplicate id", tx.ID)
	}
	v.s.txs[tx.ID] = tx
	return nil
}

func (v view) GetTransaction(_ context.Context, id uuid.UUID) (core.CardTransaction, error) {
	tx, ok := v.s.txs[id]
	if !ok {
		return core.CardTransaction{}, core.NewTransactionNotFound(id)
	}
	return tx, nil
}

func (v view) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	if _, ok := v.s.txs[id]; !ok {
		return core.NewTransactionNotFound(id)
	}
	delete(v.s.txs, id)
	return nil
}

func (v view) DeleteTransactionsByCard(_ context.Context, cardID uuid.UUID) (int, error) {
	n := 0
	for id, tx := range v.s.txs {
		if tx.CardID == cardID {
			delete(v.s.txs, id)
			n++
		}
	}
	return n, nil
}

func (v view) ListTransactionsByCard(_ context.Context, cardID uuid.UUID) ([]core.CardTransaction, error) {
	out := make([]core.CardTransaction, 0)
	for _, tx := range v.s.txs {
		if tx.CardID == cardID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (v view) Atomic(_ context.Context, fn func(ports.Repository) error) error {
	cards := make(map[uuid.UUID]core.Card, len(v.s.cards))
	for k, c := range v.s.cards {
		cards[k] = c
	}
	txs := make(map[uuid.UUID]core.CardTransaction, len(v.s.txs))
	for k, tx := range v.s.txs {
		txs[k] = tx
	}

	if err := fn(v); err != nil {
		v.s.cards = cards
		v.s.txs = txs
		return err
	}
	return nil
}

func (v view) Ping(context.Context) error { return nil }

func (v view) Close() error { return nil }

func cloneCard(c core.Card) core.Card {
	if c.Color != nil {
		c.Color = append([]byte(nil), c.Color...)
	}
	return c
}
