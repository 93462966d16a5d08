package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/ports"
	"cardledger/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// stepClock advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) (*CardStore, *memory.Store, *recordingPublisher) {
	t.Helper()
	repo := memory.New()
	pub := &recordingPublisher{}
	store := NewCardStore(repo, pub, WithClock(stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	return store, repo, pub
}

func visaFields(name string) core.CardFields {
	return core.CardFields{Name: name, Number: "4111111111111111", Limit: 1000, Type: core.Visa, ExpMonth: 12, ExpYear: 2030}
}

func TestCardStore_EndToEndBalance(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	card, err := store.CreateCard(ctx, visaFields("Everyday"))
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if _, err := store.CreateTransaction(ctx, card.ID, decimal.RequireFromString("150.00")); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := store.CreateTransaction(ctx, card.ID, decimal.RequireFromString("-50.00")); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	sum, err := store.CardSummary(ctx, card.ID)
	if err != nil {
		t.Fatalf("CardSummary: %v", err)
	}
	if !sum.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance = %s, want 100", sum.Balance)
	}
	if sum.AvailableCredit != 900 {
		t.Fatalf("available = %d, want 900", sum.AvailableCredit)
	}
	if sum.TransactionCount != 2 {
		t.Fatalf("count = %d, want 2", sum.TransactionCount)
	}
}

func TestCardStore_CreateCardValidation(t *testing.T) {
	ctx := context.Background()
	store, repo, pub := newTestStore(t)

	tests := []struct {
		name  string
		mod   func(*core.CardFields)
		field string
	}{
		{"month 13", func(f *core.CardFields) { f.ExpMonth = 13 }, "expMonth"},
		{"month 0", func(f *core.CardFields) { f.ExpMonth = 0 }, "expMonth"},
		{"blank name", func(f *core.CardFields) { f.Name = "   " }, "name"},
		{"blank number", func(f *core.CardFields) { f.Number = "" }, "number"},
		{"zero year", func(f *core.CardFields) { f.ExpYear = 0 }, "expYear"},
		{"negative limit", func(f *core.CardFields) { f.Limit = -1 }, "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := visaFields("Card")
			tt.mod(&f)
			_, err := store.CreateCard(ctx, f)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("err = %v, want field %q", err, tt.field)
			}
		})
	}

	if cards, _ := repo.Len(); cards != 0 {
		t.Fatalf("invalid cards were stored: %d", cards)
	}
	if len(pub.types()) != 0 {
		t.Fatalf("events published for rejected cards: %v", pub.types())
	}
}

func TestCardStore_CreateCardDefaults(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	f := visaFields("  Padded  ")
	f.Type = ""
	c, err := store.CreateCard(ctx, f)
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if c.Type != core.Visa {
		t.Fatalf("type = %q, want Visa", c.Type)
	}
	if c.Name != "Padded" {
		t.Fatalf("name = %q, want trimmed", c.Name)
	}
	if c.ID == uuid.Nil || c.Timestamp.IsZero() {
		t.Fatalf("id or timestamp not assigned: %+v", c)
	}

	got, err := store.GetCard(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.Name != c.Name {
		t.Fatalf("stored name = %q", got.Name)
	}
}

func TestCardStore_UpdateCard(t *testing.T) {
	ctx := context.Background()
	store, _, pub := newTestStore(t)

	c, _ := store.CreateCard(ctx, visaFields("Old"))
	name := "New"
	limit := int64(5000)
	updated, err := store.UpdateCard(ctx, c.ID, core.CardPatch{Name: &name, Limit: &limit})
	if err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	if updated.Name != "New" || updated.Limit != 5000 || updated.Number != c.Number {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.ID != c.ID || !updated.Timestamp.Equal(c.Timestamp) {
		t.Fatalf("id or timestamp changed: %+v", updated)
	}

	bad := 13
	if _, err := store.UpdateCard(ctx, c.ID, core.CardPatch{ExpMonth: &bad}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	got, _ := store.GetCard(ctx, c.ID)
	if got.ExpMonth != 12 {
		t.Fatalf("rejected update was stored: month %d", got.ExpMonth)
	}

	if _, err := store.UpdateCard(ctx, uuid.New(), core.CardPatch{Name: &name}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}

	want := []core.EventType{core.EventCardCreated, core.EventCardUpdated}
	if got := pub.types(); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestCardStore_DeleteCardCascades(t *testing.T) {
	ctx := context.Background()
	store, repo, pub := newTestStore(t)

	keep, _ := store.CreateCard(ctx, visaFields("Keep"))
	drop, _ := store.CreateCard(ctx, visaFields("Drop"))
	for _, a := range []string{"10", "20", "-5"} {
		if _, err := store.CreateTransaction(ctx, drop.ID, decimal.RequireFromString(a)); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}
	keptTx, _ := store.CreateTransaction(ctx, keep.ID, decimal.NewFromInt(1))

	if err := store.DeleteCard(ctx, drop.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}

	if _, err := store.GetCard(ctx, drop.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetCard after delete err = %v, want NotFoundError", err)
	}
	txs, err := store.ListTransactions(ctx, drop.ID, TransactionsNewestFirst)
	if err != nil || len(txs) != 0 {
		t.Fatalf("transactions of deleted card = %v, %v", txs, err)
	}
	cards, txCount := repo.Len()
	if cards != 1 || txCount != 1 {
		t.Fatalf("repo holds %d cards, %d transactions; want 1, 1", cards, txCount)
	}
	rest, _ := store.ListTransactions(ctx, keep.ID, TransactionsNewestFirst)
	if len(rest) != 1 || rest[0].ID != keptTx.ID {
		t.Fatalf("other card's transactions changed: %v", rest)
	}

	if err := store.DeleteCard(ctx, drop.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v, want NotFoundError", err)
	}

	types := pub.types()
	if types[len(types)-1] != core.EventCardDeleted {
		t.Fatalf("last event = %v, want card.deleted", types[len(types)-1])
	}
}

// failingRepo makes card deletion fail inside the atomic unit.
type failingRepo struct {
	ports.Repository
}

func (f failingRepo) Atomic(ctx context.Context, fn func(ports.Repository) error) error {
	return f.Repository.Atomic(ctx, func(r ports.Repository) error {
		return fn(failingRepo{r})
	})
}

func (f failingRepo) DeleteCard(context.Context, uuid.UUID) error {
	return errors.New("disk full")
}

func TestCardStore_DeleteCardFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	seed := NewCardStore(repo, nil)

	c, _ := seed.CreateCard(ctx, visaFields("Main"))
	_, _ = seed.CreateTransaction(ctx, c.ID, decimal.NewFromInt(10))
	_, _ = seed.CreateTransaction(ctx, c.ID, decimal.NewFromInt(20))

	store := NewCardStore(failingRepo{repo}, nil)
	err := store.DeleteCard(ctx, c.ID)
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}

	cards, txs := repo.Len()
	if cards != 1 || txs != 2 {
		t.Fatalf("state changed after failed delete: %d cards, %d transactions", cards, txs)
	}
}

func TestCardStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)
	missing := uuid.New()

	if _, err := store.GetCard(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetCard err = %v", err)
	}
	if err := store.DeleteCard(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteCard err = %v", err)
	}
	if _, err := store.CreateTransaction(ctx, missing, decimal.NewFromInt(1)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("CreateTransaction err = %v", err)
	}
	if _, err := store.GetTransaction(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTransaction err = %v", err)
	}
	if err := store.DeleteTransaction(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteTransaction err = %v", err)
	}
	if _, err := store.CardSummary(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("CardSummary err = %v", err)
	}

	txs, err := store.ListTransactions(ctx, missing, TransactionsNewestFirst)
	if err != nil {
		t.Fatalf("ListTransactions err = %v", err)
	}
	if txs == nil || len(txs) != 0 {
		t.Fatalf("ListTransactions = %#v, want empty slice", txs)
	}
}

func TestCardStore_DeleteTransaction(t *testing.T) {
	ctx := context.Background()
	store, _, pub := newTestStore(t)

	c, _ := store.CreateCard(ctx, visaFields("Main"))
	tx, _ := store.CreateTransaction(ctx, c.ID, decimal.NewFromInt(42))
	got, err := store.GetTransaction(ctx, tx.ID)
	if err != nil || got.CardID != c.ID || !got.Amount.Equal(tx.Amount) {
		t.Fatalf("GetTransaction = %+v, %v", got, err)
	}
	if err := store.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	sum, _ := store.CardSummary(ctx, c.ID)
	if !sum.Balance.IsZero() || sum.AvailableCredit != 1000 {
		t.Fatalf("summary after delete = %+v", sum)
	}

	pub.mu.Lock()
	last := pub.events[len(pub.events)-1]
	pub.mu.Unlock()
	if last.Type != core.EventTransactionDeleted || last.TransactionID != tx.ID || last.CardName != "Main" {
		t.Fatalf("last event = %+v", last)
	}
}

func TestCardStore_ListCardsOrdering(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	empty, err := store.ListCards(ctx, CardsNewestFirst)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("ListCards on empty store = %#v, %v", empty, err)
	}

	for _, name := range []string{"bravo", "Alpha", "charlie"} {
		if _, err := store.CreateCard(ctx, visaFields(name)); err != nil {
			t.Fatalf("CreateCard: %v", err)
		}
	}

	tests := []struct {
		by   CardSort
		want []string
	}{
		{CardsNewestFirst, []string{"charlie", "Alpha", "bravo"}},
		{CardsOldestFirst, []string{"bravo", "Alpha", "charlie"}},
		{CardsByName, []string{"Alpha", "bravo", "charlie"}},
	}
	for _, tt := range tests {
		cards, err := store.ListCards(ctx, tt.by)
		if err != nil {
			t.Fatalf("ListCards: %v", err)
		}
		for i, c := range cards {
			if c.Name != tt.want[i] {
				t.Fatalf("sort %d: position %d = %q, want %q", tt.by, i, c.Name, tt.want[i])
			}
		}
	}
}

func TestCardStore_ListTransactionsOrdering(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	c, _ := store.CreateCard(ctx, visaFields("Main"))
	first, _ := store.CreateTransaction(ctx, c.ID, decimal.NewFromInt(1))
	second, _ := store.CreateTransaction(ctx, c.ID, decimal.NewFromInt(2))

	newest, _ := store.ListTransactions(ctx, c.ID, TransactionsNewestFirst)
	if newest[0].ID != second.ID || newest[1].ID != first.ID {
		t.Fatalf("newest-first order wrong: %v", newest)
	}
	oldest, _ := store.ListTransactions(ctx, c.ID, TransactionsOldestFirst)
	if oldest[0].ID != first.ID {
		t.Fatalf("oldest-first order wrong: %v", oldest)
	}
}

func TestCardStore_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	pub := &recordingPublisher{err: errors.New("broker down")}
	store := NewCardStore(repo, pub)

	c, err := store.CreateCard(ctx, visaFields("Main"))
	if err != nil {
		t.Fatalf("CreateCard should succeed when publishing fails: %v", err)
	}
	if _, err := store.GetCard(ctx, c.ID); err != nil {
		t.Fatalf("card not stored: %v", err)
	}
	if len(pub.types()) != 1 {
		t.Fatalf("publish attempts = %d, want 1", len(pub.types()))
	}
}

func TestParseSorts(t *testing.T) {
	cardTests := map[string]CardSort{
		"":        CardsNewestFirst,
		"newest":  CardsNewestFirst,
		"OLDEST":  CardsOldestFirst,
		" name ":  CardsByName,
		"unknown": CardsNewestFirst,
	}
	for in, want := range cardTests {
		if got := ParseCardSort(in); got != want {
			t.Errorf("ParseCardSort(%q) = %d, want %d", in, got, want)
		}
	}
	if ParseTransactionSort("oldest") != TransactionsOldestFirst || ParseTransactionSort("x") != TransactionsNewestFirst {
		t.Errorf("ParseTransactionSort mismatch")
	}
}

func TestCardStore_CreateTransactionRejectsHugeAmount(t *testing.T) {
	ctx := context.Background()
	store, repo, pub := newTestStore(t)
	c, _ := store.CreateCard(ctx, visaFields("Main"))
	before := len(pub.types())

	_, err := store.CreateTransaction(ctx, c.ID, decimal.RequireFromString("10000000000000000000"))
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if _, txs := repo.Len(); txs != 0 {
		t.Fatalf("stored %d transactions, want 0", txs)
	}
	if len(pub.types()) != before {
		t.Fatal("rejected transaction must not publish")
	}
}
