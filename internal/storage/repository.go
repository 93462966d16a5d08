package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cardledger/internal/core"
	"cardledger/internal/ports"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRepository persists cards and transactions in a SQLite database.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ports.Repository = (*SQLiteRepository)(nil)

// DSN builds the connection string used for dbPath. Foreign keys are
// enforced so a transaction can never reference a missing card.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := DSN(dbPath)
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps the pragma and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Atomic runs fn inside a database transaction.
func (r *SQLiteRepository) Atomic(ctx context.Context, fn func(ports.Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txRepository{q: r.queries.WithTx(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertCard(ctx context.Context, c core.Card) error {
	return insertCard(ctx, r.queries, c)
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) error {
	return updateCardRow(ctx, r.queries, c)
}

func (r *SQLiteRepository) GetCard(ctx context.Context, id uuid.UUID) (core.Card, error) {
	return getCard(ctx, r.queries, id)
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, id uuid.UUID) error {
	return deleteCard(ctx, r.queries, id)
}

func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	return listCards(ctx, r.queries)
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.CardTransaction) error {
	return insertTransaction(ctx, r.queries, t)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id uuid.UUID) (core.CardTransaction, error) {
	return getTransaction(ctx, r.queries, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return deleteTransaction(ctx, r.queries, id)
}

func (r *SQLiteRepository) DeleteTransactionsByCard(ctx context.Context, cardID uuid.UUID) (int, error) {
	return deleteTransactionsByCard(ctx, r.queries, cardID)
}

func (r *SQLiteRepository) ListTransactionsByCard(ctx context.Context, cardID uuid.UUID) ([]core.CardTransaction, error) {
	return listTransactionsByCard(ctx, r.queries, cardID)
}

// txRepository is the view handed to Atomic callbacks.
type txRepository struct {
	q *Queries
}

func (t *txRepository) InsertCard(ctx context.Context, c core.Card) error {
	return insertCard(ctx, t.q, c)
}

func (t *txRepository) UpdateCard(ctx context.Context, c core.Card) error {
	return updateCardRow(ctx, t.q, c)
}

func (t *txRepository) GetCard(ctx context.Context, id uuid.UUID) (core.Card, error) {
	return getCard(ctx, t.q, id)
}

func (t *txRepository) DeleteCard(ctx context.Context, id uuid.UUID) error {
	return deleteCard(ctx, t.q, id)
}

func (t *txRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	return listCards(ctx, t.q)
}

func (t *txRepository) InsertTransaction(ctx context.Context, tx core.CardTransaction) error {
	return insertTransaction(ctx, t.q, tx)
}

func (t *txRepository) GetTransaction(ctx context.Context, id uuid.UUID) (core.CardTransaction, error) {
	return getTransaction(ctx, t.q, id)
}

func (t *txRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return deleteTransaction(ctx, t.q, id)
}

func (t *txRepository) DeleteTransactionsByCard(ctx context.Context, cardID uuid.UUID) (int, error) {
	return deleteTransactionsByCard(ctx, t.q, cardID)
}

func (t *txRepository) ListTransactionsByCard(ctx context.Context, cardID uuid.UUID) ([]core.CardTransaction, error) {
	return listTransactionsByCard(ctx, t.q, cardID)
}

// Atomic on a transaction view joins the enclosing transaction.
func (t *txRepository) Atomic(_ context.Context, fn func(ports.Repository) error) error {
	return fn(t)
}

func (t *txRepository) Ping(context.Context) error { return nil }

func (t *txRepository) Close() error { return nil }

func insertCard(ctx context.Context, q *Queries, c core.Card) error {
	if err := q.CreateCard(ctx, cardToRow(c)); err != nil {
		return fmt.Errorf("insert card %s: %w", c.ID, err)
	}
	return nil
}

func updateCardRow(ctx context.Context, q *Queries, c core.Card) error {
	n, err := q.UpdateCard(ctx, cardToRow(c))
	if err != nil {
		return fmt.Errorf("update card %s: %w", c.ID, err)
	}
	if n == 0 {
		return core.NewCardNotFound(c.ID)
	}
	return nil
}

func getCard(ctx context.Context, q *Queries, id uuid.UUID) (core.Card, error) {
	row, err := q.GetCard(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.Card{}, core.NewCardNotFound(id)
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card %s: %w", id, err)
	}
	return rowToCard(row)
}

func deleteCard(ctx context.Context, q *Queries, id uuid.UUID) error {
	n, err := q.DeleteCard(ctx, id.String())
	if err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	if n == 0 {
		return core.NewCardNotFound(id)
	}
	return nil
}

func listCards(ctx context.Context, q *Queries) ([]core.Card, error) {
	rows, err := q.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	out := make([]core.Card, 0, len(rows))
	for _, row := range rows {
		c, err := rowToCard(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func insertTransaction(ctx context.Context, q *Queries, t core.CardTransaction) error {
	err := q.CreateTransaction(ctx, CardTransaction{
		ID:        t.ID.String(),
		Card:      t.CardID.String(),
		Amount:    t.Amount.String(),
		Timestamp: toUnixNano(t.Timestamp),
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.NewCardNotFound(t.CardID)
		}
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	return nil
}

func getTransaction(ctx context.Context, q *Queries, id uuid.UUID) (core.CardTransaction, error) {
	row, err := q.GetTransaction(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.CardTransaction{}, core.NewTransactionNotFound(id)
	}
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return rowToTransaction(row)
}

func deleteTransaction(ctx context.Context, q *Queries, id uuid.UUID) error {
	n, err := q.DeleteTransaction(ctx, id.String())
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return core.NewTransactionNotFound(id)
	}
	return nil
}

func deleteTransactionsByCard(ctx context.Context, q *Queries, cardID uuid.UUID) (int, error) {
	n, err := q.DeleteTransactionsByCard(ctx, cardID.String())
	if err != nil {
		return 0, fmt.Errorf("delete transactions of card %s: %w", cardID, err)
	}
	return int(n), nil
}

func listTransactionsByCard(ctx context.Context, q *Queries, cardID uuid.UUID) ([]core.CardTransaction, error) {
	rows, err := q.ListTransactionsByCard(ctx, cardID.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions of card %s: %w", cardID, err)
	}
	out := make([]core.CardTransaction, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func cardToRow(c core.Card) Card {
	return Card{
		ID:        c.ID.String(),
		Name:      c.Name,
		Number:    c.Number,
		Limit:     c.Limit,
		Type:      string(c.Type),
		ExpMonth:  int64(c.ExpMonth),
		ExpYear:   int64(c.ExpYear),
		Color:     c.Color,
		Timestamp: toUnixNano(c.Timestamp),
	}
}

func rowToCard(row Card) (core.Card, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return core.Card{}, fmt.Errorf("parse card id %q: %w", row.ID, err)
	}
	return core.Card{
		ID:        id,
		Name:      row.Name,
		Number:    row.Number,
		Limit:     row.Limit,
		Type:      core.CardType(row.Type),
		ExpMonth:  int(row.ExpMonth),
		ExpYear:   int(row.ExpYear),
		Color:     row.Color,
		Timestamp: fromUnixNano(row.Timestamp),
	}, nil
}

func rowToTransaction(row CardTransaction) (core.CardTransaction, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("parse transaction id %q: %w", row.ID, err)
	}
	cardID, err := parseID(row.Card)
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("parse card id %q: %w", row.Card, err)
	}
	amount, err := parseAmount(row.Amount)
	if err != nil {
		return core.CardTransaction{}, fmt.Errorf("parse amount %q: %w", row.Amount, err)
	}
	return core.CardTransaction{
		ID:        id,
		CardID:    cardID,
		Amount:    amount,
		Timestamp: fromUnixNano(row.Timestamp),
	}, nil
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
