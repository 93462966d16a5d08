package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL used by SQLiteRepository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Card is a row of the cards table.
type Card struct {
	ID        string
	Name      string
	Number    string
	Limit     int64
	Type      string
	ExpMonth  int64
	ExpYear   int64
	Color     []byte
	Timestamp int64
}

// CardTransaction is a row of the card_transactions table.
type CardTransaction struct {
	ID        string
	Card      string
	Amount    string
	Timestamp int64
}

const createCard = `
INSERT INTO cards (id, name, number, "limit", type, expMonth, expYear, color, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCard(ctx context.Context, c Card) error {
	_, err := q.db.ExecContext(ctx, createCard,
		c.ID, c.Name, c.Number, c.Limit, c.Type, c.ExpMonth, c.ExpYear, c.Color, c.Timestamp)
	return err
}

const updateCard = `
UPDATE cards
SET name = ?, number = ?, "limit" = ?, type = ?, expMonth = ?, expYear = ?, color = ?
WHERE id = ?`

func (q *Queries) UpdateCard(ctx context.Context, c Card) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCard,
		c.Name, c.Number, c.Limit, c.Type, c.ExpMonth, c.ExpYear, c.Color, c.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectCardColumns = `SELECT id, name, number, "limit", type, expMonth, expYear, color, timestamp FROM cards`

func (q *Queries) GetCard(ctx context.Context, id string) (Card, error) {
	row := q.db.QueryRowContext(ctx, selectCardColumns+` WHERE id = ?`, id)
	var c Card
	err := row.Scan(&c.ID, &c.Name, &c.Number, &c.Limit, &c.Type, &c.ExpMonth, &c.ExpYear, &c.Color, &c.Timestamp)
	return c, err
}

func (q *Queries) ListCards(ctx context.Context) ([]Card, error) {
	rows, err := q.db.QueryContext(ctx, selectCardColumns+` ORDER BY timestamp DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Card, 0)
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.Name, &c.Number, &c.Limit, &c.Type, &c.ExpMonth, &c.ExpYear, &c.Color, &c.Timestamp); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteCard(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTransaction = `
INSERT INTO card_transactions (id, card, amount, timestamp)
VALUES (?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t CardTransaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction, t.ID, t.Card, t.Amount, t.Timestamp)
	return err
}

func (q *Queries) GetTransaction(ctx context.Context, id string) (CardTransaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT id, card, amount, timestamp FROM card_transactions WHERE id = ?`, id)
	var t CardTransaction
	err := row.Scan(&t.ID, &t.Card, &t.Amount, &t.Timestamp)
	return t, err
}

func (q *Queries) ListTransactionsByCard(ctx context.Context, card string) ([]CardTransaction, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, card, amount, timestamp FROM card_transactions
WHERE card = ?
ORDER BY timestamp DESC, id`, card)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]CardTransaction, 0)
	for rows.Next() {
		var t CardTransaction
		if err := rows.Scan(&t.ID, &t.Card, &t.Amount, &t.Timestamp); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM card_transactions WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteTransactionsByCard(ctx context.Context, card string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM card_transactions WHERE card = ?`, card)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func toUnixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func parseID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
