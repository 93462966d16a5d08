package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/services"
	"cardledger/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// SnapshotEvent labels the per-card rows written by Backfill.
const SnapshotEvent = "snapshot"

// ExportWorker turns ledger events into activity rows in the export sheet.
type ExportWorker struct {
	store       *services.CardStore
	sheets      sheets.ActivityWriter
	concurrency int
	now         func() time.Time
}

func NewExportWorker(store *services.CardStore, writer sheets.ActivityWriter, concurrency int) *ExportWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExportWorker{
		store:       store,
		sheets:      writer,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// HandleEvent appends one row for e. The balance columns reflect the card
// at handling time; a card deleted since the event exports zeros.
func (w *ExportWorker) HandleEvent(ctx context.Context, e core.LedgerEvent) error {
	row := sheets.ActivityRow{
		Timestamp: e.Timestamp,
		Event:     string(e.Type),
		CardName:  e.CardName,
		Amount:    e.Amount,
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = w.now().UTC()
	}

	if e.Type != core.EventCardDeleted {
		sum, err := w.store.CardSummary(ctx, e.CardID)
		switch {
		case err == nil:
			fillSummary(&row, sum)
		case errors.Is(err, core.ErrNotFound):
			slog.InfoContext(ctx, "Card gone before export, writing event only",
				"card_id", e.CardID, "type", e.Type)
		default:
			return fmt.Errorf("load summary of card %s: %w", e.CardID, err)
		}
	}

	ref, err := w.sheets.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	slog.InfoContext(ctx, "Exported ledger event",
		"type", e.Type,
		"card_id", e.CardID,
		"sheets_ref", ref)
	return nil
}

// Backfill writes one snapshot row per card. Summaries are loaded
// concurrently and written in card order in a single append.
func (w *ExportWorker) Backfill(ctx context.Context) (int, error) {
	cards, err := w.store.ListCards(ctx, services.CardsByName)
	if err != nil {
		return 0, fmt.Errorf("list cards: %w", err)
	}
	if len(cards) == 0 {
		slog.InfoContext(ctx, "No cards to snapshot")
		return 0, nil
	}

	at := w.now().UTC()
	rows := make([]sheets.ActivityRow, len(cards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, c := range cards {
		g.Go(func() error {
			sum, err := w.store.CardSummary(gctx, c.ID)
			if errors.Is(err, core.ErrNotFound) {
				// deleted while we were listing
				return nil
			}
			if err != nil {
				return fmt.Errorf("summary of card %s: %w", c.ID, err)
			}
			row := sheets.ActivityRow{Timestamp: at, Event: SnapshotEvent}
			fillSummary(&row, sum)
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	out := rows[:0]
	for _, r := range rows {
		if r.Event != "" {
			out = append(out, r)
		}
	}

	ref, err := w.sheets.Append(ctx, out...)
	if err != nil {
		return 0, fmt.Errorf("append snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot exported", "cards", len(out), "sheets_ref", ref)
	return len(out), nil
}

func fillSummary(row *sheets.ActivityRow, sum core.Summary) {
	row.CardName = sum.Card.Name
	row.MaskedNumber = sum.Card.MaskedNumber()
	row.Balance = sum.Balance
	row.AvailableCredit = sum.AvailableCredit
}
