package memory

import (
	"context"
	"testing"
	"time"

	ports "cardledger/internal/sheets"

	"github.com/shopspring/decimal"
)

func TestLogAppendAndRows(t *testing.T) {
	l := New()

	ref, err := l.Append(context.Background())
	if err != nil || ref != "" {
		t.Fatalf("empty append: ref=%q err=%v", ref, err)
	}

	row := ports.ActivityRow{Timestamp: time.Now(), Event: "card.created", CardName: "Main"}
	ref, err = l.Append(context.Background(), row, row)
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, _ = l.Append(context.Background(), row)
	if ref != "mem:3-3" {
		t.Fatalf("unexpected ref: %q", ref)
	}

	rows := l.Rows()
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	rows[0].CardName = "mutated"
	if l.Rows()[0].CardName != "Main" {
		t.Fatal("Rows should return a copy")
	}
}

func TestActivityRowValues(t *testing.T) {
	r := ports.ActivityRow{
		Timestamp:       time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC),
		Event:           "transaction.created",
		CardName:        "Main",
		MaskedNumber:    "•••• 1111",
		Amount:          decimal.RequireFromString("150"),
		Balance:         decimal.RequireFromString("99.5"),
		AvailableCredit: 900,
	}
	got := r.Values()
	want := []any{"2025-02-03T04:05:06Z", "transaction.created", "Main", "•••• 1111", "150.00", "99.50", int64(900)}
	if len(got) != len(ports.ActivityHeader) {
		t.Fatalf("values has %d columns, header %d", len(got), len(ports.ActivityHeader))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}
}
