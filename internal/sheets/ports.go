package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ActivityHeader names the columns written for every ActivityRow.
var ActivityHeader = []string{"Timestamp", "Event", "Card", "Number", "Amount", "Balance", "Available"}

// ActivityRow is one line of the exported activity log.
type ActivityRow struct {
	Timestamp       time.Time
	Event           string
	CardName        string
	MaskedNumber    string
	Amount          decimal.Decimal
	Balance         decimal.Decimal
	AvailableCredit int64
}

// Values renders the row in ActivityHeader order. Amounts stay numeric
// strings so the sheet parses them as numbers.
func (r ActivityRow) Values() []any {
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Event,
		r.CardName,
		r.MaskedNumber,
		r.Amount.StringFixed(2),
		r.Balance.StringFixed(2),
		r.AvailableCredit,
	}
}

// Ports for outbound adapters.
type (
	ActivityWriter interface {
		// Append writes rows in order and returns a reference to the written range.
		Append(ctx context.Context, rows ...ActivityRow) (rowRef string, err error)
	}
)
