package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// Summary is the derived state of a card shown next to it.
type Summary struct {
	Card             Card
	Balance          decimal.Decimal
	AvailableCredit  int64
	TransactionCount int
}

// Balance sums the amounts of the transactions that belong to card.
// Transactions of other cards are ignored.
func Balance(card Card, txs []CardTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.CardID != card.ID {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

// AvailableCredit is the limit minus the balance rounded to whole units
// (half away from zero). It goes negative when the card is over its limit
// and saturates at the int64 bounds.
func AvailableCredit(card Card, txs []CardTransaction) int64 {
	return availableCredit(card.Limit, Balance(card, txs))
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

func availableCredit(limit int64, balance decimal.Decimal) int64 {
	avail := decimal.NewFromInt(limit).Sub(balance.Round(0))
	switch {
	case avail.LessThan(minInt64):
		return math.MinInt64
	case avail.GreaterThan(maxInt64):
		return math.MaxInt64
	default:
		return avail.IntPart()
	}
}

// Summarize computes balance and available credit in one pass over txs.
func Summarize(card Card, txs []CardTransaction) Summary {
	s := Summary{Card: card, Balance: decimal.Zero}
	for _, tx := range txs {
		if tx.CardID != card.ID {
			continue
		}
		s.Balance = s.Balance.Add(tx.Amount)
		s.TransactionCount++
	}
	s.AvailableCredit = availableCredit(card.Limit, s.Balance)
	return s
}
