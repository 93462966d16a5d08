package http

import (
	"net"
	"net/http"
	"strings"
	"time"

	"cardledger/internal/core"
)

// cardView is the JSON shape of a card.
type cardView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Number       string `json:"number"`
	MaskedNumber string `json:"maskedNumber"`
	Limit        int64  `json:"limit"`
	Type         string `json:"type"`
	ExpMonth     int    `json:"expMonth"`
	ExpYear      int    `json:"expYear"`
	ValidThru    string `json:"validThru"`
	Expired      bool   `json:"expired"`
	Color        string `json:"color"`
	Timestamp    string `json:"timestamp"`
}

type transactionView struct {
	ID        string `json:"id"`
	CardID    string `json:"cardId"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

type summaryView struct {
	Card             cardView `json:"card"`
	Balance          string   `json:"balance"`
	FormattedBalance string   `json:"formattedBalance"`
	AvailableCredit  int64    `json:"availableCredit"`
	TransactionCount int      `json:"transactionCount"`
}

func newCardView(c core.Card, now time.Time) cardView {
	return cardView{
		ID:           c.ID.String(),
		Name:         c.Name,
		Number:       c.Number,
		MaskedNumber: c.MaskedNumber(),
		Limit:        c.Limit,
		Type:         c.Type.String(),
		ExpMonth:     c.ExpMonth,
		ExpYear:      c.ExpYear,
		ValidThru:    c.ValidThru(),
		Expired:      c.IsExpired(now),
		Color:        c.DisplayColor().Hex(),
		Timestamp:    c.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func newTransactionView(tx core.CardTransaction) transactionView {
	return transactionView{
		ID:        tx.ID.String(),
		CardID:    tx.CardID.String(),
		Amount:    tx.Amount.StringFixed(2),
		Timestamp: tx.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func newSummaryView(s core.Summary, now time.Time) summaryView {
	return summaryView{
		Card:             newCardView(s.Card, now),
		Balance:          s.Balance.StringFixed(2),
		FormattedBalance: core.FormatAmount(s.Balance),
		AvailableCredit:  s.AvailableCredit,
		TransactionCount: s.TransactionCount,
	}
}

// clientIP extracts the client address, considering proxies.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
