package services

import (
	"sort"
	"strings"

	"cardledger/internal/core"
)

type (
	CardSort        int
	TransactionSort int
)

const (
	CardsNewestFirst CardSort = iota
	CardsOldestFirst
	CardsByName
)

const (
	TransactionsNewestFirst TransactionSort = iota
	TransactionsOldestFirst
)

// ParseCardSort maps the query values newest, oldest and name. Anything
// else selects the default order.
func ParseCardSort(s string) CardSort {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oldest":
		return CardsOldestFirst
	case "name":
		return CardsByName
	default:
		return CardsNewestFirst
	}
}

func ParseTransactionSort(s string) TransactionSort {
	if strings.ToLower(strings.TrimSpace(s)) == "oldest" {
		return TransactionsOldestFirst
	}
	return TransactionsNewestFirst
}

// Ties are broken by id so listings are stable across backends.
func sortCards(cards []core.Card, by CardSort) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		switch by {
		case CardsByName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		case CardsOldestFirst:
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.Before(b.Timestamp)
			}
		default:
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.After(b.Timestamp)
			}
		}
		return a.ID.String() < b.ID.String()
	})
}

func sortTransactions(txs []core.CardTransaction, by TransactionSort) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if by == TransactionsOldestFirst {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID.String() < b.ID.String()
	})
}
