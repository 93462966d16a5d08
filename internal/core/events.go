package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventCardCreated        EventType = "card.created"
	EventCardUpdated        EventType = "card.updated"
	EventCardDeleted        EventType = "card.deleted"
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
)

type (
	EventType string

	// LedgerEvent describes a committed mutation of the card ledger.
	// TransactionID is uuid.Nil for card events.
	LedgerEvent struct {
		Type          EventType
		CardID        uuid.UUID
		CardName      string
		TransactionID uuid.UUID
		Amount        decimal.Decimal
		Timestamp     time.Time
	}
)

// IsValid reports whether t is one of the published event types.
func (t EventType) IsValid() bool {
	switch t {
	case EventCardCreated, EventCardUpdated, EventCardDeleted,
		EventTransactionCreated, EventTransactionDeleted:
		return true
	default:
		return false
	}
}

// IsTransactionEvent reports whether the event carries a transaction.
func (t EventType) IsTransactionEvent() bool {
	return t == EventTransactionCreated || t == EventTransactionDeleted
}
