package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"cardledger/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventMessage is the wire form of a ledger event. The worker looks the
// card up again, so the message stays small.
type EventMessage struct {
	Type          string          `json:"type"`
	CardID        string          `json:"card_id"`
	CardName      string          `json:"card_name,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewEventMessage converts e to its wire form.
func NewEventMessage(e core.LedgerEvent) *EventMessage {
	msg := &EventMessage{
		Type:      string(e.Type),
		CardID:    e.CardID.String(),
		CardName:  e.CardName,
		Amount:    e.Amount,
		Timestamp: e.Timestamp,
	}
	if e.TransactionID != uuid.Nil {
		msg.TransactionID = e.TransactionID.String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event validates the message and converts it back to a ledger event.
func (m *EventMessage) Event() (core.LedgerEvent, error) {
	t := core.EventType(m.Type)
	if !t.IsValid() {
		return core.LedgerEvent{}, fmt.Errorf("unknown event type %q", m.Type)
	}
	cardID, err := uuid.Parse(m.CardID)
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("parse card_id: %w", err)
	}
	e := core.LedgerEvent{
		Type:      t,
		CardID:    cardID,
		CardName:  m.CardName,
		Amount:    m.Amount,
		Timestamp: m.Timestamp,
	}
	if t.IsTransactionEvent() {
		e.TransactionID, err = uuid.Parse(m.TransactionID)
		if err != nil {
			return core.LedgerEvent{}, fmt.Errorf("parse transaction_id: %w", err)
		}
	}
	return e, nil
}

// EventMessageFromJSON creates a message from JSON bytes
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
