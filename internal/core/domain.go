package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Visa       CardType = "Visa"
	Mastercard CardType = "Mastercard"
	Discover   CardType = "Discover"
	Ziraat     CardType = "Ziraat"
)

type (
	CardType string

	Card struct {
		ID        uuid.UUID
		Name      string
		Number    string // free-form, not checksummed
		Limit     int64  // whole currency units
		Type      CardType
		ExpMonth  int
		ExpYear   int
		Color     []byte // ColorCodec blob, nil means default color
		Timestamp time.Time
	}

	CardTransaction struct {
		ID        uuid.UUID
		CardID    uuid.UUID
		Amount    decimal.Decimal // positive = charge, negative = payment
		Timestamp time.Time
	}

	// CardFields carries the user-editable fields of a card.
	CardFields struct {
		Name     string
		Number   string
		Limit    int64
		Type     CardType
		ExpMonth int
		ExpYear  int
		Color    []byte
	}

	// CardPatch overwrites only the non-nil fields.
	CardPatch struct {
		Name     *string
		Number   *string
		Limit    *int64
		Type     *CardType
		ExpMonth *int
		ExpYear  *int
		Color    *[]byte
	}
)

// KnownCardTypes returns the card types offered by the add-card form.
func KnownCardTypes() []CardType {
	return []CardType{Visa, Mastercard, Discover, Ziraat}
}

// IsKnown reports whether t is one of KnownCardTypes. Other values are tolerated.
func (t CardType) IsKnown() bool {
	switch t {
	case Visa, Mastercard, Discover, Ziraat:
		return true
	default:
		return false
	}
}

func (t CardType) String() string {
	return string(t)
}

// Validate checks the field constraints enforced on every card write.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.Number) == "" {
		return &ValidationError{Field: "number", Reason: "must not be empty"}
	}
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		return &ValidationError{Field: "expMonth", Reason: fmt.Sprintf("%d is not in 1..12", c.ExpMonth)}
	}
	if c.ExpYear <= 0 {
		return &ValidationError{Field: "expYear", Reason: "must be positive"}
	}
	if c.Limit < 0 {
		return &ValidationError{Field: "limit", Reason: "must not be negative"}
	}
	return nil
}

// Apply copies the fields into c. An empty type falls back to Visa.
func (c *Card) Apply(f CardFields) {
	c.Name = strings.TrimSpace(f.Name)
	c.Number = strings.TrimSpace(f.Number)
	c.Limit = f.Limit
	c.Type = f.Type
	if c.Type == "" {
		c.Type = Visa
	}
	c.ExpMonth = f.ExpMonth
	c.ExpYear = f.ExpYear
	c.Color = f.Color
}

// ApplyPatch overwrites the fields present in p. ID and Timestamp are never touched.
func (c *Card) ApplyPatch(p CardPatch) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Number != nil {
		c.Number = strings.TrimSpace(*p.Number)
	}
	if p.Limit != nil {
		c.Limit = *p.Limit
	}
	if p.Type != nil {
		c.Type = *p.Type
		if c.Type == "" {
			c.Type = Visa
		}
	}
	if p.ExpMonth != nil {
		c.ExpMonth = *p.ExpMonth
	}
	if p.ExpYear != nil {
		c.ExpYear = *p.ExpYear
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return p.Name == nil && p.Number == nil && p.Limit == nil && p.Type == nil &&
		p.ExpMonth == nil && p.ExpYear == nil && p.Color == nil
}

// ValidThru returns the expiry as printed on the card face (MM/YY).
func (c Card) ValidThru() string {
	return fmt.Sprintf("%02d/%02d", c.ExpMonth, c.ExpYear%100)
}

// IsExpired reports whether at falls after the last instant of the expiry month (UTC).
func (c Card) IsExpired(at time.Time) bool {
	firstNext := time.Date(c.ExpYear, time.Month(c.ExpMonth), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	end := firstNext.Add(-time.Nanosecond)
	return at.UTC().After(end)
}

// MaskedNumber keeps the last four characters of the card number.
func (c Card) MaskedNumber() string {
	n := []rune(strings.ReplaceAll(c.Number, " ", ""))
	if len(n) <= 4 {
		return string(n)
	}
	return strings.Repeat("•", 4) + " " + string(n[len(n)-4:])
}

// DisplayColor decodes the stored color, falling back to DefaultColor.
func (c Card) DisplayColor() Color {
	if col, ok := DecodeColor(c.Color); ok {
		return col
	}
	return DefaultColor
}
