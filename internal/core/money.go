// Package core provides amount parsing and formatting utilities.
//
// Amounts are signed decimals: charges are positive and payments negative.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// MaxAmount bounds the magnitude of a single transaction (exclusive).
var MaxAmount = decimal.New(1, 15)

// ValidateAmount rejects amounts whose magnitude reaches MaxAmount.
func ValidateAmount(d decimal.Decimal) error {
	if d.Abs().GreaterThanOrEqual(MaxAmount) {
		return &ValidationError{Field: "amount", Reason: "magnitude must be below " + MaxAmount.String()}
	}
	return nil
}

// ParseAmount converts a user-entered amount to a decimal rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and a
// leading sign. Zero is rejected since it records nothing, and so is any
// magnitude of MaxAmount or more.
//
// Examples:
//
//	ParseAmount("150")    -> 150.00
//	ParseAmount("-50,5")  -> -50.50
//	ParseAmount("1.005")  -> 1.01 (half away from zero)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if d.IsZero() || ValidateAmount(d) != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals and a $ sign, as on the card view.
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
