package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"150", "150", true},
		{"150.00", "150", true},
		{"-50", "-50", true},
		{"12,34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"1.005", "1.01", true}, // half away from zero
		{"-1.005", "-1.01", true},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
		{"999999999999999.99", "999999999999999.99", true},
		{"-999999999999999.99", "-999999999999999.99", true},
		{"1000000000000000", "", false},
		{"-1000000000000000", "", false},
		{"10000000000000000000", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("100")); got != "$100.00" {
		t.Fatalf("got %s", got)
	}
	if got := FormatAmount(decimal.RequireFromString("-5.5")); got != "-$5.50" {
		t.Fatalf("got %s", got)
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(decimal.RequireFromString("-999999999999999.99")); err != nil {
		t.Fatalf("amount below the bound rejected: %v", err)
	}
	err := ValidateAmount(MaxAmount.Neg())
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "amount" {
		t.Fatalf("expected amount validation error, got %v", err)
	}
}
