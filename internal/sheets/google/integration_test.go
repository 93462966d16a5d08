//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	ports "cardledger/internal/sheets"

	"github.com/shopspring/decimal"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendActivity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ref, err := client.Append(ctx, ports.ActivityRow{
		Timestamp:       time.Now(),
		Event:           "integration.test",
		CardName:        "Integration Card",
		MaskedNumber:    "•••• 4242",
		Amount:          decimal.RequireFromString("12.34"),
		Balance:         decimal.RequireFromString("12.34"),
		AvailableCredit: 988,
	})
	if err != nil {
		t.Fatalf("Failed to append activity: %v", err)
	}
	if ref == "" {
		t.Error("Expected non-empty reference")
	}
	t.Logf("Appended activity at %s", ref)
}
