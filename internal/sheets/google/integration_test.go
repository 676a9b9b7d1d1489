//go:build integration

package google

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func integrationConfig(t *testing.T) Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.SpreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}
	return cfg
}

func TestIntegration_ExportExpenses(t *testing.T) {
	cfg := integrationConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ref, err := client.ExportExpenses(ctx,
		core.Space{ID: "integration", Name: "Integration"},
		[]core.Expense{{
			ID:          core.ID(time.Now().Format("20060102150405")),
			Cost:        12.34,
			Description: "Integration Test Expense",
			Date:        time.Now().Format("02/01/2006"),
			PaidBy:      "integration",
		}},
		nil)
	if err != nil {
		t.Fatalf("Failed to export expenses: %v", err)
	}
	t.Logf("Exported to %s", ref)

	if !strings.Contains(ref, "!") {
		t.Errorf("expected an A1 range reference, got %q", ref)
	}
}

func TestIntegration_InvalidSpreadsheetID(t *testing.T) {
	cfg := integrationConfig(t)
	cfg.SpreadsheetID = "invalid-spreadsheet-id"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.ExportExpenses(ctx, core.Space{ID: "x"}, []core.Expense{{ID: "e1", Cost: 1}}, nil)
	if err == nil {
		t.Error("expected an error for an unknown spreadsheet")
	}
}
