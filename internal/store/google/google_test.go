package google

import (
	"context"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{SpreadsheetID: " sheet-id "}.withDefaults()

	if cfg.SpreadsheetID != "sheet-id" {
		t.Fatalf("spreadsheet id not trimmed: %q", cfg.SpreadsheetID)
	}
	if cfg.ExpensesSheet != "Expenses" || cfg.IncomesSheet != "Incomes" || cfg.OrdersSheet != "Orders" {
		t.Fatalf("empty tab names must fall back to defaults: %+v", cfg)
	}

	cfg = Config{
		SpreadsheetID: "sheet-id",
		ExpensesSheet: "Costs",
		IncomesSheet:  "Sales",
		OrdersSheet:   "Bookings",
	}.withDefaults()
	if cfg.ExpensesSheet != "Costs" || cfg.IncomesSheet != "Sales" || cfg.OrdersSheet != "Bookings" {
		t.Fatalf("caller tab names must be kept: %+v", cfg)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing spreadsheet id")
	}
}
