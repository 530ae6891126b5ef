package services

import (
	"context"
	"errors"
	"testing"

	"ovenbook/internal/core"
	"ovenbook/internal/store/memory"
)

func newLedgerService() (*LedgerService, *memory.Store) {
	st := memory.New()
	return NewLedgerService(st, st, nil), st
}

func TestAddExpenseValidates(t *testing.T) {
	svc, _ := newLedgerService()
	ctx := context.Background()

	id, err := svc.AddExpense(ctx, core.Expense{
		Date:     core.NewDate(2024, 3, 10),
		Category: "Flour",
		Amount:   core.Money{Cents: 500},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected assigned id")
	}

	if _, err := svc.AddExpense(ctx, core.Expense{Date: core.NewDate(2024, 3, 10), Amount: core.Money{Cents: 1}}); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if _, err := svc.AddExpense(ctx, core.Expense{Date: core.NewDate(2024, 3, 10), Category: "c", Amount: core.Money{Cents: -1}}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAddIncomeValidates(t *testing.T) {
	svc, _ := newLedgerService()
	ctx := context.Background()

	if _, err := svc.AddIncome(ctx, core.Income{
		Date:     core.NewDate(2024, 4, 5),
		Customer: "Asha",
		Amount:   core.Money{Cents: 1200},
		Method:   core.Cash,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := svc.AddIncome(ctx, core.Income{
		Date:     core.NewDate(2024, 4, 5),
		Customer: "Asha",
		Amount:   core.Money{Cents: 1},
		Method:   "Barter",
	}); !errors.Is(err, core.ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
}

func TestReplaceExpensesValidatesEachRow(t *testing.T) {
	svc, st := newLedgerService()
	ctx := context.Background()

	rows := []core.Expense{
		{ID: 1, Date: core.NewDate(2024, 1, 1), Category: "a", Amount: core.Money{Cents: 1}},
		{ID: 2, Date: core.NewDate(2024, 1, 2), Category: "", Amount: core.Money{Cents: 2}},
	}
	err := svc.ReplaceExpenses(ctx, rows)
	if !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}

	// Nothing was written
	list, _ := st.ListExpenses(ctx)
	if len(list) != 0 {
		t.Fatalf("failed replace must not write, got %d rows", len(list))
	}

	rows[1].Category = "b"
	if err := svc.ReplaceExpenses(ctx, rows); err != nil {
		t.Fatalf("replace: %v", err)
	}
	list, _ = st.ListExpenses(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
}

func TestMonthlySummaryJoinsLedgers(t *testing.T) {
	svc, _ := newLedgerService()
	ctx := context.Background()

	if _, err := svc.AddExpense(ctx, core.Expense{Date: core.NewDate(2024, 3, 10), Category: "Flour", Amount: core.Money{Cents: 80000}}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if _, err := svc.AddIncome(ctx, core.Income{Date: core.NewDate(2024, 4, 5), Customer: "Asha", Amount: core.Money{Cents: 120000}, Method: core.UPI}); err != nil {
		t.Fatalf("add income: %v", err)
	}

	rows, err := svc.MonthlySummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 months, got %d", len(rows))
	}
	if rows[0].NetSavings.Cents != -80000 || rows[1].NetSavings.Cents != 120000 {
		t.Fatalf("unexpected nets: %d, %d", rows[0].NetSavings.Cents, rows[1].NetSavings.Cents)
	}
}

func TestDeleteMissingRows(t *testing.T) {
	svc, _ := newLedgerService()
	ctx := context.Background()

	if err := svc.DeleteExpense(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteIncome(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
