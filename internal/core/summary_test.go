package core

import (
	"errors"
	"testing"
)

func TestMonthlySummaryOuterJoin(t *testing.T) {
	expenses := []Expense{
		{Date: NewDate(2024, 3, 10), Category: "Flour", Amount: Money{Cents: 50000}},
		{Date: NewDate(2024, 3, 20), Category: "Butter", Amount: Money{Cents: 30000}},
	}
	incomes := []Income{
		{Date: NewDate(2024, 4, 5), Customer: "Asha", Amount: Money{Cents: 120000}, Method: UPI},
	}

	rows, err := MonthlySummary(expenses, incomes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 months, got %d", len(rows))
	}

	march := rows[0]
	if march.Year != 2024 || march.Month != 3 {
		t.Fatalf("expected 2024-03 first, got %04d-%02d", march.Year, march.Month)
	}
	if march.TotalExpense.Cents != 80000 || march.TotalIncome.Cents != 0 {
		t.Fatalf("march totals wrong: %+v", march)
	}
	if march.NetSavings.Cents != -80000 {
		t.Fatalf("march net expected -80000, got %d", march.NetSavings.Cents)
	}

	april := rows[1]
	if april.TotalExpense.Cents != 0 || april.TotalIncome.Cents != 120000 {
		t.Fatalf("april totals wrong: %+v", april)
	}
	if april.NetSavings.Cents != 120000 {
		t.Fatalf("april net expected 120000, got %d", april.NetSavings.Cents)
	}
}

func TestMonthlySummaryOrderIndependent(t *testing.T) {
	a := []Expense{
		{Date: NewDate(2024, 1, 1), Category: "c", Amount: Money{Cents: 100}},
		{Date: NewDate(2024, 2, 1), Category: "c", Amount: Money{Cents: 200}},
		{Date: NewDate(2024, 1, 15), Category: "c", Amount: Money{Cents: 300}},
	}
	b := []Expense{a[2], a[0], a[1]}

	ra, err := MonthlySummary(a, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rb, err := MonthlySummary(b, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ra) != len(rb) {
		t.Fatalf("length mismatch: %d vs %d", len(ra), len(rb))
	}
	for i := range ra {
		if ra[i] != rb[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, ra[i], rb[i])
		}
	}
	if ra[0].TotalExpense.Cents != 400 {
		t.Fatalf("january expected 400, got %d", ra[0].TotalExpense.Cents)
	}
}

func TestMonthlySummarySpansYears(t *testing.T) {
	expenses := []Expense{
		{Date: NewDate(2024, 12, 31), Category: "c", Amount: Money{Cents: 100}},
		{Date: NewDate(2025, 1, 1), Category: "c", Amount: Money{Cents: 200}},
	}
	rows, err := MonthlySummary(expenses, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("december and january must not merge, got %d rows", len(rows))
	}
	if rows[0].Year != 2024 || rows[1].Year != 2025 {
		t.Fatalf("expected 2024-12 then 2025-01, got %+v", rows)
	}
}

func TestMonthlySummaryEmpty(t *testing.T) {
	rows, err := MonthlySummary(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestMonthlySummaryRejectsZeroDates(t *testing.T) {
	_, err := MonthlySummary([]Expense{{Category: "c", Amount: Money{Cents: 1}}}, nil)
	if !errors.Is(err, ErrUnparsableDate) {
		t.Fatalf("expected ErrUnparsableDate, got %v", err)
	}
	_, err = MonthlySummary(nil, []Income{{Customer: "a", Amount: Money{Cents: 1}, Method: UPI}})
	if !errors.Is(err, ErrUnparsableDate) {
		t.Fatalf("expected ErrUnparsableDate, got %v", err)
	}
}
