package services

import (
	"context"
	"fmt"
	"log/slog"

	"ovenbook/internal/amqp"
	"ovenbook/internal/core"
	"ovenbook/internal/store"
)

// LedgerService handles the two flat ledgers, expenses and incomes, and the
// monthly summary derived from them.
type LedgerService struct {
	expenses   store.ExpenseStore
	incomes    store.IncomeStore
	amqpClient *amqp.Client
}

func NewLedgerService(expenses store.ExpenseStore, incomes store.IncomeStore, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		expenses:   expenses,
		incomes:    incomes,
		amqpClient: amqpClient,
	}
}

func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.expenses.AddExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("add expense: %w", err)
	}

	s.publish(ctx, amqp.EntityExpense, amqp.ActionUpsert, id)
	return id, nil
}

func (s *LedgerService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.expenses.ListExpenses(ctx)
}

// ReplaceExpenses overwrites the whole expense ledger, keeping the ids of the
// rows passed in. No per-row events are published; the worker's pending scan
// picks the rewritten rows up in bulk.
func (s *LedgerService) ReplaceExpenses(ctx context.Context, rows []core.Expense) error {
	for i, e := range rows {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("expense %d: %w", i, err)
		}
	}

	if err := s.expenses.ReplaceExpenses(ctx, rows); err != nil {
		return fmt.Errorf("replace expenses: %w", err)
	}

	slog.InfoContext(ctx, "Replaced expense ledger", "rows", len(rows))
	return nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.publish(ctx, amqp.EntityExpense, amqp.ActionDelete, id)
	return nil
}

func (s *LedgerService) AddIncome(ctx context.Context, in core.Income) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	id, err := s.incomes.AddIncome(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("add income: %w", err)
	}

	s.publish(ctx, amqp.EntityIncome, amqp.ActionUpsert, id)
	return id, nil
}

func (s *LedgerService) ListIncomes(ctx context.Context) ([]core.Income, error) {
	return s.incomes.ListIncomes(ctx)
}

func (s *LedgerService) ReplaceIncomes(ctx context.Context, rows []core.Income) error {
	for i, in := range rows {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("income %d: %w", i, err)
		}
	}

	if err := s.incomes.ReplaceIncomes(ctx, rows); err != nil {
		return fmt.Errorf("replace incomes: %w", err)
	}

	slog.InfoContext(ctx, "Replaced income ledger", "rows", len(rows))
	return nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, id int64) error {
	if err := s.incomes.DeleteIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}

	s.publish(ctx, amqp.EntityIncome, amqp.ActionDelete, id)
	return nil
}

// MonthlySummary joins both ledgers month by month. Months that only appear
// on one side still show up, with zero on the other.
func (s *LedgerService) MonthlySummary(ctx context.Context) ([]core.MonthSummary, error) {
	expenses, err := s.expenses.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	incomes, err := s.incomes.ListIncomes(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	return core.MonthlySummary(expenses, incomes)
}

func (s *LedgerService) publish(ctx context.Context, entity, action string, id int64) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishLedgerEvent(ctx, entity, action, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", entity, "action", action, "id", id, "error", err)
	}
}
