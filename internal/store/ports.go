// Package store defines the persistence gateway contract consumed by the
// services layer. Three backends satisfy it: the local SQLite repository,
// the Google Sheets remote table and the in-memory store.
package store

import (
	"context"

	"ovenbook/internal/core"
)

type (
	ExpenseStore interface {
		// AddExpense persists a new expense and returns its assigned id.
		AddExpense(ctx context.Context, e core.Expense) (int64, error)
		// ListExpenses returns all expenses, newest date first.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		// ReplaceExpenses clears the table and reinserts the given rows,
		// keeping their ids (grid bulk-save).
		ReplaceExpenses(ctx context.Context, items []core.Expense) error
		DeleteExpense(ctx context.Context, id int64) error
	}

	IncomeStore interface {
		// AddIncome persists an income record. When in.ID is non-zero the
		// caller-supplied id is kept (order settlement preserves identity);
		// otherwise the store assigns one.
		AddIncome(ctx context.Context, in core.Income) (int64, error)
		// ListIncomes returns all incomes, newest date first.
		ListIncomes(ctx context.Context) ([]core.Income, error)
		ReplaceIncomes(ctx context.Context, items []core.Income) error
		DeleteIncome(ctx context.Context, id int64) error
	}

	OrderStore interface {
		AddOrder(ctx context.Context, o core.Order) (int64, error)
		// GetOrder fails with core.ErrNotFound when the id is absent.
		GetOrder(ctx context.Context, id int64) (core.Order, error)
		// ListOrders returns all open orders, newest delivery date first.
		ListOrders(ctx context.Context) ([]core.Order, error)
		UpdateOrder(ctx context.Context, o core.Order) error
		DeleteOrder(ctx context.Context, id int64) error
		SetDelivered(ctx context.Context, id int64, delivered bool) error
		// SettleOrder inserts the income and deletes the order as one atomic
		// step: the two records must never coexist, and a failed insert must
		// leave the order untouched.
		SettleOrder(ctx context.Context, orderID int64, in core.Income) error
	}
)
