package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ovenbook/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the local primary store. It satisfies the full
// store contract: expenses, incomes and orders.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Expenses ---

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, category, amount_cents, comment) VALUES (?, ?, ?, ?)`,
		e.Date.ISO(), e.Category, e.Amount.Cents, e.Comment)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"category", e.Category,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.ISO())

	return id, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_id, date, category, amount_cents, comment
		 FROM expenses ORDER BY date DESC, expense_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			dateStr string
		)
		if err := rows.Scan(&e.ID, &dateStr, &e.Category, &e.Amount.Cents, &e.Comment); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceExpenses clears the table and reinserts the given rows in one
// transaction, keeping their ids.
func (r *SQLiteRepository) ReplaceExpenses(ctx context.Context, items []core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace expenses: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	for _, e := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (expense_id, date, category, amount_cents, comment) VALUES (?, ?, ?, ?, ?)`,
			nullableID(e.ID), e.Date.ISO(), e.Category, e.Amount.Cents, e.Comment); err != nil {
			return fmt.Errorf("reinsert expense %d: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace expenses: %w", err)
	}

	slog.InfoContext(ctx, "Expenses replaced", "count", len(items))
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "expenses", "expense_id", id)
}

// --- Incomes ---

func (r *SQLiteRepository) AddIncome(ctx context.Context, in core.Income) (int64, error) {
	id, err := insertIncome(ctx, r.db, in)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Income saved",
		"id", id,
		"customer", in.Customer,
		"amount_cents", in.Amount.Cents,
		"method", in.Method.String())

	return id, nil
}

// execer lets insertIncome run against either the pool or a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertIncome(ctx context.Context, ex execer, in core.Income) (int64, error) {
	res, err := ex.ExecContext(ctx,
		`INSERT INTO incomes (income_id, date, customer, amount_cents, payment_method, comment) VALUES (?, ?, ?, ?, ?, ?)`,
		nullableID(in.ID), in.Date.ISO(), in.Customer, in.Amount.Cents, in.Method.String(), in.Comment)
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT income_id, date, customer, amount_cents, payment_method, comment
		 FROM incomes ORDER BY date DESC, income_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			in      core.Income
			dateStr string
			method  string
		)
		if err := rows.Scan(&in.ID, &dateStr, &in.Customer, &in.Amount.Cents, &method, &in.Comment); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("income %d: %w", in.ID, err)
		}
		in.Method = core.PaymentMethod(method)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ReplaceIncomes(ctx context.Context, items []core.Income) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace incomes: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM incomes`); err != nil {
		return fmt.Errorf("clear incomes: %w", err)
	}
	for _, in := range items {
		if _, err := insertIncome(ctx, tx, in); err != nil {
			return fmt.Errorf("reinsert income %d: %w", in.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace incomes: %w", err)
	}

	slog.InfoContext(ctx, "Incomes replaced", "count", len(items))
	return nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "incomes", "income_id", id)
}

// --- Orders ---

func (r *SQLiteRepository) AddOrder(ctx context.Context, o core.Order) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (delivery_date, customer, item, price_cents, advance_cents, pending_cents, description, delivered)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.DeliveryDate.ISO(), o.Customer, o.Item, o.Price.Cents, o.Advance.Cents,
		o.PendingBalance.Cents, o.Description, boolToInt(o.Delivered))
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order id: %w", err)
	}

	slog.InfoContext(ctx, "Order saved",
		"id", id,
		"customer", o.Customer,
		"item", o.Item,
		"price_cents", o.Price.Cents,
		"pending_cents", o.PendingBalance.Cents)

	return id, nil
}

func (r *SQLiteRepository) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT order_id, delivery_date, customer, item, price_cents, advance_cents, pending_cents, description, delivered
		 FROM orders WHERE order_id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Order{}, core.ErrNotFound
	}
	if err != nil {
		return core.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

func (r *SQLiteRepository) ListOrders(ctx context.Context) ([]core.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, delivery_date, customer, item, price_cents, advance_cents, pending_cents, description, delivered
		 FROM orders ORDER BY delivery_date DESC, order_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []core.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateOrder(ctx context.Context, o core.Order) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET delivery_date = ?, customer = ?, item = ?, price_cents = ?, advance_cents = ?, pending_cents = ?, description = ?
		 WHERE order_id = ?`,
		o.DeliveryDate.ISO(), o.Customer, o.Item, o.Price.Cents, o.Advance.Cents,
		o.PendingBalance.Cents, o.Description, o.ID)
	if err != nil {
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}
	return requireRow(res, o.ID)
}

func (r *SQLiteRepository) DeleteOrder(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "orders", "order_id", id)
}

func (r *SQLiteRepository) SetDelivered(ctx context.Context, id int64, delivered bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET delivered = ? WHERE order_id = ?`, boolToInt(delivered), id)
	if err != nil {
		return fmt.Errorf("set delivered %d: %w", id, err)
	}
	return requireRow(res, id)
}

// SettleOrder deletes the order and inserts the income in one transaction,
// so a crash between the two writes can never leave both records behind.
// The delete runs first: an absent order is ErrNotFound before any income is
// written, even when a settled income already holds the same id.
func (r *SQLiteRepository) SettleOrder(ctx context.Context, orderID int64, in core.Income) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settle: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE order_id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("settle order %d: delete: %w", orderID, err)
	}
	if err := requireRow(res, orderID); err != nil {
		return err
	}
	if _, err := insertIncome(ctx, tx, in); err != nil {
		return fmt.Errorf("settle order %d: %w", orderID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settle %d: %w", orderID, err)
	}

	slog.InfoContext(ctx, "Order settled into income",
		"id", orderID,
		"customer", in.Customer,
		"amount_cents", in.Amount.Cents,
		"method", in.Method.String())

	return nil
}

// --- Mirror sync bookkeeping ---

// PendingRow identifies a row the worker still has to mirror to the sheet.
type PendingRow struct {
	Entity    string // "expense" or "income"
	ID        int64
	CreatedAt time.Time
}

func (r *SQLiteRepository) PendingSyncRows(ctx context.Context, limit int) ([]PendingRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT 'expense', expense_id, created_at FROM expenses WHERE sync_status = 'pending'
		 UNION ALL
		 SELECT 'income', income_id, created_at FROM incomes WHERE sync_status = 'pending'
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync rows: %w", err)
	}
	defer rows.Close()

	var out []PendingRow
	for rows.Next() {
		var p PendingRow
		if err := rows.Scan(&p.Entity, &p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, entity string, id int64) error {
	return r.setSyncStatus(ctx, entity, id, "synced")
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, entity string, id int64) error {
	return r.setSyncStatus(ctx, entity, id, "error")
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, entity string, id int64, status string) error {
	table, column, err := entityTable(entity)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET sync_status = ? WHERE %s = ?`, table, column), status, id); err != nil {
		return fmt.Errorf("mark %s %d %s: %w", entity, id, status, err)
	}
	return nil
}

// GetExpense and GetIncome are used by the mirror worker to fetch full rows.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT expense_id, date, category, amount_cents, comment FROM expenses WHERE expense_id = ?`, id)
	var (
		e       core.Expense
		dateStr string
	)
	err := row.Scan(&e.ID, &dateStr, &e.Category, &e.Amount.Cents, &e.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	if e.Date, err = core.ParseDate(dateStr); err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT income_id, date, customer, amount_cents, payment_method, comment FROM incomes WHERE income_id = ?`, id)
	var (
		in      core.Income
		dateStr string
		method  string
	)
	err := row.Scan(&in.ID, &dateStr, &in.Customer, &in.Amount.Cents, &method, &in.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, core.ErrNotFound
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %d: %w", id, err)
	}
	if in.Date, err = core.ParseDate(dateStr); err != nil {
		return core.Income{}, fmt.Errorf("income %d: %w", id, err)
	}
	in.Method = core.PaymentMethod(method)
	return in, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (core.Order, error) {
	var (
		o         core.Order
		dateStr   string
		delivered int
	)
	if err := row.Scan(&o.ID, &dateStr, &o.Customer, &o.Item, &o.Price.Cents,
		&o.Advance.Cents, &o.PendingBalance.Cents, &o.Description, &delivered); err != nil {
		return core.Order{}, err
	}
	var err error
	if o.DeliveryDate, err = core.ParseDate(dateStr); err != nil {
		return core.Order{}, err
	}
	o.Delivered = delivered != 0
	return o, nil
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table, column string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, column), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func entityTable(entity string) (table, column string, err error) {
	switch entity {
	case "expense":
		return "expenses", "expense_id", nil
	case "income":
		return "incomes", "income_id", nil
	default:
		return "", "", fmt.Errorf("unknown entity %q", entity)
	}
}

// nullableID maps a zero id to NULL so sqlite assigns the next rowid.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
