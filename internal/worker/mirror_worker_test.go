package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ovenbook/internal/amqp"
	"ovenbook/internal/core"
	"ovenbook/internal/storage"
)

// fakeMirror records sheet writes in memory.
type fakeMirror struct {
	expenses map[int64]core.Expense
	incomes  map[int64]core.Income
	orders   map[int64]core.Order
	fail     bool
}

var errMirrorDown = errors.New("mirror down")

func newFakeMirror() *fakeMirror {
	return &fakeMirror{
		expenses: map[int64]core.Expense{},
		incomes:  map[int64]core.Income{},
		orders:   map[int64]core.Order{},
	}
}

func (f *fakeMirror) UpsertExpense(ctx context.Context, e core.Expense) error {
	if f.fail {
		return errMirrorDown
	}
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeMirror) DeleteExpense(ctx context.Context, id int64) error {
	if f.fail {
		return errMirrorDown
	}
	if _, ok := f.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeMirror) UpsertIncome(ctx context.Context, in core.Income) error {
	if f.fail {
		return errMirrorDown
	}
	f.incomes[in.ID] = in
	return nil
}

func (f *fakeMirror) DeleteIncome(ctx context.Context, id int64) error {
	if f.fail {
		return errMirrorDown
	}
	if _, ok := f.incomes[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.incomes, id)
	return nil
}

func (f *fakeMirror) UpsertOrder(ctx context.Context, o core.Order) error {
	if f.fail {
		return errMirrorDown
	}
	f.orders[o.ID] = o
	return nil
}

func (f *fakeMirror) DeleteOrder(ctx context.Context, id int64) error {
	if f.fail {
		return errMirrorDown
	}
	if _, ok := f.orders[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func newTestWorker(t *testing.T) (*MirrorWorker, *storage.SQLiteRepository, *fakeMirror) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	mirror := newFakeMirror()
	return NewMirrorWorker(repo, mirror, 10), repo, mirror
}

func TestExpenseUpsertEvent(t *testing.T) {
	w, repo, mirror := newTestWorker(t)
	ctx := context.Background()

	id, err := repo.AddExpense(ctx, core.Expense{Date: core.NewDate(2024, 3, 10), Category: "Flour", Amount: core.Money{Cents: 500}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	msg := amqp.NewLedgerEvent(amqp.EntityExpense, amqp.ActionUpsert, id)
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if _, ok := mirror.expenses[id]; !ok {
		t.Fatalf("expense not mirrored")
	}
	pending, _ := repo.PendingSyncRows(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected row marked synced, %d still pending", len(pending))
	}
}

func TestExpenseDeleteEventToleratesMissingRow(t *testing.T) {
	w, _, _ := newTestWorker(t)

	msg := amqp.NewLedgerEvent(amqp.EntityExpense, amqp.ActionDelete, 42)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("delete of a missing mirror row must not error: %v", err)
	}
}

func TestUpsertEventForDeletedRowIsSkipped(t *testing.T) {
	w, _, mirror := newTestWorker(t)

	// The local row is gone already; the event is stale
	msg := amqp.NewLedgerEvent(amqp.EntityIncome, amqp.ActionUpsert, 42)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("stale upsert must not error: %v", err)
	}
	if len(mirror.incomes) != 0 {
		t.Fatalf("nothing should be mirrored")
	}
}

func TestSettleEventMirrorsIncomeAndDropsOrder(t *testing.T) {
	w, repo, mirror := newTestWorker(t)
	ctx := context.Background()

	id, err := repo.AddOrder(ctx, core.Order{
		DeliveryDate:   core.NewDate(2024, 6, 1),
		Customer:       "Asha",
		Item:           "Cake",
		Price:          core.Money{Cents: 100000},
		Advance:        core.Money{Cents: 20000},
		PendingBalance: core.Money{Cents: 80000},
	})
	if err != nil {
		t.Fatalf("add order: %v", err)
	}

	// The order sits on the sheet from an earlier upsert
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EntityOrder, amqp.ActionUpsert, id)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, ok := mirror.orders[id]; !ok {
		t.Fatalf("order not mirrored")
	}

	o, _ := repo.GetOrder(ctx, id)
	if err := repo.SettleOrder(ctx, id, o.SettledIncome(core.UPI)); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EntityOrder, amqp.ActionSettle, id)); err != nil {
		t.Fatalf("settle event: %v", err)
	}

	if _, ok := mirror.orders[id]; ok {
		t.Fatalf("settled order must leave the sheet")
	}
	in, ok := mirror.incomes[id]
	if !ok {
		t.Fatalf("settled income must reach the sheet")
	}
	if in.Amount.Cents != 100000 {
		t.Fatalf("income books the full price, got %d", in.Amount.Cents)
	}
}

func TestUnknownEntityIsDropped(t *testing.T) {
	w, _, _ := newTestWorker(t)

	msg := amqp.NewLedgerEvent("invoice", amqp.ActionUpsert, 1)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("unknown entity must be dropped, not requeued: %v", err)
	}
}

func TestProcessPendingRows(t *testing.T) {
	w, repo, mirror := newTestWorker(t)
	ctx := context.Background()

	eid, _ := repo.AddExpense(ctx, core.Expense{Date: core.NewDate(2024, 1, 1), Category: "c", Amount: core.Money{Cents: 1}})
	iid, _ := repo.AddIncome(ctx, core.Income{Date: core.NewDate(2024, 1, 2), Customer: "a", Amount: core.Money{Cents: 2}, Method: core.Cash})

	if err := w.ProcessPendingRows(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, ok := mirror.expenses[eid]; !ok {
		t.Fatalf("pending expense not mirrored")
	}
	if _, ok := mirror.incomes[iid]; !ok {
		t.Fatalf("pending income not mirrored")
	}

	pending, _ := repo.PendingSyncRows(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}
}

func TestPendingRowsMarkedErrorOnMirrorFailure(t *testing.T) {
	w, repo, mirror := newTestWorker(t)
	ctx := context.Background()

	if _, err := repo.AddExpense(ctx, core.Expense{Date: core.NewDate(2024, 1, 1), Category: "c", Amount: core.Money{Cents: 1}}); err != nil {
		t.Fatalf("add: %v", err)
	}

	mirror.fail = true
	if err := w.ProcessPendingRows(ctx); err != nil {
		t.Fatalf("sweep logs per-row failures, it must not error: %v", err)
	}

	// The row left the pending state so it does not wedge the sweep
	pending, _ := repo.PendingSyncRows(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("failed row must be marked error, got %d pending", len(pending))
	}
}

func TestStartupSyncCheck(t *testing.T) {
	w, repo, mirror := newTestWorker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.AddExpense(ctx, core.Expense{Date: core.NewDate(2024, 1, i+1), Category: "c", Amount: core.Money{Cents: int64(i + 1)}}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if len(mirror.expenses) != 3 {
		t.Fatalf("expected 3 mirrored expenses, got %d", len(mirror.expenses))
	}
}
