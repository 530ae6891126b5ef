// Package worker mirrors the local SQLite ledgers into the shared Google
// Spreadsheet. SQLite is the source of truth; the sheet is a read-only copy
// for whoever wants the numbers without the app.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ovenbook/internal/amqp"
	"ovenbook/internal/core"
	"ovenbook/internal/storage"
)

// Mirror is the sheet-side surface the worker writes to.
type Mirror interface {
	UpsertExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
	UpsertIncome(ctx context.Context, in core.Income) error
	DeleteIncome(ctx context.Context, id int64) error
	UpsertOrder(ctx context.Context, o core.Order) error
	DeleteOrder(ctx context.Context, id int64) error
}

// MirrorWorker applies ledger events to the sheet and sweeps up rows whose
// events were lost.
type MirrorWorker struct {
	storage   *storage.SQLiteRepository
	mirror    Mirror
	batchSize int
}

func NewMirrorWorker(storage *storage.SQLiteRepository, mirror Mirror, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes a single event from the queue.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"entity", msg.Entity,
		"action", msg.Action,
		"id", msg.ID)

	switch msg.Entity {
	case amqp.EntityExpense:
		return w.handleExpenseEvent(ctx, msg)
	case amqp.EntityIncome:
		return w.handleIncomeEvent(ctx, msg)
	case amqp.EntityOrder:
		return w.handleOrderEvent(ctx, msg)
	default:
		// Drop unknown entities instead of requeueing them forever
		slog.WarnContext(ctx, "Ignoring event for unknown entity", "entity", msg.Entity)
		return nil
	}
}

func (w *MirrorWorker) handleExpenseEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg.Action == amqp.ActionDelete {
		if err := w.mirror.DeleteExpense(ctx, msg.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("delete expense %d from mirror: %w", msg.ID, err)
		}
		return nil
	}

	e, err := w.storage.GetExpense(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Row was deleted after the event was published; nothing to mirror
		slog.InfoContext(ctx, "Expense gone before mirroring", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense %d: %w", msg.ID, err)
	}

	return w.mirrorExpense(ctx, e)
}

func (w *MirrorWorker) handleIncomeEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg.Action == amqp.ActionDelete {
		if err := w.mirror.DeleteIncome(ctx, msg.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("delete income %d from mirror: %w", msg.ID, err)
		}
		return nil
	}

	in, err := w.storage.GetIncome(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Income gone before mirroring", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get income %d: %w", msg.ID, err)
	}

	return w.mirrorIncome(ctx, in)
}

func (w *MirrorWorker) handleOrderEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	switch msg.Action {
	case amqp.ActionDelete:
		if err := w.mirror.DeleteOrder(ctx, msg.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("delete order %d from mirror: %w", msg.ID, err)
		}
		return nil

	case amqp.ActionSettle:
		// Settlement turned the order into an income row with the same id:
		// mirror the income, then drop the order row from the sheet.
		in, err := w.storage.GetIncome(ctx, msg.ID)
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Settled income gone before mirroring", "id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get settled income %d: %w", msg.ID, err)
		}
		if err := w.mirrorIncome(ctx, in); err != nil {
			return err
		}
		if err := w.mirror.DeleteOrder(ctx, msg.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("delete settled order %d from mirror: %w", msg.ID, err)
		}
		return nil

	default:
		o, err := w.storage.GetOrder(ctx, msg.ID)
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Order gone before mirroring", "id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get order %d: %w", msg.ID, err)
		}
		if err := w.mirror.UpsertOrder(ctx, o); err != nil {
			return fmt.Errorf("mirror order %d: %w", msg.ID, err)
		}
		return nil
	}
}

// ProcessPendingRows sweeps rows still marked pending. This is the backup
// path for lost or unpublished events.
func (w *MirrorWorker) ProcessPendingRows(ctx context.Context) error {
	pending, err := w.storage.PendingSyncRows(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending rows", "count", len(pending))

	for _, p := range pending {
		if err := w.processPendingRow(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending row",
				"entity", p.Entity, "id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains a larger pending backlog once, recovering from
// worker downtime before the event loop starts.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSyncRows(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending rows for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending rows found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending rows on startup, processing...", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		if err := w.processPendingRow(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror row during startup",
				"entity", p.Entity, "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

func (w *MirrorWorker) processPendingRow(ctx context.Context, p storage.PendingRow) error {
	switch p.Entity {
	case "expense":
		e, err := w.storage.GetExpense(ctx, p.ID)
		if err != nil {
			w.markError(ctx, p.Entity, p.ID)
			return fmt.Errorf("get expense %d: %w", p.ID, err)
		}
		return w.mirrorExpense(ctx, e)
	case "income":
		in, err := w.storage.GetIncome(ctx, p.ID)
		if err != nil {
			w.markError(ctx, p.Entity, p.ID)
			return fmt.Errorf("get income %d: %w", p.ID, err)
		}
		return w.mirrorIncome(ctx, in)
	default:
		return fmt.Errorf("unknown pending entity %q", p.Entity)
	}
}

func (w *MirrorWorker) mirrorExpense(ctx context.Context, e core.Expense) error {
	if err := w.mirror.UpsertExpense(ctx, e); err != nil {
		w.markError(ctx, "expense", e.ID)
		return fmt.Errorf("mirror expense %d: %w", e.ID, err)
	}
	if err := w.storage.MarkSynced(ctx, "expense", e.ID); err != nil {
		// The mirror write worked; only the bookkeeping failed
		slog.ErrorContext(ctx, "Failed to mark expense as synced", "id", e.ID, "error", err)
	}
	slog.InfoContext(ctx, "Mirrored expense", "id", e.ID, "amount_cents", e.Amount.Cents)
	return nil
}

func (w *MirrorWorker) mirrorIncome(ctx context.Context, in core.Income) error {
	if err := w.mirror.UpsertIncome(ctx, in); err != nil {
		w.markError(ctx, "income", in.ID)
		return fmt.Errorf("mirror income %d: %w", in.ID, err)
	}
	if err := w.storage.MarkSynced(ctx, "income", in.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark income as synced", "id", in.ID, "error", err)
	}
	slog.InfoContext(ctx, "Mirrored income", "id", in.ID, "amount_cents", in.Amount.Cents)
	return nil
}

func (w *MirrorWorker) markError(ctx context.Context, entity string, id int64) {
	if err := w.storage.MarkSyncError(ctx, entity, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "entity", entity, "id", id, "error", err)
	}
}
