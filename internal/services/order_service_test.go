package services

import (
	"context"
	"errors"
	"testing"

	"ovenbook/internal/core"
	"ovenbook/internal/store/memory"
)

func newOrderService() (*OrderService, *memory.Store) {
	st := memory.New()
	return NewOrderService(st, nil), st
}

func sampleParams() OrderParams {
	return OrderParams{
		DeliveryDate: core.NewDate(2024, 6, 1),
		Customer:     "Asha",
		Item:         "Chocolate cake",
		Price:        core.Money{Cents: 100000},
		Advance:      core.Money{Cents: 20000},
		Description:  "Two tiers",
	}
}

func TestCreateOrderComputesPending(t *testing.T) {
	svc, _ := newOrderService()

	o, err := svc.CreateOrder(context.Background(), sampleParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if o.PendingBalance.Cents != 80000 {
		t.Fatalf("pending expected 80000, got %d", o.PendingBalance.Cents)
	}
	if o.Delivered {
		t.Fatalf("new order must start open")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newOrderService()
	ctx := context.Background()

	p := sampleParams()
	p.Customer = " "
	if _, err := svc.CreateOrder(ctx, p); !errors.Is(err, core.ErrEmptyCustomer) {
		t.Fatalf("expected ErrEmptyCustomer, got %v", err)
	}

	p = sampleParams()
	p.Price = core.Money{Cents: -1}
	if _, err := svc.CreateOrder(ctx, p); !errors.Is(err, core.ErrNegativePrice) {
		t.Fatalf("expected ErrNegativePrice, got %v", err)
	}
}

func TestUpdateOrderRecomputesPending(t *testing.T) {
	svc, _ := newOrderService()
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, sampleParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p := sampleParams()
	p.Advance = core.Money{Cents: 50000}
	updated, err := svc.UpdateOrder(ctx, o.ID, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PendingBalance.Cents != 50000 {
		t.Fatalf("pending expected 50000, got %d", updated.PendingBalance.Cents)
	}

	if _, err := svc.UpdateOrder(ctx, 999, sampleParams()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateOrderKeepsDeliveredFlag(t *testing.T) {
	svc, _ := newOrderService()
	ctx := context.Background()

	o, _ := svc.CreateOrder(ctx, sampleParams())
	if err := svc.MarkDelivered(ctx, o.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	updated, err := svc.UpdateOrder(ctx, o.ID, sampleParams())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Delivered {
		t.Fatalf("update must not reset the delivered flag")
	}
}

func TestMarkDeliveredOnlyOnce(t *testing.T) {
	svc, _ := newOrderService()
	ctx := context.Background()

	o, _ := svc.CreateOrder(ctx, sampleParams())
	if err := svc.MarkDelivered(ctx, o.ID); err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	if err := svc.MarkDelivered(ctx, o.ID); !errors.Is(err, core.ErrAlreadyDelivered) {
		t.Fatalf("expected ErrAlreadyDelivered, got %v", err)
	}
	if err := svc.MarkDelivered(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettleOrder(t *testing.T) {
	svc, st := newOrderService()
	ctx := context.Background()

	o, _ := svc.CreateOrder(ctx, sampleParams())

	in, err := svc.SettleOrder(ctx, o.ID, core.Cash)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if in.ID != o.ID {
		t.Fatalf("income must keep the order id, got %d", in.ID)
	}
	if in.Amount.Cents != 100000 {
		t.Fatalf("income books the full price, got %d", in.Amount.Cents)
	}
	if in.Method != core.Cash {
		t.Fatalf("expected Cash, got %v", in.Method)
	}

	if _, err := st.GetOrder(ctx, o.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("order must be gone after settlement, got %v", err)
	}

	// A retry finds nothing to settle
	if _, err := svc.SettleOrder(ctx, o.ID, core.Cash); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on retry, got %v", err)
	}
}

func TestSettleOrderDefaultsMethod(t *testing.T) {
	svc, _ := newOrderService()
	ctx := context.Background()

	o, _ := svc.CreateOrder(ctx, sampleParams())
	in, err := svc.SettleOrder(ctx, o.ID, "")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if in.Method != core.DefaultPaymentMethod {
		t.Fatalf("expected %v, got %v", core.DefaultPaymentMethod, in.Method)
	}
}

func TestSettleOrderRejectsUnknownMethod(t *testing.T) {
	svc, _ := newOrderService()
	ctx := context.Background()

	o, _ := svc.CreateOrder(ctx, sampleParams())
	if _, err := svc.SettleOrder(ctx, o.ID, "Barter"); !errors.Is(err, core.ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
}

// failingOrderStore wraps the memory store and fails SettleOrder, to check
// that a failed settlement leaves the order in place.
type failingOrderStore struct {
	*memory.Store
}

var errStoreDown = errors.New("store down")

func (f failingOrderStore) SettleOrder(ctx context.Context, orderID int64, in core.Income) error {
	return errStoreDown
}

func TestSettleOrderFailureLeavesOrder(t *testing.T) {
	st := memory.New()
	svc := NewOrderService(failingOrderStore{st}, nil)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, sampleParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.SettleOrder(ctx, o.ID, core.UPI); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}

	if _, err := st.GetOrder(ctx, o.ID); err != nil {
		t.Fatalf("order must survive a failed settlement: %v", err)
	}
	incomes, _ := st.ListIncomes(ctx)
	if len(incomes) != 0 {
		t.Fatalf("no income must exist after a failed settlement, got %d", len(incomes))
	}
}

func TestCancelOrder(t *testing.T) {
	svc, st := newOrderService()
	ctx := context.Background()

	o, _ := svc.CreateOrder(ctx, sampleParams())
	if err := svc.MarkDelivered(ctx, o.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	// Delivered orders can still be cancelled
	if err := svc.CancelOrder(ctx, o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := st.GetOrder(ctx, o.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("order must be gone, got %v", err)
	}
	incomes, _ := st.ListIncomes(ctx)
	if len(incomes) != 0 {
		t.Fatalf("cancel must leave no financial trace, got %d incomes", len(incomes))
	}

	if err := svc.CancelOrder(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
