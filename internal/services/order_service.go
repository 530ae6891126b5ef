package services

import (
	"context"
	"fmt"
	"log/slog"

	"ovenbook/internal/amqp"
	"ovenbook/internal/core"
	"ovenbook/internal/store"
)

// OrderService owns the order lifecycle: open -> delivered, terminated by
// settlement into an income record or by cancellation.
type OrderService struct {
	orders     store.OrderStore
	amqpClient *amqp.Client
}

func NewOrderService(orders store.OrderStore, amqpClient *amqp.Client) *OrderService {
	return &OrderService{
		orders:     orders,
		amqpClient: amqpClient,
	}
}

// OrderParams carries the mutable fields of an order. The pending balance is
// not among them: it is always recomputed from price and advance.
type OrderParams struct {
	DeliveryDate core.Date
	Customer     string
	Item         string
	Price        core.Money
	Advance      core.Money
	Description  string
}

func (p OrderParams) toOrder() core.Order {
	o := core.Order{
		DeliveryDate: p.DeliveryDate,
		Customer:     p.Customer,
		Item:         p.Item,
		Price:        p.Price,
		Advance:      p.Advance,
		Description:  p.Description,
	}
	o.PendingBalance = o.PendingAmount()
	return o
}

// CreateOrder validates the input, computes the pending balance and persists
// a new open order.
func (s *OrderService) CreateOrder(ctx context.Context, p OrderParams) (core.Order, error) {
	o := p.toOrder()
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}

	id, err := s.orders.AddOrder(ctx, o)
	if err != nil {
		return core.Order{}, fmt.Errorf("create order: %w", err)
	}
	o.ID = id

	s.publish(ctx, amqp.EntityOrder, amqp.ActionUpsert, id)
	return o, nil
}

// UpdateOrder replaces the mutable fields of an existing order and
// recomputes the pending balance. The delivered flag is left as-is.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, p OrderParams) (core.Order, error) {
	existing, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return core.Order{}, fmt.Errorf("update order %d: %w", id, err)
	}

	o := p.toOrder()
	o.ID = id
	o.Delivered = existing.Delivered
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}

	if err := s.orders.UpdateOrder(ctx, o); err != nil {
		return core.Order{}, fmt.Errorf("update order %d: %w", id, err)
	}

	s.publish(ctx, amqp.EntityOrder, amqp.ActionUpsert, id)
	return o, nil
}

// MarkDelivered flips the delivered flag. The flag flips exactly once:
// marking an already-delivered order fails with core.ErrAlreadyDelivered so
// a stale view cannot silently re-apply the action.
func (s *OrderService) MarkDelivered(ctx context.Context, id int64) error {
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("mark delivered %d: %w", id, err)
	}
	if o.Delivered {
		return core.ErrAlreadyDelivered
	}

	if err := s.orders.SetDelivered(ctx, id, true); err != nil {
		return fmt.Errorf("mark delivered %d: %w", id, err)
	}

	s.publish(ctx, amqp.EntityOrder, amqp.ActionUpsert, id)
	return nil
}

// CancelOrder deletes the order unconditionally, delivered or not. A
// cancelled order leaves no financial trace.
func (s *OrderService) CancelOrder(ctx context.Context, id int64) error {
	if err := s.orders.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}

	s.publish(ctx, amqp.EntityOrder, amqp.ActionDelete, id)
	return nil
}

// SettleOrder records a fully paid order as income and retires the order.
// The income keeps the order's id, books the full price and carries the
// delivery date and description; the store performs insert+delete as one
// atomic step, so a failure leaves the order untouched and a retry is safe.
// An empty payment method defaults to UPI.
func (s *OrderService) SettleOrder(ctx context.Context, id int64, method core.PaymentMethod) (core.Income, error) {
	if method != "" && !method.IsValid() {
		return core.Income{}, core.ErrInvalidPaymentMethod
	}

	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return core.Income{}, fmt.Errorf("settle order %d: %w", id, err)
	}

	in := o.SettledIncome(method)
	if err := s.orders.SettleOrder(ctx, id, in); err != nil {
		return core.Income{}, fmt.Errorf("settle order %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Order settled",
		"id", id,
		"customer", in.Customer,
		"amount_cents", in.Amount.Cents,
		"method", in.Method.String())

	s.publish(ctx, amqp.EntityOrder, amqp.ActionSettle, id)
	return in, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]core.Order, error) {
	return s.orders.ListOrders(ctx)
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

func (s *OrderService) publish(ctx context.Context, entity, action string, id int64) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishLedgerEvent(ctx, entity, action, id); err != nil {
		// The row is already safe locally; the worker's pending scan
		// catches up on lost messages.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", entity, "action", action, "id", id, "error", err)
	}
}
