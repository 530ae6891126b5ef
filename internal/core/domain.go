package core

import (
	"errors"
	"strings"
)

const (
	Cash  PaymentMethod = "Cash"
	UPI   PaymentMethod = "UPI"
	Card  PaymentMethod = "Card"
	Other PaymentMethod = "Other"

	// DefaultPaymentMethod is booked when a settlement does not say how the
	// customer paid.
	DefaultPaymentMethod = UPI
)

type (
	PaymentMethod string

	Expense struct {
		ID       int64
		Date     Date
		Category string
		Amount   Money
		Comment  string
	}

	Income struct {
		ID       int64
		Date     Date
		Customer string
		Amount   Money
		Method   PaymentMethod
		Comment  string
	}

	Order struct {
		ID           int64
		DeliveryDate Date
		Customer     string
		Item         string
		Price        Money
		Advance      Money
		// PendingBalance is derived from price and advance and recomputed on
		// every write; it is never edited on its own.
		PendingBalance Money
		Description    string
		Delivered      bool
	}
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrAlreadyDelivered     = errors.New("order already delivered")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNegativePrice        = errors.New("price cannot be negative")
	ErrNegativeAdvance      = errors.New("advance cannot be negative")
	ErrEmptyCustomer        = errors.New("empty customer")
	ErrEmptyItem            = errors.New("empty item")
	ErrEmptyCategory        = errors.New("empty category")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrUnparsableDate       = errors.New("unparsable date")
)

// IsValid returns true if the payment method is one of the supported kinds.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case Cash, UPI, Card, Other:
		return true
	default:
		return false
	}
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (in Income) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Customer) == "" {
		return ErrEmptyCustomer
	}
	if in.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !in.Method.IsValid() {
		return ErrInvalidPaymentMethod
	}
	return nil
}

func (o Order) Validate() error {
	if err := o.DeliveryDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(o.Customer) == "" {
		return ErrEmptyCustomer
	}
	if strings.TrimSpace(o.Item) == "" {
		return ErrEmptyItem
	}
	if o.Price.Cents < 0 {
		return ErrNegativePrice
	}
	if o.Advance.Cents < 0 {
		return ErrNegativeAdvance
	}
	return nil
}

// PendingAmount computes price minus advance. A negative result means the
// customer overpaid; that is allowed and surfaced as-is.
func (o Order) PendingAmount() Money {
	return Money{Cents: o.Price.Cents - o.Advance.Cents}
}

// SettledIncome builds the income record that replaces a fully paid order.
// The id is carried over from the order and the full price is booked; the
// advance was never booked separately, so nothing is counted twice.
func (o Order) SettledIncome(method PaymentMethod) Income {
	if method == "" {
		method = DefaultPaymentMethod
	}
	return Income{
		ID:       o.ID,
		Date:     o.DeliveryDate,
		Customer: o.Customer,
		Amount:   o.Price,
		Method:   method,
		Comment:  o.Description,
	}
}
