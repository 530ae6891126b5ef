// Package memory holds an in-memory backend used as the default store and
// in tests. All operations are guarded by one mutex, which also makes order
// settlement trivially atomic.
package memory

import (
	"context"
	"sort"
	"sync"

	"ovenbook/internal/core"
)

type Store struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]core.Expense
	incomes  map[int64]core.Income
	orders   map[int64]core.Order
}

func New() *Store {
	return &Store{
		nextID:   1,
		expenses: make(map[int64]core.Expense),
		incomes:  make(map[int64]core.Income),
		orders:   make(map[int64]core.Order),
	}
}

func (s *Store) assignID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// bumpID keeps store-assigned ids ahead of any caller-supplied one.
func (s *Store) bumpID(id int64) {
	if id >= s.nextID {
		s.nextID = id + 1
	}
}

func (s *Store) AddExpense(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.assignID()
	s.expenses[e.ID] = e
	return e.ID, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		// Same-day rows tie-break on descending id, like the other backends
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ReplaceExpenses(_ context.Context, items []core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = make(map[int64]core.Expense, len(items))
	for _, e := range items {
		if e.ID == 0 {
			e.ID = s.assignID()
		}
		s.bumpID(e.ID)
		s.expenses[e.ID] = e
	}
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) AddIncome(_ context.Context, in core.Income) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addIncomeLocked(in)
}

func (s *Store) addIncomeLocked(in core.Income) (int64, error) {
	if in.ID == 0 {
		in.ID = s.assignID()
	}
	s.bumpID(in.ID)
	s.incomes[in.ID] = in
	return in.ID, nil
}

func (s *Store) ListIncomes(_ context.Context) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Income, 0, len(s.incomes))
	for _, in := range s.incomes {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ReplaceIncomes(_ context.Context, items []core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes = make(map[int64]core.Income, len(items))
	for _, in := range items {
		if in.ID == 0 {
			in.ID = s.assignID()
		}
		s.bumpID(in.ID)
		s.incomes[in.ID] = in
	}
	return nil
}

func (s *Store) DeleteIncome(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incomes[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) AddOrder(_ context.Context, o core.Order) (int64, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.assignID()
	s.orders[o.ID] = o
	return o.ID, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return core.Order{}, core.ErrNotFound
	}
	return o, nil
}

func (s *Store) ListOrders(_ context.Context) ([]core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeliveryDate.Equal(out[j].DeliveryDate.Time) {
			return out[i].DeliveryDate.After(out[j].DeliveryDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateOrder(_ context.Context, o core.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return core.ErrNotFound
	}
	s.orders[o.ID] = o
	return nil
}

func (s *Store) DeleteOrder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *Store) SetDelivered(_ context.Context, id int64, delivered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return core.ErrNotFound
	}
	o.Delivered = delivered
	s.orders[id] = o
	return nil
}

// SettleOrder holds the lock across the income insert and the order delete,
// so the two records never coexist for an observer.
func (s *Store) SettleOrder(_ context.Context, orderID int64, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return core.ErrNotFound
	}
	if _, err := s.addIncomeLocked(in); err != nil {
		return err
	}
	delete(s.orders, orderID)
	return nil
}
