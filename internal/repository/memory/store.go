// Package memory is an in-process repository.Store. It backs the
// storage.driver=memory mode and the service tests.
//
// Transactions are serialised on one mutex and run against a copy of the
// state that replaces the live state only when fn succeeds. A function
// passed to WithinTx must use the tx it is given, never the Store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

type seqKey struct {
	tenant uuid.UUID
	day    string
}

// state holds every record in insertion order.
type state struct {
	tenants   []models.Tenant
	branches  []models.Branch
	tables    []models.Table
	products  []models.Product
	orders    []models.Order
	tickets   []models.KitchenTicket
	bookings  []models.Booking
	invoices  []models.Invoice
	payments  []models.Payment
	sequences map[seqKey]int
}

func newState() *state {
	return &state{sequences: make(map[seqKey]int)}
}

func (st *state) clone() *state {
	c := &state{
		tenants:   append([]models.Tenant(nil), st.tenants...),
		branches:  append([]models.Branch(nil), st.branches...),
		tables:    append([]models.Table(nil), st.tables...),
		products:  append([]models.Product(nil), st.products...),
		orders:    make([]models.Order, len(st.orders)),
		tickets:   append([]models.KitchenTicket(nil), st.tickets...),
		bookings:  append([]models.Booking(nil), st.bookings...),
		invoices:  append([]models.Invoice(nil), st.invoices...),
		payments:  append([]models.Payment(nil), st.payments...),
		sequences: make(map[seqKey]int, len(st.sequences)),
	}
	for i, o := range st.orders {
		o.Items = append([]models.OrderItem(nil), o.Items...)
		c.orders[i] = o
	}
	for k, v := range st.sequences {
		c.sequences[k] = v
	}
	return c
}

// view is the repository.Tx implementation. A nil st means "the live
// state, under the store mutex".
type view struct {
	s  *Store
	st *state
}

func (v *view) acquire() (*state, func()) {
	if v.st != nil {
		return v.st, func() {}
	}
	v.s.mu.Lock()
	return v.s.st, v.s.mu.Unlock
}

// LockKey is a no-op: transactions already run one at a time.
func (v *view) LockKey(ctx context.Context, key string) error {
	return ctx.Err()
}

type Store struct {
	view
	mu sync.Mutex
	st *state
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	s := &Store{st: newState()}
	s.view = view{s: s}
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&view{s: s, st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Seeding. The catalog is read-only through repository.Catalog.

func (s *Store) AddTenant(t models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.tenants = append(s.st.tenants, t)
}

func (s *Store) AddBranch(b models.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.branches = append(s.st.branches, b)
}

func (s *Store) AddTable(t models.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.tables = append(s.st.tables, t)
}

func (s *Store) AddProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products = append(s.st.products, p)
}

// Counts reports how many rows each table holds.
type Counts struct {
	Orders   int
	Items    int
	Tickets  int
	Bookings int
	Invoices int
	Payments int
}

func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Counts{
		Orders:   len(s.st.orders),
		Tickets:  len(s.st.tickets),
		Bookings: len(s.st.bookings),
		Invoices: len(s.st.invoices),
		Payments: len(s.st.payments),
	}
	for _, o := range s.st.orders {
		c.Items += len(o.Items)
	}
	return c
}

// TicketsForOrder returns every ticket stored for an order.
func (s *Store) TicketsForOrder(orderID uuid.UUID) []models.KitchenTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.KitchenTicket
	for _, t := range s.st.tickets {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out
}

// SetOrderCreatedAt backdates an order; analytics tests use it.
func (s *Store) SetOrderCreatedAt(orderID uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.orders {
		if s.st.orders[i].ID == orderID {
			s.st.orders[i].CreatedAt = at
		}
	}
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]T(nil), all[offset:end]...)
}
