// Package repository declares the storage contract shared by the core
// services. Implementations live in the postgres and memory subpackages.
//
// Services never hold a process-wide handle: a Store is constructed at
// startup and passed to each service constructor. Every mutating
// operation runs inside Store.WithinTx; either all of its writes become
// visible or none do.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate matches any *DuplicateError via errors.Is.
var ErrDuplicate = errors.New("duplicate key")

// Unique constraints the services react to.
const (
	ConstraintInvoiceNumber      = "invoices_tenant_number_key"
	ConstraintActiveInvoice      = "invoices_active_order_key"
	ConstraintPaymentIdempotency = "payments_invoice_idempotency_key"
	ConstraintTicketOrder        = "kitchen_tickets_order_key"
)

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate key violates %s", e.Constraint)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// IsDuplicate reports whether err is a violation of the named constraint.
func IsDuplicate(err error, constraint string) bool {
	var de *DuplicateError
	return errors.As(err, &de) && de.Constraint == constraint
}

// StatusTotal is a count and money sum for one status value.
type StatusTotal struct {
	Status string
	Count  int
	Amount decimal.Decimal
}

// OrderTotals sums COMPLETED orders over a time window.
type OrderTotals struct {
	Count    int
	Total    decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
}

// Catalog is the read-only view of tenants, branches, tables and products.
type Catalog interface {
	FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindBranch(ctx context.Context, id, tenantID uuid.UUID) (*models.Branch, error)
	// FindProducts returns the subset of ids that exist for the tenant.
	FindProducts(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Product, error)
	FindTable(ctx context.Context, id uuid.UUID) (*models.Table, error)
	ListTables(ctx context.Context, branchID uuid.UUID) ([]models.Table, error)
}

type Orders interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
	// GetOrder loads the order with its items in position order. With
	// forUpdate the order row stays locked until the transaction ends.
	GetOrder(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Order, error)
	// UpdateOrder persists status, total, completed_at and updated_at.
	UpdateOrder(ctx context.Context, o *models.Order) error
	DeleteOrderItem(ctx context.Context, orderID, itemID uuid.UUID) error
	// OrderStatusTotals groups a tenant's orders by status. A nil branchID
	// covers every branch.
	OrderStatusTotals(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) ([]StatusTotal, error)
	// CompletedOrderTotals covers orders created in [from, to).
	CompletedOrderTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (OrderTotals, error)
}

type Tickets interface {
	InsertTicket(ctx context.Context, t *models.KitchenTicket) error
	GetTicket(ctx context.Context, id uuid.UUID) (*models.KitchenTicket, error)
	// ListTicketsByBranch returns one page, newest first, and the total count.
	ListTicketsByBranch(ctx context.Context, branchID, tenantID uuid.UUID, limit, offset int) ([]models.KitchenTicket, int, error)
	MarkTicketQueued(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkTicketPrinted(ctx context.Context, id uuid.UUID, at time.Time) error
	// ListUndispatchedTickets returns PENDING tickets created before cutoff, oldest first.
	ListUndispatchedTickets(ctx context.Context, cutoff time.Time, limit int) ([]models.KitchenTicket, error)
}

type Bookings interface {
	InsertBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Booking, error)
	// UpdateBooking persists status, notes and updated_at.
	UpdateBooking(ctx context.Context, b *models.Booking) error
	// ListTableHolds returns PENDING/CONFIRMED bookings on the given tables
	// that end after endingAfter. It only prunes candidates; overlap is
	// decided by models.Overlaps.
	ListTableHolds(ctx context.Context, tableIDs []uuid.UUID, endingAfter time.Time) ([]models.Booking, error)
	ListBookingsByBranch(ctx context.Context, branchID, tenantID uuid.UUID) ([]models.Booking, error)
}

type Invoices interface {
	InsertInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Invoice, error)
	// FindActiveInvoiceForOrder returns the non-cancelled invoice of an order.
	FindActiveInvoiceForOrder(ctx context.Context, orderID, tenantID uuid.UUID) (*models.Invoice, error)
	// UpdateInvoice persists status, paid_at and updated_at.
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	// NextInvoiceSequence atomically increments and returns the tenant's
	// counter for the given UTC day, starting at 1.
	NextInvoiceSequence(ctx context.Context, tenantID uuid.UUID, day time.Time) (int, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.Invoice, int, error)
	InvoiceStatusTotals(ctx context.Context, tenantID uuid.UUID) ([]StatusTotal, error)
}

type Payments interface {
	InsertPayment(ctx context.Context, p *models.Payment) error
	// ListPayments returns an invoice's payments, newest first.
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]models.Payment, error)
	FindPaymentByIdempotencyKey(ctx context.Context, invoiceID uuid.UUID, key string) (*models.Payment, error)
	SumCompletedPayments(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}

// Tx is everything a service can do against storage. Outside WithinTx
// each call stands alone.
type Tx interface {
	Catalog
	Orders
	Tickets
	Bookings
	Invoices
	Payments

	// LockKey serialises transactions that name the same key until the
	// enclosing transaction ends.
	LockKey(ctx context.Context, key string) error
}

type Store interface {
	Tx

	// WithinTx runs fn in one transaction, committing when fn returns nil.
	// Implementations may retry fn on serialization failures, so fn must
	// not have side effects outside tx.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
