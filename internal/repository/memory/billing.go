package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

func (st *state) invoiceIndex(id uuid.UUID) int {
	for i := range st.invoices {
		if st.invoices[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) InsertInvoice(ctx context.Context, inv *models.Invoice) error {
	st, release := v.acquire()
	defer release()
	for _, existing := range st.invoices {
		if existing.TenantID == inv.TenantID && existing.InvoiceNumber == inv.InvoiceNumber {
			return &repository.DuplicateError{Constraint: repository.ConstraintInvoiceNumber}
		}
		if existing.OrderID == inv.OrderID && existing.Status != models.InvoiceCancelled &&
			inv.Status != models.InvoiceCancelled {
			return &repository.DuplicateError{Constraint: repository.ConstraintActiveInvoice}
		}
	}
	st.invoices = append(st.invoices, *inv)
	return nil
}

func (v *view) GetInvoice(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Invoice, error) {
	st, release := v.acquire()
	defer release()
	i := st.invoiceIndex(id)
	if i < 0 || st.invoices[i].TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	inv := st.invoices[i]
	return &inv, nil
}

func (v *view) FindActiveInvoiceForOrder(ctx context.Context, orderID, tenantID uuid.UUID) (*models.Invoice, error) {
	st, release := v.acquire()
	defer release()
	for _, inv := range st.invoices {
		if inv.OrderID == orderID && inv.TenantID == tenantID && inv.Status != models.InvoiceCancelled {
			return &inv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	st, release := v.acquire()
	defer release()
	i := st.invoiceIndex(inv.ID)
	if i < 0 {
		return repository.ErrNotFound
	}
	row := &st.invoices[i]
	row.Status = inv.Status
	row.PaidAt = inv.PaidAt
	row.UpdatedAt = inv.UpdatedAt
	return nil
}

func (v *view) NextInvoiceSequence(ctx context.Context, tenantID uuid.UUID, day time.Time) (int, error) {
	st, release := v.acquire()
	defer release()
	k := seqKey{tenant: tenantID, day: day.UTC().Format("2006-01-02")}
	st.sequences[k]++
	return st.sequences[k], nil
}

func (v *view) ListInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.Invoice, int, error) {
	st, release := v.acquire()
	defer release()

	var matched []models.Invoice
	for i := len(st.invoices) - 1; i >= 0; i-- {
		if st.invoices[i].TenantID == tenantID {
			matched = append(matched, st.invoices[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, limit, offset), len(matched), nil
}

func (v *view) InvoiceStatusTotals(ctx context.Context, tenantID uuid.UUID) ([]repository.StatusTotal, error) {
	st, release := v.acquire()
	defer release()

	byStatus := make(map[string]*repository.StatusTotal)
	for _, inv := range st.invoices {
		if inv.TenantID == tenantID {
			acc(byStatus, string(inv.Status), inv.Amount)
		}
	}
	return sortedTotals(byStatus), nil
}

func (v *view) InsertPayment(ctx context.Context, p *models.Payment) error {
	st, release := v.acquire()
	defer release()
	if p.IdempotencyKey != "" {
		for _, existing := range st.payments {
			if existing.InvoiceID == p.InvoiceID && existing.IdempotencyKey == p.IdempotencyKey {
				return &repository.DuplicateError{Constraint: repository.ConstraintPaymentIdempotency}
			}
		}
	}
	st.payments = append(st.payments, *p)
	return nil
}

func (v *view) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]models.Payment, error) {
	st, release := v.acquire()
	defer release()

	var out []models.Payment
	for i := len(st.payments) - 1; i >= 0; i-- {
		if st.payments[i].InvoiceID == invoiceID {
			out = append(out, st.payments[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v *view) FindPaymentByIdempotencyKey(ctx context.Context, invoiceID uuid.UUID, key string) (*models.Payment, error) {
	st, release := v.acquire()
	defer release()
	for _, p := range st.payments {
		if p.InvoiceID == invoiceID && p.IdempotencyKey == key {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) SumCompletedPayments(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	st, release := v.acquire()
	defer release()
	sum := decimal.Zero
	for _, p := range st.payments {
		if p.TenantID == tenantID && p.Status == models.PaymentCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}
