package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/database"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

func (r *queries) InsertInvoice(ctx context.Context, inv *models.Invoice) error {
	_, err := r.q.Exec(ctx, database.InsertInvoiceSQL,
		inv.ID, inv.OrderID, inv.TenantID, inv.InvoiceNumber, inv.Amount, inv.Tax, inv.Discount,
		string(inv.Status), inv.DueDate, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", mapError(err))
	}
	return nil
}

func scanInvoice(row scanner) (*models.Invoice, error) {
	var (
		inv    models.Invoice
		status string
	)
	if err := row.Scan(&inv.ID, &inv.OrderID, &inv.TenantID, &inv.InvoiceNumber, &inv.Amount, &inv.Tax,
		&inv.Discount, &status, &inv.DueDate, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatus(status)
	return &inv, nil
}

func (r *queries) GetInvoice(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Invoice, error) {
	sql := database.GetInvoiceSQL
	if forUpdate {
		sql = database.GetInvoiceForUpdateSQL
	}
	inv, err := scanInvoice(r.q.QueryRow(ctx, sql, id, tenantID))
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

func (r *queries) FindActiveInvoiceForOrder(ctx context.Context, orderID, tenantID uuid.UUID) (*models.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, database.GetActiveInvoiceForOrderSQL, orderID, tenantID))
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

func (r *queries) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	return expectOne(r.q.Exec(ctx, database.UpdateInvoiceSQL, inv.ID, string(inv.Status), inv.PaidAt, inv.UpdatedAt))
}

func (r *queries) NextInvoiceSequence(ctx context.Context, tenantID uuid.UUID, day time.Time) (int, error) {
	var seq int
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if err := r.q.QueryRow(ctx, database.NextInvoiceSequenceSQL, tenantID, d).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to advance invoice sequence: %w", mapError(err))
	}
	return seq, nil
}

func (r *queries) ListInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.Invoice, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, database.CountInvoicesSQL, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	rows, err := r.q.Query(ctx, database.ListInvoicesSQL, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, rows.Err()
}

func (r *queries) InvoiceStatusTotals(ctx context.Context, tenantID uuid.UUID) ([]repository.StatusTotal, error) {
	return r.statusTotals(ctx, database.InvoiceStatusTotalsSQL, tenantID)
}

func (r *queries) InsertPayment(ctx context.Context, p *models.Payment) error {
	var key *string
	if p.IdempotencyKey != "" {
		key = &p.IdempotencyKey
	}
	_, err := r.q.Exec(ctx, database.InsertPaymentSQL,
		p.ID, p.InvoiceID, p.TenantID, string(p.Method), p.Amount, string(p.Status), p.Reference, key, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", mapError(err))
	}
	return nil
}

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		p              models.Payment
		method, status string
	)
	if err := row.Scan(&p.ID, &p.InvoiceID, &p.TenantID, &method, &p.Amount, &status, &p.Reference,
		&p.IdempotencyKey, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Method = models.PaymentMethod(method)
	p.Status = models.PaymentStatus(status)
	return &p, nil
}

func (r *queries) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]models.Payment, error) {
	rows, err := r.q.Query(ctx, database.ListPaymentsSQL, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *queries) FindPaymentByIdempotencyKey(ctx context.Context, invoiceID uuid.UUID, key string) (*models.Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx, database.GetPaymentByIdempotencyKeySQL, invoiceID, key))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *queries) SumCompletedPayments(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, database.SumCompletedPaymentsSQL, tenantID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return sum, nil
}
