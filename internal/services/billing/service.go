// Package billing issues invoices for orders and reconciles payments
// against them. The sum of COMPLETED payments of an invoice never exceeds
// its amount.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/metrics"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
	"cafe-backoffice/internal/validation"
)

const (
	defaultDueIn     = 30 * 24 * time.Hour
	maxNumberRetries = 3

	defaultPageLimit = 10
	maxPageLimit     = 100
)

type Service struct {
	store  repository.Store
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store repository.Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// CreateInvoice issues a DRAFT invoice for an order. An order has at most
// one invoice that is not CANCELLED.
//
// Numbers come from the per-tenant daily counter. The counter is advanced
// outside the insert transaction so that a collision with an existing
// number moves on to the next value when retried; a failed insert leaves a
// gap.
func (s *Service) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*models.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.store.FindTenant(ctx, req.TenantID); err != nil {
		return nil, notFoundOr(err, "tenant %s not found", req.TenantID)
	}
	if _, err := s.store.GetOrder(ctx, req.OrderID, req.TenantID, false); err != nil {
		return nil, notFoundOr(err, "order %s not found", req.OrderID)
	}
	if err := s.checkNoActiveInvoice(ctx, s.store, req.OrderID, req.TenantID); err != nil {
		return nil, err
	}

	amount := req.Amount.Add(req.Tax).Sub(req.Discount)
	if !amount.IsPositive() {
		return nil, apperr.InvalidInput("invoice amount must be positive")
	}

	now := s.now().UTC()
	inv := &models.Invoice{
		ID:        uuid.New(),
		OrderID:   req.OrderID,
		TenantID:  req.TenantID,
		Amount:    amount,
		Tax:       req.Tax,
		Discount:  req.Discount,
		Status:    models.InvoiceDraft,
		DueDate:   now.Add(defaultDueIn),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.DueDate != nil {
		inv.DueDate = req.DueDate.UTC()
	}

	for attempt := 0; ; attempt++ {
		seq, err := s.store.NextInvoiceSequence(ctx, inv.TenantID, now)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("failed to allocate invoice number: %w", err))
		}
		inv.InvoiceNumber = models.FormatInvoiceNumber(now, seq)

		err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
			if err := s.checkNoActiveInvoice(ctx, tx, inv.OrderID, inv.TenantID); err != nil {
				return err
			}
			return tx.InsertInvoice(ctx, inv)
		})
		switch {
		case err == nil:
			s.logger.Info("invoice_created", "Invoice created", logger.RequestID(ctx), map[string]interface{}{
				"invoice_id":     inv.ID.String(),
				"invoice_number": inv.InvoiceNumber,
				"order_id":       inv.OrderID.String(),
				"amount":         inv.Amount.String(),
			})
			return inv, nil
		case repository.IsDuplicate(err, repository.ConstraintInvoiceNumber) && attempt < maxNumberRetries:
			metrics.InvoiceNumberRetries.Inc()
			s.logger.Warn("invoice_number_taken", "Invoice number already used, retrying", logger.RequestID(ctx),
				map[string]interface{}{"invoice_number": inv.InvoiceNumber, "attempt": attempt + 1})
		case repository.IsDuplicate(err, repository.ConstraintActiveInvoice):
			return nil, apperr.Conflict("invoice already exists for order %s", inv.OrderID)
		default:
			return nil, apperr.Wrap(err)
		}
	}
}

func (s *Service) checkNoActiveInvoice(ctx context.Context, q repository.Invoices, orderID, tenantID uuid.UUID) error {
	_, err := q.FindActiveInvoiceForOrder(ctx, orderID, tenantID)
	switch {
	case err == nil:
		return apperr.Conflict("invoice already exists for order %s", orderID)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check existing invoice: %w", err)
	}
}

// ProcessPayment records a COMPLETED payment. A payment larger than the
// remaining due is rejected outright. Paying the invoice in full marks it
// PAID; a partial payment moves DRAFT or SENT to VIEWED.
func (s *Service) ProcessPayment(ctx context.Context, invoiceID, tenantID uuid.UUID, req *PaymentRequest) (*PaymentResult, error) {
	result, err := s.processPayment(ctx, invoiceID, tenantID, req)
	switch {
	case err == nil && result.Replayed:
		metrics.PaymentsProcessed.WithLabelValues(metrics.ResultReplayed).Inc()
	case err == nil:
		metrics.PaymentsProcessed.WithLabelValues(metrics.ResultSuccess).Inc()
	case apperr.KindOf(err) == apperr.KindInternal:
		metrics.PaymentsProcessed.WithLabelValues(metrics.ResultError).Inc()
	default:
		metrics.PaymentsProcessed.WithLabelValues(metrics.ResultRejected).Inc()
	}
	return result, err
}

func (s *Service) processPayment(ctx context.Context, invoiceID, tenantID uuid.UUID, req *PaymentRequest) (*PaymentResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	method, err := models.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, apperr.InvalidInput("%v", err)
	}
	if _, err := s.store.FindTenant(ctx, tenantID); err != nil {
		return nil, notFoundOr(err, "tenant %s not found", tenantID)
	}

	var result *PaymentResult
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		inv, err := tx.GetInvoice(ctx, invoiceID, tenantID, true)
		if err != nil {
			return notFoundOr(err, "invoice %s not found", invoiceID)
		}
		payments, err := tx.ListPayments(ctx, inv.ID)
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}

		if req.IdempotencyKey != "" {
			prev, err := tx.FindPaymentByIdempotencyKey(ctx, inv.ID, req.IdempotencyKey)
			if err == nil {
				result = &PaymentResult{Payment: prev, Invoice: models.NewInvoiceDetail(*inv, payments), Replayed: true}
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("failed to look up idempotency key: %w", err)
			}
		}

		switch inv.Status {
		case models.InvoicePaid:
			return apperr.Conflict("invoice %s is already paid", inv.InvoiceNumber)
		case models.InvoiceCancelled:
			return apperr.InvalidState("invoice %s is cancelled", inv.InvoiceNumber)
		}

		if err := validation.Money("amount", req.Amount); err != nil {
			return err
		}
		paid := models.SumCompleted(payments)
		remaining := inv.Amount.Sub(paid)
		if req.Amount.GreaterThan(remaining) {
			return apperr.InvalidInput("payment amount %s exceeds remaining due %s", req.Amount, remaining)
		}

		now := s.now().UTC()
		p := &models.Payment{
			ID:             uuid.New(),
			InvoiceID:      inv.ID,
			TenantID:       tenantID,
			Method:         method,
			Amount:         req.Amount,
			Status:         models.PaymentCompleted,
			Reference:      req.Reference,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      now,
		}
		if err := tx.InsertPayment(ctx, p); err != nil {
			if repository.IsDuplicate(err, repository.ConstraintPaymentIdempotency) {
				return apperr.Conflict("payment with this idempotency key is already being processed")
			}
			return fmt.Errorf("failed to insert payment: %w", err)
		}

		changed := true
		switch {
		case paid.Add(p.Amount).GreaterThanOrEqual(inv.Amount):
			inv.Status = models.InvoicePaid
			inv.PaidAt = &now
		case inv.Status == models.InvoiceDraft || inv.Status == models.InvoiceSent:
			inv.Status = models.InvoiceViewed
		default:
			changed = false
		}
		if changed {
			inv.UpdatedAt = now
			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return fmt.Errorf("failed to update invoice: %w", err)
			}
		}

		result = &PaymentResult{
			Payment: p,
			Invoice: models.NewInvoiceDetail(*inv, append([]models.Payment{*p}, payments...)),
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	if !result.Replayed {
		s.logger.Info("payment_processed", "Payment processed", logger.RequestID(ctx), map[string]interface{}{
			"payment_id":     result.Payment.ID.String(),
			"invoice_id":     invoiceID.String(),
			"amount":         result.Payment.Amount.String(),
			"method":         string(result.Payment.Method),
			"invoice_status": string(result.Invoice.Status),
		})
	}
	return result, nil
}

// GetInvoice returns an invoice with its payments, newest first, and the
// payment summary.
func (s *Service) GetInvoice(ctx context.Context, invoiceID, tenantID uuid.UUID) (*models.InvoiceDetail, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID, tenantID, false)
	if err != nil {
		return nil, notFoundOr(err, "invoice %s not found", invoiceID)
	}
	payments, err := s.store.ListPayments(ctx, inv.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to list payments: %w", err))
	}
	return models.NewInvoiceDetail(*inv, payments), nil
}

// ListInvoices pages a tenant's invoices, newest first. A limit outside
// [1, 100] becomes 10.
func (s *Service) ListInvoices(ctx context.Context, tenantID uuid.UUID, page, limit int) (*InvoicePage, error) {
	if _, err := s.store.FindTenant(ctx, tenantID); err != nil {
		return nil, notFoundOr(err, "tenant %s not found", tenantID)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	invoices, total, err := s.store.ListInvoices(ctx, tenantID, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to list invoices: %w", err))
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	return &InvoicePage{
		Invoices:   invoices,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// UpdateInvoiceStatus changes the status of an open invoice. PAID can only
// be reached through ProcessPayment.
func (s *Service) UpdateInvoiceStatus(ctx context.Context, invoiceID, tenantID uuid.UUID, status models.InvoiceStatus) (*models.Invoice, error) {
	if status == models.InvoicePaid {
		return nil, apperr.InvalidInput("an invoice is marked PAID by recording payments")
	}

	var invoice *models.Invoice
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		inv, err := tx.GetInvoice(ctx, invoiceID, tenantID, true)
		if err != nil {
			return notFoundOr(err, "invoice %s not found", invoiceID)
		}
		if inv.Status.IsTerminal() {
			return apperr.InvalidState("invoice %s is %s and can no longer change", inv.InvoiceNumber, inv.Status)
		}
		inv.Status = status
		inv.UpdatedAt = s.now().UTC()
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	s.logger.Info("invoice_status_updated", "Invoice status updated", logger.RequestID(ctx), map[string]interface{}{
		"invoice_id": invoice.ID.String(),
		"status":     string(invoice.Status),
	})
	return invoice, nil
}

// GetBillingSummary aggregates a tenant's invoices, payments and completed
// order revenue. The month-over-month trend is 0 when last month had no
// revenue.
func (s *Service) GetBillingSummary(ctx context.Context, tenantID uuid.UUID) (*models.BillingSummary, error) {
	if _, err := s.store.FindTenant(ctx, tenantID); err != nil {
		return nil, notFoundOr(err, "tenant %s not found", tenantID)
	}

	summary := &models.BillingSummary{
		TenantID:      tenantID,
		TotalRevenue:  decimal.Zero,
		TotalInvoiced: decimal.Zero,
		TotalPending:  decimal.Zero,
	}

	invoices, err := s.store.InvoiceStatusTotals(ctx, tenantID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to total invoices: %w", err))
	}
	for _, t := range invoices {
		status := models.InvoiceStatus(t.Status)
		summary.TotalInvoiced = summary.TotalInvoiced.Add(t.Amount)
		if status.IsOutstanding() {
			summary.TotalPending = summary.TotalPending.Add(t.Amount)
			summary.PendingInvoices += t.Count
		}
		if status == models.InvoicePaid {
			summary.PaidInvoices = t.Count
		}
	}

	if summary.TotalPaid, err = s.store.SumCompletedPayments(ctx, tenantID); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to total payments: %w", err))
	}

	orders, err := s.store.OrderStatusTotals(ctx, tenantID, nil)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to total orders: %w", err))
	}
	for _, t := range orders {
		if models.OrderStatus(t.Status) == models.OrderCompleted {
			summary.TotalRevenue = t.Amount
		}
	}

	now := s.now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := thisMonth.AddDate(0, 1, 0)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	current, err := s.store.CompletedOrderTotals(ctx, tenantID, thisMonth, nextMonth)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to total this month's orders: %w", err))
	}
	previous, err := s.store.CompletedOrderTotals(ctx, tenantID, lastMonth, thisMonth)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to total last month's orders: %w", err))
	}
	summary.OverallRevenueTrend = models.Percent(current.Total.Sub(previous.Total), previous.Total)

	return summary, nil
}

// GetRevenueAnalytics sums COMPLETED orders created between start and end,
// both inclusive.
func (s *Service) GetRevenueAnalytics(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*models.RevenueAnalytics, error) {
	if end.Before(start) {
		return nil, apperr.InvalidInput("start must not be after end")
	}
	if _, err := s.store.FindTenant(ctx, tenantID); err != nil {
		return nil, notFoundOr(err, "tenant %s not found", tenantID)
	}

	totals, err := s.store.CompletedOrderTotals(ctx, tenantID, start, end.Add(time.Nanosecond))
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to total orders: %w", err))
	}

	avg := decimal.Zero
	if totals.Count > 0 {
		avg = totals.Total.Div(decimal.NewFromInt(int64(totals.Count))).Round(2)
	}
	return &models.RevenueAnalytics{
		StartDate:         start,
		EndDate:           end,
		TotalRevenue:      totals.Total,
		TotalTax:          totals.Tax,
		TotalDiscount:     totals.Discount,
		OrderCount:        totals.Count,
		AverageOrderValue: avg,
		NetRevenue:        totals.Total.Sub(totals.Discount),
	}, nil
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Internal(err)
}
