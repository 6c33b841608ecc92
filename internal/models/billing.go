package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoiceViewed    InvoiceStatus = "VIEWED"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// ParseInvoiceStatus validates a status string coming from outside.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(s); st {
	case InvoiceDraft, InvoiceSent, InvoiceViewed, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
}

// IsTerminal reports whether the invoice can no longer change status.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoicePaid || s == InvoiceCancelled
}

// IsOutstanding reports whether money is still expected on the invoice.
func (s InvoiceStatus) IsOutstanding() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoiceViewed, InvoiceOverdue:
		return true
	default:
		return false
	}
}

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCard         PaymentMethod = "CARD"
	MethodUPI          PaymentMethod = "UPI"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodWallet       PaymentMethod = "WALLET"
)

// ParsePaymentMethod validates a method string coming from outside.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case MethodCash, MethodCard, MethodUPI, MethodBankTransfer, MethodWallet:
		return m, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

// Invoice is a billable document derived from an order.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"orderId"`
	TenantID      uuid.UUID       `json:"tenantId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Status        InvoiceStatus   `json:"status"`
	DueDate       time.Time       `json:"dueDate"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Payment is money received against an invoice.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceID      uuid.UUID       `json:"invoiceId"`
	TenantID       uuid.UUID       `json:"tenantId"`
	Method         PaymentMethod   `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	Status         PaymentStatus   `json:"status"`
	Reference      string          `json:"reference,omitempty"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// FormatInvoiceNumber renders INV-YYYYMMDD-NNNNN.
func FormatInvoiceNumber(day time.Time, seq int) string {
	return fmt.Sprintf("INV-%s-%05d", day.Format("20060102"), seq)
}

// SumCompleted totals COMPLETED payments.
func SumCompleted(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.Status == PaymentCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

var hundred = decimal.NewFromInt(100)

// Percent returns part/whole*100 rounded to 2 places, or 0 when whole is 0.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// InvoiceDetail is an invoice with its payments and payment summary.
type InvoiceDetail struct {
	Invoice
	Payments       []Payment       `json:"payments"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	AmountDue      decimal.Decimal `json:"amountDue"`
	PercentagePaid decimal.Decimal `json:"percentagePaid"`
}

// NewInvoiceDetail computes the summary fields from payments.
func NewInvoiceDetail(inv Invoice, payments []Payment) *InvoiceDetail {
	paid := SumCompleted(payments)
	if payments == nil {
		payments = []Payment{}
	}
	return &InvoiceDetail{
		Invoice:        inv,
		Payments:       payments,
		TotalPaid:      paid,
		AmountDue:      inv.Amount.Sub(paid),
		PercentagePaid: Percent(paid, inv.Amount),
	}
}

// BillingSummary aggregates a tenant's billing position.
type BillingSummary struct {
	TenantID            uuid.UUID       `json:"tenantId"`
	TotalRevenue        decimal.Decimal `json:"totalRevenue"`
	TotalInvoiced       decimal.Decimal `json:"totalInvoiced"`
	TotalPaid           decimal.Decimal `json:"totalPaid"`
	TotalPending        decimal.Decimal `json:"totalPending"`
	PendingInvoices     int             `json:"pendingInvoices"`
	PaidInvoices        int             `json:"paidInvoices"`
	OverallRevenueTrend decimal.Decimal `json:"overallRevenueTrend"`
}

// RevenueAnalytics sums completed orders inside a date range.
type RevenueAnalytics struct {
	StartDate         time.Time       `json:"startDate"`
	EndDate           time.Time       `json:"endDate"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalTax          decimal.Decimal `json:"totalTax"`
	TotalDiscount     decimal.Decimal `json:"totalDiscount"`
	OrderCount        int             `json:"orderCount"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	NetRevenue        decimal.Decimal `json:"netRevenue"`
}
