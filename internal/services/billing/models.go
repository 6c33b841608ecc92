package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/models"
)

type CreateInvoiceRequest struct {
	TenantID uuid.UUID       `json:"-"`
	OrderID  uuid.UUID       `json:"orderId" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"gte=0,money"`
	Tax      decimal.Decimal `json:"tax" validate:"gte=0,money"`
	Discount decimal.Decimal `json:"discount" validate:"gte=0,money"`
	DueDate  *time.Time      `json:"dueDate,omitempty"`
}

// PaymentRequest is money received against an invoice. A repeated
// IdempotencyKey replays the first payment instead of recording another.
// Amount is checked only once the invoice is known to accept payments.
type PaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method" validate:"required,oneof=CASH CARD UPI BANK_TRANSFER WALLET"`
	Reference      string          `json:"reference,omitempty" validate:"max=200"`
	IdempotencyKey string          `json:"-" validate:"max=128"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type PaymentResult struct {
	Payment  *models.Payment       `json:"payment"`
	Invoice  *models.InvoiceDetail `json:"invoice"`
	Replayed bool                  `json:"replayed,omitempty"`
}

type InvoicePage struct {
	Invoices   []models.Invoice `json:"invoices"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}
