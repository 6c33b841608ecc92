package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/models"
)

// Request structs

// ItemRequest is one line of an order. A missing price takes the
// product's current price.
type ItemRequest struct {
	ProductID      uuid.UUID        `json:"productId" validate:"required"`
	Qty            int              `json:"qty" validate:"gt=0"`
	Price          *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0,money"`
	SpecialRequest string           `json:"specialRequest,omitempty" validate:"max=500"`
}

type SubmitOrderRequest struct {
	TenantID uuid.UUID       `json:"-"`
	UserID   *uuid.UUID      `json:"-"`
	BranchID uuid.UUID       `json:"branchId" validate:"required"`
	TableID  *uuid.UUID      `json:"tableId,omitempty"`
	Items    []ItemRequest   `json:"items" validate:"min=1,dive"`
	Tax      decimal.Decimal `json:"tax" validate:"gte=0,money"`
	Discount decimal.Decimal `json:"discount" validate:"gte=0,money"`
	Notes    string          `json:"notes,omitempty" validate:"max=1000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED"`
}

// Response structs

// SubmitOrderResult is returned by SubmitOrder. KitchenNotified is false
// when the order committed but its print job did not reach the queue.
type SubmitOrderResult struct {
	Order           *models.Order         `json:"order"`
	Ticket          *models.KitchenTicket `json:"ticket"`
	KitchenNotified bool                  `json:"kitchenNotified"`
}
