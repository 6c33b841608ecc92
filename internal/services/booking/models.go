package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	TenantID      uuid.UUID       `json:"-"`
	BranchID      uuid.UUID       `json:"branchId" validate:"required"`
	TableID       *uuid.UUID      `json:"tableId,omitempty"`
	CustomerName  string          `json:"customerName" validate:"required,max=200"`
	CustomerPhone string          `json:"customerPhone" validate:"required,max=32"`
	PartySize     int             `json:"partySize" validate:"gt=0"`
	StartTime     time.Time       `json:"startTime" validate:"required"`
	EndTime       time.Time       `json:"endTime" validate:"required"`
	Deposit       decimal.Decimal `json:"deposit" validate:"gte=0,money"`
	Notes         string          `json:"notes,omitempty" validate:"max=1000"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// Availability answers a single-table availability query.
type Availability struct {
	TableID   uuid.UUID `json:"tableId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Available bool      `json:"available"`
}
