package models

import (
	"time"

	"github.com/google/uuid"
)

// DispatchStatus tracks whether a ticket's print job reached the queue and
// the printer.
type DispatchStatus string

const (
	DispatchPending DispatchStatus = "PENDING"
	DispatchQueued  DispatchStatus = "QUEUED"
	DispatchPrinted DispatchStatus = "PRINTED"
)

// TicketLine is one item as the kitchen sees it.
type TicketLine struct {
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	Qty            int       `json:"qty"`
	SpecialRequest string    `json:"specialRequest,omitempty"`
}

// TicketPayload is the immutable snapshot stored with the ticket.
type TicketPayload struct {
	TableID *uuid.UUID   `json:"tableId,omitempty"`
	Notes   string       `json:"notes,omitempty"`
	Items   []TicketLine `json:"items"`
}

// KitchenTicket (KOT) is created exactly once per order, in the order's
// transaction.
type KitchenTicket struct {
	ID             uuid.UUID      `json:"id"`
	OrderID        uuid.UUID      `json:"orderId"`
	TenantID       uuid.UUID      `json:"tenantId"`
	BranchID       uuid.UUID      `json:"branchId"`
	Payload        TicketPayload  `json:"payload"`
	DispatchStatus DispatchStatus `json:"dispatchStatus"`
	PrintCount     int            `json:"printCount"`
	LastQueuedAt   *time.Time     `json:"lastQueuedAt,omitempty"`
	LastPrintedAt  *time.Time     `json:"lastPrintedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// NewTicket snapshots the order's items into a ticket. Lines keep the
// order's item order.
func NewTicket(order *Order, now time.Time) *KitchenTicket {
	lines := make([]TicketLine, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, TicketLine{
			ProductID:      it.ProductID,
			Name:           it.ProductName,
			Qty:            it.Qty,
			SpecialRequest: it.SpecialRequest,
		})
	}
	return &KitchenTicket{
		ID:       uuid.New(),
		OrderID:  order.ID,
		TenantID: order.TenantID,
		BranchID: order.BranchID,
		Payload: TicketPayload{
			TableID: order.TableID,
			Notes:   order.Notes,
			Items:   lines,
		},
		DispatchStatus: DispatchPending,
		CreatedAt:      now,
	}
}
