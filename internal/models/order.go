package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// ParseOrderStatus validates a status string coming from outside.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderInProgress, OrderCompleted, OrderCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// IsTerminal reports whether no further transition or item change is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo encodes PENDING -> IN_PROGRESS -> COMPLETED, with
// CANCELLED reachable from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case OrderCancelled:
		return true
	case OrderInProgress:
		return s == OrderPending
	case OrderCompleted:
		return s == OrderInProgress
	default:
		return false
	}
}

// OrderItemStatus tracks a single line through the kitchen.
type OrderItemStatus string

const (
	ItemPending       OrderItemStatus = "PENDING"
	ItemSentToKitchen OrderItemStatus = "SENT_TO_KITCHEN"
	ItemPreparing     OrderItemStatus = "PREPARING"
	ItemReady         OrderItemStatus = "READY"
	ItemServed        OrderItemStatus = "SERVED"
	ItemCancelled     OrderItemStatus = "CANCELLED"
)

// OrderItem represents a line of an order. Price is a snapshot taken at
// order time and never changes afterwards.
type OrderItem struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"orderId"`
	ProductID      uuid.UUID       `json:"productId"`
	ProductName    string          `json:"productName"`
	Qty            int             `json:"qty"`
	Price          decimal.Decimal `json:"price"`
	SpecialRequest string          `json:"specialRequest,omitempty"`
	Status         OrderItemStatus `json:"status"`
	Position       int             `json:"position"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// LineTotal is price * qty.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Order represents a POS order
type Order struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenantId"`
	BranchID    uuid.UUID       `json:"branchId"`
	TableID     *uuid.UUID      `json:"tableId,omitempty"`
	UserID      *uuid.UUID      `json:"userId,omitempty"`
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Notes       string          `json:"notes,omitempty"`
	Items       []OrderItem     `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Subtotal sums price * qty over items.
func Subtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// ComputeTotal returns subtotal - discount + tax. Order.Total is always
// derived through this function.
func ComputeTotal(items []OrderItem, tax, discount decimal.Decimal) decimal.Decimal {
	return Subtotal(items).Sub(discount).Add(tax)
}

// OrderStats aggregates orders of a tenant, optionally for one branch.
type OrderStats struct {
	TotalOrders     int             `json:"totalOrders"`
	PendingOrders   int             `json:"pendingOrders"`
	InProgress      int             `json:"inProgressOrders"`
	CompletedOrders int             `json:"completedOrders"`
	CancelledOrders int             `json:"cancelledOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	CompletionRate  decimal.Decimal `json:"completionRate"`
}
