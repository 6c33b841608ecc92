// Package order is the order pipeline: it validates submissions, writes
// the order, its items and its kitchen ticket in one transaction and then
// hands the ticket to the kitchen dispatcher.
package order

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
	"cafe-backoffice/internal/services/kitchen"
	"cafe-backoffice/internal/validation"
)

// TicketDispatcher creates kitchen tickets inside the order transaction
// and dispatches them once it has committed.
type TicketDispatcher interface {
	CreateTicket(ctx context.Context, tx repository.Tx, order *models.Order) (*models.KitchenTicket, error)
	Dispatch(ctx context.Context, t *models.KitchenTicket, source string) (uuid.UUID, error)
}

type Service struct {
	store   repository.Store
	kitchen TicketDispatcher
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(store repository.Store, dispatcher TicketDispatcher, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		kitchen: dispatcher,
		logger:  log,
		now:     time.Now,
	}
}

// SubmitOrder creates an order with its items and kitchen ticket. Every
// check runs before the transaction opens. The print job is enqueued after
// commit; when that fails the order still stands and the result reports
// KitchenNotified=false.
func (s *Service) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResult, error) {
	requestID := logger.RequestID(ctx)

	if err := validation.Struct(req); err != nil {
		metrics.OrdersSubmitted.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}
	if err := s.checkOwnership(ctx, req); err != nil {
		metrics.OrdersSubmitted.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}
	products, err := s.resolveProducts(ctx, req.TenantID, req.Items)
	if err != nil {
		metrics.OrdersSubmitted.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		BranchID:  req.BranchID,
		TableID:   req.TableID,
		UserID:    req.UserID,
		Status:    models.OrderPending,
		Tax:       req.Tax,
		Discount:  req.Discount,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, it := range req.Items {
		order.Items = append(order.Items, newItem(order.ID, products[it.ProductID], it, i, now))
	}
	order.Total = models.ComputeTotal(order.Items, order.Tax, order.Discount)
	if order.Total.IsNegative() {
		metrics.OrdersSubmitted.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, apperr.InvalidInput("discount exceeds the order subtotal")
	}

	var ticket *models.KitchenTicket
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		if err := tx.InsertOrderItems(ctx, order.Items); err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
		}
		t, err := s.kitchen.CreateTicket(ctx, tx, order)
		if err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		metrics.OrdersSubmitted.WithLabelValues(metrics.ResultError).Inc()
		return nil, apperr.Wrap(err)
	}

	fields := map[string]interface{}{
		"order_id":  order.ID.String(),
		"ticket_id": ticket.ID.String(),
		"tenant_id": order.TenantID.String(),
		"branch_id": order.BranchID.String(),
		"items":     len(order.Items),
		"total":     order.Total.String(),
	}

	result := &SubmitOrderResult{Order: order, Ticket: ticket, KitchenNotified: true}
	if _, err := s.kitchen.Dispatch(ctx, ticket, kitchen.SourceOrder); err != nil {
		result.KitchenNotified = false
		metrics.OrdersSubmitted.WithLabelValues(metrics.ResultDegraded).Inc()
		s.logger.Warn("order_kitchen_pending", "Order accepted, kitchen notification pending", requestID, fields)
		return result, nil
	}

	metrics.OrdersSubmitted.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.Info("order_submitted", "Order submitted", requestID, fields)
	return result, nil
}

func (s *Service) checkOwnership(ctx context.Context, req *SubmitOrderRequest) error {
	if _, err := s.store.FindTenant(ctx, req.TenantID); err != nil {
		return notFoundOr(err, "tenant %s not found", req.TenantID)
	}
	if _, err := s.store.FindBranch(ctx, req.BranchID, req.TenantID); err != nil {
		return notFoundOr(err, "branch %s not found", req.BranchID)
	}
	if req.TableID != nil {
		table, err := s.store.FindTable(ctx, *req.TableID)
		if err != nil {
			return notFoundOr(err, "table %s not found", *req.TableID)
		}
		if table.BranchID != req.BranchID {
			return apperr.NotFound("table %s not found", *req.TableID)
		}
	}
	return nil
}

// resolveProducts loads every referenced product of the tenant. Any id that
// does not resolve fails the whole request.
func (s *Service) resolveProducts(ctx context.Context, tenantID uuid.UUID, items []ItemRequest) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	found, err := s.store.FindProducts(ctx, tenantID, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to load products: %w", err))
	}
	products := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, apperr.InvalidInput("product %s not found", id)
		}
	}
	return products, nil
}

func newItem(orderID uuid.UUID, p models.Product, req ItemRequest, position int, now time.Time) models.OrderItem {
	price := p.Price
	if req.Price != nil {
		price = *req.Price
	}
	return models.OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProductID:      p.ID,
		ProductName:    p.Name,
		Qty:            req.Qty,
		Price:          price,
		SpecialRequest: req.SpecialRequest,
		Status:         models.ItemPending,
		Position:       position,
		CreatedAt:      now,
	}
}

// AddOrderItem appends a line to an open order and recomputes its total.
func (s *Service) AddOrderItem(ctx context.Context, orderID, tenantID uuid.UUID, req *ItemRequest) (*models.Order, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	products, err := s.resolveProducts(ctx, tenantID, []ItemRequest{*req})
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		o, err := s.lockOpenOrder(ctx, tx, orderID, tenantID)
		if err != nil {
			return err
		}
		position := 0
		for _, it := range o.Items {
			if it.Position >= position {
				position = it.Position + 1
			}
		}
		now := s.now().UTC()
		item := newItem(o.ID, products[req.ProductID], *req, position, now)
		if err := tx.InsertOrderItems(ctx, []models.OrderItem{item}); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		o.Items = append(o.Items, item)
		if err := s.saveTotal(ctx, tx, o, now); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	s.logger.Info("order_item_added", "Item added to order", logger.RequestID(ctx), map[string]interface{}{
		"order_id":   order.ID.String(),
		"product_id": req.ProductID.String(),
		"total":      order.Total.String(),
	})
	return order, nil
}

// RemoveOrderItem deletes a line from an open order and recomputes its
// total. The last line cannot be removed; an order with nothing left to
// make is cancelled instead.
func (s *Service) RemoveOrderItem(ctx context.Context, orderID, itemID, tenantID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		o, err := s.lockOpenOrder(ctx, tx, orderID, tenantID)
		if err != nil {
			return err
		}
		idx := -1
		for i, it := range o.Items {
			if it.ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperr.NotFound("order item %s not found", itemID)
		}
		if len(o.Items) == 1 {
			return apperr.InvalidState("cannot remove the last item of order %s, cancel the order instead", o.ID)
		}
		if err := tx.DeleteOrderItem(ctx, o.ID, itemID); err != nil {
			return fmt.Errorf("failed to delete order item: %w", err)
		}
		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
		if err := s.saveTotal(ctx, tx, o, s.now().UTC()); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	s.logger.Info("order_item_removed", "Item removed from order", logger.RequestID(ctx), map[string]interface{}{
		"order_id": order.ID.String(),
		"item_id":  itemID.String(),
		"total":    order.Total.String(),
	})
	return order, nil
}

func (s *Service) lockOpenOrder(ctx context.Context, tx repository.Tx, orderID, tenantID uuid.UUID) (*models.Order, error) {
	o, err := tx.GetOrder(ctx, orderID, tenantID, true)
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", orderID)
	}
	if o.Status.IsTerminal() {
		return nil, apperr.InvalidState("order %s is %s and can no longer change", o.ID, o.Status)
	}
	return o, nil
}

func (s *Service) saveTotal(ctx context.Context, tx repository.Tx, o *models.Order, now time.Time) error {
	o.Total = models.ComputeTotal(o.Items, o.Tax, o.Discount)
	if o.Total.IsNegative() {
		return apperr.InvalidInput("discount exceeds the order subtotal")
	}
	o.UpdatedAt = now
	if err := tx.UpdateOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// UpdateOrderStatus moves an order along PENDING -> IN_PROGRESS ->
// COMPLETED, or to CANCELLED from any open state. COMPLETED stamps
// completedAt.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, tenantID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		o, err := tx.GetOrder(ctx, orderID, tenantID, true)
		if err != nil {
			return notFoundOr(err, "order %s not found", orderID)
		}
		if !o.Status.CanTransitionTo(status) {
			return apperr.InvalidState("cannot change order status from %s to %s", o.Status, status)
		}

		now := s.now().UTC()
		o.Status = status
		o.UpdatedAt = now
		if status == models.OrderCompleted {
			o.CompletedAt = &now
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	s.logger.Info("order_status_updated", "Order status updated", logger.RequestID(ctx), map[string]interface{}{
		"order_id": order.ID.String(),
		"status":   string(order.Status),
	})
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID, tenantID uuid.UUID) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID, tenantID, false)
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", orderID)
	}
	return o, nil
}

// GetOrderStats aggregates a tenant's orders, optionally for one branch.
func (s *Service) GetOrderStats(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) (*models.OrderStats, error) {
	totals, err := s.store.OrderStatusTotals(ctx, tenantID, branchID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to load order stats: %w", err))
	}

	stats := &models.OrderStats{TotalRevenue: decimal.Zero}
	for _, t := range totals {
		stats.TotalOrders += t.Count
		switch models.OrderStatus(t.Status) {
		case models.OrderPending:
			stats.PendingOrders = t.Count
		case models.OrderInProgress:
			stats.InProgress = t.Count
		case models.OrderCompleted:
			stats.CompletedOrders = t.Count
			stats.TotalRevenue = t.Amount
		case models.OrderCancelled:
			stats.CancelledOrders = t.Count
		}
	}
	stats.CompletionRate = models.Percent(
		decimal.NewFromInt(int64(stats.CompletedOrders)),
		decimal.NewFromInt(int64(stats.TotalOrders)),
	)
	return stats, nil
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Internal(err)
}
