package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cafe-backoffice/internal/database"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

func (r *queries) InsertOrder(ctx context.Context, o *models.Order) error {
	_, err := r.q.Exec(ctx, database.InsertOrderSQL,
		o.ID, o.TenantID, o.BranchID, o.TableID, o.UserID, string(o.Status),
		o.Total, o.Tax, o.Discount, o.Notes, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", mapError(err))
	}
	return nil
}

func (r *queries) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	for _, it := range items {
		_, err := r.q.Exec(ctx, database.InsertOrderItemSQL,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.Qty, it.Price,
			it.SpecialRequest, string(it.Status), it.Position, it.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", mapError(err))
		}
	}
	return nil
}

func (r *queries) GetOrder(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Order, error) {
	sql := database.GetOrderSQL
	if forUpdate {
		sql = database.GetOrderForUpdateSQL
	}

	var (
		o      models.Order
		status string
	)
	err := r.q.QueryRow(ctx, sql, id, tenantID).Scan(
		&o.ID, &o.TenantID, &o.BranchID, &o.TableID, &o.UserID, &status,
		&o.Total, &o.Tax, &o.Discount, &o.Notes, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt)
	if err != nil {
		return nil, mapError(err)
	}
	o.Status = models.OrderStatus(status)

	items, err := r.orderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *queries) orderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := r.q.Query(ctx, database.GetOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var (
			it     models.OrderItem
			status string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Qty, &it.Price,
			&it.SpecialRequest, &status, &it.Position, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		it.Status = models.OrderItemStatus(status)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *queries) UpdateOrder(ctx context.Context, o *models.Order) error {
	return expectOne(r.q.Exec(ctx, database.UpdateOrderSQL,
		o.ID, string(o.Status), o.Total, o.CompletedAt, o.UpdatedAt))
}

func (r *queries) DeleteOrderItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	return expectOne(r.q.Exec(ctx, database.DeleteOrderItemSQL, itemID, orderID))
}

func (r *queries) OrderStatusTotals(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) ([]repository.StatusTotal, error) {
	return r.statusTotals(ctx, database.OrderStatusTotalsSQL, tenantID, branchID)
}

func (r *queries) statusTotals(ctx context.Context, sql string, args ...interface{}) ([]repository.StatusTotal, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status totals: %w", err)
	}
	defer rows.Close()

	var totals []repository.StatusTotal
	for rows.Next() {
		var st repository.StatusTotal
		if err := rows.Scan(&st.Status, &st.Count, &st.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan status totals: %w", err)
		}
		totals = append(totals, st)
	}
	return totals, rows.Err()
}

func (r *queries) CompletedOrderTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (repository.OrderTotals, error) {
	var t repository.OrderTotals
	err := r.q.QueryRow(ctx, database.CompletedOrderTotalsSQL, tenantID, from, to).
		Scan(&t.Count, &t.Total, &t.Tax, &t.Discount)
	if err != nil {
		return t, fmt.Errorf("failed to sum completed orders: %w", err)
	}
	return t, nil
}
