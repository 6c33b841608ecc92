package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

func (st *state) orderIndex(id uuid.UUID) int {
	for i := range st.orders {
		if st.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) InsertOrder(ctx context.Context, o *models.Order) error {
	st, release := v.acquire()
	defer release()
	if st.orderIndex(o.ID) >= 0 {
		return &repository.DuplicateError{Constraint: "orders_pkey"}
	}
	row := *o
	row.Items = nil
	st.orders = append(st.orders, row)
	return nil
}

func (v *view) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	st, release := v.acquire()
	defer release()
	for _, it := range items {
		i := st.orderIndex(it.OrderID)
		if i < 0 {
			return repository.ErrNotFound
		}
		st.orders[i].Items = append(st.orders[i].Items, it)
	}
	return nil
}

func (v *view) GetOrder(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Order, error) {
	st, release := v.acquire()
	defer release()
	i := st.orderIndex(id)
	if i < 0 || st.orders[i].TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	o := st.orders[i]
	o.Items = append([]models.OrderItem(nil), o.Items...)
	sort.SliceStable(o.Items, func(a, b int) bool { return o.Items[a].Position < o.Items[b].Position })
	return &o, nil
}

func (v *view) UpdateOrder(ctx context.Context, o *models.Order) error {
	st, release := v.acquire()
	defer release()
	i := st.orderIndex(o.ID)
	if i < 0 {
		return repository.ErrNotFound
	}
	row := &st.orders[i]
	row.Status = o.Status
	row.Total = o.Total
	row.CompletedAt = o.CompletedAt
	row.UpdatedAt = o.UpdatedAt
	return nil
}

func (v *view) DeleteOrderItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	st, release := v.acquire()
	defer release()
	i := st.orderIndex(orderID)
	if i < 0 {
		return repository.ErrNotFound
	}
	items := st.orders[i].Items
	for j := range items {
		if items[j].ID == itemID {
			st.orders[i].Items = append(items[:j:j], items[j+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (v *view) OrderStatusTotals(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID) ([]repository.StatusTotal, error) {
	st, release := v.acquire()
	defer release()

	byStatus := make(map[string]*repository.StatusTotal)
	for _, o := range st.orders {
		if o.TenantID != tenantID || (branchID != nil && o.BranchID != *branchID) {
			continue
		}
		acc(byStatus, string(o.Status), o.Total)
	}
	return sortedTotals(byStatus), nil
}

func (v *view) CompletedOrderTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (repository.OrderTotals, error) {
	st, release := v.acquire()
	defer release()

	t := repository.OrderTotals{Total: decimal.Zero, Tax: decimal.Zero, Discount: decimal.Zero}
	for _, o := range st.orders {
		if o.TenantID != tenantID || o.Status != models.OrderCompleted {
			continue
		}
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		t.Count++
		t.Total = t.Total.Add(o.Total)
		t.Tax = t.Tax.Add(o.Tax)
		t.Discount = t.Discount.Add(o.Discount)
	}
	return t, nil
}

func acc(m map[string]*repository.StatusTotal, status string, amount decimal.Decimal) {
	st, ok := m[status]
	if !ok {
		st = &repository.StatusTotal{Status: status, Amount: decimal.Zero}
		m[status] = st
	}
	st.Count++
	st.Amount = st.Amount.Add(amount)
}

func sortedTotals(m map[string]*repository.StatusTotal) []repository.StatusTotal {
	out := make([]repository.StatusTotal, 0, len(m))
	for _, st := range m {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}
