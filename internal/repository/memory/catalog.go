package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

func (v *view) FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	st, release := v.acquire()
	defer release()
	for _, t := range st.tenants {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) FindBranch(ctx context.Context, id, tenantID uuid.UUID) (*models.Branch, error) {
	st, release := v.acquire()
	defer release()
	for _, b := range st.branches {
		if b.ID == id && b.TenantID == tenantID {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) FindProducts(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	st, release := v.acquire()
	defer release()

	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Product
	for _, p := range st.products {
		if p.TenantID == tenantID && want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (v *view) FindTable(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	st, release := v.acquire()
	defer release()
	for _, t := range st.tables {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) ListTables(ctx context.Context, branchID uuid.UUID) ([]models.Table, error) {
	st, release := v.acquire()
	defer release()

	var out []models.Table
	for _, t := range st.tables {
		if t.BranchID == branchID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
