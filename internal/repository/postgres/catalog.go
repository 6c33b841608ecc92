package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"cafe-backoffice/internal/database"
	"cafe-backoffice/internal/models"
)

func (r *queries) FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := r.q.QueryRow(ctx, database.GetTenantSQL, id).Scan(&t.ID, &t.Name, &t.Domain, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *queries) FindBranch(ctx context.Context, id, tenantID uuid.UUID) (*models.Branch, error) {
	var b models.Branch
	err := r.q.QueryRow(ctx, database.GetBranchSQL, id, tenantID).Scan(&b.ID, &b.TenantID, &b.Name)
	if err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

func (r *queries) FindProducts(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	rows, err := r.q.Query(ctx, database.GetProductsSQL, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Price, &p.Available); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *queries) FindTable(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	var t models.Table
	err := r.q.QueryRow(ctx, database.GetTableSQL, id).Scan(&t.ID, &t.BranchID, &t.Number, &t.Capacity)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *queries) ListTables(ctx context.Context, branchID uuid.UUID) ([]models.Table, error) {
	rows, err := r.q.Query(ctx, database.ListTablesSQL, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []models.Table
	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.ID, &t.BranchID, &t.Number, &t.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
