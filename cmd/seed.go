package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository/memory"
)

// Fixed ids so that tokens for the demo tenant can be minted by hand.
var (
	demoTenant = uuid.MustParse("7c0e5f2a-4b1d-4e8a-9f3c-2d6b8a1e0c01")
	demoBranch = uuid.MustParse("7c0e5f2a-4b1d-4e8a-9f3c-2d6b8a1e0c02")
)

func seedDemo(store *memory.Store, log *logger.Logger) {
	store.AddTenant(models.Tenant{ID: demoTenant, Name: "Demo Cafe", Domain: "demo.local", CreatedAt: time.Now().UTC()})
	store.AddBranch(models.Branch{ID: demoBranch, TenantID: demoTenant, Name: "Main Street"})

	for i, capacity := range []int{2, 2, 4, 4, 6} {
		store.AddTable(models.Table{
			ID:       uuid.New(),
			BranchID: demoBranch,
			Number:   string(rune('A'+i/2)) + string(rune('1'+i%2)),
			Capacity: capacity,
		})
	}

	menu := []struct {
		name  string
		price string
	}{
		{"Espresso", "2.50"},
		{"Flat White", "3.80"},
		{"Chai Latte", "4.20"},
		{"Croissant", "3.00"},
		{"Banana Bread", "3.50"},
	}
	for _, item := range menu {
		store.AddProduct(models.Product{
			ID:        uuid.New(),
			TenantID:  demoTenant,
			Name:      item.name,
			Price:     decimal.RequireFromString(item.price),
			Available: true,
		})
	}

	log.Info("demo_seeded", "Seeded in-memory store with demo data", "", map[string]interface{}{
		"tenant_id": demoTenant.String(),
		"branch_id": demoBranch.String(),
		"tables":    5,
		"products":  len(menu),
	})
}
