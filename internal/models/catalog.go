package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant is an independent cafe business; the root of data partitioning.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"createdAt"`
}

// Branch is a physical location belonging to a tenant.
type Branch struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenantId"`
	Name     string    `json:"name"`
}

// Table is a seating unit inside a branch.
type Table struct {
	ID       uuid.UUID `json:"id"`
	BranchID uuid.UUID `json:"branchId"`
	Number   string    `json:"number"`
	Capacity int       `json:"capacity"`
}

// Product is a menu entry. Its price is snapshotted into order items.
type Product struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"tenantId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

// Role is the caller's role inside a tenant.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleOwner      Role = "OWNER"
	RoleManager    Role = "MANAGER"
	RoleStaff      Role = "STAFF"
)

// ParseRole validates a role string coming from outside.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSuperAdmin, RoleOwner, RoleManager, RoleStaff:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Identity is the already-authenticated caller attached to every request.
type Identity struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     Role
}
