package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of roles the identity provider can assign.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleVendorOwner Role = "vendor_owner"
	RoleCustomer    Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleVendorOwner, RoleCustomer:
		return true
	}
	return false
}

// User is the local mirror of an externally managed identity.
type User struct {
	Base
	Email     string     `db:"email" json:"email"`
	Name      string     `db:"name" json:"name"`
	Role      Role       `db:"role" json:"role"`
	VendorID  *uuid.UUID `db:"vendor_id" json:"vendor_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor is the explicit authorization context passed into every operation.
// It is resolved once by the auth middleware and never inferred from
// query-time fallbacks.
type Actor struct {
	UserID   uuid.UUID
	Role     Role
	VendorID *uuid.UUID
}

// CanManageVendor reports whether the actor may act on behalf of the vendor.
func (a Actor) CanManageVendor(vendorID uuid.UUID) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	return a.Role == RoleVendorOwner && a.VendorID != nil && *a.VendorID == vendorID
}
