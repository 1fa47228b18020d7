package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents user role type
type UserRole string

const (
	RoleShipper          UserRole = "shipper"
	RoleDriver           UserRole = "driver"
	RoleAffiliatedDriver UserRole = "affiliated_driver"
	RoleCarrier          UserRole = "carrier"
	RoleServiceProvider  UserRole = "service_provider"
	RoleAdmin            UserRole = "admin"
)

// DriverEquivalentRoles are the roles allowed to declare coverage areas and
// trigger matching for themselves.
var DriverEquivalentRoles = []UserRole{RoleDriver, RoleAffiliatedDriver, RoleCarrier}

// IsDriverEquivalent reports whether the role may operate the matching surface.
func (r UserRole) IsDriverEquivalent() bool {
	for _, allowed := range DriverEquivalentRoles {
		if r == allowed {
			return true
		}
	}
	return false
}

// User represents a marketplace account (shippers, drivers, carriers, providers)
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PhoneNumber  string     `json:"phone_number" db:"phone_number"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Role         UserRole   `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsVerified   bool       `json:"is_verified" db:"is_verified"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
