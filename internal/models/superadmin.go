package models

import (
	"time"

	"github.com/google/uuid"
)

// SuperAdmin is a back-office operator. A separate principal type from tenant
// members: distinct credential store, distinct token namespace.
type SuperAdmin struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Password    string     `json:"-"`
	FullName    string     `json:"full_name"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SuperAdminPublic is SuperAdmin without sensitive fields.
type SuperAdminPublic struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

// ToPublic converts SuperAdmin to SuperAdminPublic.
func (a *SuperAdmin) ToPublic() SuperAdminPublic {
	return SuperAdminPublic{ID: a.ID, Email: a.Email, FullName: a.FullName}
}
