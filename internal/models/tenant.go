package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	StatusTrial     TenantStatus = "trial"
	StatusActive    TenantStatus = "active"
	StatusSuspended TenantStatus = "suspended"
	StatusCancelled TenantStatus = "cancelled"
)

// TenantSettings is the plan-limit snapshot copied from the catalog when the
// tenant is created or changes plan. Later catalog edits do not touch it.
type TenantSettings struct {
	MaxUsers       int      `json:"max_users"`
	MaxExpenses    int      `json:"max_expenses"`
	StorageLimitMB int      `json:"storage_limit_mb"`
	Features       []string `json:"features"`
}

// TenantUsage holds the tenant's current resource counters.
type TenantUsage struct {
	CurrentUsers    int `json:"current_users"`
	CurrentExpenses int `json:"current_expenses"`
	StorageUsedMB   int `json:"storage_used_mb"`
}

// Tenant represents a customer workspace. Slug is unique and immutable after
// creation. Version backs optimistic concurrency on updates.
type Tenant struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Slug           string         `json:"slug"`
	Plan           string         `json:"plan"`
	Status         TenantStatus   `json:"status"`
	CustomDomain   *string        `json:"custom_domain,omitempty"`
	DomainVerified bool           `json:"domain_verified"`
	Usage          TenantUsage    `json:"usage"`
	Settings       TenantSettings `json:"settings"`
	TrialEndsAt    *time.Time     `json:"trial_ends_at,omitempty"`
	Version        int            `json:"-"`
	DeletedAt      *time.Time     `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
