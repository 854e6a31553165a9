package models

import "time"

// Unlimited is the sentinel limit value meaning "no limit". Every usage or
// percentage computation must special-case it.
const Unlimited = -1

// Plan slugs known to the catalog.
const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

// PlanLimits holds per-resource caps. Each value is non-negative or exactly Unlimited.
type PlanLimits struct {
	Users     int `json:"users"`
	Expenses  int `json:"expenses"`
	StorageMB int `json:"storage_mb"`
}

// Plan is a pricing tier in the catalog.
type Plan struct {
	Slug       string     `json:"slug"`
	Name       string     `json:"name"`
	PriceCents int        `json:"price_cents"` // monthly
	Limits     PlanLimits `json:"limits"`
	Features   []string   `json:"features"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Snapshot copies the plan's limits into tenant settings.
func (p *Plan) Snapshot() TenantSettings {
	features := make([]string, len(p.Features))
	copy(features, p.Features)
	return TenantSettings{
		MaxUsers:       p.Limits.Users,
		MaxExpenses:    p.Limits.Expenses,
		StorageLimitMB: p.Limits.StorageMB,
		Features:       features,
	}
}
