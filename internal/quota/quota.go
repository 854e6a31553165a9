// Package quota computes tenant usage against plan-limit snapshots.
// Everything here is a pure function of the tenant's counters and settings:
// no storage access, deterministic for the same inputs.
package quota

import (
	"math"

	"github.com/expensehub/backend/internal/models"
)

// Resource identifies a metered resource.
type Resource string

const (
	ResourceUsers    Resource = "users"
	ResourceExpenses Resource = "expenses"
	ResourceStorage  Resource = "storage"
)

// ResourceUsage is one resource's current count against its limit.
// Pct is 0 for unlimited limits and capped at 100 otherwise.
type ResourceUsage struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
	Pct     int `json:"pct"`
}

// Report is the full usage breakdown for a tenant.
type Report struct {
	Users    ResourceUsage `json:"users"`
	Expenses ResourceUsage `json:"expenses"`
	Storage  ResourceUsage `json:"storage"`
}

// Compute builds a usage report from the tenant's counters and settings snapshot.
func Compute(t *models.Tenant) Report {
	return Report{
		Users:    usage(t.Usage.CurrentUsers, t.Settings.MaxUsers),
		Expenses: usage(t.Usage.CurrentExpenses, t.Settings.MaxExpenses),
		Storage:  usage(t.Usage.StorageUsedMB, t.Settings.StorageLimitMB),
	}
}

// IsOverLimit reports whether the tenant has reached the limit for a resource.
// Always false for unlimited limits.
func IsOverLimit(t *models.Tenant, r Resource) bool {
	current, limit := counters(t, r)
	if limit == models.Unlimited {
		return false
	}
	return current >= limit
}

func counters(t *models.Tenant, r Resource) (current, limit int) {
	switch r {
	case ResourceUsers:
		return t.Usage.CurrentUsers, t.Settings.MaxUsers
	case ResourceExpenses:
		return t.Usage.CurrentExpenses, t.Settings.MaxExpenses
	case ResourceStorage:
		return t.Usage.StorageUsedMB, t.Settings.StorageLimitMB
	}
	return 0, models.Unlimited
}

func usage(current, limit int) ResourceUsage {
	return ResourceUsage{Current: current, Limit: limit, Pct: pct(current, limit)}
}

// pct = min(100, round(current/limit*100)); 0 when the limit is unlimited or zero.
func pct(current, limit int) int {
	if limit == models.Unlimited || limit == 0 {
		return 0
	}
	p := int(math.Round(float64(current) / float64(limit) * 100))
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
