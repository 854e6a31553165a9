package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded against tenants.
const (
	AuditTenantCreated = "tenant_created"
	AuditStatusChange  = "status_change"
	AuditPlanChange    = "plan_change"
	AuditTenantDeleted = "tenant_deleted"
)

// AuditEntry is an append-only record of a tenant-affecting operation.
// TenantID is not a foreign key: entries must survive the tenant purge.
type AuditEntry struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
