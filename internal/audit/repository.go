// Package audit persists the append-only record of tenant-affecting
// operations: lifecycle transitions, plan changes, and deletions.
package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensehub/backend/internal/models"
)

// Repository handles audit_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends one audit entry. Audit writes happen before the state change
// they describe becomes irreversible (deletion in particular).
func (r *Repository) Record(ctx context.Context, e *models.AuditEntry) error {
	const q = `INSERT INTO audit_logs (tenant_id, action, from_status, to_status, actor, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, e.TenantID, e.Action, e.FromStatus, e.ToStatus, e.Actor, e.Reason).
		Scan(&e.ID, &e.CreatedAt)
}

// ListByTenant returns the most recent entries for a tenant, newest first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, tenant_id, action, from_status, to_status, actor, reason, created_at
		FROM audit_logs WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Action, &e.FromStatus, &e.ToStatus, &e.Actor, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
