// Package members manages tenant-side member accounts. Member creation is
// the enforcement point for the user quota: the limit check runs before the
// insert, and the insert bumps the tenant's usage counter in the same
// transaction. The check-then-act gap between the two is an accepted race
// under concurrent writers; overshoot is bounded to in-flight requests.
package members

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensehub/backend/internal/models"
	"github.com/expensehub/backend/internal/tenants"
)

// ErrEmailTaken is returned when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Store is the member persistence contract.
type Store interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UserPublic, error)
	// CreateMember inserts the user and increments the tenant's user counter
	// in one transaction.
	CreateMember(ctx context.Context, u *models.User) error
}

// PostgresStore implements Store on pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the pgx-backed member store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetTenant returns the live tenant for quota checks.
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	const q = `SELECT id, name, slug, plan, status, custom_domain, domain_verified,
		current_users, current_expenses, storage_used_mb, settings, trial_ends_at,
		version, deleted_at, created_at, updated_at
		FROM tenants WHERE id = $1 AND deleted_at IS NULL`
	var t models.Tenant
	var settings []byte
	err := s.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Plan, &t.Status,
		&t.CustomDomain, &t.DomainVerified, &t.Usage.CurrentUsers, &t.Usage.CurrentExpenses,
		&t.Usage.StorageUsedMB, &settings, &t.TrialEndsAt, &t.Version, &t.DeletedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenants.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(settings, &t.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &t, nil
}

// ListByTenant returns the tenant's members, oldest first.
func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UserPublic, error) {
	const q = `SELECT id, tenant_id, email, full_name, role, last_login_at, created_at
		FROM users WHERE tenant_id = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Role, &u.LastLoginAt, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// CreateMember inserts the user and bumps current_users atomically.
func (s *PostgresStore) CreateMember(ctx context.Context, u *models.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO users (tenant_id, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, insert, u.TenantID, u.Email, u.Password, u.FullName, string(u.Role)).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}

	const bump = `UPDATE tenants SET current_users = current_users + 1, updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, bump, u.TenantID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
