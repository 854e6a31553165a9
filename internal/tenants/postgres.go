package tenants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensehub/backend/internal/models"
)

const tenantColumns = `id, name, slug, plan, status, custom_domain, domain_verified,
	current_users, current_expenses, storage_used_mb, settings, trial_ends_at,
	version, deleted_at, created_at, updated_at`

// PostgresStore implements Store on pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the pgx-backed tenant store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	var settings []byte
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Plan, &t.Status, &t.CustomDomain, &t.DomainVerified,
		&t.Usage.CurrentUsers, &t.Usage.CurrentExpenses, &t.Usage.StorageUsedMB, &settings, &t.TrialEndsAt,
		&t.Version, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(settings, &t.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &t, nil
}

// Create inserts the tenant and its owner atomically. Unique violations map
// to ErrSlugTaken / ErrEmailTaken.
func (s *PostgresStore) Create(ctx context.Context, t *models.Tenant, owner *models.User) error {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertTenant = `INSERT INTO tenants (name, slug, plan, status, settings, trial_ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at`
	err = tx.QueryRow(ctx, insertTenant, t.Name, t.Slug, t.Plan, string(t.Status), settings, t.TrialEndsAt).
		Scan(&t.ID, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}

	const insertOwner = `INSERT INTO users (tenant_id, email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	owner.TenantID = t.ID
	owner.Role = models.RoleOwner
	err = tx.QueryRow(ctx, insertOwner, t.ID, owner.Email, owner.Password, owner.FullName, string(owner.Role)).
		Scan(&owner.ID, &owner.CreatedAt, &owner.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}

	const bumpUsers = `UPDATE tenants SET current_users = 1 WHERE id = $1`
	if _, err := tx.Exec(ctx, bumpUsers, t.ID); err != nil {
		return err
	}
	t.Usage.CurrentUsers = 1

	return tx.Commit(ctx)
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "tenants_slug_key":
			return ErrSlugTaken
		case "users_email_key":
			return ErrEmailTaken
		}
	}
	return err
}

// GetByID returns a live tenant.
func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	q := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 AND deleted_at IS NULL`
	return scanTenant(s.pool.QueryRow(ctx, q, id))
}

// GetAny returns a tenant regardless of soft-deletion.
func (s *PostgresStore) GetAny(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	q := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(s.pool.QueryRow(ctx, q, id))
}

// GetOwner returns the tenant's owner user.
func (s *PostgresStore) GetOwner(ctx context.Context, tenantID uuid.UUID) (*models.User, error) {
	const q = `SELECT id, tenant_id, email, password_hash, full_name, role, last_login_at, created_at, updated_at
		FROM users WHERE tenant_id = $1 AND role = 'owner' ORDER BY created_at LIMIT 1`
	var u models.User
	err := s.pool.QueryRow(ctx, q, tenantID).Scan(&u.ID, &u.TenantID, &u.Email, &u.Password,
		&u.FullName, &u.Role, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// SlugExists checks slug existence, including soft-deleted tenants so a slug
// is never silently reused while a purge is pending.
func (s *PostgresStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// likeEscaper neutralizes LIKE metacharacters so a search term is matched
// literally. An unescaped underscore would match any character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns live tenants, newest first, optionally filtered by a
// case-insensitive substring on name or slug.
func (s *PostgresStore) List(ctx context.Context, search string) ([]*models.Tenant, error) {
	q := `SELECT ` + tenantColumns + ` FROM tenants WHERE deleted_at IS NULL`
	args := []interface{}{}
	if search != "" {
		q += ` AND (name ILIKE '%' || $1 || '%' OR slug ILIKE '%' || $1 || '%')`
		args = append(args, likeEscaper.Replace(search))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Update persists mutable fields under an optimistic version check. Slug and
// usage counters are deliberately absent from the SET list: the slug is
// immutable and counters move through their own atomic increments.
func (s *PostgresStore) Update(ctx context.Context, t *models.Tenant) error {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	const q = `UPDATE tenants
		SET name = $2, plan = $3, status = $4, custom_domain = $5, domain_verified = $6,
		    settings = $7, trial_ends_at = $8, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $9 AND deleted_at IS NULL
		RETURNING version, updated_at`
	err = s.pool.QueryRow(ctx, q, t.ID, t.Name, t.Plan, string(t.Status), t.CustomDomain, t.DomainVerified,
		settings, t.TrialEndsAt, t.Version).Scan(&t.Version, &t.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	// Zero rows: either the tenant is gone or the version is stale.
	if _, getErr := s.GetByID(ctx, t.ID); getErr != nil {
		return getErr
	}
	return ErrVersionConflict
}

// SoftDelete hides the tenant and parks it in cancelled until the purge runs.
func (s *PostgresStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET deleted_at = NOW(), status = 'cancelled', updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the tenant row; member rows cascade.
func (s *PostgresStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	return err
}

// ListExpiredTrials returns live trial tenants past their trial window.
func (s *PostgresStore) ListExpiredTrials(ctx context.Context) ([]*models.Tenant, error) {
	q := `SELECT ` + tenantColumns + ` FROM tenants
		WHERE deleted_at IS NULL AND status = 'trial' AND trial_ends_at IS NOT NULL AND trial_ends_at < NOW()`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
