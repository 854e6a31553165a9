package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensehub/backend/internal/models"
)

// ErrNotFound is returned when no credential record matches.
var ErrNotFound = errors.New("not found")

// Repository handles tenant member and super-admin credential persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUserByEmail returns a tenant member by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, tenant_id, email, password_hash, full_name, role, last_login_at, created_at, updated_at
		FROM users WHERE email = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.TenantID, &u.Email, &u.Password,
		&u.FullName, &u.Role, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetSuperAdminByEmail returns a super admin by email.
func (r *Repository) GetSuperAdminByEmail(ctx context.Context, email string) (*models.SuperAdmin, error) {
	const q = `SELECT id, email, password_hash, full_name, last_login_at, created_at
		FROM super_admins WHERE email = $1`
	var a models.SuperAdmin
	err := r.pool.QueryRow(ctx, q, email).Scan(&a.ID, &a.Email, &a.Password, &a.FullName, &a.LastLoginAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// TouchUserLogin records a successful member login.
func (r *Repository) TouchUserLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// TouchSuperAdminLogin records a successful super-admin login.
func (r *Repository) TouchSuperAdminLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE super_admins SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// EnsureSuperAdmin creates the bootstrap super admin if none exists.
// No-op when the table already has a row or the email is empty.
func (r *Repository) EnsureSuperAdmin(ctx context.Context, email, passwordHash, fullName string) error {
	if email == "" {
		return nil
	}
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM super_admins`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO super_admins (email, password_hash, full_name) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING`,
		email, passwordHash, fullName)
	return err
}
