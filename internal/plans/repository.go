package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensehub/backend/internal/models"
)

// ErrUnknownPlan is returned when no plan matches the slug.
var ErrUnknownPlan = errors.New("unknown plan")

// Repository reads the plan catalog. Plans are seeded by migration and edited
// out of band; tenants keep their own settings snapshot, so catalog edits
// never retroactively change a tenant's contracted limits.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a plan catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPlan(row pgx.Row) (*models.Plan, error) {
	var p models.Plan
	var features []byte
	err := row.Scan(&p.Slug, &p.Name, &p.PriceCents, &p.Limits.Users, &p.Limits.Expenses,
		&p.Limits.StorageMB, &features, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownPlan
		}
		return nil, err
	}
	if err := json.Unmarshal(features, &p.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return &p, nil
}

const planColumns = `slug, name, price_cents, max_users, max_expenses, storage_mb, features, is_active, created_at, updated_at`

// List returns active plans ordered by price.
func (r *Repository) List(ctx context.Context) ([]*models.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE is_active ORDER BY price_cents`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// GetBySlug returns a plan by slug, ErrUnknownPlan if absent.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE slug = $1`
	return scanPlan(r.pool.QueryRow(ctx, q, slug))
}
