package tenants

import (
	"context"
	"errors"
	"regexp"

	"github.com/google/uuid"

	"github.com/expensehub/backend/internal/models"
)

var (
	// ErrNotFound is returned when no tenant matches.
	ErrNotFound = errors.New("tenant not found")
	// ErrSlugTaken is returned when the slug is already registered.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrEmailTaken is returned when the owner email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrVersionConflict is returned when an optimistic update lost the race.
	ErrVersionConflict = errors.New("tenant was modified concurrently")
)

// slugPattern is the only accepted slug shape. Slugs are immutable after creation.
var slugPattern = regexp.MustCompile(`^[a-z0-9-]{3,30}$`)

// ValidSlug reports whether s is an acceptable tenant slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Store is the tenant registry persistence contract.
type Store interface {
	// Create inserts the tenant and its owner in one transaction.
	// Returns ErrSlugTaken or ErrEmailTaken on unique violations.
	Create(ctx context.Context, t *models.Tenant, owner *models.User) error
	// GetByID returns a live (not soft-deleted) tenant.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	// GetAny returns a tenant regardless of soft-deletion; used by the purge worker.
	GetAny(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	// GetOwner returns the tenant's owner user.
	GetOwner(ctx context.Context, tenantID uuid.UUID) (*models.User, error)
	// SlugExists is a pure existence check with no side effects.
	SlugExists(ctx context.Context, slug string) (bool, error)
	// List returns live tenants, optionally filtered by a name/slug substring.
	List(ctx context.Context, search string) ([]*models.Tenant, error)
	// Update persists mutable fields with an optimistic version check.
	// Returns ErrVersionConflict when t.Version is stale; on success the
	// version on t is bumped.
	Update(ctx context.Context, t *models.Tenant) error
	// SoftDelete marks the tenant cancelled and hides it from List/GetByID.
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// HardDelete removes the tenant row (members cascade); worker only.
	HardDelete(ctx context.Context, id uuid.UUID) error
	// ListExpiredTrials returns live trial tenants whose trial window has passed.
	ListExpiredTrials(ctx context.Context) ([]*models.Tenant, error)
}
