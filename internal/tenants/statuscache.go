package tenants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/expensehub/backend/internal/models"
)

const statusCacheTTL = 5 * time.Minute

// StatusCache caches tenant status in Redis for the write gate, so suspended
// tenants are rejected without a database round trip on every request.
// Entries are invalidated on every status change.
type StatusCache struct {
	rdb *redis.Client
}

// NewStatusCache creates a tenant status cache.
func NewStatusCache(rdb *redis.Client) *StatusCache {
	return &StatusCache{rdb: rdb}
}

func statusKey(id uuid.UUID) string {
	return "tenant:status:" + id.String()
}

// Get returns the cached status and whether it was present.
func (c *StatusCache) Get(ctx context.Context, id uuid.UUID) (models.TenantStatus, bool) {
	v, err := c.rdb.Get(ctx, statusKey(id)).Result()
	if err != nil {
		return "", false
	}
	return models.TenantStatus(v), true
}

// Set caches the status with a short TTL.
func (c *StatusCache) Set(ctx context.Context, id uuid.UUID, status models.TenantStatus) {
	_ = c.rdb.Set(ctx, statusKey(id), string(status), statusCacheTTL).Err()
}

// Invalidate drops the cached status. Must be called on every transition so
// suspension takes effect immediately rather than after TTL expiry.
func (c *StatusCache) Invalidate(ctx context.Context, id uuid.UUID) {
	_ = c.rdb.Del(ctx, statusKey(id)).Err()
}
