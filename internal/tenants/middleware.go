package tenants

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/expensehub/backend/internal/middleware"
	"github.com/expensehub/backend/internal/models"
	"github.com/expensehub/backend/pkg/response"
)

// WriteGate enforces the suspension side effect on tenant-scoped routes:
// suspended tenants keep read-only access, cancelled tenants lose access
// entirely. Call after the tenant-scope Auth middleware.
func WriteGate(cache *StatusCache, store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := c.Get(middleware.ContextTenantID)
		if !ok {
			response.Unauthorized(c, response.CodeAuth, "missing tenant context")
			c.Abort()
			return
		}
		tenantID := val.(uuid.UUID)
		ctx := c.Request.Context()

		status, cached := cache.Get(ctx, tenantID)
		if !cached {
			tenant, err := store.GetByID(ctx, tenantID)
			if err != nil {
				response.Unauthorized(c, response.CodeAuth, "tenant no longer exists")
				c.Abort()
				return
			}
			status = tenant.Status
			cache.Set(ctx, tenantID, status)
		}

		switch {
		case status == models.StatusCancelled:
			response.Forbidden(c, response.CodeTenantSuspended, "tenant is no longer active")
			c.Abort()
			return
		case status == models.StatusSuspended && c.Request.Method != http.MethodGet:
			response.Forbidden(c, response.CodeTenantSuspended, "tenant is suspended: read-only access")
			c.Abort()
			return
		}
		c.Next()
	}
}
