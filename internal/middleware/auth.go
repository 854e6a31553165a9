package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/expensehub/backend/internal/auth"
	"github.com/expensehub/backend/pkg/response"
)

const (
	// ContextUserID is the key for the authenticated principal's ID in gin context.
	ContextUserID = "user_id"
	// ContextTenantID is the key for the tenant ID (tenant scope only).
	ContextTenantID = "tenant_id"
	// ContextEmail is the key for the principal's email.
	ContextEmail = "user_email"
)

// Auth returns a middleware that validates a bearer token for the given
// namespace and sets the principal's claims in context. Tokens from the other
// namespace fail validation here.
func Auth(jwtService *auth.JWTService, scope auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, response.CodeAuth, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, response.CodeAuth, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1], scope)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				response.Unauthorized(c, response.CodeTokenExpired, "token expired")
			} else {
				response.Unauthorized(c, response.CodeTokenInvalid, "invalid token")
			}
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		if scope == auth.ScopeTenant {
			c.Set(ContextTenantID, claims.TenantID)
		}
		c.Next()
	}
}
