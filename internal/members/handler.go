package members

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expensehub/backend/internal/middleware"
	"github.com/expensehub/backend/internal/models"
	"github.com/expensehub/backend/internal/quota"
	"github.com/expensehub/backend/internal/tenants"
	"github.com/expensehub/backend/pkg/response"
	"github.com/expensehub/backend/pkg/utils"
)

// Handler handles tenant-scoped member endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a members handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

func (h *Handler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	val, ok := c.Get(middleware.ContextTenantID)
	if !ok {
		response.Unauthorized(c, response.CodeAuth, "missing tenant context")
		return uuid.Nil, false
	}
	return val.(uuid.UUID), true
}

// List handles GET /api/tenant/users.
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	list, err := h.store.ListByTenant(c.Request.Context(), tenantID)
	if err != nil {
		response.Internal(c, "failed to list members")
		return
	}
	if list == nil {
		list = []models.UserPublic{}
	}
	response.OK(c, list)
}

// CreateRequest is the body for POST /api/tenant/users.
type CreateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// Create handles POST /api/tenant/users. The quota check runs before the
// insert; a tenant at its user limit gets QUOTA_EXCEEDED and nothing changes.
func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request: "+err.Error())
		return
	}
	if len(req.Password) < 8 {
		response.BadRequest(c, response.CodeValidation, "password must be at least 8 characters")
		return
	}
	role := models.RoleMember
	switch req.Role {
	case "", string(models.RoleMember):
	case string(models.RoleAdmin):
		role = models.RoleAdmin
	default:
		response.BadRequest(c, response.CodeValidation, "invalid role")
		return
	}

	tenant, err := h.store.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			response.Unauthorized(c, response.CodeAuth, "tenant no longer exists")
			return
		}
		response.Internal(c, "failed to load tenant")
		return
	}
	if quota.IsOverLimit(tenant, quota.ResourceUsers) {
		response.Forbidden(c, response.CodeQuotaExceeded, "user limit reached for the current plan, upgrade to add more")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user := &models.User{
		TenantID: tenantID,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
		FullName: strings.TrimSpace(req.FullName),
		Role:     role,
	}
	if err := h.store.CreateMember(c.Request.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, response.CodeConflict, "email already registered")
			return
		}
		h.logger.Error("create member", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		response.Internal(c, "failed to create member")
		return
	}

	response.Created(c, user.ToPublic())
}

// Usage handles GET /api/tenant/usage: the tenant's own usage report.
func (h *Handler) Usage(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	tenant, err := h.store.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		response.Internal(c, "failed to load tenant")
		return
	}
	response.OK(c, quota.Compute(tenant))
}
