package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expensehub/backend/internal/models"
	"github.com/expensehub/backend/pkg/response"
	"github.com/expensehub/backend/pkg/utils"
)

// TenantGetter is the slice of the tenant store the auth handler needs to
// enrich login responses.
type TenantGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// LoginRequest is the body for POST /api/public/login and /api/super-admin/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TenantLoginResponse is the tenant-member auth response.
type TenantLoginResponse struct {
	Token  string            `json:"token"`
	Tenant *models.Tenant    `json:"tenant"`
	User   models.UserPublic `json:"user"`
}

// SuperAdminLoginResponse is the super-admin auth response.
type SuperAdminLoginResponse struct {
	Token      string                  `json:"token"`
	SuperAdmin models.SuperAdminPublic `json:"super_admin"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo    *Repository
	tenants TenantGetter
	jwt     *JWTService
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, tenants TenantGetter, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, tenants: tenants, jwt: jwt, logger: logger}
}

// Login handles POST /api/public/login for tenant members.
// Unknown email and wrong password produce the same response so the endpoint
// cannot be used to enumerate accounts.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "email and password required")
		return
	}

	user, err := h.repo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, response.CodeAuth, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, response.CodeAuth, "invalid email or password")
		return
	}

	tenant, err := h.tenants.GetByID(c.Request.Context(), user.TenantID)
	if err != nil || tenant.Status == models.StatusCancelled {
		response.Unauthorized(c, response.CodeAuth, "invalid email or password")
		return
	}

	token, err := h.jwt.GenerateTenant(user.ID, user.TenantID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	if err := h.repo.TouchUserLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("touch user login", zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	response.OK(c, TenantLoginResponse{Token: token, Tenant: tenant, User: user.ToPublic()})
}

// SuperAdminLogin handles POST /api/super-admin/login.
func (h *Handler) SuperAdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "email and password required")
		return
	}

	admin, err := h.repo.GetSuperAdminByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, response.CodeAuth, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, admin.Password) {
		response.Unauthorized(c, response.CodeAuth, "invalid email or password")
		return
	}

	token, err := h.jwt.GenerateSuperAdmin(admin.ID, admin.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	if err := h.repo.TouchSuperAdminLogin(c.Request.Context(), admin.ID); err != nil {
		h.logger.Warn("touch super admin login", zap.Error(err), zap.String("admin_id", admin.ID.String()))
	}

	response.OK(c, SuperAdminLoginResponse{Token: token, SuperAdmin: admin.ToPublic()})
}
