package tenants

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expensehub/backend/internal/auth"
	"github.com/expensehub/backend/internal/middleware"
	"github.com/expensehub/backend/internal/models"
	"github.com/expensehub/backend/internal/plans"
	"github.com/expensehub/backend/internal/quota"
	"github.com/expensehub/backend/pkg/queue"
	"github.com/expensehub/backend/pkg/response"
	"github.com/expensehub/backend/pkg/utils"
)

// PlanCatalog is the slice of the plan catalog the registry needs.
type PlanCatalog interface {
	GetBySlug(ctx context.Context, slug string) (*models.Plan, error)
}

// AuditLog records tenant-affecting operations.
type AuditLog interface {
	Record(ctx context.Context, e *models.AuditEntry) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.AuditEntry, error)
}

// PurgeQueue enqueues asynchronous tenant purges.
type PurgeQueue interface {
	EnqueueTenantPurge(ctx context.Context, payload queue.TenantPurgePayload) error
}

// StatusInvalidator drops cached tenant status after a transition.
type StatusInvalidator interface {
	Invalidate(ctx context.Context, id uuid.UUID)
}

// Handler handles tenant registry HTTP endpoints.
type Handler struct {
	store     Store
	catalog   PlanCatalog
	auditLog  AuditLog
	purge     PurgeQueue
	cache     StatusInvalidator
	jwt       *auth.JWTService
	trialDays int
	logger    *zap.Logger
}

// NewHandler creates a tenants handler.
func NewHandler(store Store, catalog PlanCatalog, auditLog AuditLog, purge PurgeQueue,
	cache StatusInvalidator, jwt *auth.JWTService, trialDays int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:     store,
		catalog:   catalog,
		auditLog:  auditLog,
		purge:     purge,
		cache:     cache,
		jwt:       jwt,
		trialDays: trialDays,
		logger:    logger,
	}
}

// SignupRequest is the body for POST /api/public/signup and POST /api/super-admin/tenants.
type SignupRequest struct {
	Name          string `json:"name" binding:"required"`
	Slug          string `json:"slug" binding:"required"`
	OwnerName     string `json:"owner_name" binding:"required"`
	OwnerEmail    string `json:"owner_email" binding:"required,email"`
	OwnerPassword string `json:"owner_password" binding:"required"`
	Plan          string `json:"plan"`
}

// Signup handles POST /api/public/signup. Creates the tenant in trial and
// returns a session token for the owner.
func (h *Handler) Signup(c *gin.Context) {
	h.createTenant(c, false, "signup")
}

// Create handles POST /api/super-admin/tenants. Operator-provisioned tenants
// bypass trial and start active.
func (h *Handler) Create(c *gin.Context) {
	h.createTenant(c, true, c.GetString(middleware.ContextEmail))
}

func (h *Handler) createTenant(c *gin.Context, byOperator bool, actor string) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request: "+err.Error())
		return
	}

	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if !ValidSlug(req.Slug) {
		response.BadRequest(c, response.CodeValidation, "slug must be 3-30 lowercase letters, digits, or hyphens")
		return
	}
	if len(req.OwnerPassword) < 8 {
		response.BadRequest(c, response.CodeValidation, "password must be at least 8 characters")
		return
	}

	planSlug := req.Plan
	if planSlug == "" {
		planSlug = models.PlanFree
	}
	plan, err := h.catalog.GetBySlug(c.Request.Context(), planSlug)
	if err != nil {
		if errors.Is(err, plans.ErrUnknownPlan) {
			response.BadRequest(c, response.CodeUnknownPlan, "unknown plan: "+planSlug)
			return
		}
		response.Internal(c, "failed to load plan")
		return
	}

	hash, err := utils.HashPassword(req.OwnerPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	tenant := &models.Tenant{
		Name:     strings.TrimSpace(req.Name),
		Slug:     req.Slug,
		Plan:     plan.Slug,
		Status:   models.StatusTrial,
		Settings: plan.Snapshot(),
	}
	if byOperator {
		tenant.Status = models.StatusActive
	} else {
		trialEnd := time.Now().AddDate(0, 0, h.trialDays)
		tenant.TrialEndsAt = &trialEnd
	}
	owner := &models.User{
		Email:    strings.ToLower(strings.TrimSpace(req.OwnerEmail)),
		Password: hash,
		FullName: strings.TrimSpace(req.OwnerName),
	}

	if err := h.store.Create(c.Request.Context(), tenant, owner); err != nil {
		switch {
		case errors.Is(err, ErrSlugTaken):
			response.Conflict(c, response.CodeConflict, "an organization with this slug already exists")
		case errors.Is(err, ErrEmailTaken):
			response.Conflict(c, response.CodeConflict, "email already registered")
		default:
			h.logger.Error("create tenant", zap.Error(err), zap.String("slug", tenant.Slug))
			response.Internal(c, "failed to create tenant")
		}
		return
	}

	h.recordAudit(c.Request.Context(), &models.AuditEntry{
		TenantID: tenant.ID,
		Action:   models.AuditTenantCreated,
		ToStatus: string(tenant.Status),
		Actor:    actor,
	})

	token, err := h.jwt.GenerateTenant(owner.ID, tenant.ID, owner.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, auth.TenantLoginResponse{Token: token, Tenant: tenant, User: owner.ToPublic()})
}

// CheckSlug handles GET /api/public/check-slug/:slug. Unauthenticated,
// side-effect free; format-invalid slugs report unavailable so the debounced
// form check and createTenant agree.
func (h *Handler) CheckSlug(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	if !ValidSlug(slug) {
		response.OK(c, gin.H{"available": false})
		return
	}
	exists, err := h.store.SlugExists(c.Request.Context(), slug)
	if err != nil {
		response.Internal(c, "failed to check slug")
		return
	}
	response.OK(c, gin.H{"available": !exists})
}

// List handles GET /api/super-admin/tenants with optional ?search= substring
// filter on name/slug.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		response.Internal(c, "failed to list tenants")
		return
	}
	if list == nil {
		list = []*models.Tenant{}
	}
	response.OK(c, list)
}

// Details is the enriched tenant payload for GET /api/super-admin/tenants/:id.
type Details struct {
	Tenant      *models.Tenant      `json:"tenant"`
	Owner       *models.UserPublic  `json:"owner,omitempty"`
	Stats       quota.Report        `json:"stats"`
	RecentAudit []models.AuditEntry `json:"recent_audit,omitempty"`
}

// Get handles GET /api/super-admin/tenants/:id.
func (h *Handler) Get(c *gin.Context) {
	tenant, ok := h.loadTenant(c)
	if !ok {
		return
	}

	details := Details{Tenant: tenant, Stats: quota.Compute(tenant)}
	if owner, err := h.store.GetOwner(c.Request.Context(), tenant.ID); err == nil {
		pub := owner.ToPublic()
		details.Owner = &pub
	}
	if entries, err := h.auditLog.ListByTenant(c.Request.Context(), tenant.ID, 20); err == nil {
		details.RecentAudit = entries
	}
	response.OK(c, details)
}

// UpdateRequest is the body for PUT /api/super-admin/tenants/:id. Only name,
// plan, status, and custom domain are mutable.
type UpdateRequest struct {
	Name           *string `json:"name"`
	Slug           *string `json:"slug"`
	Plan           *string `json:"plan"`
	Status         *string `json:"status"`
	CustomDomain   *string `json:"custom_domain"`
	DomainVerified *bool   `json:"domain_verified"`
	Reason         string  `json:"reason"`
}

// Update handles PUT /api/super-admin/tenants/:id.
func (h *Handler) Update(c *gin.Context) {
	tenant, ok := h.loadTenant(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request: "+err.Error())
		return
	}
	if req.Slug != nil && *req.Slug != tenant.Slug {
		response.BadRequest(c, response.CodeValidation, "slug is immutable")
		return
	}

	actor := c.GetString(middleware.ContextEmail)
	ctx := c.Request.Context()

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		tenant.Name = strings.TrimSpace(*req.Name)
	}
	if req.CustomDomain != nil {
		tenant.CustomDomain = req.CustomDomain
		tenant.DomainVerified = false
	}
	if req.DomainVerified != nil {
		tenant.DomainVerified = *req.DomainVerified
	}

	// The audit row is held back until the update is persisted: a request
	// rejected further down must leave no trace of a plan change.
	var planAudit *models.AuditEntry
	if req.Plan != nil && *req.Plan != tenant.Plan {
		plan, err := h.catalog.GetBySlug(ctx, *req.Plan)
		if err != nil {
			response.BadRequest(c, response.CodeUnknownPlan, "unknown plan: "+*req.Plan)
			return
		}
		oldPlan := tenant.Plan
		tenant.Plan = plan.Slug
		// Plan change re-snapshots the catalog limits; this is the only
		// moment catalog edits reach a tenant's settings.
		tenant.Settings = plan.Snapshot()
		planAudit = &models.AuditEntry{
			TenantID: tenant.ID,
			Action:   models.AuditPlanChange,
			Actor:    actor,
			Reason:   "plan changed from " + oldPlan + " to " + plan.Slug,
		}
	}

	// A status equal to the current one is not a transition request: PUT
	// payloads echo the full resource back. Only the dedicated suspend and
	// reactivate endpoints reject same-state calls.
	if req.Status != nil && models.TenantStatus(*req.Status) != tenant.Status {
		to := models.TenantStatus(*req.Status)
		if to == models.StatusSuspended {
			if err := ValidateReason(req.Reason); err != nil {
				response.BadRequest(c, response.CodeReasonRequired, "a reason is required to suspend a tenant")
				return
			}
		}
		if err := h.applyTransition(ctx, tenant, to, actor, req.Reason); err != nil {
			h.respondTransitionError(c, err)
			return
		}
		if planAudit != nil {
			h.recordAudit(ctx, planAudit)
		}
		response.OK(c, tenant)
		return
	}

	if err := h.store.Update(ctx, tenant); err != nil {
		h.respondTransitionError(c, err)
		return
	}
	h.cache.Invalidate(ctx, tenant.ID)
	if planAudit != nil {
		h.recordAudit(ctx, planAudit)
	}
	response.OK(c, tenant)
}

// SuspendRequest is the body for PUT /api/super-admin/tenants/:id/suspend
// and DELETE /api/super-admin/tenants/:id.
type SuspendRequest struct {
	Reason string `json:"reason"`
}

// Suspend handles PUT /api/super-admin/tenants/:id/suspend. The reason is
// mandatory; suspended tenants keep read-only access until reactivated.
func (h *Handler) Suspend(c *gin.Context) {
	var req SuspendRequest
	_ = c.ShouldBindJSON(&req)
	if err := ValidateReason(req.Reason); err != nil {
		response.BadRequest(c, response.CodeReasonRequired, "a reason is required to suspend a tenant")
		return
	}
	tenant, ok := h.loadTenant(c)
	if !ok {
		return
	}
	actor := c.GetString(middleware.ContextEmail)
	if err := h.applyTransition(c.Request.Context(), tenant, models.StatusSuspended, actor, strings.TrimSpace(req.Reason)); err != nil {
		h.respondTransitionError(c, err)
		return
	}
	response.OK(c, tenant)
}

// Reactivate handles PUT /api/super-admin/tenants/:id/reactivate.
// Unconditional from suspended; anything else is an invalid transition.
func (h *Handler) Reactivate(c *gin.Context) {
	tenant, ok := h.loadTenant(c)
	if !ok {
		return
	}
	// Reactivate undoes a suspension and nothing else. Without this guard a
	// trial tenant would slip through the trial->active edge of the matrix
	// and have its trial silently ended.
	if tenant.Status != models.StatusSuspended {
		h.respondTransitionError(c, ErrInvalidTransition)
		return
	}
	actor := c.GetString(middleware.ContextEmail)
	if err := h.applyTransition(c.Request.Context(), tenant, models.StatusActive, actor, ""); err != nil {
		h.respondTransitionError(c, err)
		return
	}
	response.OK(c, tenant)
}

// Delete handles DELETE /api/super-admin/tenants/:id. The audit record is
// persisted before any data is removed; the hard purge runs asynchronously.
func (h *Handler) Delete(c *gin.Context) {
	var req SuspendRequest
	_ = c.ShouldBindJSON(&req)
	if err := ValidateReason(req.Reason); err != nil {
		response.BadRequest(c, response.CodeReasonRequired, "a reason is required to delete a tenant")
		return
	}
	tenant, ok := h.loadTenant(c)
	if !ok {
		return
	}
	actor := c.GetString(middleware.ContextEmail)
	reason := strings.TrimSpace(req.Reason)
	ctx := c.Request.Context()

	entry := &models.AuditEntry{
		TenantID:   tenant.ID,
		Action:     models.AuditTenantDeleted,
		FromStatus: string(tenant.Status),
		ToStatus:   string(models.StatusCancelled),
		Actor:      actor,
		Reason:     reason,
	}
	if err := h.auditLog.Record(ctx, entry); err != nil {
		h.logger.Error("record deletion audit", zap.Error(err), zap.String("tenant_id", tenant.ID.String()))
		response.Internal(c, "failed to record deletion")
		return
	}

	if err := h.store.SoftDelete(ctx, tenant.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "tenant not found")
			return
		}
		response.Internal(c, "failed to delete tenant")
		return
	}
	h.cache.Invalidate(ctx, tenant.ID)

	err := h.purge.EnqueueTenantPurge(ctx, queue.TenantPurgePayload{
		TenantID: tenant.ID,
		Reason:   reason,
		Actor:    actor,
	})
	if err != nil {
		// The tenant stays soft-deleted and invisible; the purge can be re-enqueued.
		h.logger.Error("enqueue tenant purge", zap.Error(err), zap.String("tenant_id", tenant.ID.String()))
	}

	response.OK(c, gin.H{"deleted": true})
}

func (h *Handler) loadTenant(c *gin.Context) (*models.Tenant, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid tenant id")
		return nil, false
	}
	tenant, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "tenant not found")
		} else {
			response.Internal(c, "failed to load tenant")
		}
		return nil, false
	}
	return tenant, true
}

// applyTransition validates and persists a status change, retrying once when
// the optimistic version check loses a race, then audits and invalidates the
// status cache.
func (h *Handler) applyTransition(ctx context.Context, t *models.Tenant, to models.TenantStatus, actor, reason string) error {
	if err := ValidateTransition(t.Status, to); err != nil {
		return err
	}
	from := t.Status
	t.Status = to
	err := h.store.Update(ctx, t)
	if errors.Is(err, ErrVersionConflict) {
		fresh, getErr := h.store.GetByID(ctx, t.ID)
		if getErr != nil {
			return getErr
		}
		if err = ValidateTransition(fresh.Status, to); err != nil {
			return err
		}
		from = fresh.Status
		fresh.Status = to
		if err = h.store.Update(ctx, fresh); err != nil {
			return err
		}
		*t = *fresh
	} else if err != nil {
		return err
	}

	h.cache.Invalidate(ctx, t.ID)
	h.recordAudit(ctx, &models.AuditEntry{
		TenantID:   t.ID,
		Action:     models.AuditStatusChange,
		FromStatus: string(from),
		ToStatus:   string(to),
		Actor:      actor,
		Reason:     reason,
	})
	return nil
}

func (h *Handler) recordAudit(ctx context.Context, e *models.AuditEntry) {
	if err := h.auditLog.Record(ctx, e); err != nil {
		h.logger.Error("record audit entry", zap.Error(err),
			zap.String("tenant_id", e.TenantID.String()), zap.String("action", e.Action))
	}
}

func (h *Handler) respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, response.CodeInvalidTransition, "status transition not allowed")
	case errors.Is(err, ErrVersionConflict):
		response.Conflict(c, response.CodeConflict, "tenant was modified concurrently, retry")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "tenant not found")
	default:
		response.Internal(c, "failed to update tenant")
	}
}
