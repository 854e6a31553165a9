package tenants

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensehub/backend/internal/auth"
	"github.com/expensehub/backend/internal/models"
	"github.com/expensehub/backend/internal/plans"
	"github.com/expensehub/backend/pkg/queue"
	"github.com/expensehub/backend/pkg/response"
)

type fakeStore struct {
	tenants map[uuid.UUID]*models.Tenant
	owners  map[uuid.UUID]*models.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants: map[uuid.UUID]*models.Tenant{},
		owners:  map[uuid.UUID]*models.User{},
	}
}

func copyTenant(t *models.Tenant) *models.Tenant {
	cp := *t
	return &cp
}

func (s *fakeStore) Create(_ context.Context, t *models.Tenant, owner *models.User) error {
	for _, existing := range s.tenants {
		if existing.Slug == t.Slug {
			return ErrSlugTaken
		}
	}
	for _, u := range s.owners {
		if u.Email == owner.Email {
			return ErrEmailTaken
		}
	}
	t.ID = uuid.New()
	t.Version = 1
	t.CreatedAt = time.Now()
	t.Usage.CurrentUsers = 1
	owner.ID = uuid.New()
	owner.TenantID = t.ID
	owner.Role = models.RoleOwner
	s.tenants[t.ID] = copyTenant(t)
	s.owners[t.ID] = owner
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, ok := s.tenants[id]
	if !ok || t.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return copyTenant(t), nil
}

func (s *fakeStore) GetAny(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTenant(t), nil
}

func (s *fakeStore) GetOwner(_ context.Context, tenantID uuid.UUID) (*models.User, error) {
	u, ok := s.owners[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, t := range s.tenants {
		if t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) List(_ context.Context, search string) ([]*models.Tenant, error) {
	var out []*models.Tenant
	for _, t := range s.tenants {
		if t.DeletedAt != nil {
			continue
		}
		if search != "" && !strings.Contains(t.Name, search) && !strings.Contains(t.Slug, search) {
			continue
		}
		out = append(out, copyTenant(t))
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, t *models.Tenant) error {
	stored, ok := s.tenants[t.ID]
	if !ok || stored.DeletedAt != nil {
		return ErrNotFound
	}
	if stored.Version != t.Version {
		return ErrVersionConflict
	}
	t.Version++
	s.tenants[t.ID] = copyTenant(t)
	return nil
}

func (s *fakeStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	t, ok := s.tenants[id]
	if !ok || t.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	t.DeletedAt = &now
	t.Status = models.StatusCancelled
	return nil
}

func (s *fakeStore) HardDelete(_ context.Context, id uuid.UUID) error {
	delete(s.tenants, id)
	delete(s.owners, id)
	return nil
}

func (s *fakeStore) ListExpiredTrials(_ context.Context) ([]*models.Tenant, error) {
	var out []*models.Tenant
	now := time.Now()
	for _, t := range s.tenants {
		if t.DeletedAt == nil && t.Status == models.StatusTrial && t.TrialEndsAt != nil && t.TrialEndsAt.Before(now) {
			out = append(out, copyTenant(t))
		}
	}
	return out, nil
}

type fakeCatalog struct {
	plans map[string]*models.Plan
}

func (c *fakeCatalog) GetBySlug(_ context.Context, slug string) (*models.Plan, error) {
	p, ok := c.plans[slug]
	if !ok {
		return nil, plans.ErrUnknownPlan
	}
	return p, nil
}

type fakeAudit struct {
	entries []models.AuditEntry
}

func (a *fakeAudit) Record(_ context.Context, e *models.AuditEntry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	a.entries = append(a.entries, *e)
	return nil
}

func (a *fakeAudit) ListByTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, e := range a.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *fakeAudit) lastAction(tenantID uuid.UUID) string {
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].TenantID == tenantID {
			return a.entries[i].Action
		}
	}
	return ""
}

type fakePurge struct {
	jobs []queue.TenantPurgePayload
}

func (p *fakePurge) EnqueueTenantPurge(_ context.Context, payload queue.TenantPurgePayload) error {
	p.jobs = append(p.jobs, payload)
	return nil
}

type fakeCache struct {
	invalidated []uuid.UUID
}

func (c *fakeCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.invalidated = append(c.invalidated, id)
}

type fixture struct {
	store   *fakeStore
	catalog *fakeCatalog
	audit   *fakeAudit
	purge   *fakePurge
	cache   *fakeCache
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		store: newFakeStore(),
		catalog: &fakeCatalog{plans: map[string]*models.Plan{
			models.PlanFree: {
				Slug: models.PlanFree, Name: "Free",
				Limits:   models.PlanLimits{Users: 5, Expenses: 100, StorageMB: 100},
				IsActive: true,
			},
			models.PlanPremium: {
				Slug: models.PlanPremium, Name: "Premium", PriceCents: 9900,
				Limits:   models.PlanLimits{Users: 100, Expenses: 10000, StorageMB: 10240},
				IsActive: true,
			},
		}},
		audit: &fakeAudit{},
		purge: &fakePurge{},
		cache: &fakeCache{},
	}

	jwtService := auth.NewJWTService("tenant-secret", "admin-secret", 1)
	h := NewHandler(f.store, f.catalog, f.audit, f.purge, f.cache, jwtService, 14, nil)

	r := gin.New()
	r.POST("/signup", h.Signup)
	r.GET("/check-slug/:slug", h.CheckSlug)
	r.GET("/tenants", h.List)
	r.POST("/tenants", h.Create)
	r.GET("/tenants/:id", h.Get)
	r.PUT("/tenants/:id", h.Update)
	r.DELETE("/tenants/:id", h.Delete)
	r.PUT("/tenants/:id/suspend", h.Suspend)
	r.PUT("/tenants/:id/reactivate", h.Reactivate)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Body) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var envelope response.Body
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func signupBody(slug string) map[string]string {
	return map[string]string{
		"name":           "Acme Corp",
		"slug":           slug,
		"owner_name":     "Ada Lovelace",
		"owner_email":    "ada@" + slug + ".test",
		"owner_password": "correct-horse",
	}
}

// signup creates a tenant through the API and returns its stored state.
func (f *fixture) signup(t *testing.T, slug string) *models.Tenant {
	t.Helper()
	w, _ := f.do(t, http.MethodPost, "/signup", signupBody(slug))
	require.Equal(t, http.StatusCreated, w.Code)
	return f.signupStored(t, slug)
}

func TestSignupCreatesTrialTenant(t *testing.T) {
	f := newFixture(t)

	w, envelope := f.do(t, http.MethodPost, "/signup", signupBody("acme"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])

	tenant := data["tenant"].(map[string]interface{})
	assert.Equal(t, "acme", tenant["slug"])
	assert.Equal(t, string(models.StatusTrial), tenant["status"])
	assert.Equal(t, models.PlanFree, tenant["plan"])
	assert.NotEmpty(t, tenant["trial_ends_at"])

	settings := tenant["settings"].(map[string]interface{})
	assert.Equal(t, float64(5), settings["max_users"])

	user := data["user"].(map[string]interface{})
	assert.Equal(t, string(models.RoleOwner), user["role"])

	stored := f.signupStored(t, "acme")
	assert.Equal(t, models.AuditTenantCreated, f.audit.lastAction(stored.ID))
}

func (f *fixture) signupStored(t *testing.T, slug string) *models.Tenant {
	t.Helper()
	for _, tenant := range f.store.tenants {
		if tenant.Slug == slug {
			return tenant
		}
	}
	t.Fatalf("tenant %q not stored", slug)
	return nil
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name     string
		mutate   func(map[string]string)
		wantCode string
	}{
		{"slug too short", func(m map[string]string) { m["slug"] = "ab" }, response.CodeValidation},
		{"slug uppercase rejected by format", func(m map[string]string) { m["slug"] = "Acme Corp!" }, response.CodeValidation},
		{"weak password", func(m map[string]string) { m["owner_password"] = "short" }, response.CodeValidation},
		{"unknown plan", func(m map[string]string) { m["plan"] = "platinum" }, response.CodeUnknownPlan},
		{"missing email", func(m map[string]string) { delete(m, "owner_email") }, response.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := signupBody("valid-slug")
			tc.mutate(body)
			w, envelope := f.do(t, http.MethodPost, "/signup", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.wantCode, envelope.Code)
		})
	}
}

func TestSignupDuplicateSlugConflicts(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "acme")

	body := signupBody("acme")
	body["owner_email"] = "other@acme.test"
	w, envelope := f.do(t, http.MethodPost, "/signup", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeConflict, envelope.Code)
}

func TestOperatorCreateStartsActive(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/tenants", signupBody("provisioned"))
	require.Equal(t, http.StatusCreated, w.Code)

	stored := f.signupStored(t, "provisioned")
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Nil(t, stored.TrialEndsAt)
}

func TestCheckSlug(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "taken-slug")

	cases := []struct {
		slug      string
		available bool
	}{
		{"fresh-slug", true},
		{"taken-slug", false},
		{"ab", false},        // too short, reported unavailable not invalid
		{"Bad_Slug!", false}, // bad characters
	}
	for _, tc := range cases {
		w, envelope := f.do(t, http.MethodGet, "/check-slug/"+tc.slug, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := envelope.Data.(map[string]interface{})
		assert.Equal(t, tc.available, data["available"], "slug %q", tc.slug)
	}
}

func TestSuspendRequiresReason(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")

	for _, body := range []interface{}{nil, map[string]string{"reason": "   "}} {
		w, envelope := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String()+"/suspend", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeReasonRequired, envelope.Code)
	}
	assert.Equal(t, models.StatusTrial, f.store.tenants[tenant.ID].Status)
}

func TestSuspendAndReactivate(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")

	w, _ := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String()+"/suspend",
		map[string]string{"reason": "payment failure"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusSuspended, f.store.tenants[tenant.ID].Status)
	assert.Equal(t, models.AuditStatusChange, f.audit.lastAction(tenant.ID))
	assert.Contains(t, f.cache.invalidated, tenant.ID)

	// Suspending again is a same-state transition and must fail.
	w, envelope := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String()+"/suspend",
		map[string]string{"reason": "still unpaid"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeInvalidTransition, envelope.Code)

	w, _ = f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String()+"/reactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusActive, f.store.tenants[tenant.ID].Status)

	// Reactivating an already-active tenant fails the same way.
	w, envelope = f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String()+"/reactivate", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeInvalidTransition, envelope.Code)
}

func TestDeleteRequiresReasonAndHidesTenant(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "doomed")

	w, envelope := f.do(t, http.MethodDelete, "/tenants/"+tenant.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeReasonRequired, envelope.Code)
	assert.Empty(t, f.purge.jobs)

	w, _ = f.do(t, http.MethodDelete, "/tenants/"+tenant.ID.String(),
		map[string]string{"reason": "gdpr request"})
	require.Equal(t, http.StatusOK, w.Code)

	// Audit entry exists and the purge job carries the reason.
	assert.Equal(t, models.AuditTenantDeleted, f.audit.lastAction(tenant.ID))
	require.Len(t, f.purge.jobs, 1)
	assert.Equal(t, tenant.ID, f.purge.jobs[0].TenantID)
	assert.Equal(t, "gdpr request", f.purge.jobs[0].Reason)

	// Gone from listing and lookup, but still resolvable for the purge worker.
	_, listEnvelope := f.do(t, http.MethodGet, "/tenants", nil)
	list, _ := listEnvelope.Data.([]interface{})
	assert.Empty(t, list)

	w, _ = f.do(t, http.MethodGet, "/tenants/"+tenant.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	stored, err := f.store.GetAny(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.NotNil(t, stored.DeletedAt)
}

func TestUpdateSlugIsImmutable(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")

	newSlug := "renamed"
	w, envelope := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String(),
		UpdateRequest{Slug: &newSlug})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeValidation, envelope.Code)
	assert.Equal(t, "acme", f.store.tenants[tenant.ID].Slug)
}

func TestPlanChangeResnapshotsSettings(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")
	assert.Equal(t, 5, f.store.tenants[tenant.ID].Settings.MaxUsers)

	premium := models.PlanPremium
	w, _ := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String(),
		UpdateRequest{Plan: &premium})
	require.Equal(t, http.StatusOK, w.Code)

	stored := f.store.tenants[tenant.ID]
	assert.Equal(t, models.PlanPremium, stored.Plan)
	assert.Equal(t, 100, stored.Settings.MaxUsers)
	assert.Equal(t, models.AuditPlanChange, f.audit.lastAction(tenant.ID))

	// Catalog edits after the change must not leak into the tenant snapshot.
	f.catalog.plans[models.PlanPremium].Limits.Users = 7
	assert.Equal(t, 100, f.store.tenants[tenant.ID].Settings.MaxUsers)
}

func TestUpdateStatusViaPutRequiresReasonForSuspend(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")

	suspended := string(models.StatusSuspended)
	w, envelope := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String(),
		UpdateRequest{Status: &suspended})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeReasonRequired, envelope.Code)

	w, _ = f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String(),
		UpdateRequest{Status: &suspended, Reason: "abuse report"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusSuspended, f.store.tenants[tenant.ID].Status)
}

func TestGetReturnsDetails(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")

	w, envelope := f.do(t, http.MethodGet, "/tenants/"+tenant.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := envelope.Data.(map[string]interface{})
	owner := data["owner"].(map[string]interface{})
	assert.Equal(t, "ada@acme.test", owner["email"])

	stats := data["stats"].(map[string]interface{})
	users := stats["users"].(map[string]interface{})
	assert.Equal(t, float64(1), users["current"])
	assert.Equal(t, float64(5), users["limit"])
	assert.Equal(t, float64(20), users["pct"])

	assert.NotEmpty(t, data["recent_audit"])
}

func TestReactivateOnlyFromSuspended(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "fresh-trial")

	// A trial tenant is not suspended; reactivate must not end its trial.
	w, envelope := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String()+"/reactivate", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeInvalidTransition, envelope.Code)
	assert.Equal(t, models.StatusTrial, f.store.tenants[tenant.ID].Status)
	assert.NotNil(t, f.store.tenants[tenant.ID].TrialEndsAt)
}

func TestRejectedUpdateLeavesNoAuditRow(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")

	w, _ := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String()+"/suspend",
		map[string]string{"reason": "payment failure"})
	require.Equal(t, http.StatusOK, w.Code)
	entriesBefore := len(f.audit.entries)

	// Plan change combined with an illegal status transition: the whole
	// request fails and nothing may claim the plan changed.
	premium := models.PlanPremium
	trial := string(models.StatusTrial)
	w, envelope := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String(),
		UpdateRequest{Plan: &premium, Status: &trial})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeInvalidTransition, envelope.Code)

	assert.Equal(t, models.PlanFree, f.store.tenants[tenant.ID].Plan)
	assert.Len(t, f.audit.entries, entriesBefore)
}

func TestPlanAndStatusChangeTogetherAuditBoth(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")

	premium := models.PlanPremium
	active := string(models.StatusActive)
	w, _ := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String(),
		UpdateRequest{Plan: &premium, Status: &active})
	require.Equal(t, http.StatusOK, w.Code)

	stored := f.store.tenants[tenant.ID]
	assert.Equal(t, models.PlanPremium, stored.Plan)
	assert.Equal(t, models.StatusActive, stored.Status)

	var actions []string
	for _, e := range f.audit.entries {
		if e.TenantID == tenant.ID {
			actions = append(actions, e.Action)
		}
	}
	assert.Contains(t, actions, models.AuditStatusChange)
	assert.Contains(t, actions, models.AuditPlanChange)
}

func TestSettingsSnapshotSurvivesCatalogMutation(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")

	// Catalog edits after signup must not reach the tenant's snapshot.
	f.catalog.plans[models.PlanFree].Limits.Users = 50

	w, envelope := f.do(t, http.MethodGet, "/tenants/"+tenant.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := envelope.Data.(map[string]interface{})
	settings := data["tenant"].(map[string]interface{})["settings"].(map[string]interface{})
	assert.Equal(t, float64(5), settings["max_users"])

	users := data["stats"].(map[string]interface{})["users"].(map[string]interface{})
	assert.Equal(t, float64(5), users["limit"])
}

func TestUpdateEchoingCurrentStatusIsNotATransition(t *testing.T) {
	f := newFixture(t)
	tenant := f.signup(t, "acme")
	entriesBefore := len(f.audit.entries)

	name := "Acme Renamed"
	trial := string(models.StatusTrial)
	w, _ := f.do(t, http.MethodPut, "/tenants/"+tenant.ID.String(),
		UpdateRequest{Name: &name, Status: &trial})
	require.Equal(t, http.StatusOK, w.Code)

	stored := f.store.tenants[tenant.ID]
	assert.Equal(t, "Acme Renamed", stored.Name)
	assert.Equal(t, models.StatusTrial, stored.Status)
	assert.Len(t, f.audit.entries, entriesBefore)
}

func TestListSearchFilters(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "acme")
	f.signup(t, "globex")

	_, envelope := f.do(t, http.MethodGet, "/tenants?search=glob", nil)
	list := envelope.Data.([]interface{})
	require.Len(t, list, 1)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "globex", first["slug"])
}
