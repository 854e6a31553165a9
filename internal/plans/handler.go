package plans

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensehub/backend/pkg/response"
)

// Handler handles plan catalog and subscription stats endpoints.
type Handler struct {
	repo *Repository
	pool *pgxpool.Pool
}

// NewHandler creates a plans handler.
func NewHandler(repo *Repository, pool *pgxpool.Pool) *Handler {
	return &Handler{repo: repo, pool: pool}
}

// List handles GET /api/public/plans and GET /api/super-admin/subscriptions/plans.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load plans")
		return
	}
	response.OK(c, list)
}

// PlanStats is one row of GET /api/super-admin/subscriptions/stats.
type PlanStats struct {
	Plan       string `json:"plan"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Tenants    int    `json:"tenants"`
	MRRCents   int    `json:"mrr_cents"`
}

// StatsResponse is the body of GET /api/super-admin/subscriptions/stats.
type StatsResponse struct {
	Plans         []PlanStats `json:"plans"`
	TotalTenants  int         `json:"total_tenants"`
	TotalMRRCents int         `json:"total_mrr_cents"`
}

// Stats handles GET /api/super-admin/subscriptions/stats. Cancelled and
// soft-deleted tenants do not count toward MRR.
func (h *Handler) Stats(c *gin.Context) {
	const q = `SELECT p.slug, p.name, p.price_cents,
			COUNT(t.id) FILTER (WHERE t.deleted_at IS NULL AND t.status IN ('trial', 'active')),
			COALESCE(SUM(p.price_cents) FILTER (WHERE t.deleted_at IS NULL AND t.status = 'active'), 0)
		FROM plans p
		LEFT JOIN tenants t ON t.plan = p.slug
		WHERE p.is_active
		GROUP BY p.slug, p.name, p.price_cents
		ORDER BY p.price_cents`
	rows, err := h.pool.Query(c.Request.Context(), q)
	if err != nil {
		response.Internal(c, "failed to load subscription stats")
		return
	}
	defer rows.Close()

	out := StatsResponse{Plans: []PlanStats{}}
	for rows.Next() {
		var s PlanStats
		if err := rows.Scan(&s.Plan, &s.Name, &s.PriceCents, &s.Tenants, &s.MRRCents); err != nil {
			response.Internal(c, "failed to load subscription stats")
			return
		}
		out.Plans = append(out.Plans, s)
		out.TotalTenants += s.Tenants
		out.TotalMRRCents += s.MRRCents
	}
	if err := rows.Err(); err != nil {
		response.Internal(c, "failed to load subscription stats")
		return
	}
	response.OK(c, out)
}
