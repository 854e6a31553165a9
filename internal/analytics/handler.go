package analytics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensehub/backend/pkg/response"
)

// Handler serves the super-admin analytics endpoints with pool-level
// aggregate queries.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates an analytics handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// DashboardResponse is the body of GET /api/super-admin/analytics/dashboard.
type DashboardResponse struct {
	TotalTenants   int            `json:"total_tenants"`
	ByStatus       map[string]int `json:"by_status"`
	ByPlan         map[string]int `json:"by_plan"`
	TotalMembers   int            `json:"total_members"`
	MRRCents       int            `json:"mrr_cents"`
	NewTenants30d  int            `json:"new_tenants_30d"`
	SuspendedCount int            `json:"suspended_count"`
}

// Dashboard handles GET /api/super-admin/analytics/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	out := DashboardResponse{ByStatus: map[string]int{}, ByPlan: map[string]int{}}

	rows, err := h.pool.Query(ctx,
		`SELECT status, plan, COUNT(*) FROM tenants WHERE deleted_at IS NULL GROUP BY status, plan`)
	if err != nil {
		response.Internal(c, "failed to load dashboard")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var status, plan string
		var n int
		if err := rows.Scan(&status, &plan, &n); err != nil {
			response.Internal(c, "failed to load dashboard")
			return
		}
		out.TotalTenants += n
		out.ByStatus[status] += n
		out.ByPlan[plan] += n
	}
	if err := rows.Err(); err != nil {
		response.Internal(c, "failed to load dashboard")
		return
	}
	out.SuspendedCount = out.ByStatus["suspended"]

	const membersQ = `SELECT COUNT(*) FROM users u
		INNER JOIN tenants t ON t.id = u.tenant_id WHERE t.deleted_at IS NULL`
	_ = h.pool.QueryRow(ctx, membersQ).Scan(&out.TotalMembers)

	const mrrQ = `SELECT COALESCE(SUM(p.price_cents), 0) FROM tenants t
		INNER JOIN plans p ON p.slug = t.plan
		WHERE t.deleted_at IS NULL AND t.status = 'active'`
	_ = h.pool.QueryRow(ctx, mrrQ).Scan(&out.MRRCents)

	const recentQ = `SELECT COUNT(*) FROM tenants
		WHERE deleted_at IS NULL AND created_at > NOW() - INTERVAL '30 days'`
	_ = h.pool.QueryRow(ctx, recentQ).Scan(&out.NewTenants30d)

	response.OK(c, out)
}

// MonthPoint is one month of a time series.
type MonthPoint struct {
	Month      string `json:"month"` // YYYY-MM
	NewTenants int    `json:"new_tenants"`
	MRRCents   int    `json:"mrr_cents,omitempty"`
}

// RevenueResponse is the body of GET /api/super-admin/analytics/revenue.
type RevenueResponse struct {
	MRRCents   int            `json:"mrr_cents"`
	MRRByPlan  map[string]int `json:"mrr_by_plan"`
	LastMonths []MonthPoint   `json:"last_months"`
}

// Revenue handles GET /api/super-admin/analytics/revenue. The monthly series
// attributes each tenant's plan price to its signup month.
func (h *Handler) Revenue(c *gin.Context) {
	ctx := c.Request.Context()
	out := RevenueResponse{MRRByPlan: map[string]int{}}

	rows, err := h.pool.Query(ctx,
		`SELECT t.plan, COALESCE(SUM(p.price_cents), 0) FROM tenants t
		 INNER JOIN plans p ON p.slug = t.plan
		 WHERE t.deleted_at IS NULL AND t.status = 'active'
		 GROUP BY t.plan`)
	if err != nil {
		response.Internal(c, "failed to load revenue")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var plan string
		var cents int
		if err := rows.Scan(&plan, &cents); err != nil {
			response.Internal(c, "failed to load revenue")
			return
		}
		out.MRRByPlan[plan] = cents
		out.MRRCents += cents
	}
	if err := rows.Err(); err != nil {
		response.Internal(c, "failed to load revenue")
		return
	}

	series, err := h.monthlySeries(c, true)
	if err != nil {
		response.Internal(c, "failed to load revenue")
		return
	}
	out.LastMonths = series
	response.OK(c, out)
}

// GrowthResponse is the body of GET /api/super-admin/analytics/tenants.
type GrowthResponse struct {
	LastMonths []MonthPoint `json:"last_months"`
}

// TenantGrowth handles GET /api/super-admin/analytics/tenants.
func (h *Handler) TenantGrowth(c *gin.Context) {
	series, err := h.monthlySeries(c, false)
	if err != nil {
		response.Internal(c, "failed to load tenant growth")
		return
	}
	response.OK(c, GrowthResponse{LastMonths: series})
}

func (h *Handler) monthlySeries(c *gin.Context, withRevenue bool) ([]MonthPoint, error) {
	const q = `SELECT to_char(date_trunc('month', t.created_at), 'YYYY-MM'),
			COUNT(*), COALESCE(SUM(p.price_cents), 0)
		FROM tenants t
		INNER JOIN plans p ON p.slug = t.plan
		WHERE t.deleted_at IS NULL AND t.created_at > NOW() - INTERVAL '12 months'
		GROUP BY 1 ORDER BY 1`
	rows, err := h.pool.Query(c.Request.Context(), q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMonth := map[string]MonthPoint{}
	for rows.Next() {
		var p MonthPoint
		var revenue int
		if err := rows.Scan(&p.Month, &p.NewTenants, &revenue); err != nil {
			return nil, err
		}
		if withRevenue {
			p.MRRCents = revenue
		}
		byMonth[p.Month] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Emit a contiguous 12-month window so chart axes stay stable.
	series := make([]MonthPoint, 0, 12)
	now := time.Now()
	for i := 11; i >= 0; i-- {
		month := now.AddDate(0, -i, 0).Format("2006-01")
		p, ok := byMonth[month]
		if !ok {
			p = MonthPoint{Month: month}
		}
		series = append(series, p)
	}
	return series, nil
}
