package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/expensehub/backend/internal/models"
	"github.com/expensehub/backend/internal/tenants"
)

// TrialSweeper suspends tenants whose trial window has passed without a plan
// activation. Runs daily from the worker's cron schedule.
type TrialSweeper struct {
	store    tenants.Store
	auditLog tenants.AuditLog
	cache    tenants.StatusInvalidator
	logger   *zap.Logger
}

// NewTrialSweeper creates a trial sweeper.
func NewTrialSweeper(store tenants.Store, auditLog tenants.AuditLog, cache tenants.StatusInvalidator, logger *zap.Logger) *TrialSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialSweeper{store: store, auditLog: auditLog, cache: cache, logger: logger}
}

// Sweep suspends every expired trial with the standard reason. Errors on one
// tenant do not stop the sweep.
func (s *TrialSweeper) Sweep(ctx context.Context) {
	expired, err := s.store.ListExpiredTrials(ctx)
	if err != nil {
		s.logger.Error("list expired trials", zap.Error(err))
		return
	}
	for _, t := range expired {
		if err := tenants.ValidateTransition(t.Status, models.StatusSuspended); err != nil {
			continue
		}
		from := t.Status
		t.Status = models.StatusSuspended
		if err := s.store.Update(ctx, t); err != nil {
			s.logger.Error("suspend expired trial", zap.Error(err), zap.String("tenant_id", t.ID.String()))
			continue
		}
		s.cache.Invalidate(ctx, t.ID)
		entry := &models.AuditEntry{
			TenantID:   t.ID,
			Action:     models.AuditStatusChange,
			FromStatus: string(from),
			ToStatus:   string(models.StatusSuspended),
			Actor:      "system",
			Reason:     "trial expired",
		}
		if err := s.auditLog.Record(ctx, entry); err != nil {
			s.logger.Error("record trial expiry audit", zap.Error(err), zap.String("tenant_id", t.ID.String()))
		}
		s.logger.Info("trial expired, tenant suspended", zap.String("tenant_id", t.ID.String()), zap.String("slug", t.Slug))
	}
}
