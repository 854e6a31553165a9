// Package worker runs background jobs: asynchronous tenant purges and the
// daily trial-expiry sweep.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/expensehub/backend/internal/members"
	"github.com/expensehub/backend/internal/models"
	"github.com/expensehub/backend/internal/tenants"
	"github.com/expensehub/backend/pkg/queue"
	"github.com/expensehub/backend/pkg/storage"
)

// PurgeProcessor consumes tenant purge jobs: archive a snapshot to S3 when
// configured, then hard-delete the tenant's rows.
type PurgeProcessor struct {
	store   tenants.Store
	members members.Store
	s3      *storage.S3 // nil when archival is disabled
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewPurgeProcessor creates a purge processor. s3 may be nil.
func NewPurgeProcessor(store tenants.Store, memberStore members.Store, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *PurgeProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurgeProcessor{store: store, members: memberStore, s3: s3, queue: q, logger: logger}
}

// archive is the snapshot written to S3 before the purge.
type archive struct {
	Tenant   *models.Tenant      `json:"tenant"`
	Members  []models.UserPublic `json:"members"`
	Reason   string              `json:"reason"`
	Actor    string              `json:"actor"`
	PurgedAt time.Time           `json:"purged_at"`
}

// Process executes one tenant purge job.
func (p *PurgeProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTenantPurge {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.TenantPurgePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	tenant, err := p.store.GetAny(ctx, payload.TenantID)
	if err != nil {
		// Already purged; retrying would never succeed.
		p.logger.Info("tenant already purged", zap.String("tenant_id", payload.TenantID.String()))
		return nil
	}

	if p.s3 != nil {
		memberList, err := p.members.ListByTenant(ctx, tenant.ID)
		if err != nil {
			return fmt.Errorf("load members: %w", err)
		}
		snapshot := archive{
			Tenant:   tenant,
			Members:  memberList,
			Reason:   payload.Reason,
			Actor:    payload.Actor,
			PurgedAt: time.Now().UTC(),
		}
		body, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal archive: %w", err)
		}
		key := storage.ArchiveKey(tenant.Slug, tenant.ID.String())
		if _, err := p.s3.UploadArchive(ctx, key, bytes.NewReader(body)); err != nil {
			return fmt.Errorf("upload archive: %w", err)
		}
	}

	if err := p.store.HardDelete(ctx, tenant.ID); err != nil {
		return fmt.Errorf("hard delete: %w", err)
	}

	p.logger.Info("tenant purged",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
		zap.String("reason", payload.Reason))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *PurgeProcessor) Run(ctx context.Context) {
	p.logger.Info("purge worker loop started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("purge worker loop stopped")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("process purge job", zap.Error(err), zap.String("job_id", job.ID))
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry purge job", zap.Error(err), zap.String("job_id", job.ID))
			}
		}
	}
}
