// Package main runs the background worker: tenant purge jobs and the daily
// trial-expiry sweep.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/expensehub/backend/config"
	"github.com/expensehub/backend/internal/audit"
	"github.com/expensehub/backend/internal/members"
	"github.com/expensehub/backend/internal/tenants"
	"github.com/expensehub/backend/internal/worker"
	"github.com/expensehub/backend/pkg/database"
	"github.com/expensehub/backend/pkg/queue"
	"github.com/expensehub/backend/pkg/redis"
	"github.com/expensehub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ArchiveBucket:   cfg.AWS.ArchiveBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
	} else {
		logger.Warn("AWS_REGION not set, tenant purges will skip archival")
	}

	tenantStore := tenants.NewPostgresStore(pool)
	memberStore := members.NewPostgresStore(pool)
	auditRepo := audit.NewRepository(pool)
	statusCache := tenants.NewStatusCache(rdb.Client)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	processor := worker.NewPurgeProcessor(tenantStore, memberStore, s3Client, jobQueue, logger)
	sweeper := worker.NewTrialSweeper(tenantStore, auditRepo, statusCache, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)

	c := cron.New()
	if _, err := c.AddFunc("@daily", func() { sweeper.Sweep(workerCtx) }); err != nil {
		logger.Fatal("schedule trial sweep", zap.Error(err))
	}
	c.Start()
	logger.Info("worker started")

	// Catch trials that expired while the worker was down.
	sweeper.Sweep(workerCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-c.Stop().Done()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
