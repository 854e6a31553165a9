// Package main runs the expense platform control-plane HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/expensehub/backend/config"
	"github.com/expensehub/backend/internal/analytics"
	"github.com/expensehub/backend/internal/audit"
	"github.com/expensehub/backend/internal/auth"
	"github.com/expensehub/backend/internal/members"
	"github.com/expensehub/backend/internal/middleware"
	"github.com/expensehub/backend/internal/plans"
	"github.com/expensehub/backend/internal/tenants"
	"github.com/expensehub/backend/pkg/database"
	"github.com/expensehub/backend/pkg/queue"
	"github.com/expensehub/backend/pkg/redis"
	"github.com/expensehub/backend/pkg/response"
	"github.com/expensehub/backend/pkg/utils"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.Auth.TenantSecret, cfg.Auth.SuperAdminSecret, cfg.Auth.ExpireHours)

	tenantStore := tenants.NewPostgresStore(pool)
	statusCache := tenants.NewStatusCache(rdb.Client)
	planRepo := plans.NewRepository(pool)
	auditRepo := audit.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, tenantStore, jwtService, logger)
	bootstrapSuperAdmin(ctx, cfg, authRepo, logger)

	// Tenants
	tenantHandler := tenants.NewHandler(tenantStore, planRepo, auditRepo, jobQueue,
		statusCache, jwtService, cfg.Auth.TrialDays, logger)

	// Plans / subscriptions
	planHandler := plans.NewHandler(planRepo, pool)

	// Tenant-scoped members
	memberStore := members.NewPostgresStore(pool)
	memberHandler := members.NewHandler(memberStore, logger)

	// Super-admin analytics
	analyticsHandler := analytics.NewHandler(pool)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: self-serve signup and login
	public := router.Group("/api/public")
	{
		public.POST("/signup", tenantHandler.Signup)
		public.POST("/login", authHandler.Login)
		public.GET("/check-slug/:slug", tenantHandler.CheckSlug)
		public.GET("/plans", planHandler.List)
	}

	// Super-admin login is public; everything else under the group needs a token.
	router.POST("/api/super-admin/login", authHandler.SuperAdminLogin)

	admin := router.Group("/api/super-admin")
	admin.Use(middleware.Auth(jwtService, auth.ScopeSuperAdmin))
	{
		admin.GET("/tenants", tenantHandler.List)
		admin.POST("/tenants", tenantHandler.Create)
		admin.GET("/tenants/:id", tenantHandler.Get)
		admin.PUT("/tenants/:id", tenantHandler.Update)
		admin.DELETE("/tenants/:id", tenantHandler.Delete)
		admin.PUT("/tenants/:id/suspend", tenantHandler.Suspend)
		admin.PUT("/tenants/:id/reactivate", tenantHandler.Reactivate)

		admin.GET("/analytics/dashboard", analyticsHandler.Dashboard)
		admin.GET("/analytics/revenue", analyticsHandler.Revenue)
		admin.GET("/analytics/tenants", analyticsHandler.TenantGrowth)
		admin.GET("/analytics/export", analyticsHandler.Export)

		admin.GET("/subscriptions/plans", planHandler.List)
		admin.GET("/subscriptions/stats", planHandler.Stats)
	}

	// Tenant-scoped API; write access is gated on the tenant's lifecycle status.
	tenant := router.Group("/api/tenant")
	tenant.Use(middleware.Auth(jwtService, auth.ScopeTenant))
	tenant.Use(tenants.WriteGate(statusCache, tenantStore))
	{
		tenant.GET("/users", memberHandler.List)
		tenant.POST("/users", memberHandler.Create)
		tenant.GET("/usage", memberHandler.Usage)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func bootstrapSuperAdmin(ctx context.Context, cfg *config.Config, repo *auth.Repository, logger *zap.Logger) {
	if cfg.Bootstrap.SuperAdminEmail == "" || cfg.Bootstrap.SuperAdminPassword == "" {
		return
	}
	hash, err := utils.HashPassword(cfg.Bootstrap.SuperAdminPassword)
	if err != nil {
		logger.Fatal("hash bootstrap password", zap.Error(err))
	}
	if err := repo.EnsureSuperAdmin(ctx, cfg.Bootstrap.SuperAdminEmail, hash, cfg.Bootstrap.SuperAdminName); err != nil {
		logger.Fatal("bootstrap super admin", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
