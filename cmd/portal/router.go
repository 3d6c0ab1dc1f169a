package main

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/dumeirei/agency-portal/docs"
	"github.com/dumeirei/agency-portal/internal/common/database"
	commonMiddleware "github.com/dumeirei/agency-portal/internal/common/middleware"
	"github.com/dumeirei/agency-portal/internal/common/response"
	adminHandler "github.com/dumeirei/agency-portal/internal/handler/admin"
	authHandler "github.com/dumeirei/agency-portal/internal/handler/auth"
	mediaHandler "github.com/dumeirei/agency-portal/internal/handler/media"
	notificationHandler "github.com/dumeirei/agency-portal/internal/handler/notification"
	richtextHandler "github.com/dumeirei/agency-portal/internal/handler/richtext"
	siteHandler "github.com/dumeirei/agency-portal/internal/handler/site"
	"github.com/dumeirei/agency-portal/internal/middleware"
	"github.com/dumeirei/agency-portal/pkg/oss"
)

// multipart 边界与表单字段的余量
const multipartOverhead = 1 << 20

// setupRouter 设置路由
func setupRouter(r *gin.Engine, a *app) {
	cfg := a.cfg

	// 全局中间件
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.Recovery(a.log))
	r.Use(middleware.Logging(middleware.DefaultLoggingConfig(a.log)))
	r.Use(middleware.CORS(middleware.NewCORSConfig(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
		cfg.CORS.ExposedHeaders,
		cfg.CORS.AllowCredentials,
		cfg.CORS.MaxAge,
	)))
	r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		SkipPaths:   []string{"/health", "/ping", "/ready", cfg.Metrics.Path},
	}))
	r.Use(commonMiddleware.InjectTraceContext())

	if cfg.Metrics.Enabled {
		r.Use(a.metrics.Middleware(cfg.Metrics.Path))
		r.GET(cfg.Metrics.Path, middleware.BasicAuth(cfg.Metrics.Username, cfg.Metrics.PasswordHash), a.metrics.Handler())
	}

	// 健康检查
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(map[string]check{
		"database": func(ctx context.Context) error { return database.Ping(ctx, a.db) },
		"redis":    func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
		"upstream": a.upstream.Ping,
	}))

	// Swagger 文档
	if !cfg.IsRelease() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// 本地存储的媒体文件
	if cfg.OSS.Provider == oss.ProviderLocal && cfg.OSS.LocalBaseURL != "" {
		r.Static(cfg.OSS.LocalBaseURL, cfg.OSS.LocalRoot)
	}

	authH := authHandler.NewHandler(a.auth, cfg.IsRelease())

	// 官网公开接口
	v1 := r.Group("/api/v1")
	v1.Use(middleware.SecureHeaders())
	var formGuards []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.IPRateLimit(a.redis, cfg.RateLimit.Limit, cfg.RateLimit.WindowDuration()))
		formGuards = append(formGuards, middleware.FormRateLimit(a.redis, cfg.RateLimit.FormLimit, cfg.RateLimit.WindowDuration()))
	}
	siteHandler.NewHandler(a.site).RegisterRoutes(v1, formGuards...)
	authH.RegisterRoutes(v1)

	// 管理端
	admin := r.Group("/api/admin")
	admin.Use(middleware.SecureHeaders(), middleware.NoCache())
	admin.Use(middleware.SessionAuth(a.auth))
	if cfg.Audit.Enabled {
		admin.Use(commonMiddleware.NewAuditLogger(a.auditRepo, a.log).Log())
	}
	authH.RegisterProtectedRoutes(admin)

	backOffice := admin.Group("")
	backOffice.Use(middleware.RequireBackOffice())
	if cfg.RateLimit.Enabled {
		backOffice.Use(middleware.SessionRateLimit(a.redis, cfg.RateLimit.Limit, cfg.RateLimit.WindowDuration()))
	}
	backOffice.Use(middleware.Workspace(a.registry))
	{
		adminHandler.NewDashboardHandler().RegisterRoutes(backOffice)
		adminHandler.NewContentHandler(a.site).RegisterRoutes(backOffice)
		adminHandler.NewSupportHandler().RegisterRoutes(backOffice)
		adminHandler.NewUserHandler().RegisterRoutes(backOffice)
		adminHandler.NewSystemHandler(a.auditRepo).RegisterRoutes(backOffice)
		notificationHandler.NewHandler(cfg.CORS.AllowedOrigins, a.log).RegisterRoutes(backOffice)
		mediaHandler.NewHandler(a.media).RegisterRoutes(backOffice,
			middleware.RequestSizeLimiter(cfg.Media.MaxUploadSize+multipartOverhead))
		richtextHandler.NewHandler().RegisterRoutes(backOffice)
	}

	// 404 处理
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "接口不存在")
	})
}
