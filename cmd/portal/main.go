// Package main 是门户 BFF 的入口
// @title Agency Portal API
// @version 1.0
// @description 官网内容接口与管理端后台
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/cache"
	"github.com/dumeirei/agency-portal/internal/common/config"
	"github.com/dumeirei/agency-portal/internal/common/database"
	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/common/metrics"
	"github.com/dumeirei/agency-portal/internal/common/tracing"
	"github.com/dumeirei/agency-portal/internal/models"
	"github.com/dumeirei/agency-portal/internal/scheduler"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()
	log.Info("Starting Agency Portal",
		zap.String("version", version),
		zap.String("env", cfg.Server.Mode),
		logger.Upstream(cfg.Upstream.BaseURL),
	)

	tracer, err := tracing.Init(&tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Server.Mode,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}

	m := metrics.Init("agency_portal")

	// 初始化数据库连接
	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.MediaFile{}, &models.AuditLog{}); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	if cfg.Metrics.Enabled {
		if err := database.RegisterMetrics(db, m); err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis 连接
	redisClient, err := cache.Init(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	log.Info("Redis connected successfully")

	a, err := newApp(cfg, log, db, redisClient, m)
	if err != nil {
		log.Fatal("Failed to init services", zap.Error(err))
	}

	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	setupRouter(engine, a)

	// 定时任务
	sched := scheduler.NewScheduler(log)
	tasks := scheduler.NewTaskHandler(a.registry, a.site, a.media, a.auditRepo, scheduler.TaskOptions{
		ProgressTTL:   cfg.Media.ProgressTTLDuration(),
		RetentionDays: cfg.Audit.RetentionDays,
		Logger:        log,
	})
	sched.AddTask("sweep_idle_sessions", time.Duration(cfg.Session.SweepInterval)*time.Second, tasks.SweepIdleSessions)
	sched.AddTask("warm_site_cache", cfg.Site.WarmDuration(), tasks.WarmSiteCache)
	sched.AddTask("purge_upload_trackers", cfg.Media.ProgressTTLDuration(), tasks.PurgeUploadTrackers)
	sched.AddTask("purge_audit_logs", 24*time.Hour, tasks.PurgeAuditLogs)
	sched.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	sched.Stop()
	a.registry.CloseAll()

	if err := tracer.Shutdown(ctx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}
	if err := cache.Close(); err != nil {
		log.Warn("Failed to close Redis", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}

	log.Info("Server exited")
}
