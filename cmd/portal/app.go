package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/agency-portal/internal/common/config"
	"github.com/dumeirei/agency-portal/internal/common/crypto"
	"github.com/dumeirei/agency-portal/internal/common/jwt"
	"github.com/dumeirei/agency-portal/internal/common/metrics"
	"github.com/dumeirei/agency-portal/internal/repository"
	authService "github.com/dumeirei/agency-portal/internal/service/auth"
	mediaService "github.com/dumeirei/agency-portal/internal/service/media"
	"github.com/dumeirei/agency-portal/internal/service/notification"
	siteService "github.com/dumeirei/agency-portal/internal/service/site"
	"github.com/dumeirei/agency-portal/internal/service/workspace"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
	"github.com/dumeirei/agency-portal/pkg/oss"
)

// app 进程内共享的依赖
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	redis   *redis.Client
	metrics *metrics.Metrics

	upstream  *apiclient.Client
	sessions  *repository.SessionRepository
	auditRepo *repository.AuditLogRepository
	registry  *workspace.Registry

	auth  *authService.Service
	site  *siteService.Service
	media *mediaService.Service
}

// newApp 组装仓储与服务
func newApp(cfg *config.Config, log *zap.Logger, db *gorm.DB, rdb *redis.Client, m *metrics.Metrics) (*app, error) {
	cipher, err := crypto.NewAES(cfg.Crypto.AESKey)
	if err != nil {
		return nil, fmt.Errorf("init session cipher: %w", err)
	}

	upstreamCfg := apiclient.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		Timeout:   cfg.Upstream.TimeoutDuration(),
		RateLimit: cfg.Upstream.RequestsPerSecond,
		Burst:     cfg.Upstream.Burst,
	}
	clientOpts := []apiclient.Option{apiclient.WithObserver(m), apiclient.WithLogger(log.Named("upstream"))}
	upstream, err := apiclient.New(upstreamCfg, clientOpts...)
	if err != nil {
		return nil, err
	}
	factory := apiclient.NewFactory(upstreamCfg, clientOpts...)

	store, err := oss.New(oss.Config{
		Provider:        cfg.OSS.Provider,
		Endpoint:        cfg.OSS.Endpoint,
		AccessKeyID:     cfg.OSS.AccessKeyID,
		AccessKeySecret: cfg.OSS.AccessKeySecret,
		Bucket:          cfg.OSS.Bucket,
		Domain:          cfg.OSS.CustomDomain,
		BasePath:        cfg.OSS.UploadDir,
		LocalRoot:       cfg.OSS.LocalRoot,
		LocalBaseURL:    cfg.OSS.LocalBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init media storage: %w", err)
	}

	sessions := repository.NewSessionRepository(rdb, cipher, cfg.Session.TokenTTLDuration())
	registry := workspace.NewRegistry(factory, sessions, workspace.Options{
		IdleTimeout: cfg.Session.IdleDuration(),
		Notification: notification.Options{
			PageSize:     cfg.Notification.PageSize,
			PollInterval: cfg.Notification.PollDuration(),
			Logger:       log,
			Recorder:     m,
		},
		Gauge:  m,
		Logger: log,
	})

	tokens := jwt.NewManager(&jwt.Config{
		Secret:     cfg.JWT.Secret,
		ExpireTime: cfg.JWT.AccessTokenDuration(),
		Issuer:     cfg.JWT.Issuer,
	})

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     rdb,
		metrics:   m,
		upstream:  upstream,
		sessions:  sessions,
		auditRepo: repository.NewAuditLogRepository(db),
		registry:  registry,
		auth:      authService.NewService(sessions, tokens, factory, registry, log),
		site: siteService.NewService(upstream, siteService.Options{
			PublicBaseURL: cfg.Site.PublicBaseURL,
			CacheTTL:      cfg.Site.CacheDuration(),
			QRCodeSize:    cfg.Site.QRCodeSize,
			Logger:        log,
		}),
		media: mediaService.NewService(repository.NewMediaRepository(db), store, mediaService.Options{
			MaxUploadSize:  cfg.Media.MaxUploadSize,
			AllowedFolders: cfg.Media.AllowedFolders,
			Logger:         log,
			Recorder:       m,
		}),
	}, nil
}
