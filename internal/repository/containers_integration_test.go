//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/agency-portal/internal/common/crypto"
	"github.com/dumeirei/agency-portal/internal/models"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// containers 集成测试使用的 Postgres 与 Redis 容器
type containers struct {
	postgres testcontainers.Container
	redis    testcontainers.Container
	db       *gorm.DB
	rdb      *redis.Client
}

var env *containers

func startContainers(ctx context.Context) (*containers, error) {
	c := &containers{}

	pg, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("agency_portal_test"),
		tcPostgres.WithUsername("portal"),
		tcPostgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return c, fmt.Errorf("start postgres: %w", err)
	}
	c.postgres = pg

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return c, fmt.Errorf("postgres dsn: %w", err)
	}
	c.db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return c, fmt.Errorf("connect postgres: %w", err)
	}
	if err := c.db.AutoMigrate(&models.MediaFile{}, &models.AuditLog{}); err != nil {
		return c, fmt.Errorf("migrate: %w", err)
	}

	rc, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return c, fmt.Errorf("start redis: %w", err)
	}
	c.redis = rc

	host, err := rc.Host(ctx)
	if err != nil {
		return c, err
	}
	port, err := rc.MappedPort(ctx, "6379")
	if err != nil {
		return c, err
	}
	c.rdb = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return c, fmt.Errorf("connect redis: %w", err)
	}
	return c, nil
}

func (c *containers) cleanup(ctx context.Context) {
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	if c.postgres != nil {
		_ = c.postgres.Terminate(ctx)
	}
	if c.redis != nil {
		_ = c.redis.Terminate(ctx)
	}
}

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	env, err = startContainers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration environment unavailable: %v\n", err)
		env.cleanup(ctx)
		os.Exit(1)
	}
	code := m.Run()
	env.cleanup(ctx)
	os.Exit(code)
}

func TestIntegration_MediaRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMediaRepository(env.db)

	file := &models.MediaFile{
		ID:        uuid.NewString(),
		Name:      "hero.png",
		Type:      "image",
		Size:      2048,
		Folder:    "images",
		ObjectKey: "images/2026/10/15/" + uuid.NewString() + ".png",
		Provider:  "mock",
		URL:       "https://cdn.example.fr/hero.png",
		Meta:      datatypes.JSONMap{"width": 1200, "height": 630},
	}
	require.NoError(t, repo.Create(ctx, file))

	got, err := repo.GetByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(1200), got.Meta["width"])

	counts, err := repo.CountByFolder(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, counts)

	require.NoError(t, repo.Delete(ctx, file.ID))
	_, err = repo.GetByID(ctx, file.ID)
	assert.Error(t, err)
}

func TestIntegration_AuditLogRetention(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditLogRepository(env.db)
	now := time.Now().UTC()

	old := &models.AuditLog{SessionID: "s1", Username: "alice", Module: "articles", Action: "delete", CreatedAt: now.AddDate(0, 0, -120)}
	recent := &models.AuditLog{SessionID: "s1", Username: "alice", Module: "articles", Action: "update",
		Payload: datatypes.JSONMap{"title": "Nouveau"}, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, recent))

	n, err := repo.DeleteBefore(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	logs, _, err := repo.List(ctx, 0, 10, AuditFilter{Username: "alice", Module: "articles"})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "update", logs[0].Action)
	assert.Equal(t, "Nouveau", logs[0].Payload["title"])
}

func TestIntegration_SessionRepository(t *testing.T) {
	ctx := context.Background()
	cipher, err := crypto.NewAES("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	repo := NewSessionRepository(env.rdb, cipher, time.Minute)

	sess := &Session{ID: uuid.NewString(), UserID: 7, Username: "alice", Role: "admin", CreatedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, sess))

	store := repo.TokenStore(sess.ID)
	require.NoError(t, store.Save(ctx, apiclient.Tokens{Access: "a", Refresh: "r"}))

	// 令牌以密文保存
	raw, err := env.rdb.Get(ctx, tokensKey(sess.ID)).Result()
	require.NoError(t, err)
	assert.NotContains(t, raw, `"r"`)

	tokens, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r", tokens.Refresh)

	require.NoError(t, repo.Delete(ctx, sess.ID))
	_, err = repo.Get(ctx, sess.ID)
	assert.Error(t, err)
}
