package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/agency-portal/internal/models"
	"github.com/dumeirei/agency-portal/internal/repository"
)

func TestScheduler_RunsImmediatelyAndRepeats(t *testing.T) {
	s := NewScheduler(nil)
	var runs int32
	s.AddTask("tick", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	s.Start()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&runs))
	s.Stop()
}

func TestScheduler_FailingTaskKeepsRunning(t *testing.T) {
	s := NewScheduler(nil)
	var runs int32
	s.AddTask("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		if atomic.AddInt32(&runs, 1) == 1 {
			panic("boom")
		}
		return errors.New("still failing")
	})
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_SkipsInvalidInterval(t *testing.T) {
	s := NewScheduler(nil)
	s.AddTask("disabled", 0, func(ctx context.Context) error { return nil })
	s.AddTask("enabled", time.Minute, func(ctx context.Context) error { return nil })
	assert.Equal(t, []string{"enabled"}, s.Tasks())
}

type fakeSweeper struct{ n int }

func (f *fakeSweeper) Sweep() int { return f.n }

type fakeWarmer struct {
	calls int
	err   error
}

func (f *fakeWarmer) Warm(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakePurger struct{ ttl time.Duration }

func (f *fakePurger) PurgeTrackers(ttl time.Duration) int {
	f.ttl = ttl
	return 2
}

func TestTaskHandler_Delegates(t *testing.T) {
	warmer := &fakeWarmer{err: errors.New("upstream down")}
	purger := &fakePurger{}
	h := NewTaskHandler(&fakeSweeper{n: 1}, warmer, purger, nil, TaskOptions{ProgressTTL: time.Minute})
	ctx := context.Background()

	assert.NoError(t, h.SweepIdleSessions(ctx))
	assert.Error(t, h.WarmSiteCache(ctx))
	assert.Equal(t, 1, warmer.calls)
	assert.NoError(t, h.PurgeUploadTrackers(ctx))
	assert.Equal(t, time.Minute, purger.ttl)
	assert.NoError(t, h.PurgeAuditLogs(ctx))
}

func TestTaskHandler_PurgeAuditLogs(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AuditLog{}))

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	repo := repository.NewAuditLogRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.AuditLog{Username: "alice", Module: "articles", Action: "create", CreatedAt: now.AddDate(0, 0, -100)}))
	require.NoError(t, repo.Create(ctx, &models.AuditLog{Username: "bob", Module: "articles", Action: "update", CreatedAt: now.AddDate(0, 0, -10)}))

	h := NewTaskHandler(nil, nil, nil, repo, TaskOptions{RetentionDays: 90, Now: func() time.Time { return now }})
	require.NoError(t, h.PurgeAuditLogs(ctx))

	logs, total, err := repo.List(ctx, 0, 10, repository.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "bob", logs[0].Username)
}
