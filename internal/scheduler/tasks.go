package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionSweeper 回收空闲会话工作区
type SessionSweeper interface {
	Sweep() int
}

// SiteWarmer 预热公开站点缓存
type SiteWarmer interface {
	Warm(ctx context.Context) error
}

// TrackerPurger 清理过期的上传进度
type TrackerPurger interface {
	PurgeTrackers(ttl time.Duration) int
}

// AuditPurger 清理过期审计日志
type AuditPurger interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// TaskHandler 任务处理器
type TaskHandler struct {
	sessions      SessionSweeper
	site          SiteWarmer
	uploads       TrackerPurger
	audit         AuditPurger
	progressTTL   time.Duration
	retentionDays int
	log           *zap.Logger
	now           func() time.Time
}

// TaskOptions 任务参数
type TaskOptions struct {
	ProgressTTL   time.Duration
	RetentionDays int
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewTaskHandler 创建任务处理器，任一依赖为 nil 时对应任务为空操作
func NewTaskHandler(sessions SessionSweeper, site SiteWarmer, uploads TrackerPurger, audit AuditPurger, opts TaskOptions) *TaskHandler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TaskHandler{
		sessions:      sessions,
		site:          site,
		uploads:       uploads,
		audit:         audit,
		progressTTL:   opts.ProgressTTL,
		retentionDays: opts.RetentionDays,
		log:           opts.Logger.Named("task"),
		now:           opts.Now,
	}
}

// SweepIdleSessions 关闭空闲超时的会话工作区
func (h *TaskHandler) SweepIdleSessions(ctx context.Context) error {
	if h.sessions == nil {
		return nil
	}
	if n := h.sessions.Sweep(); n > 0 {
		h.log.Info("idle sessions closed", zap.Int("count", n))
	}
	return nil
}

// WarmSiteCache 刷新公开站点缓存
func (h *TaskHandler) WarmSiteCache(ctx context.Context) error {
	if h.site == nil {
		return nil
	}
	return h.site.Warm(ctx)
}

// PurgeUploadTrackers 清理已完成或已失败的上传进度记录
func (h *TaskHandler) PurgeUploadTrackers(ctx context.Context) error {
	if h.uploads == nil || h.progressTTL <= 0 {
		return nil
	}
	if n := h.uploads.PurgeTrackers(h.progressTTL); n > 0 {
		h.log.Debug("upload trackers purged", zap.Int("count", n))
	}
	return nil
}

// PurgeAuditLogs 删除超过保留天数的审计日志
func (h *TaskHandler) PurgeAuditLogs(ctx context.Context) error {
	if h.audit == nil || h.retentionDays <= 0 {
		return nil
	}
	before := h.now().AddDate(0, 0, -h.retentionDays)
	n, err := h.audit.DeleteBefore(ctx, before)
	if err != nil {
		return err
	}
	if n > 0 {
		h.log.Info("audit logs purged", zap.Int64("count", n), zap.Time("before", before))
	}
	return nil
}
