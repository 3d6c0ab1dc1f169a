// Package workspace 管理端会话工作区：每个会话一套上游客户端、通知中心与 CRUD 界面
package workspace

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/service/admin"
	"github.com/dumeirei/agency-portal/internal/service/notification"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// SessionStore 会话令牌存储，*repository.SessionRepository 满足该接口
type SessionStore interface {
	TokenStore(id string) apiclient.TokenStore
	Delete(ctx context.Context, id string) error
}

// SessionGauge 活跃会话数指标，*metrics.Metrics 满足该接口
type SessionGauge interface {
	SetActiveSessions(count int)
}

// Options 工作区参数
type Options struct {
	IdleTimeout  time.Duration
	PerPage      int
	Notification notification.Options
	Gauge        SessionGauge
	Logger       *zap.Logger
	Now          func() time.Time
}

// Workspace 单个会话的工作区
type Workspace struct {
	SessionID     string
	Client        *apiclient.Client
	Notifications *notification.Center
	Screens       *admin.Screens

	lastSeen atomic.Int64
}

// LastSeen 最近一次访问时间
func (w *Workspace) LastSeen() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

func (w *Workspace) touch(now time.Time) {
	w.lastSeen.Store(now.UnixNano())
}

// Registry 工作区注册表
type Registry struct {
	factory  apiclient.Factory
	sessions SessionStore
	opts     Options
	log      *zap.Logger

	mu     sync.Mutex
	spaces map[string]*Workspace
}

// NewRegistry 创建注册表
func NewRegistry(factory apiclient.Factory, sessions SessionStore, opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		factory:  factory,
		sessions: sessions,
		opts:     opts,
		log:      log.With(logger.Module("workspace")),
		spaces:   make(map[string]*Workspace),
	}
}

// Get 获取会话工作区，不存在时创建并启动未读数轮询
func (r *Registry) Get(sessionID string) (*Workspace, error) {
	if sessionID == "" {
		return nil, errors.ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.opts.Now()
	if ws, ok := r.spaces[sessionID]; ok {
		ws.touch(now)
		return ws, nil
	}

	client, err := r.factory(r.sessions.TokenStore(sessionID),
		apiclient.WithAuthExpired(func(ctx context.Context, _ string) {
			r.expire(ctx, sessionID)
		}))
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	ws := &Workspace{
		SessionID:     sessionID,
		Client:        client,
		Notifications: notification.NewCenter(client.Notifications, r.opts.Notification),
		Screens:       admin.NewScreens(client.Admin, admin.Options{PerPage: r.opts.PerPage}),
	}
	ws.touch(now)
	ws.Notifications.Start(context.Background())
	r.spaces[sessionID] = ws
	r.reportLocked()

	r.log.Info("workspace opened", logger.SessionID(sessionID))
	return ws, nil
}

// Lookup 获取已存在的工作区
func (r *Registry) Lookup(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.spaces[sessionID]
	return ws, ok
}

// Close 关闭工作区：停止轮询并移除
func (r *Registry) Close(sessionID string) {
	if ws := r.remove(sessionID); ws != nil {
		ws.Notifications.Stop()
		r.log.Info("workspace closed", logger.SessionID(sessionID))
	}
}

// expire 刷新令牌失败：移除工作区并删除会话。
// 可能在轮询协程内被调用，停止轮询需异步进行。
func (r *Registry) expire(ctx context.Context, sessionID string) {
	ws := r.remove(sessionID)
	if err := r.sessions.Delete(context.WithoutCancel(ctx), sessionID); err != nil && !stderrors.Is(err, context.Canceled) {
		r.log.Warn("delete expired session failed", logger.SessionID(sessionID), zap.Error(err))
	}
	if ws != nil {
		go ws.Notifications.Stop()
		r.log.Info("workspace expired", logger.SessionID(sessionID))
	}
}

func (r *Registry) remove(sessionID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.spaces[sessionID]
	if !ok {
		return nil
	}
	delete(r.spaces, sessionID)
	r.reportLocked()
	return ws
}

// Sweep 关闭空闲超时的工作区，返回关闭数量
func (r *Registry) Sweep() int {
	cutoff := r.opts.Now().Add(-r.opts.IdleTimeout)

	r.mu.Lock()
	var idle []*Workspace
	for id, ws := range r.spaces {
		if ws.LastSeen().Before(cutoff) {
			idle = append(idle, ws)
			delete(r.spaces, id)
		}
	}
	r.reportLocked()
	r.mu.Unlock()

	for _, ws := range idle {
		ws.Notifications.Stop()
		r.log.Info("workspace idle", logger.SessionID(ws.SessionID))
	}
	return len(idle)
}

// CloseAll 关闭全部工作区
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Workspace, 0, len(r.spaces))
	for _, ws := range r.spaces {
		all = append(all, ws)
	}
	r.spaces = make(map[string]*Workspace)
	r.reportLocked()
	r.mu.Unlock()

	for _, ws := range all {
		ws.Notifications.Stop()
	}
}

// Len 当前工作区数量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spaces)
}

func (r *Registry) reportLocked() {
	if r.opts.Gauge != nil {
		r.opts.Gauge.SetActiveSessions(len(r.spaces))
	}
}
