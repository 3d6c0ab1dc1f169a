// Package notification 管理端通知中心：未读数轮询、分页列表与已读/删除操作
package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/service/remote"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// 默认参数
const (
	DefaultPageSize     = 20
	DefaultPollInterval = 30 * time.Second
)

// 未读数来源
const (
	BadgeFromServer = "server"
	BadgeFromLocal  = "local"
)

// API 通知中心依赖的上游接口，*apiclient.NotificationsAPI 满足该接口
type API interface {
	List(ctx context.Context, q apiclient.NotificationQuery) (*apiclient.Page[apiclient.Notification], error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id int64) error
	DeleteOld(ctx context.Context, days int) error
	Create(ctx context.Context, req apiclient.NewNotification) (*apiclient.Notification, error)
}

// PollRecorder 轮询结果记录，*metrics.Metrics 满足该接口
type PollRecorder interface {
	RecordNotificationPoll(result string)
}

// Options 通知中心参数
type Options struct {
	PageSize     int
	PollInterval time.Duration
	Logger       *zap.Logger
	Recorder     PollRecorder
	Now          func() time.Time
}

// Badge 未读数
type Badge struct {
	Count  int    `json:"count"`
	Source string `json:"source"`
}

// Snapshot 通知中心当前视图
type Snapshot struct {
	Filter  string             `json:"filter"`
	Page    int                `json:"page"`
	Total   int64              `json:"total"`
	HasMore bool               `json:"has_more"`
	State   remote.State[Item] `json:"state"`
	Badge   Badge              `json:"badge"`
}

// Center 单个管理会话的通知中心
type Center struct {
	api      API
	pageSize int
	interval time.Duration
	log      *zap.Logger
	recorder PollRecorder
	now      func() time.Time

	mu      sync.Mutex
	filter  Filter
	page    int
	total   int64
	hasMore bool
	items   []apiclient.Notification
	state   remote.Phase
	reason  string
	badge   Badge

	feedSeq  remote.Sequence
	badgeSeq remote.Sequence

	subMu  sync.Mutex
	subs   map[int]chan Badge
	nextID int

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCenter 创建通知中心
func NewCenter(api API, opts Options) *Center {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Center{
		api:      api,
		pageSize: opts.PageSize,
		interval: opts.PollInterval,
		log:      opts.Logger.With(zap.String("module", "notification")),
		recorder: opts.Recorder,
		now:      opts.Now,
		filter:   AllFilter,
		state:    remote.PhaseIdle,
		badge:    Badge{Source: BadgeFromLocal},
		subs:     make(map[int]chan Badge),
	}
}

// Start 立即轮询一次，之后按固定间隔轮询未读数，直到 Stop 或 ctx 结束
func (c *Center) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.Poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Poll(ctx)
			}
		}
	}(c.done)
}

// Stop 停止轮询并关闭所有订阅
func (c *Center) Stop() {
	c.runMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	c.subMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
}

// Running 轮询是否在运行
func (c *Center) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.cancel != nil
}

// Poll 拉取一次未读数；失败时回退为本地列表中的未读条数
func (c *Center) Poll(ctx context.Context) Badge {
	seq := c.badgeSeq.Next()
	count, err := c.api.UnreadCount(ctx)

	c.mu.Lock()
	if !c.badgeSeq.IsLatest(seq) || (err != nil && ctx.Err() != nil) {
		b := c.badge
		c.mu.Unlock()
		return b
	}

	result := "ok"
	if err != nil {
		result = "fallback"
		c.badge = Badge{Count: c.localUnreadLocked(), Source: BadgeFromLocal}
	} else {
		c.badge = Badge{Count: count, Source: BadgeFromServer}
	}
	b := c.badge
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("poll unread count failed, using local count", logger.Resource("notifications"), zap.Error(err), zap.Int("count", b.Count))
	}
	if c.recorder != nil {
		c.recorder.RecordNotificationPoll(result)
	}
	c.broadcast(b)
	return b
}

// Badge 当前未读数
func (c *Center) Badge() Badge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.badge
}

// Load 按筛选条件加载第一页并替换列表
func (c *Center) Load(ctx context.Context, f Filter) (Snapshot, error) {
	c.mu.Lock()
	c.filter = f
	c.page = 1
	c.items = nil
	c.total = 0
	c.hasMore = false
	c.state = remote.PhaseLoading
	c.reason = ""
	seq := c.feedSeq.Next()
	c.mu.Unlock()

	page, err := c.api.List(ctx, f.Query(1, c.pageSize))

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.feedSeq.IsLatest(seq) {
		return c.snapshotLocked(), nil
	}
	if err != nil {
		appErr := remote.Error(err, nil)
		c.state = remote.PhaseFailed
		c.reason = errors.GetAppError(appErr).Message
		return c.snapshotLocked(), appErr
	}

	c.items = append([]apiclient.Notification(nil), page.Items...)
	c.total = page.Total
	c.hasMore = page.HasMore
	c.state = remote.PhaseLoaded
	return c.snapshotLocked(), nil
}

// LoadMore 加载下一页并追加到列表
func (c *Center) LoadMore(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.state != remote.PhaseLoaded || !c.hasMore {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	f := c.filter
	next := c.page + 1
	seq := c.feedSeq.Next()
	c.mu.Unlock()

	page, err := c.api.List(ctx, f.Query(next, c.pageSize))

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.feedSeq.IsLatest(seq) {
		return c.snapshotLocked(), nil
	}
	if err != nil {
		// 已加载的页保持不变
		return c.snapshotLocked(), remote.Error(err, nil)
	}

	seen := make(map[int64]struct{}, len(c.items))
	for _, n := range c.items {
		seen[n.ID] = struct{}{}
	}
	for _, n := range page.Items {
		if _, dup := seen[n.ID]; !dup {
			c.items = append(c.items, n)
		}
	}
	c.page = next
	c.total = page.Total
	c.hasMore = page.HasMore
	return c.snapshotLocked(), nil
}

// Snapshot 当前视图
func (c *Center) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// MarkRead 标记单条已读，本地修补后未读数减一，不重新拉取
func (c *Center) MarkRead(ctx context.Context, id int64) (Badge, error) {
	if err := c.api.MarkRead(ctx, id); err != nil {
		return c.Badge(), remote.Error(err, errors.ErrNotificationNotFound)
	}

	c.mu.Lock()
	now := c.now()
	for i := range c.items {
		if c.items[i].ID != id {
			continue
		}
		if !c.items[i].Read {
			c.items[i].Read = true
			c.items[i].ReadAt = &now
			c.decrementLocked()
		}
		break
	}
	b := c.settleBadgeLocked()
	c.mu.Unlock()

	c.broadcast(b)
	return b, nil
}

// MarkAllRead 全部标记已读，未读数置零
func (c *Center) MarkAllRead(ctx context.Context) (Badge, error) {
	if err := c.api.MarkAllRead(ctx); err != nil {
		return c.Badge(), remote.Error(err, nil)
	}

	c.mu.Lock()
	now := c.now()
	for i := range c.items {
		if !c.items[i].Read {
			c.items[i].Read = true
			c.items[i].ReadAt = &now
		}
	}
	c.badge.Count = 0
	b := c.settleBadgeLocked()
	c.mu.Unlock()

	c.broadcast(b)
	return b, nil
}

// Delete 删除单条通知并从本地列表移除
func (c *Center) Delete(ctx context.Context, id int64) (Badge, error) {
	if err := c.api.Delete(ctx, id); err != nil {
		return c.Badge(), remote.Error(err, errors.ErrNotificationNotFound)
	}

	c.mu.Lock()
	removed := c.removeLocked(func(n apiclient.Notification) bool { return n.ID == id })
	for _, n := range removed {
		if !n.Read {
			c.decrementLocked()
		}
	}
	b := c.settleBadgeLocked()
	c.mu.Unlock()

	c.broadcast(b)
	return b, nil
}

// DeleteOld 删除 days 天以前的通知并从本地列表移除，返回本地移除条数
func (c *Center) DeleteOld(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, errors.ErrInvalidDays
	}
	if err := c.api.DeleteOld(ctx, days); err != nil {
		return 0, remote.Error(err, nil)
	}

	c.mu.Lock()
	cutoff := c.now().Add(-time.Duration(days) * 24 * time.Hour)
	removed := c.removeLocked(func(n apiclient.Notification) bool { return n.CreatedAt.Before(cutoff) })
	for _, n := range removed {
		if !n.Read {
			c.decrementLocked()
		}
	}
	b := c.settleBadgeLocked()
	c.mu.Unlock()

	c.broadcast(b)
	return len(removed), nil
}

// Create 创建通知；符合当前筛选条件时插入列表头部
func (c *Center) Create(ctx context.Context, req apiclient.NewNotification) (*Item, error) {
	var missing []string
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(req.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, errors.ErrValidation.WithMessage("缺少必填字段: " + strings.Join(missing, ", "))
	}
	if !req.Type.Valid() {
		return nil, errors.ErrNotificationType
	}

	n, err := c.api.Create(ctx, req)
	if err != nil {
		return nil, remote.Error(err, nil)
	}

	c.mu.Lock()
	if c.state == remote.PhaseLoaded && c.filter.Match(*n) {
		c.items = append([]apiclient.Notification{*n}, c.items...)
		c.total++
	}
	if !n.Read {
		c.badge.Count++
	}
	b := c.settleBadgeLocked()
	c.mu.Unlock()

	c.broadcast(b)
	return &Item{Notification: *n, Style: StyleFor(n.Type)}, nil
}

// Subscribe 订阅未读数变化；返回的取消函数可重复调用
func (c *Center) Subscribe() (<-chan Badge, func()) {
	ch := make(chan Badge, 1)
	ch <- c.Badge()

	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
			c.subMu.Unlock()
		})
	}
}

// broadcast 推送最新未读数，慢订阅者只保留最新值
func (c *Center) broadcast(b Badge) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- b:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- b:
			default:
			}
		}
	}
}

// settleBadgeLocked 本地修改未读数后作废进行中的轮询
func (c *Center) settleBadgeLocked() Badge {
	c.badgeSeq.Next()
	c.badge.Source = BadgeFromLocal
	return c.badge
}

func (c *Center) decrementLocked() {
	if c.badge.Count > 0 {
		c.badge.Count--
	}
}

func (c *Center) removeLocked(match func(apiclient.Notification) bool) []apiclient.Notification {
	var removed []apiclient.Notification
	kept := c.items[:0]
	for _, n := range c.items {
		if match(n) {
			removed = append(removed, n)
			continue
		}
		kept = append(kept, n)
	}
	c.items = kept
	c.total -= int64(len(removed))
	if c.total < 0 {
		c.total = 0
	}
	return removed
}

func (c *Center) localUnreadLocked() int {
	count := 0
	for _, n := range c.items {
		if !n.Read {
			count++
		}
	}
	return count
}

func (c *Center) snapshotLocked() Snapshot {
	snap := Snapshot{
		Filter:  c.filter.String(),
		Page:    c.page,
		Total:   c.total,
		HasMore: c.hasMore,
		Badge:   c.badge,
	}
	switch c.state {
	case remote.PhaseLoaded:
		snap.State = remote.Loaded(toItems(c.items))
	case remote.PhaseFailed:
		snap.State = remote.State[Item]{Phase: remote.PhaseFailed, Reason: c.reason}
	case remote.PhaseLoading:
		snap.State = remote.Loading[Item]()
	default:
		snap.State = remote.Idle[Item]()
	}
	return snap
}
