package notification

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/service/remote"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeAPI 可编程的通知上游
type fakeAPI struct {
	mu sync.Mutex

	pages       map[int]*apiclient.Page[apiclient.Notification]
	listErr     error
	listCalls   []apiclient.NotificationQuery
	listGate    map[int]chan struct{}
	unread      int
	unreadErr   error
	unreadCalls int
	mutateErr   error
	marked      []int64
	markAll     int
	deleted     []int64
	deletedDays []int
	created     []apiclient.NewNotification
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{pages: map[int]*apiclient.Page[apiclient.Notification]{}, listGate: map[int]chan struct{}{}}
}

func (f *fakeAPI) List(ctx context.Context, q apiclient.NotificationQuery) (*apiclient.Page[apiclient.Notification], error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, q)
	gate := f.listGate[len(f.listCalls)]
	page, err := f.pages[q.Page], f.listErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if page == nil {
		return &apiclient.Page[apiclient.Notification]{}, nil
	}
	return page, nil
}

func (f *fakeAPI) UnreadCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreadCalls++
	return f.unread, f.unreadErr
}

func (f *fakeAPI) MarkRead(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return f.mutateErr
}

func (f *fakeAPI) MarkAllRead(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAll++
	return f.mutateErr
}

func (f *fakeAPI) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.mutateErr
}

func (f *fakeAPI) DeleteOld(_ context.Context, days int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedDays = append(f.deletedDays, days)
	return f.mutateErr
}

func (f *fakeAPI) Create(_ context.Context, req apiclient.NewNotification) (*apiclient.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	return &apiclient.Notification{ID: 99, Type: req.Type, Title: req.Title, Message: req.Message, CreatedAt: fixedNow}, nil
}

func (f *fakeAPI) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

type pollCounter struct {
	mu      sync.Mutex
	results []string
}

func (p *pollCounter) RecordNotificationPoll(result string) {
	p.mu.Lock()
	p.results = append(p.results, result)
	p.mu.Unlock()
}

func notif(id int64, read bool, age time.Duration) apiclient.Notification {
	return apiclient.Notification{
		ID:        id,
		Type:      apiclient.NotifyNewQuote,
		Title:     "quote",
		Read:      read,
		CreatedAt: fixedNow.Add(-age),
	}
}

func newTestCenter(api *fakeAPI) *Center {
	return NewCenter(api, Options{Now: func() time.Time { return fixedNow }})
}

func loadedCenter(t *testing.T, api *fakeAPI, unread int) *Center {
	t.Helper()
	api.pages[1] = &apiclient.Page[apiclient.Notification]{
		Items:   []apiclient.Notification{notif(1, false, time.Hour), notif(2, false, 40*24*time.Hour), notif(3, true, 2*time.Hour)},
		Total:   3,
		HasMore: false,
	}
	api.unread = unread
	c := newTestCenter(api)
	_, err := c.Load(context.Background(), AllFilter)
	require.NoError(t, err)
	c.Poll(context.Background())
	return c
}

func TestCenter_LoadReplacesAndResetsPage(t *testing.T) {
	api := newFakeAPI()
	api.pages[1] = &apiclient.Page[apiclient.Notification]{Items: []apiclient.Notification{notif(1, false, 0)}, Total: 30, HasMore: true}
	api.pages[2] = &apiclient.Page[apiclient.Notification]{Items: []apiclient.Notification{notif(2, false, 0)}, Total: 30, HasMore: false}
	c := newTestCenter(api)

	snap, err := c.Load(context.Background(), AllFilter)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Page)
	assert.True(t, snap.HasMore)

	snap, err = c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Page)
	assert.Len(t, snap.State.Records, 2)
	assert.False(t, snap.HasMore)

	// 筛选变化：回到第一页并替换列表
	snap, err = c.Load(context.Background(), Filter{Kind: FilterUnread})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Page)
	assert.Len(t, snap.State.Records, 1)
	assert.Equal(t, "unread", snap.Filter)

	require.Len(t, api.listCalls, 3)
	assert.Equal(t, apiclient.NotificationQuery{Page: 1, Limit: 20}, api.listCalls[0])
	assert.Equal(t, apiclient.NotificationQuery{Page: 2, Limit: 20}, api.listCalls[1])
	assert.Equal(t, apiclient.NotificationQuery{Page: 1, Limit: 20, Status: "unread"}, api.listCalls[2])
}

func TestCenter_LoadMoreWithoutMoreIsNoop(t *testing.T) {
	api := newFakeAPI()
	c := loadedCenter(t, api, 2)

	_, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.listCount())
}

func TestCenter_LoadFailureHasNoRecords(t *testing.T) {
	api := newFakeAPI()
	api.listErr = stderrors.New("connection refused")
	c := newTestCenter(api)

	snap, err := c.Load(context.Background(), AllFilter)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstreamUnavailable))
	assert.Equal(t, remote.PhaseFailed, snap.State.Phase)
	assert.Empty(t, snap.State.Records)
	assert.NotEmpty(t, snap.State.Reason)
}

func TestCenter_StaleResponseDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.pages[1] = &apiclient.Page[apiclient.Notification]{Items: []apiclient.Notification{notif(7, false, 0)}, Total: 1}
	gate := make(chan struct{})
	api.listGate[1] = gate
	c := newTestCenter(api)

	done := make(chan Snapshot)
	go func() {
		snap, _ := c.Load(context.Background(), Filter{Kind: FilterRead})
		done <- snap
	}()
	require.Eventually(t, func() bool { return api.listCount() == 1 }, time.Second, time.Millisecond)

	// 第二次请求先返回
	latest, err := c.Load(context.Background(), AllFilter)
	require.NoError(t, err)
	close(gate)
	<-done

	snap := c.Snapshot()
	assert.Equal(t, "all", snap.Filter)
	assert.Equal(t, latest.State, snap.State)
	assert.Equal(t, remote.PhaseLoaded, snap.State.Phase)
}

func TestCenter_MarkReadPatchesLocally(t *testing.T) {
	api := newFakeAPI()
	c := loadedCenter(t, api, 5)
	require.Equal(t, 5, c.Badge().Count)
	calls := api.listCount()

	badge, err := c.MarkRead(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, badge.Count)
	assert.Equal(t, []int64{1}, api.marked)

	item := c.Snapshot().State.Records[0]
	assert.True(t, item.Read)
	require.NotNil(t, item.ReadAt)
	assert.Equal(t, fixedNow, *item.ReadAt)

	// 已读条目再次标记不再减少
	badge, err = c.MarkRead(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 4, badge.Count)
	assert.Equal(t, calls, api.listCount())
}

func TestCenter_MarkAllRead(t *testing.T) {
	api := newFakeAPI()
	c := loadedCenter(t, api, 12)

	badge, err := c.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, badge.Count)
	for _, it := range c.Snapshot().State.Records {
		assert.True(t, it.Read)
		assert.NotNil(t, it.ReadAt)
	}
}

func TestCenter_MutationFailureLeavesStateUntouched(t *testing.T) {
	api := newFakeAPI()
	c := loadedCenter(t, api, 2)
	api.mutateErr = &apiclient.APIError{Status: 404}

	badge, err := c.MarkRead(context.Background(), 1)
	assert.True(t, errors.Is(err, errors.ErrNotificationNotFound))
	assert.Equal(t, 2, badge.Count)
	assert.False(t, c.Snapshot().State.Records[0].Read)
}

func TestCenter_Delete(t *testing.T) {
	api := newFakeAPI()
	c := loadedCenter(t, api, 2)

	badge, err := c.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, badge.Count)

	snap := c.Snapshot()
	assert.Len(t, snap.State.Records, 2)
	assert.Equal(t, int64(2), snap.Total)
}

func TestCenter_DeleteOld(t *testing.T) {
	api := newFakeAPI()
	c := loadedCenter(t, api, 2)

	_, err := c.DeleteOld(context.Background(), 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidDays))
	assert.Empty(t, api.deletedDays)

	removed, err := c.DeleteOld(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []int{30}, api.deletedDays)

	for _, it := range c.Snapshot().State.Records {
		assert.NotEqual(t, int64(2), it.ID)
	}
}

func TestCenter_PollFallback(t *testing.T) {
	api := newFakeAPI()
	rec := &pollCounter{}
	api.pages[1] = &apiclient.Page[apiclient.Notification]{
		Items: []apiclient.Notification{notif(1, false, 0), notif(2, false, 0), notif(3, true, 0)},
	}
	c := NewCenter(api, Options{Recorder: rec})

	api.unreadErr = stderrors.New("boom")
	// 列表为空时回退为 0
	assert.Equal(t, Badge{Count: 0, Source: BadgeFromLocal}, c.Poll(context.Background()))

	_, err := c.Load(context.Background(), AllFilter)
	require.NoError(t, err)
	assert.Equal(t, Badge{Count: 2, Source: BadgeFromLocal}, c.Poll(context.Background()))

	api.unreadErr = nil
	api.unread = 17
	assert.Equal(t, Badge{Count: 17, Source: BadgeFromServer}, c.Poll(context.Background()))
	assert.Equal(t, []string{"fallback", "fallback", "ok"}, rec.results)
}

func TestCenter_Create(t *testing.T) {
	api := newFakeAPI()
	c := loadedCenter(t, api, 2)

	_, err := c.Create(context.Background(), apiclient.NewNotification{Type: apiclient.NotifyMaintenance})
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Empty(t, api.created)

	_, err = c.Create(context.Background(), apiclient.NewNotification{Type: "BOGUS", Title: "t", Message: "m"})
	assert.True(t, errors.Is(err, errors.ErrNotificationType))

	item, err := c.Create(context.Background(), apiclient.NewNotification{Type: apiclient.NotifyMaintenance, Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "wrench", item.Icon)
	assert.Equal(t, 3, c.Badge().Count)
	assert.Equal(t, int64(99), c.Snapshot().State.Records[0].ID)
}

func TestCenter_StartStopAndSubscribe(t *testing.T) {
	api := newFakeAPI()
	api.unread = 4
	c := NewCenter(api, Options{PollInterval: 5 * time.Millisecond})

	ch, cancel := c.Subscribe()
	defer cancel()
	assert.Equal(t, 0, (<-ch).Count)

	c.Start(context.Background())
	assert.True(t, c.Running())

	select {
	case b := <-ch:
		assert.Equal(t, 4, b.Count)
	case <-time.After(time.Second):
		t.Fatal("no badge broadcast")
	}
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.unreadCalls >= 2
	}, time.Second, time.Millisecond)

	c.Stop()
	assert.False(t, c.Running())

	// Stop 之后订阅通道被关闭
	for range ch {
	}
	cancel()
}

func TestParseFilter(t *testing.T) {
	tests := map[string]Filter{
		"":                AllFilter,
		"ALL":             AllFilter,
		"unread":          {Kind: FilterUnread},
		"read":            {Kind: FilterRead},
		"type:NEW_TICKET": {Kind: FilterType, Type: apiclient.NotifyNewTicket},
		"security_alert":  {Kind: FilterType, Type: apiclient.NotifySecurityAlert},
	}
	for raw, want := range tests {
		got, err := ParseFilter(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
		again, err := ParseFilter(got.String())
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}

	_, err := ParseFilter("type:UNKNOWN")
	assert.True(t, errors.Is(err, errors.ErrNotificationFilter))

	q := Filter{Kind: FilterType, Type: apiclient.NotifyNewUser}.Query(3, 20)
	assert.Equal(t, apiclient.NotificationQuery{Page: 3, Limit: 20, Type: apiclient.NotifyNewUser}, q)
}

func TestStyleFor(t *testing.T) {
	for _, typ := range apiclient.NotificationTypes {
		assert.NotEqual(t, "bell", StyleFor(typ).Icon, typ)
	}
	assert.Equal(t, Style{Color: "gray", Icon: "bell"}, StyleFor("OTHER"))
}
