package workspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/agency-portal/internal/service/notification"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

type memSessions struct {
	mu      sync.Mutex
	stores  map[string]*apiclient.MemoryTokenStore
	deleted []string
}

func newMemSessions() *memSessions {
	return &memSessions{stores: map[string]*apiclient.MemoryTokenStore{}}
}

func (m *memSessions) TokenStore(id string) apiclient.TokenStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[id]; ok {
		return s
	}
	s := apiclient.NewMemoryTokenStore(apiclient.Tokens{Access: "access-" + id, Refresh: "refresh-" + id})
	m.stores[id] = s
	return s
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memSessions) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

type gauge struct {
	mu   sync.Mutex
	last int
}

func (g *gauge) SetActiveSessions(n int) {
	g.mu.Lock()
	g.last = n
	g.mu.Unlock()
}

func (g *gauge) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func newRegistry(t *testing.T, handler http.HandlerFunc, now func() time.Time) (*Registry, *memSessions, *gauge) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sessions := newMemSessions()
	g := &gauge{}
	reg := NewRegistry(apiclient.NewFactory(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: time.Second}), sessions, Options{
		IdleTimeout:  10 * time.Minute,
		Notification: notification.Options{PollInterval: time.Hour},
		Gauge:        g,
		Now:          now,
	})
	t.Cleanup(reg.CloseAll)
	return reg, sessions, g
}

func unreadHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/notifications/unread-count" {
		_, _ = w.Write([]byte(`{"success":true,"data":{"count":4}}`))
		return
	}
	http.NotFound(w, r)
}

func TestRegistry_GetCreatesOnceAndPolls(t *testing.T) {
	reg, _, g := newRegistry(t, unreadHandler, nil)

	ws, err := reg.Get("s1")
	require.NoError(t, err)
	again, err := reg.Get("s1")
	require.NoError(t, err)
	assert.Same(t, ws, again)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, g.value())

	assert.True(t, ws.Notifications.Running())
	require.Eventually(t, func() bool {
		return ws.Notifications.Badge().Count == 4
	}, 2*time.Second, 10*time.Millisecond)

	_, err = reg.Get("")
	assert.Error(t, err)
}

func TestRegistry_CloseStopsPolling(t *testing.T) {
	reg, _, g := newRegistry(t, unreadHandler, nil)
	ws, err := reg.Get("s1")
	require.NoError(t, err)

	reg.Close("s1")
	assert.False(t, ws.Notifications.Running())
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, g.value())
	_, ok := reg.Lookup("s1")
	assert.False(t, ok)

	reg.Close("s1")
}

func TestRegistry_SweepIdle(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	reg, _, _ := newRegistry(t, unreadHandler, clock)

	_, err := reg.Get("old")
	require.NoError(t, err)
	advance(8 * time.Minute)
	_, err = reg.Get("fresh")
	require.NoError(t, err)
	advance(5 * time.Minute)

	assert.Equal(t, 1, reg.Sweep())
	_, ok := reg.Lookup("old")
	assert.False(t, ok)
	_, ok = reg.Lookup("fresh")
	assert.True(t, ok)
}

func TestRegistry_RefreshFailureExpiresSession(t *testing.T) {
	reg, sessions, _ := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)

	ws, err := reg.Get("s9")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := reg.Lookup("s9")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"s9"}, sessions.deletedIDs())
	require.Eventually(t, func() bool { return !ws.Notifications.Running() }, 2*time.Second, 10*time.Millisecond)

	tokens, err := sessions.TokenStore("s9").Load(context.Background())
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
}
