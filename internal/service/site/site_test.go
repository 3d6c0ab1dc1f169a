package site

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/agency-portal/internal/common/cache"
	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

type upstream struct {
	mu    sync.Mutex
	calls map[string]int
	last  map[string]string
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[path]
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.calls[r.URL.Path]++
	u.last[r.URL.Path] = r.URL.RawQuery
	u.mu.Unlock()

	switch r.URL.Path {
	case "/api/news":
		_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"id":12,"title":"IA générative"}],"total":1,"hasMore":false}}`))
	case "/api/news/12":
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":12,"title":"IA générative"}}`))
	case "/api/services":
		_, _ = w.Write([]byte(`[{"id":1,"title":"Développement web"}]`))
	case "/api/testimonials", "/api/competences", "/api/faq":
		_, _ = w.Write([]byte(`[]`))
	case "/api/newsletter", "/api/contact":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"success":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setup(t *testing.T) (*Service, *upstream, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	up := &upstream{calls: map[string]int{}, last: map[string]string{}}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: time.Second})
	require.NoError(t, err)
	return NewService(client, Options{PublicBaseURL: "https://www.example.fr", CacheTTL: time.Minute, QRCodeSize: 128}), up, mr
}

func TestService_NewsIsCached(t *testing.T) {
	svc, up, mr := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		page, err := svc.News(ctx, NewsQuery{Category: "Tech", Page: 2, Limit: 5})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "IA générative", page.Items[0].Title)
	}
	assert.Equal(t, 1, up.count("/api/news"))
	assert.Equal(t, "category=Tech&limit=5&offset=5", up.last["/api/news"])
	assert.True(t, mr.Exists("site:news:list:tech::2:5"))

	mr.FastForward(2 * time.Minute)
	_, err := svc.News(ctx, NewsQuery{Category: "Tech", Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, up.count("/api/news"))
}

func TestService_ArticleNotFound(t *testing.T) {
	svc, _, _ := setup(t)

	a, err := svc.Article(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12), a.ID)

	_, err = svc.Article(context.Background(), 99)
	assert.True(t, errors.Is(err, errors.ErrArticleNotFound))
}

func TestService_ListsAndWarm(t *testing.T) {
	svc, up, _ := setup(t)
	ctx := context.Background()

	services, err := svc.Services(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)

	faq, err := svc.FAQ(ctx)
	require.NoError(t, err)
	assert.NotNil(t, faq)
	assert.Empty(t, faq)

	require.NoError(t, svc.Warm(ctx))
	assert.Equal(t, 2, up.count("/api/services"))
	assert.Equal(t, 1, up.count("/api/news"))

	_, err = svc.Services(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, up.count("/api/services"))
}

func TestService_Subscribe(t *testing.T) {
	svc, up, _ := setup(t)

	assert.True(t, errors.Is(svc.Subscribe(context.Background(), "pas-un-email"), errors.ErrNewsletterInvalid))
	assert.Equal(t, 0, up.count("/api/newsletter"))

	require.NoError(t, svc.Subscribe(context.Background(), "  Contact@Example.FR "))
	assert.Equal(t, 1, up.count("/api/newsletter"))
}

func TestService_Contact(t *testing.T) {
	svc, up, _ := setup(t)

	err := svc.Contact(context.Background(), apiclient.ContactRequest{Name: "Léa"})
	require.True(t, errors.Is(err, errors.ErrValidation))
	assert.Contains(t, err.Error(), "email, message")

	require.NoError(t, svc.Contact(context.Background(), apiclient.ContactRequest{
		Name: "Léa", Email: "lea@example.fr", Subject: "Devis", Message: "Bonjour",
	}))
	assert.Equal(t, 1, up.count("/api/contact"))
}

func TestService_ArticleQRCode(t *testing.T) {
	svc, _, _ := setup(t)

	data, err := svc.ArticleQRCode(context.Background(), 12)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	_, err = svc.ArticleQRCode(context.Background(), 99)
	assert.True(t, errors.Is(err, errors.ErrArticleNotFound))
}
