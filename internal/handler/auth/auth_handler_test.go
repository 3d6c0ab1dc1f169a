package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/agency-portal/internal/common/crypto"
	"github.com/dumeirei/agency-portal/internal/common/jwt"
	"github.com/dumeirei/agency-portal/internal/middleware"
	"github.com/dumeirei/agency-portal/internal/repository"
	authService "github.com/dumeirei/agency-portal/internal/service/auth"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func upstreamAuth(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		var body apiclient.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Identifiants invalides"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"token":"up-access","refresh_token":"up-refresh","user":{"id":7,"username":"` + body.Username + `","role":"` + role + `"}}}`))
	}
}

func setupRouter(t *testing.T, role string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(upstreamAuth(role))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cipher, err := crypto.NewAES("0123456789abcdef")
	require.NoError(t, err)

	sessions := repository.NewSessionRepository(rdb, cipher, time.Hour)
	tokens := jwt.NewManager(&jwt.Config{Secret: "test-secret", ExpireTime: time.Hour, Issuer: "agency-portal"})
	factory := apiclient.NewFactory(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: time.Second})
	svc := authService.NewService(sessions, tokens, factory, nil, nil)

	h := NewHandler(svc, false)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	admin := r.Group("/api/admin", middleware.SessionAuth(svc))
	h.RegisterProtectedRoutes(admin)
	return r
}

func login(t *testing.T, r *gin.Engine, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "alice", "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestHandler_LoginMeLogout(t *testing.T) {
	r := setupRouter(t, "admin")

	w := login(t, r, "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Greater(t, cookie.MaxAge, 0)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	var data authService.LoginResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, cookie.Value, data.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	req.Header.Set("Authorization", "Bearer "+data.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := sessionCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "/login")
}

func TestHandler_LoginWrongPassword(t *testing.T) {
	r := setupRouter(t, "admin")

	w := login(t, r, "nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, sessionCookie(w))
}

func TestHandler_LoginClientRoleForbidden(t *testing.T) {
	r := setupRouter(t, "client")

	w := login(t, r, "s3cret")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, sessionCookie(w))
}

func TestHandler_LoginMissingFields(t *testing.T) {
	r := setupRouter(t, "admin")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"username":"alice"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
