// Package response 统一响应格式单元测试
package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSuccess(t *testing.T) {
	c, w := setupTest()

	Success(c, gin.H{"count": 3})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(0), body["code"])
	assert.Equal(t, "success", body["message"])
	assert.Equal(t, float64(3), body["data"].(map[string]interface{})["count"])
}

func TestSuccessPage(t *testing.T) {
	c, w := setupTest()

	SuccessPage(c, []string{"a", "b"}, 97, 10, 10, false)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(97), data["total"])
	assert.Equal(t, float64(10), data["page"])
	assert.Equal(t, float64(10), data["page_size"])
	assert.Equal(t, float64(10), data["total_pages"])
	assert.Equal(t, false, data["has_more"])
	assert.Len(t, data["list"], 2)
}

func TestSuccessPage_ZeroPageSize(t *testing.T) {
	c, w := setupTest()

	SuccessPage(c, []int{}, 5, 1, 0, false)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["total_pages"])
}

func TestError_KeepsHTTP200(t *testing.T) {
	c, w := setupTest()

	Error(c, 4000, "通知不存在")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(4000), body["code"])
	assert.NotContains(t, body, "data")
}

func TestSessionExpired(t *testing.T) {
	c, w := setupTest()

	SessionExpired(c, 2007, "会话已失效，请重新登录")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2007), body["code"])
	assert.Equal(t, LoginPath, body["data"].(map[string]interface{})["redirect"])
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		name   string
		call   func(*gin.Context)
		status int
		msg    string
	}{
		{"BadRequest", func(c *gin.Context) { BadRequest(c, "bad") }, http.StatusBadRequest, "bad"},
		{"Unauthorized", func(c *gin.Context) { Unauthorized(c, "") }, http.StatusUnauthorized, "unauthorized"},
		{"Forbidden", func(c *gin.Context) { Forbidden(c, "") }, http.StatusForbidden, "forbidden"},
		{"NotFound", func(c *gin.Context) { NotFound(c, "") }, http.StatusNotFound, "not found"},
		{"InternalError", func(c *gin.Context) { InternalError(c, "") }, http.StatusInternalServerError, "internal server error"},
		{"TooManyRequests", func(c *gin.Context) { TooManyRequests(c, "") }, http.StatusTooManyRequests, "too many requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTest()
			tt.call(c)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["message"])
		})
	}
}
