package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// LoginPath 会话失效后跳转的登录路由
const LoginPath = "/login"

// 预定义错误
var (
	ErrSessionExpired = errors.New("apiclient: session expired")
	ErrNoRefreshToken = errors.New("apiclient: no refresh token")
	ErrBadEnvelope    = errors.New("apiclient: malformed response envelope")
)

// APIError 上游返回的错误
type APIError struct {
	Resource string
	Status   int
	Message  string
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: %s: %d %s", e.Resource, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("apiclient: %s: %d %s", e.Resource, e.Status, e.Message)
}

// IsStatus 判断错误是否为指定 HTTP 状态
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsNotFound 判断是否为 404
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// newAPIError 从响应体中提取错误消息
func newAPIError(resource string, status int, body []byte) *APIError {
	apiErr := &APIError{Resource: resource, Status: status}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 {
			text = text[:200]
		}
		apiErr.Message = text
	}
	return apiErr
}
