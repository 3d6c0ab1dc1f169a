// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/repository"
)

// Authenticator 会话令牌校验，*auth.Service 满足该接口
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*repository.Session, error)
}

// 上下文键
const (
	ContextKeySession   = "session"
	ContextKeySessionID = "session_id"
	ContextKeyUsername  = "username"
	ContextKeyRole      = "role"
)

// SessionCookie 会话令牌 Cookie 名
const SessionCookie = "portal_session"

// SessionAuth 管理端会话认证中间件
// 令牌缺失或会话失效时返回 401 并携带登录页跳转地址
func SessionAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.SessionExpired(c, errors.ErrUnauthorized.Code, "请先登录")
			c.Abort()
			return
		}

		sess, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			appErr := errors.GetAppError(err)
			switch appErr.Code {
			case errors.ErrTokenExpired.Code, errors.ErrTokenInvalid.Code, errors.ErrSessionExpired.Code:
				response.SessionExpired(c, appErr.Code, appErr.Message)
			default:
				response.InternalError(c, appErr.Message)
			}
			c.Abort()
			return
		}

		SetSession(c, sess)
		c.Next()
	}
}

// SetSession 将会话写入上下文
func SetSession(c *gin.Context, sess *repository.Session) {
	c.Set(ContextKeySession, sess)
	c.Set(ContextKeySessionID, sess.ID)
	c.Set(ContextKeyUsername, sess.Username)
	c.Set(ContextKeyRole, sess.Role)
}

// extractToken 从请求中提取令牌
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// WebSocket 握手无法自定义请求头
	if token := c.Query("token"); token != "" {
		return token
	}

	token, _ := c.Cookie(SessionCookie)
	return token
}

// GetSession 从上下文获取会话
func GetSession(c *gin.Context) *repository.Session {
	v, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	sess, _ := v.(*repository.Session)
	return sess
}

// GetSessionID 从上下文获取会话 ID
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}

// GetUsername 从上下文获取用户名
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}
