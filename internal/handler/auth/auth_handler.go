// Package auth 提供管理端登录相关的 HTTP Handler
package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/middleware"
	authService "github.com/dumeirei/agency-portal/internal/service/auth"
)

// Handler 认证处理器
type Handler struct {
	authService *authService.Service
	secure      bool
	now         func() time.Time
}

// NewHandler 创建认证处理器，secure 控制会话 Cookie 是否仅限 HTTPS
func NewHandler(authSvc *authService.Service, secure bool) *Handler {
	return &Handler{authService: authSvc, secure: secure, now: time.Now}
}

// Login 管理端登录
// @Summary 管理端登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body authService.LoginRequest true "用户名与密码"
// @Success 200 {object} response.Response{data=authService.LoginResponse}
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req authService.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "缺少必填字段: username, password")
		return
	}

	res, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		if errors.Is(err, errors.ErrLoginFailed) {
			response.ErrorWithStatus(c, http.StatusUnauthorized, errors.ErrLoginFailed.Code, errors.ErrLoginFailed.Message)
			return
		}
		handler.HandleError(c, err)
		return
	}

	maxAge := int(time.Unix(res.ExpiresAt, 0).Sub(h.now()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, res.Token, maxAge, "/", "", h.secure, true)
	response.SuccessWithMessage(c, "登录成功", res)
}

// Logout 退出登录
// @Summary 退出登录
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/admin/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	sess, ok := handler.RequireSession(c)
	if !ok {
		return
	}
	err := h.authService.Logout(c.Request.Context(), sess.ID)
	if handler.HandleError(c, err) {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secure, true)
	response.SuccessWithMessage(c, "已退出登录", nil)
}

// Me 当前会话信息
// @Summary 当前会话信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=repository.Session}
// @Router /api/admin/me [get]
func (h *Handler) Me(c *gin.Context) {
	sess, ok := handler.RequireSession(c)
	if !ok {
		return
	}
	response.Success(c, sess)
}

// RegisterRoutes 注册公开路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

// RegisterProtectedRoutes 注册需要会话的路由
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
}
