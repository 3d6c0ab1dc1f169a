// Package notification 提供管理端通知中心的 HTTP 与 WebSocket Handler
package notification

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/middleware"
	notificationService "github.com/dumeirei/agency-portal/internal/service/notification"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamEvent 推送给浏览器的消息
type StreamEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Handler 通知中心处理器
type Handler struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler 创建通知中心处理器，allowedOrigins 为空时只允许同源连接
func NewHandler(allowedOrigins []string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{log: log.With(logger.Module("notification"))}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		origins := make(map[string]struct{}, len(allowedOrigins))
		allowAll := false
		for _, o := range allowedOrigins {
			if o == "*" {
				allowAll = true
			}
			origins[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				return true
			}
			_, ok := origins[origin]
			return ok
		}
	}
	return h
}

func center(c *gin.Context) (*notificationService.Center, bool) {
	ws := middleware.GetWorkspace(c)
	if ws == nil {
		response.SessionExpired(c, errors.ErrSessionExpired.Code, errors.ErrSessionExpired.Message)
		return nil, false
	}
	return ws.Notifications, true
}

// GetBadge 当前未读数
// @Summary 当前未读数
// @Tags 管理-通知
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=notificationService.Badge}
// @Router /api/admin/notifications/badge [get]
func (h *Handler) GetBadge(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	response.Success(c, nc.Badge())
}

// List 按筛选条件加载通知，筛选变化时回到第一页并替换列表
// @Summary 通知列表
// @Tags 管理-通知
// @Produce json
// @Security BearerAuth
// @Param filter query string false "all / unread / read / type:NEW_QUOTE"
// @Param page query int false "加载到第几页"
// @Success 200 {object} response.Response{data=notificationService.Snapshot}
// @Router /api/admin/notifications [get]
func (h *Handler) List(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	filter, err := notificationService.ParseFilter(c.Query("filter"))
	if handler.HandleError(c, err) {
		return
	}
	page, ok := handler.ParseQueryInt(c, "page", 1)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	snap, err := nc.Load(ctx, filter)
	for err == nil && snap.Page < page && snap.HasMore {
		snap, err = nc.LoadMore(ctx)
	}
	handler.MustSucceed(c, err, snap)
}

// LoadMore 加载下一页并追加
// @Summary 加载更多通知
// @Tags 管理-通知
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=notificationService.Snapshot}
// @Router /api/admin/notifications/more [post]
func (h *Handler) LoadMore(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	snap, err := nc.LoadMore(c.Request.Context())
	handler.MustSucceed(c, err, snap)
}

// MarkRead 标记单条已读
// @Summary 标记已读
// @Tags 管理-通知
// @Produce json
// @Security BearerAuth
// @Param id path int true "通知ID"
// @Success 200 {object} response.Response{data=notificationService.Badge}
// @Router /api/admin/notifications/{id}/read [put]
func (h *Handler) MarkRead(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "通知")
	if !ok {
		return
	}
	badge, err := nc.MarkRead(c.Request.Context(), id)
	handler.MustSucceed(c, err, badge)
}

// MarkAllRead 全部标记已读
// @Summary 全部标记已读
// @Tags 管理-通知
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=notificationService.Badge}
// @Router /api/admin/notifications/read-all [put]
func (h *Handler) MarkAllRead(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	badge, err := nc.MarkAllRead(c.Request.Context())
	handler.MustSucceed(c, err, badge)
}

// Delete 删除单条通知，需携带 confirm=true
// @Summary 删除通知
// @Tags 管理-通知
// @Produce json
// @Security BearerAuth
// @Param id path int true "通知ID"
// @Param confirm query bool true "确认删除"
// @Success 200 {object} response.Response{data=notificationService.Badge}
// @Router /api/admin/notifications/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "通知")
	if !ok {
		return
	}
	if !handler.ParseQueryBool(c, "confirm") {
		handler.HandleError(c, errors.ErrConfirmRequired)
		return
	}
	badge, err := nc.Delete(c.Request.Context(), id)
	handler.MustSucceedWithMessage(c, err, "删除成功", badge)
}

// DeleteOld 删除 N 天以前的通知
// @Summary 清理旧通知
// @Tags 管理-通知
// @Produce json
// @Security BearerAuth
// @Param days query int true "天数"
// @Success 200 {object} response.Response
// @Router /api/admin/notifications/old [delete]
func (h *Handler) DeleteOld(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	days, ok := handler.ParseQueryInt(c, "days", 0)
	if !ok {
		return
	}
	removed, err := nc.DeleteOld(c.Request.Context(), days)
	handler.MustSucceed(c, err, gin.H{"removed": removed, "badge": nc.Badge()})
}

// Create 创建通知，仅管理员
// @Summary 创建通知
// @Tags 管理-通知
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body apiclient.NewNotification true "通知内容"
// @Success 200 {object} response.Response{data=notificationService.Item}
// @Router /api/admin/notifications [post]
func (h *Handler) Create(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	var req apiclient.NewNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	item, err := nc.Create(c.Request.Context(), req)
	handler.MustSucceedWithMessage(c, err, "创建成功", item)
}

// Stream 通过 WebSocket 推送未读数变化
// @Summary 未读数推送
// @Tags 管理-通知
// @Security BearerAuth
// @Param token query string false "会话令牌，浏览器无法设置请求头时使用"
// @Router /api/admin/notifications/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	nc, ok := center(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.SessionID(middleware.GetSessionID(c)), zap.Error(err))
		return
	}
	sid := middleware.GetSessionID(c)
	h.log.Debug("badge stream opened", logger.SessionID(sid))

	badges, cancel := nc.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go readPump(conn, closed)
	h.writePump(conn, badges, closed)
	h.log.Debug("badge stream closed", logger.SessionID(sid))
}

// readPump 丢弃客户端消息，只处理 pong 与关闭
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, badges <-chan notificationService.Badge, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case badge, ok := <-badges:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 工作区已关闭，通知浏览器重新登录
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(StreamEvent{Event: "badge", Data: badge}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/notifications")
	g.GET("/badge", h.GetBadge)
	g.GET("", h.List)
	g.POST("/more", h.LoadMore)
	g.PUT("/read-all", h.MarkAllRead)
	g.PUT("/:id/read", h.MarkRead)
	g.DELETE("/old", h.DeleteOld)
	g.DELETE("/:id", h.Delete)
	g.POST("", middleware.RequireAdmin(), h.Create)
	g.GET("/stream", h.Stream)
}
