package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/models"
)

// AuditStore 审计日志存储，*repository.AuditLogRepository 满足该接口
type AuditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditAction 路由对应的模块与操作
type AuditAction struct {
	Module string
	Action string
}

// 管理端路由到审计操作的映射，未列出的写操作按路径与方法推断
var auditActions = map[string]AuditAction{
	"POST /api/admin/logout":                {Module: "auth", Action: "logout"},
	"POST /api/admin/users/:id/points":      {Module: "users", Action: "add_points"},
	"POST /api/admin/tickets/:id/messages":  {Module: "tickets", Action: "reply"},
	"PUT /api/admin/notifications/:id/read": {Module: "notifications", Action: "mark_read"},
	"PUT /api/admin/notifications/read-all": {Module: "notifications", Action: "mark_all_read"},
	"DELETE /api/admin/notifications/old":   {Module: "notifications", Action: "delete_old"},
	"POST /api/admin/notifications/more":    {},
	"POST /api/admin/media/upload":          {Module: "media", Action: "upload"},
	"POST /api/admin/richtext/sanitize":     {},
	"POST /api/admin/richtext/render":       {},
}

// 超过该大小的请求体不记录内容
const maxAuditBody = 64 << 10

// 请求体中需要隐藏的字段
var sensitiveFields = []string{"password", "token", "secret"}

// AuditLogger 管理端写操作审计
type AuditLogger struct {
	store AuditStore
	log   *zap.Logger
	now   func() time.Time
}

// NewAuditLogger 创建审计中间件
func NewAuditLogger(store AuditStore, log *zap.Logger) *AuditLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLogger{store: store, log: log, now: time.Now}
}

// Log 记录已认证会话的写操作；会话信息由会话认证中间件写入上下文
func (l *AuditLogger) Log() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			body = peekBody(c.Request, maxAuditBody)
		}

		c.Next()

		entry, ok := l.entry(c, body)
		if !ok {
			return
		}
		// gin.Context 在请求结束后会被复用，异步写入前必须先取出全部字段
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.store.Create(ctx, entry); err != nil {
				l.log.Warn("write audit log failed", logger.Module(entry.Module), logger.Action(entry.Action), logger.Err(err))
			}
		}()
	}
}

// entry 由请求构造审计记录；未登录或标记为不记录的路由返回 false
func (l *AuditLogger) entry(c *gin.Context, body []byte) (*models.AuditLog, bool) {
	sid := c.GetString("session_id")
	if sid == "" {
		return nil, false
	}

	route := c.FullPath()
	action, mapped := auditActions[c.Request.Method+" "+route]
	if mapped && action.Module == "" {
		return nil, false
	}
	if !mapped {
		action = inferAction(c.Request.Method, route)
	}

	entry := &models.AuditLog{
		SessionID: sid,
		Username:  c.GetString("username"),
		Role:      c.GetString("role"),
		Module:    action.Module,
		Action:    action.Action,
		TargetID:  c.Param("id"),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Status:    c.Writer.Status(),
		IP:        c.ClientIP(),
		UserAgent: truncate(c.Request.UserAgent(), 255),
		CreatedAt: l.now(),
	}
	if len(body) > 0 {
		var data map[string]interface{}
		if err := json.Unmarshal(body, &data); err == nil {
			entry.Payload = filterSensitive(data).(map[string]interface{})
		}
	}
	return entry, true
}

// inferAction 从 /api/admin/<module>/... 推断模块，从方法推断操作
func inferAction(method, route string) AuditAction {
	rest := strings.TrimPrefix(route, "/api/admin/")
	module, _, _ := strings.Cut(rest, "/")
	if module == "" {
		module = "unknown"
	}

	action := "unknown"
	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	}
	return AuditAction{Module: module, Action: action}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// filterSensitive 递归隐藏敏感字段
func filterSensitive(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = "***"
				continue
			}
			out[key] = filterSensitive(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = filterSensitive(item)
		}
		return out
	default:
		return data
	}
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, f := range sensitiveFields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// peekBody 预读至多 limit 字节并把请求体还原为完整内容，超出上限时返回 nil
func peekBody(r *http.Request, limit int64) []byte {
	head, _ := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if int64(len(head)) > limit {
		return nil
	}
	return head
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
