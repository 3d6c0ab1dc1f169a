package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/logger"
)

// LoggingConfig 日志配置
type LoggingConfig struct {
	Logger          *zap.Logger
	SkipPaths       []string
	SkipHealthCheck bool
	LogRequestBody  bool
	MaxBodySize     int
}

// DefaultLoggingConfig 默认日志配置
func DefaultLoggingConfig(l *zap.Logger) *LoggingConfig {
	return &LoggingConfig{
		Logger:          l,
		SkipHealthCheck: true,
		MaxBodySize:     1024,
	}
}

// 请求体中需要脱敏的字段
var redactedFields = map[string]struct{}{
	"password":      {},
	"token":         {},
	"refresh_token": {},
	"access_token":  {},
}

// 预读请求体的上限
const maxLoggedBody = 64 << 10

var healthPaths = map[string]struct{}{"/health": {}, "/ping": {}, "/ready": {}}

// Logging 请求日志中间件
func Logging(config *LoggingConfig) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skipPaths[path]; ok {
			c.Next()
			return
		}
		if _, ok := healthPaths[path]; ok && config.SkipHealthCheck {
			c.Next()
			return
		}

		start := time.Now()

		var requestBody string
		if config.LogRequestBody && c.Request.Body != nil && isJSON(c) {
			raw, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody+1))
			c.Request.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(raw), c.Request.Body), c.Request.Body}
			if len(raw) > maxLoggedBody {
				// 截断后的 JSON 无法脱敏，不记录内容
				requestBody = "(omitted)"
			} else {
				requestBody = redactBody(raw, config.MaxBodySize)
			}
		}

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			logger.RequestID(GetRequestID(c)),
			logger.Method(c.Request.Method),
			logger.Path(path),
			zap.String("route", c.FullPath()),
			zap.String("query", c.Request.URL.RawQuery),
			logger.StatusCode(status),
			logger.Latency(time.Since(start)),
			logger.IP(c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if sid := GetSessionID(c); sid != "" {
			fields = append(fields, logger.SessionID(sid), logger.Username(GetUsername(c)))
		}
		if requestBody != "" {
			fields = append(fields, zap.String("request_body", requestBody))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			config.Logger.Error("HTTP Request", fields...)
		case status >= 400:
			config.Logger.Warn("HTTP Request", fields...)
		default:
			config.Logger.Info("HTTP Request", fields...)
		}
	}
}

func isJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json")
}

// redactBody 截断并隐藏敏感字段，非 JSON 对象原样截断
func redactBody(raw []byte, max int) string {
	if len(raw) == 0 {
		return ""
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		for k := range obj {
			if _, ok := redactedFields[strings.ToLower(k)]; ok {
				obj[k] = "***"
			}
		}
		if buf, err := json.Marshal(obj); err == nil {
			raw = buf
		}
	}
	if max > 0 && len(raw) > max {
		return string(raw[:max]) + "...(truncated)"
	}
	return string(raw)
}
