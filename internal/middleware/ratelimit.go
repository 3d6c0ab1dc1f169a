package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/cache"
	"github.com/dumeirei/agency-portal/internal/common/response"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	RedisClient *redis.Client
	KeyPrefix   string
	Limit       int
	Window      time.Duration
	KeyFunc     func(*gin.Context) string
	Message     string
	Logger      *zap.Logger
}

// RateLimit 基于 Redis 的固定窗口限流
// Redis 不可用时放行
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	if config.KeyPrefix == "" {
		config.KeyPrefix = cache.KeyPrefixRateLimit
	}
	if config.Message == "" {
		config.Message = "请求过于频繁，请稍后再试"
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		var key string
		if config.KeyFunc != nil {
			key = config.KeyPrefix + config.KeyFunc(c)
		} else {
			key = fmt.Sprintf("%s%s:%s", config.KeyPrefix, c.ClientIP(), c.FullPath())
		}

		ctx := c.Request.Context()
		n, err := config.RedisClient.Incr(ctx, key).Result()
		if err != nil {
			config.Logger.Warn("rate limit unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if n == 1 {
			config.RedisClient.Expire(ctx, key, config.Window)
		}

		count := int(n)
		ttl, err := config.RedisClient.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = config.Window
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		if count > config.Limit {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			response.TooManyRequests(c, config.Message)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(config.Limit-count))
		c.Next()
	}
}

// IPRateLimit 按客户端 IP 限流
func IPRateLimit(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		RedisClient: redisClient,
		KeyPrefix:   cache.KeyPrefixRateLimit + "ip:",
		Limit:       limit,
		Window:      window,
		KeyFunc:     func(c *gin.Context) string { return c.ClientIP() },
	})
}

// FormRateLimit 官网表单提交限流，按 IP 与路由计数
func FormRateLimit(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		RedisClient: redisClient,
		KeyPrefix:   cache.KeyPrefixRateLimit + "form:",
		Limit:       limit,
		Window:      window,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP() + ":" + c.FullPath()
		},
		Message: "提交过于频繁，请稍后再试",
	})
}

// SessionRateLimit 管理端按会话限流，未登录时按 IP
func SessionRateLimit(redisClient *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		RedisClient: redisClient,
		KeyPrefix:   cache.KeyPrefixRateLimit + "session:",
		Limit:       limit,
		Window:      window,
		KeyFunc: func(c *gin.Context) string {
			if sid := GetSessionID(c); sid != "" {
				return sid
			}
			return c.ClientIP()
		},
	})
}
