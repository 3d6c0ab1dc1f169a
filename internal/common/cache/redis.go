// Package cache 提供 Redis 缓存功能
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/agency-portal/internal/common/config"
	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/common/metrics"
)

var rdb *redis.Client

// Init 初始化 Redis 连接
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	rdb = client
	return rdb, nil
}

// SetClient 替换全局客户端（测试使用）
func SetClient(client *redis.Client) {
	rdb = client
}

// GetClient 获取 Redis 客户端
func GetClient() *redis.Client {
	return rdb
}

// Close 关闭 Redis 连接
func Close() error {
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}

// Set 设置缓存
func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return rdb.Set(ctx, key, data, expiration).Err()
}

// Get 获取缓存
func Get(ctx context.Context, key string, dest interface{}) error {
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete 删除缓存
func Delete(ctx context.Context, keys ...string) error {
	return rdb.Del(ctx, keys...).Err()
}

// DeletePrefix 按前缀删除缓存
func DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var deleted int
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, iter.Err()
}

// Remember 读穿缓存：命中直接返回，未命中调用 load 并写回
// 写回失败只记录日志，不影响返回值
func Remember[T any](ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	name := cacheName(key)

	var cached T
	err := Get(ctx, key, &cached)
	if err == nil {
		metrics.GetMetrics().RecordCacheHit(name)
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		logger.Warn("读取缓存失败", logger.String("key", key), logger.Err(err))
	}
	metrics.GetMetrics().RecordCacheMiss(name)

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := Set(ctx, key, value, ttl); err != nil {
		logger.Warn("写入缓存失败", logger.String("key", key), logger.Err(err))
	}
	return value, nil
}

// cacheName 取键的第一段作为指标标签
func cacheName(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// 常用缓存键前缀
const (
	KeyPrefixSite      = "site:"
	KeyPrefixSession   = "session:"
	KeyPrefixTokens    = "tokens:"
	KeyPrefixRateLimit = "ratelimit:"
)

// BuildKey 构建缓存键
func BuildKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(prefix, ":")
	}
	return prefix + strings.Join(parts, ":")
}
