// Package config 提供应用配置管理功能
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Crypto       CryptoConfig       `mapstructure:"crypto"`
	OSS          OSSConfig          `mapstructure:"oss"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Upstream     UpstreamConfig     `mapstructure:"upstream"`
	Notification NotificationConfig `mapstructure:"notification"`
	Session      SessionConfig      `mapstructure:"session"`
	Media        MediaConfig        `mapstructure:"media"`
	Site         SiteConfig         `mapstructure:"site"`
	Audit        AuditConfig        `mapstructure:"audit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Name            string `mapstructure:"name"`
	Mode            string `mapstructure:"mode"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogMode         bool   `mapstructure:"log_mode"`
	SlowThreshold   int    `mapstructure:"slow_threshold"`
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Timezone,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Addr 返回 Redis 地址
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig 门户会话令牌配置
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	AccessTokenExpire int    `mapstructure:"access_token_expire"`
	Issuer            string `mapstructure:"issuer"`
}

// AccessTokenDuration 返回会话令牌有效期
func (j *JWTConfig) AccessTokenDuration() time.Duration {
	return time.Duration(j.AccessTokenExpire) * time.Hour
}

// CryptoConfig 加密配置
type CryptoConfig struct {
	AESKey string `mapstructure:"aes_key"`
}

// OSSConfig 对象存储配置
type OSSConfig struct {
	Provider        string `mapstructure:"provider"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	CustomDomain    string `mapstructure:"custom_domain"`
	UploadDir       string `mapstructure:"upload_dir"`
	LocalRoot       string `mapstructure:"local_root"`
	LocalBaseURL    string `mapstructure:"local_base_url"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Path         string `mapstructure:"path"`
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Limit     int  `mapstructure:"limit"`
	FormLimit int  `mapstructure:"form_limit"`
	Window    int  `mapstructure:"window"`
}

// WindowDuration 返回限流窗口
func (r *RateLimitConfig) WindowDuration() time.Duration {
	return time.Duration(r.Window) * time.Second
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// UpstreamConfig 上游 REST API 配置
type UpstreamConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	Timeout           int     `mapstructure:"timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// TimeoutDuration 返回单次请求超时时间
func (u *UpstreamConfig) TimeoutDuration() time.Duration {
	return time.Duration(u.Timeout) * time.Second
}

// NotificationConfig 通知中心配置
type NotificationConfig struct {
	PollInterval int `mapstructure:"poll_interval"`
	PageSize     int `mapstructure:"page_size"`
}

// PollDuration 返回未读数轮询间隔
func (n *NotificationConfig) PollDuration() time.Duration {
	return time.Duration(n.PollInterval) * time.Second
}

// SessionConfig 管理端会话配置
type SessionConfig struct {
	IdleTimeout   int `mapstructure:"idle_timeout"`
	SweepInterval int `mapstructure:"sweep_interval"`
	TokenTTL      int `mapstructure:"token_ttl"`
}

// IdleDuration 返回会话空闲回收时间
func (s *SessionConfig) IdleDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Minute
}

// TokenTTLDuration 返回上游令牌在 Redis 中的保存时长
func (s *SessionConfig) TokenTTLDuration() time.Duration {
	return time.Duration(s.TokenTTL) * time.Hour
}

// MediaConfig 媒体库配置
type MediaConfig struct {
	MaxUploadSize  int64    `mapstructure:"max_upload_size"`
	PageSize       int      `mapstructure:"page_size"`
	AllowedFolders []string `mapstructure:"allowed_folders"`
	ProgressTTL    int      `mapstructure:"progress_ttl"`
}

// ProgressTTLDuration 返回上传进度保留时长
func (m *MediaConfig) ProgressTTLDuration() time.Duration {
	return time.Duration(m.ProgressTTL) * time.Second
}

// SiteConfig 官网内容配置
type SiteConfig struct {
	PublicBaseURL string `mapstructure:"public_base_url"`
	CacheTTL      int    `mapstructure:"cache_ttl"`
	WarmInterval  int    `mapstructure:"warm_interval"`
	QRCodeSize    int    `mapstructure:"qrcode_size"`
}

// CacheDuration 返回官网内容缓存时长
func (s *SiteConfig) CacheDuration() time.Duration {
	return time.Duration(s.CacheTTL) * time.Second
}

// WarmDuration 返回缓存预热间隔
func (s *SiteConfig) WarmDuration() time.Duration {
	return time.Duration(s.WarmInterval) * time.Second
}

// AuditConfig 审计日志配置
type AuditConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	RetentionDays int  `mapstructure:"retention_days"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./configs")
			v.AddConfigPath(".")
		}

		// 环境变量支持
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(newEnvReplacer())

		setDefaults(v)

		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认值
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		globalConfig = &Config{}
		if err = v.Unmarshal(globalConfig); err != nil {
			return
		}
	})

	return globalConfig, err
}

// newEnvReplacer 配置键到环境变量名的映射，如 upstream.base_url -> UPSTREAM_BASE_URL
func newEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		globalConfig = Default()
	}
	return globalConfig
}

// Default 返回仅包含默认值的配置
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.name", "agency-portal")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.shutdown_timeout", 10)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "agency_portal")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Europe/Paris")
	v.SetDefault("database.sqlite_path", "./data/portal.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_mode", true)
	v.SetDefault("database.slow_threshold", 200)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-portal-session-secret")
	v.SetDefault("jwt.access_token_expire", 12)
	v.SetDefault("jwt.issuer", "agency-portal")

	// Crypto defaults
	v.SetDefault("crypto.aes_key", "0123456789abcdef0123456789abcdef")

	// OSS defaults
	v.SetDefault("oss.provider", "local")
	v.SetDefault("oss.upload_dir", "media")
	v.SetDefault("oss.local_root", "./data/uploads")
	v.SetDefault("oss.local_base_url", "/uploads")

	// Logger defaults
	v.SetDefault("logger.level", "debug")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "./logs/portal.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.caller", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "agency-portal")
	v.SetDefault("tracing.sample_rate", 1.0)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 120)
	v.SetDefault("ratelimit.form_limit", 5)
	v.SetDefault("ratelimit.window", 60)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 86400)

	// Upstream defaults
	v.SetDefault("upstream.base_url", "http://localhost:5000/api")
	v.SetDefault("upstream.timeout", 15)
	v.SetDefault("upstream.requests_per_second", 0)
	v.SetDefault("upstream.burst", 10)

	// Notification defaults
	v.SetDefault("notification.poll_interval", 30)
	v.SetDefault("notification.page_size", 20)

	// Session defaults
	v.SetDefault("session.idle_timeout", 30)
	v.SetDefault("session.sweep_interval", 60)
	v.SetDefault("session.token_ttl", 24)

	// Media defaults
	v.SetDefault("media.max_upload_size", 50<<20)
	v.SetDefault("media.page_size", 24)
	v.SetDefault("media.allowed_folders", []string{"images", "videos", "documents", "articles"})
	v.SetDefault("media.progress_ttl", 600)

	// Site defaults
	v.SetDefault("site.public_base_url", "http://localhost:3000")
	v.SetDefault("site.cache_ttl", 300)
	v.SetDefault("site.warm_interval", 240)
	v.SetDefault("site.qrcode_size", 256)

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.retention_days", 90)
}

// IsDebug 是否为调试模式
func (c *Config) IsDebug() bool {
	return c.Server.Mode == "debug"
}

// IsRelease 是否为发布模式
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}
