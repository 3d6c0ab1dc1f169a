// Package apiclient 上游 REST API 客户端
//
// 所有请求携带 Bearer 令牌；收到 401 时仅刷新一次令牌并重试一次，
// 刷新失败则清空令牌并通知调用方跳转登录页。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	maxBodySize    = 10 << 20
	refreshTimeout = 10 * time.Second
	tracerName     = "apiclient"
)

// Config 客户端配置
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

// Observer 请求观测钩子，*metrics.Metrics 满足该接口
type Observer interface {
	RecordUpstream(resource, method string, status int, duration time.Duration)
	RecordTokenRefresh(ok bool)
}

type nopObserver struct{}

func (nopObserver) RecordUpstream(string, string, int, time.Duration) {}
func (nopObserver) RecordTokenRefresh(bool)                           {}

// Option 客户端选项
type Option func(*Client)

// WithTokenStore 指定令牌存储
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// WithHTTPClient 指定底层 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver 指定观测钩子
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger 指定日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithAuthExpired 会话彻底失效时的回调，参数为登录页路由
func WithAuthExpired(fn func(ctx context.Context, redirect string)) Option {
	return func(c *Client) { c.onExpired = fn }
}

// Client 上游 API 客户端
type Client struct {
	baseURL   string
	timeout   time.Duration
	http      *http.Client
	tokens    TokenStore
	limiter   *rate.Limiter
	observer  Observer
	log       *zap.Logger
	onExpired func(ctx context.Context, redirect string)
	refresh   singleflight.Group
	tracer    trace.Tracer

	News          *Resource[Article]
	Services      *Resource[Service]
	Testimonials  *Resource[Testimonial]
	Competences   *Resource[Competence]
	FAQ           *Resource[FAQItem]
	Auth          *AuthAPI
	Admin         *AdminAPI
	Notifications *NotificationsAPI
}

// New 创建客户端
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base url %q", cfg.BaseURL)
	}

	c := &Client{
		baseURL:  base.String(),
		timeout:  cfg.Timeout,
		http:     &http.Client{},
		observer: nopObserver{},
		log:      zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = NewMemoryTokenStore(Tokens{})
	}

	c.News = newResource[Article](c, "news", "/news")
	c.Services = newResource[Service](c, "services", "/services")
	c.Testimonials = newResource[Testimonial](c, "testimonials", "/testimonials")
	c.Competences = newResource[Competence](c, "competences", "/competences")
	c.FAQ = newResource[FAQItem](c, "faq", "/faq")
	c.Auth = &AuthAPI{c: c}
	c.Admin = newAdminAPI(c)
	c.Notifications = &NotificationsAPI{c: c}
	return c, nil
}

// Factory 按会话令牌存储创建客户端
type Factory func(store TokenStore, opts ...Option) (*Client, error)

// NewFactory 固定配置与公共选项，返回客户端工厂
func NewFactory(cfg Config, base ...Option) Factory {
	return func(store TokenStore, opts ...Option) (*Client, error) {
		all := make([]Option, 0, len(base)+len(opts)+1)
		all = append(all, base...)
		all = append(all, WithTokenStore(store))
		all = append(all, opts...)
		return New(cfg, all...)
	}
}

// Tokens 返回令牌存储
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// call 一次上游调用
type call struct {
	method    string
	path      string
	query     url.Values
	body      interface{}
	resource  string
	anonymous bool
}

// do 发送请求；401 时刷新一次令牌并重试一次
func (c *Client) do(ctx context.Context, r call) ([]byte, error) {
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("apiclient: load tokens: %w", err)
	}

	status, body, err := c.send(ctx, r, tokens.Access)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && !r.anonymous {
		fresh, rerr := c.refreshOnce(ctx, tokens.Access)
		if rerr != nil {
			c.log.Warn("token refresh failed, session expired",
				zap.String("resource", r.resource), zap.Error(rerr))
			c.expire(ctx)
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, rerr)
		}

		status, body, err = c.send(ctx, r, fresh.Access)
		if err != nil {
			return nil, err
		}
	}

	if status >= http.StatusBadRequest {
		return nil, newAPIError(r.resource, status, body)
	}
	return body, nil
}

// refreshOnce 并发的 401 共享同一次刷新
func (c *Client) refreshOnce(ctx context.Context, stale string) (Tokens, error) {
	v, err, _ := c.refresh.Do("refresh", func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		current, err := c.tokens.Load(rctx)
		if err != nil {
			return Tokens{}, err
		}
		// 其他请求已经换过令牌
		if current.Access != "" && current.Access != stale {
			return current, nil
		}
		if current.Refresh == "" {
			return Tokens{}, ErrNoRefreshToken
		}

		fresh, err := c.callRefresh(rctx, current.Refresh)
		c.observer.RecordTokenRefresh(err == nil)
		if err != nil {
			return Tokens{}, err
		}
		if fresh.Refresh == "" {
			fresh.Refresh = current.Refresh
		}
		if err := c.tokens.Save(rctx, fresh); err != nil {
			return Tokens{}, err
		}
		return fresh, nil
	})
	if err != nil {
		return Tokens{}, err
	}
	return v.(Tokens), nil
}

// callRefresh 调用 POST /auth/refresh
func (c *Client) callRefresh(ctx context.Context, refreshToken string) (Tokens, error) {
	r := call{
		method:    http.MethodPost,
		path:      "/auth/refresh",
		body:      map[string]string{"refresh_token": refreshToken},
		resource:  "auth",
		anonymous: true,
	}
	status, body, err := c.send(ctx, r, "")
	if err != nil {
		return Tokens{}, err
	}
	if status >= http.StatusBadRequest {
		return Tokens{}, newAPIError(r.resource, status, body)
	}

	var payload tokenPayload
	if err := decodeOne(r.resource, body, &payload); err != nil {
		return Tokens{}, err
	}
	t := payload.tokens()
	if t.Access == "" {
		return Tokens{}, fmt.Errorf("%w: refresh response has no token", ErrBadEnvelope)
	}
	return t, nil
}

// expire 清空令牌并触发跳转登录
func (c *Client) expire(ctx context.Context) {
	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		c.log.Error("clear tokens failed", zap.Error(err))
	}
	if c.onExpired != nil {
		c.onExpired(ctx, LoginPath)
	}
}

// send 发送一次 HTTP 请求，返回状态码与响应体
func (c *Client) send(ctx context.Context, r call, token string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "upstream "+r.method+" "+r.resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.method),
			attribute.String("upstream.resource", r.resource),
		),
	)
	defer span.End()

	req, err := c.newRequest(ctx, r, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observer.RecordUpstream(r.resource, r.method, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, fmt.Errorf("apiclient: %s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.observer.RecordUpstream(r.resource, r.method, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		return 0, nil, fmt.Errorf("apiclient: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) newRequest(ctx context.Context, r call, token string) (*http.Request, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var reader io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" && !r.anonymous {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// getJSON 请求并解码单个对象
func (c *Client) getJSON(ctx context.Context, r call, out interface{}) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	return decodeOne(r.resource, body, out)
}

// tokenPayload 兼容多种令牌字段命名
type tokenPayload struct {
	Token        string `json:"token"`
	AccessToken  string `json:"access_token"`
	AccessCamel  string `json:"accessToken"`
	RefreshToken string `json:"refresh_token"`
	RefreshCamel string `json:"refreshToken"`
	User         *User  `json:"user"`
}

func (p tokenPayload) tokens() Tokens {
	t := Tokens{Access: p.Token, Refresh: p.RefreshToken}
	if t.Access == "" {
		t.Access = p.AccessToken
	}
	if t.Access == "" {
		t.Access = p.AccessCamel
	}
	if t.Refresh == "" {
		t.Refresh = p.RefreshCamel
	}
	return t
}

// Ping 探测上游是否可达，非 5xx 响应均视为可达
func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.send(ctx, call{method: http.MethodGet, path: "/health", resource: "health", anonymous: true}, "")
	if err != nil {
		return err
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("apiclient: upstream status %d", status)
	}
	return nil
}
