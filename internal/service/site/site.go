// Package site 官网公开内容：读穿缓存、通讯订阅与文章分享二维码
package site

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/cache"
	"github.com/dumeirei/agency-portal/internal/common/crypto"
	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/common/qrcode"
	"github.com/dumeirei/agency-portal/internal/common/utils"
	"github.com/dumeirei/agency-portal/internal/service/remote"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// 新闻列表默认条数
const (
	DefaultNewsLimit = 9
	MaxNewsLimit     = 50
)

// Options 官网服务参数
type Options struct {
	PublicBaseURL string
	CacheTTL      time.Duration
	QRCodeSize    int
	Logger        *zap.Logger
}

// Service 官网内容服务
type Service struct {
	client  *apiclient.Client
	qr      *qrcode.Generator
	baseURL string
	ttl     time.Duration
	log     *zap.Logger
}

// NewService 创建官网服务，client 为匿名上游客户端
func NewService(client *apiclient.Client, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		client:  client,
		qr:      qrcode.NewGenerator(qrcode.WithSize(opts.QRCodeSize)),
		baseURL: opts.PublicBaseURL,
		ttl:     opts.CacheTTL,
		log:     log.With(logger.Module("site")),
	}
}

// NewsQuery 新闻列表条件
type NewsQuery struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// Normalized 去除空白并补全分页默认值
func (q NewsQuery) Normalized() NewsQuery {
	q.Category = strings.TrimSpace(q.Category)
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultNewsLimit
	}
	if q.Limit > MaxNewsLimit {
		q.Limit = MaxNewsLimit
	}
	return q
}

func (q NewsQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa((q.Page-1)*q.Limit))
	return v
}

func (q NewsQuery) cacheKey() string {
	return cache.BuildKey(cache.KeyPrefixSite, "news", "list",
		url.QueryEscape(strings.ToLower(q.Category)),
		url.QueryEscape(strings.ToLower(q.Search)),
		strconv.Itoa(q.Page), strconv.Itoa(q.Limit))
}

// News 新闻列表
func (s *Service) News(ctx context.Context, q NewsQuery) (*apiclient.Page[apiclient.Article], error) {
	q = q.Normalized()
	page, err := cache.Remember(ctx, q.cacheKey(), s.ttl, func(ctx context.Context) (*apiclient.Page[apiclient.Article], error) {
		return s.client.News.List(ctx, q.values())
	})
	if err != nil {
		return nil, remote.Error(err, nil)
	}
	return page, nil
}

// Article 新闻详情
func (s *Service) Article(ctx context.Context, id int64) (*apiclient.Article, error) {
	key := cache.BuildKey(cache.KeyPrefixSite, "news", "item", strconv.FormatInt(id, 10))
	article, err := cache.Remember(ctx, key, s.ttl, func(ctx context.Context) (*apiclient.Article, error) {
		return s.client.News.Get(ctx, id)
	})
	if err != nil {
		return nil, remote.Error(err, errors.ErrArticleNotFound)
	}
	return article, nil
}

// Services 服务列表
func (s *Service) Services(ctx context.Context) ([]apiclient.Service, error) {
	return cachedList(ctx, s, "services", s.client.Services)
}

// Testimonials 客户评价
func (s *Service) Testimonials(ctx context.Context) ([]apiclient.Testimonial, error) {
	return cachedList(ctx, s, "testimonials", s.client.Testimonials)
}

// Competences 专业能力
func (s *Service) Competences(ctx context.Context) ([]apiclient.Competence, error) {
	return cachedList(ctx, s, "competences", s.client.Competences)
}

// FAQ 常见问题
func (s *Service) FAQ(ctx context.Context) ([]apiclient.FAQItem, error) {
	return cachedList(ctx, s, "faq", s.client.FAQ)
}

func cachedList[T any](ctx context.Context, s *Service, name string, res *apiclient.Resource[T]) ([]T, error) {
	items, err := cache.Remember(ctx, cache.BuildKey(cache.KeyPrefixSite, name), s.ttl, func(ctx context.Context) ([]T, error) {
		page, err := res.List(ctx, nil)
		if err != nil {
			return nil, err
		}
		if page.Items == nil {
			return []T{}, nil
		}
		return page.Items, nil
	})
	if err != nil {
		return nil, remote.Error(err, nil)
	}
	return items, nil
}

// Subscribe 订阅通讯
func (s *Service) Subscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !utils.ValidateEmail(email) {
		return errors.ErrNewsletterInvalid
	}
	if err := s.client.SubscribeNewsletter(ctx, email); err != nil {
		return remote.Error(err, nil)
	}
	s.log.Info("newsletter subscribed", zap.String("email", crypto.MaskEmail(email)))
	return nil
}

// Contact 提交联系表单
func (s *Service) Contact(ctx context.Context, req apiclient.ContactRequest) error {
	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(req.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return errors.ErrValidation.WithMessage("缺少必填字段: " + strings.Join(missing, ", "))
	}
	if !utils.ValidateEmail(strings.TrimSpace(req.Email)) {
		return errors.ErrNewsletterInvalid
	}
	if err := s.client.SubmitContact(ctx, req); err != nil {
		return remote.Error(err, nil)
	}
	s.log.Info("contact form submitted", zap.String("email", crypto.MaskEmail(strings.TrimSpace(req.Email))))
	return nil
}

// ArticleQRCode 生成文章分享二维码（PNG）
func (s *Service) ArticleQRCode(ctx context.Context, id int64) ([]byte, error) {
	if _, err := s.Article(ctx, id); err != nil {
		return nil, err
	}
	link, err := qrcode.ShareURL(s.baseURL, fmt.Sprintf("/actualites/%d", id), "qrcode")
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	png, err := s.qr.PNG(link)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return png, nil
}

// Invalidate 清空官网缓存，管理端修改内容后调用
func (s *Service) Invalidate(ctx context.Context) {
	n, err := cache.DeletePrefix(ctx, cache.KeyPrefixSite)
	if err != nil {
		s.log.Warn("invalidate site cache failed", zap.Error(err))
		return
	}
	s.log.Debug("site cache invalidated", zap.Int("keys", n))
}

// Warm 清空后重新加载首页所需内容
func (s *Service) Warm(ctx context.Context) error {
	s.Invalidate(ctx)

	var failed []string
	if _, err := s.News(ctx, NewsQuery{}); err != nil {
		failed = append(failed, "news")
	}
	if _, err := s.Services(ctx); err != nil {
		failed = append(failed, "services")
	}
	if _, err := s.Testimonials(ctx); err != nil {
		failed = append(failed, "testimonials")
	}
	if _, err := s.Competences(ctx); err != nil {
		failed = append(failed, "competences")
	}
	if _, err := s.FAQ(ctx); err != nil {
		failed = append(failed, "faq")
	}
	if len(failed) > 0 {
		return fmt.Errorf("warm site cache: %s", strings.Join(failed, ", "))
	}
	return nil
}
