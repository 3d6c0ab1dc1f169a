package admin

import (
	"github.com/gin-gonic/gin"

	adminService "github.com/dumeirei/agency-portal/internal/service/admin"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// ContentHandler 文章、服务与客户评价管理
// 写操作成功后清空官网缓存，公开页面下次访问即可看到变更
type ContentHandler struct {
	site SiteCache
}

// NewContentHandler 创建内容管理处理器
func NewContentHandler(site SiteCache) *ContentHandler {
	return &ContentHandler{site: site}
}

func (h *ContentHandler) invalidate(c *gin.Context) {
	if h.site != nil {
		h.site.Invalidate(c.Request.Context())
	}
}

func articles(s *adminService.Screens) *adminService.Screen[apiclient.Article] { return s.Articles }

func services(s *adminService.Screens) *adminService.Screen[apiclient.Service] { return s.Services }

func testimonials(s *adminService.Screens) *adminService.Screen[apiclient.Testimonial] {
	return s.Testimonials
}

// ListArticles 文章列表
// @Summary 文章列表
// @Tags 管理-内容
// @Produce json
// @Security BearerAuth
// @Param search query string false "关键词"
// @Param category query string false "分类"
// @Param page query int false "页码"
// @Success 200 {object} response.Response
// @Router /api/admin/articles [get]
func (h *ContentHandler) ListArticles(c *gin.Context) {
	listScreen(articles)(c)
}

// CreateArticle 创建文章，正文在提交上游前清洗
// @Summary 创建文章
// @Tags 管理-内容
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "title, category, excerpt, content 必填；tags 逗号分隔"
// @Success 200 {object} response.Response{data=apiclient.Article}
// @Router /api/admin/articles [post]
func (h *ContentHandler) CreateArticle(c *gin.Context) {
	createScreen(articles, h.invalidate)(c)
}

// UpdateArticle 更新文章
// @Summary 更新文章
// @Tags 管理-内容
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "文章ID"
// @Param request body object true "需要修改的字段"
// @Success 200 {object} response.Response{data=apiclient.Article}
// @Router /api/admin/articles/{id} [put]
func (h *ContentHandler) UpdateArticle(c *gin.Context) {
	updateScreen(articles, "文章", h.invalidate)(c)
}

// DeleteArticle 删除文章
// @Summary 删除文章
// @Tags 管理-内容
// @Produce json
// @Security BearerAuth
// @Param id path int true "文章ID"
// @Success 200 {object} response.Response
// @Router /api/admin/articles/{id} [delete]
func (h *ContentHandler) DeleteArticle(c *gin.Context) {
	deleteScreen(articles, "文章", h.invalidate)(c)
}

// RegisterRoutes 注册路由
func (h *ContentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/articles", h.ListArticles)
	r.POST("/articles", h.CreateArticle)
	r.PUT("/articles/:id", h.UpdateArticle)
	r.DELETE("/articles/:id", h.DeleteArticle)

	r.GET("/services", listScreen(services))
	r.POST("/services", createScreen(services, h.invalidate))
	r.PUT("/services/:id", updateScreen(services, "服务", h.invalidate))
	r.DELETE("/services/:id", deleteScreen(services, "服务", h.invalidate))

	r.GET("/testimonials", listScreen(testimonials))
	r.POST("/testimonials", createScreen(testimonials, h.invalidate))
	r.PUT("/testimonials/:id", updateScreen(testimonials, "评价", h.invalidate))
	r.DELETE("/testimonials/:id", deleteScreen(testimonials, "评价", h.invalidate))
}
