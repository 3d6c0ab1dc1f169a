// Package site 提供官网公开接口的 HTTP Handler
package site

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/response"
	siteService "github.com/dumeirei/agency-portal/internal/service/site"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// Handler 官网内容处理器
type Handler struct {
	siteService *siteService.Service
}

// NewHandler 创建官网内容处理器
func NewHandler(siteSvc *siteService.Service) *Handler {
	return &Handler{siteService: siteSvc}
}

// NewsletterRequest 订阅请求
type NewsletterRequest struct {
	Email string `json:"email" binding:"required"`
}

// ListNews 新闻列表
// @Summary 新闻列表
// @Tags 官网
// @Produce json
// @Param category query string false "分类"
// @Param search query string false "关键词"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/news [get]
func (h *Handler) ListNews(c *gin.Context) {
	var q siteService.NewsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	page, err := h.siteService.News(c.Request.Context(), q)
	if handler.HandleError(c, err) {
		return
	}
	q = q.Normalized()
	response.SuccessPage(c, page.Items, page.Total, q.Page, q.Limit, page.HasMore)
}

// GetNews 新闻详情
// @Summary 新闻详情
// @Tags 官网
// @Produce json
// @Param id path int true "文章ID"
// @Success 200 {object} response.Response{data=apiclient.Article}
// @Router /api/v1/news/{id} [get]
func (h *Handler) GetNews(c *gin.Context) {
	id, ok := handler.ParseID(c, "文章")
	if !ok {
		return
	}
	article, err := h.siteService.Article(c.Request.Context(), id)
	handler.MustSucceed(c, err, article)
}

// NewsQRCode 文章分享二维码
// @Summary 文章分享二维码
// @Tags 官网
// @Produce png
// @Param id path int true "文章ID"
// @Success 200 {file} binary
// @Router /api/v1/news/{id}/qrcode [get]
func (h *Handler) NewsQRCode(c *gin.Context) {
	id, ok := handler.ParseID(c, "文章")
	if !ok {
		return
	}
	png, err := h.siteService.ArticleQRCode(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// ListServices 服务列表
// @Summary 服务列表
// @Tags 官网
// @Produce json
// @Success 200 {object} response.Response{data=[]apiclient.Service}
// @Router /api/v1/services [get]
func (h *Handler) ListServices(c *gin.Context) {
	list, err := h.siteService.Services(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// ListTestimonials 客户评价
// @Summary 客户评价
// @Tags 官网
// @Produce json
// @Success 200 {object} response.Response{data=[]apiclient.Testimonial}
// @Router /api/v1/testimonials [get]
func (h *Handler) ListTestimonials(c *gin.Context) {
	list, err := h.siteService.Testimonials(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// ListCompetences 专业能力
// @Summary 专业能力
// @Tags 官网
// @Produce json
// @Success 200 {object} response.Response{data=[]apiclient.Competence}
// @Router /api/v1/competences [get]
func (h *Handler) ListCompetences(c *gin.Context) {
	list, err := h.siteService.Competences(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// ListFAQ 常见问题
// @Summary 常见问题
// @Tags 官网
// @Produce json
// @Success 200 {object} response.Response{data=[]apiclient.FAQItem}
// @Router /api/v1/faq [get]
func (h *Handler) ListFAQ(c *gin.Context) {
	list, err := h.siteService.FAQ(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// Subscribe 订阅通讯
// @Summary 订阅通讯
// @Tags 官网
// @Accept json
// @Produce json
// @Param request body NewsletterRequest true "邮箱"
// @Success 200 {object} response.Response
// @Router /api/v1/newsletter [post]
func (h *Handler) Subscribe(c *gin.Context) {
	var req NewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	err := h.siteService.Subscribe(c.Request.Context(), req.Email)
	handler.MustSucceedWithMessage(c, err, "订阅成功", nil)
}

// Contact 提交联系表单
// @Summary 提交联系表单
// @Tags 官网
// @Accept json
// @Produce json
// @Param request body apiclient.ContactRequest true "联系信息"
// @Success 200 {object} response.Response
// @Router /api/v1/contact [post]
func (h *Handler) Contact(c *gin.Context) {
	var req apiclient.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	err := h.siteService.Contact(c.Request.Context(), req)
	handler.MustSucceedWithMessage(c, err, "提交成功", nil)
}

// RegisterRoutes 注册路由，formGuards 作用于表单提交接口
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, formGuards ...gin.HandlerFunc) {
	r.GET("/news", h.ListNews)
	r.GET("/news/:id", h.GetNews)
	r.GET("/news/:id/qrcode", h.NewsQRCode)
	r.GET("/services", h.ListServices)
	r.GET("/testimonials", h.ListTestimonials)
	r.GET("/competences", h.ListCompetences)
	r.GET("/faq", h.ListFAQ)

	forms := r.Group("", formGuards...)
	forms.POST("/newsletter", h.Subscribe)
	forms.POST("/contact", h.Contact)
}
