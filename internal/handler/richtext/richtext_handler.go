// Package richtext 提供富文本清洗与渲染接口
package richtext

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/response"
	richtextService "github.com/dumeirei/agency-portal/internal/service/richtext"
)

// Handler 富文本处理器
type Handler struct{}

// NewHandler 创建富文本处理器
func NewHandler() *Handler {
	return &Handler{}
}

// SanitizeRequest 清洗请求
type SanitizeRequest struct {
	HTML string `json:"html"`
}

// SanitizeResponse 清洗结果，同时返回文档模型供编辑器回填
type SanitizeResponse struct {
	HTML     string                    `json:"html"`
	Document *richtextService.Document `json:"document"`
}

// Sanitize 清洗任意 HTML
// @Summary 清洗 HTML
// @Description 去除脚本、样式、事件属性与未知标签，链接只保留 http/https/mailto/相对地址
// @Tags 管理-富文本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SanitizeRequest true "HTML"
// @Success 200 {object} response.Response{data=SanitizeResponse}
// @Router /api/admin/richtext/sanitize [post]
func (h *Handler) Sanitize(c *gin.Context) {
	var req SanitizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	doc, err := richtextService.Parse(req.HTML)
	if err != nil {
		handler.HandleError(c, errors.ErrContentUnsafe.WithError(err))
		return
	}
	response.Success(c, SanitizeResponse{HTML: doc.Render(), Document: doc})
}

// Render 将编辑器文档渲染为 HTML
// @Summary 渲染文档
// @Tags 管理-富文本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body richtextService.Document true "文档"
// @Success 200 {object} response.Response{data=SanitizeResponse}
// @Router /api/admin/richtext/render [post]
func (h *Handler) Render(c *gin.Context) {
	var doc richtextService.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	if err := doc.Validate(); err != nil {
		handler.HandleError(c, errors.ErrContentUnsafe.WithMessage(err.Error()))
		return
	}
	response.Success(c, SanitizeResponse{HTML: doc.Render(), Document: &doc})
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/richtext/sanitize", h.Sanitize)
	r.POST("/richtext/render", h.Render)
}
