// Package media 提供媒体库相关的 HTTP Handler
package media

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/middleware"
	mediaService "github.com/dumeirei/agency-portal/internal/service/media"
)

// HeaderUploadID 上传任务 ID 请求头
const HeaderUploadID = "X-Upload-ID"

// 表单普通字段的读取上限
const maxFieldSize = 1 << 10

// Handler 媒体库处理器
type Handler struct {
	mediaService *mediaService.Service
}

// NewHandler 创建媒体库处理器
func NewHandler(mediaSvc *mediaService.Service) *Handler {
	return &Handler{mediaService: mediaSvc}
}

// List 媒体文件列表
// @Summary 媒体文件列表
// @Description 按名称检索，按类型与目录筛选，按名称/大小/日期/类型排序，每页 24 条
// @Tags 管理-媒体库
// @Produce json
// @Security BearerAuth
// @Param search query string false "名称关键词"
// @Param type query string false "类型" Enums(all, image, video, document)
// @Param sort query string false "排序字段" Enums(name, size, date, type)
// @Param order query string false "排序方向" Enums(asc, desc)
// @Param folder query string false "目录"
// @Param page query int false "页码"
// @Success 200 {object} response.Response{data=mediaService.Result}
// @Router /api/admin/media [get]
func (h *Handler) List(c *gin.Context) {
	var q mediaService.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	result, err := h.mediaService.List(c.Request.Context(), q)
	handler.MustSucceed(c, err, result)
}

// Folders 目录列表
// @Summary 媒体目录列表
// @Tags 管理-媒体库
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]mediaService.Folder}
// @Router /api/admin/media/folders [get]
func (h *Handler) Folders(c *gin.Context) {
	folders, err := h.mediaService.Folders(c.Request.Context())
	handler.MustSucceed(c, err, folders)
}

// Upload 上传文件
// @Summary 上传媒体文件
// @Description 以流式方式读取请求体。upload_id 放在查询参数或 X-Upload-ID 头中时，传输过程中即可通过 /media/uploads/{id} 查询进度
// @Tags 管理-媒体库
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param upload_id query string false "上传任务ID (UUID)"
// @Param folder query string false "目录，也可作为文件之前的表单字段提交"
// @Param file formData file true "文件"
// @Success 200 {object} response.Response{data=models.MediaFile}
// @Router /api/admin/media/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	uploadID := c.Query("upload_id")
	if uploadID == "" {
		uploadID = c.GetHeader(HeaderUploadID)
	}
	c.Request.Body = io.NopCloser(h.mediaService.Receive(uploadID, c.Request.ContentLength, c.Request.Body))

	mr, err := c.Request.MultipartReader()
	if err != nil {
		h.mediaService.Abort(uploadID, errors.ErrInvalidParams)
		response.BadRequest(c, "请选择要上传的文件")
		return
	}

	fields := map[string]string{"upload_id": uploadID, "folder": c.Query("folder")}
	for {
		part, err := mr.NextPart()
		if err != nil {
			h.mediaService.Abort(uploadID, errors.ErrInvalidParams)
			response.BadRequest(c, "请选择要上传的文件")
			return
		}
		name := part.FormName()
		if name != "file" {
			if v, ok := fields[name]; ok && v == "" {
				raw, _ := io.ReadAll(io.LimitReader(part, maxFieldSize))
				fields[name] = strings.TrimSpace(string(raw))
			}
			continue
		}

		file, err := h.mediaService.Upload(c.Request.Context(), mediaService.UploadRequest{
			UploadID:   fields["upload_id"],
			Name:       part.FileName(),
			Folder:     fields["folder"],
			UploadedBy: middleware.GetUsername(c),
			Body:       part,
		})
		handler.MustSucceedWithMessage(c, err, "上传成功", file)
		return
	}
}

// Progress 上传进度
// @Summary 查询上传进度
// @Tags 管理-媒体库
// @Produce json
// @Security BearerAuth
// @Param id path string true "上传任务ID"
// @Success 200 {object} response.Response{data=mediaService.Progress}
// @Router /api/admin/media/uploads/{id} [get]
func (h *Handler) Progress(c *gin.Context) {
	p, err := h.mediaService.Progress(c.Param("id"))
	handler.MustSucceed(c, err, p)
}

// Delete 删除文件
// @Summary 删除媒体文件
// @Tags 管理-媒体库
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response
// @Router /api/admin/media/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	err := h.mediaService.Delete(c.Request.Context(), c.Param("id"))
	handler.MustSucceedWithMessage(c, err, "删除成功", nil)
}

// RegisterRoutes 注册路由，uploadGuards 仅作用于上传接口
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, uploadGuards ...gin.HandlerFunc) {
	g := r.Group("/media")
	g.GET("", h.List)
	g.GET("/folders", h.Folders)
	g.POST("/upload", append(uploadGuards, h.Upload)...)
	g.GET("/uploads/:id", h.Progress)
	g.DELETE("/:id", h.Delete)
}
