package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/middleware"
	"github.com/dumeirei/agency-portal/internal/repository"
)

// SystemHandler 系统管理处理器
type SystemHandler struct {
	auditRepo *repository.AuditLogRepository
}

// NewSystemHandler 创建系统管理处理器
func NewSystemHandler(auditRepo *repository.AuditLogRepository) *SystemHandler {
	return &SystemHandler{auditRepo: auditRepo}
}

// AuditLogQuery 审计日志查询条件
type AuditLogQuery struct {
	Username string `form:"username"`
	Module   string `form:"module"`
	Action   string `form:"action"`
	Since    string `form:"since"`
	Until    string `form:"until"`
}

// ListAuditLogs 审计日志列表
// @Summary 审计日志列表
// @Tags 管理-系统
// @Produce json
// @Security BearerAuth
// @Param username query string false "操作人"
// @Param module query string false "模块"
// @Param action query string false "操作"
// @Param since query string false "开始时间 RFC3339"
// @Param until query string false "结束时间 RFC3339"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.AuditLog}}
// @Router /api/admin/audit-logs [get]
func (h *SystemHandler) ListAuditLogs(c *gin.Context) {
	var q AuditLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	filter := repository.AuditFilter{Username: q.Username, Module: q.Module, Action: q.Action}
	var ok bool
	if filter.Since, ok = parseTime(c, "since", q.Since); !ok {
		return
	}
	if filter.Until, ok = parseTime(c, "until", q.Until); !ok {
		return
	}

	p := handler.BindPagination(c)
	list, total, err := h.auditRepo.List(c.Request.Context(), p.GetOffset(), p.GetLimit(), filter)
	p.Total = total
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize, p.HasNext())
}

func parseTime(c *gin.Context, name, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.BadRequest(c, "无效的时间: "+name)
		return nil, false
	}
	return &t, true
}

// RegisterRoutes 注册路由
func (h *SystemHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", middleware.RequireAdmin(), h.ListAuditLogs)
}
