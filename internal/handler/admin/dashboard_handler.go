package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/handler"
)

// DashboardHandler 仪表盘处理器
type DashboardHandler struct{}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// GetStats 获取仪表盘统计
// @Summary 获取仪表盘统计
// @Tags 管理-仪表盘
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=apiclient.DashboardStats}
// @Router /api/admin/dashboard [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	screens, ok := currentScreens(c)
	if !ok {
		return
	}
	stats, err := screens.Dashboard(c.Request.Context())
	handler.MustSucceed(c, err, stats)
}

// RegisterRoutes 注册路由
func (h *DashboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetStats)
}
