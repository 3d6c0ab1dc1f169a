package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/middleware"
	adminService "github.com/dumeirei/agency-portal/internal/service/admin"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// UserHandler 用户与客户管理处理器
type UserHandler struct{}

// NewUserHandler 创建用户管理处理器
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

func users(s *adminService.Screens) *adminService.Screen[apiclient.User] { return s.Users }

func clients(s *adminService.Screens) *adminService.Screen[apiclient.User] { return s.Clients }

// ListUsers 用户列表
// @Summary 用户列表
// @Tags 管理-用户管理
// @Produce json
// @Security BearerAuth
// @Param search query string false "关键词"
// @Param role query string false "角色"
// @Param page query int false "页码"
// @Success 200 {object} response.Response
// @Router /api/admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	listScreen(users)(c)
}

// AddPoints 增加积分
// @Summary 增加用户积分
// @Tags 管理-用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body apiclient.PointsRequest true "积分与说明"
// @Success 200 {object} response.Response{data=apiclient.User}
// @Router /api/admin/users/{id}/points [post]
func (h *UserHandler) AddPoints(c *gin.Context) {
	screens, ok := currentScreens(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "用户")
	if !ok {
		return
	}

	var req apiclient.PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	user, err := screens.AddPoints(c.Request.Context(), id, req)
	handler.MustSucceedWithMessage(c, err, "积分已增加", user)
}

// RegisterRoutes 注册路由
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users", h.ListUsers)
	r.POST("/users", createScreen(users, nil))
	r.PUT("/users/:id", updateScreen(users, "用户", nil))
	r.DELETE("/users/:id", deleteScreen(users, "用户", nil))
	r.POST("/users/:id/points", middleware.RequireAdmin(), h.AddPoints)

	r.GET("/clients", listScreen(clients))
}
