package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/response"
	adminService "github.com/dumeirei/agency-portal/internal/service/admin"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// SupportHandler 联系请求、报价与工单管理
type SupportHandler struct{}

// NewSupportHandler 创建客户支持处理器
func NewSupportHandler() *SupportHandler {
	return &SupportHandler{}
}

func contacts(s *adminService.Screens) *adminService.Screen[apiclient.Contact] { return s.Contacts }

func quotes(s *adminService.Screens) *adminService.Screen[apiclient.Quote] { return s.Quotes }

func tickets(s *adminService.Screens) *adminService.Screen[apiclient.Ticket] { return s.Tickets }

// ReplyRequest 工单回复请求
type ReplyRequest struct {
	Message string `json:"message"`
}

// ListTickets 工单列表
// @Summary 工单列表
// @Tags 管理-客户支持
// @Produce json
// @Security BearerAuth
// @Param search query string false "关键词"
// @Param status query string false "状态"
// @Param priority query string false "优先级"
// @Param page query int false "页码"
// @Success 200 {object} response.Response
// @Router /api/admin/tickets [get]
func (h *SupportHandler) ListTickets(c *gin.Context) {
	listScreen(tickets)(c)
}

// UpdateQuote 修改报价状态或优先级，状态可任意切换
// @Summary 修改报价
// @Tags 管理-客户支持
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "报价ID"
// @Param request body object true "status / priority"
// @Success 200 {object} response.Response{data=apiclient.Quote}
// @Router /api/admin/quotes/{id} [put]
func (h *SupportHandler) UpdateQuote(c *gin.Context) {
	updateScreen(quotes, "报价", nil)(c)
}

// ReplyTicket 追加工单消息，消息只增不改
// @Summary 回复工单
// @Tags 管理-客户支持
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "工单ID"
// @Param request body ReplyRequest true "回复内容"
// @Success 200 {object} response.Response{data=apiclient.Ticket}
// @Router /api/admin/tickets/{id}/messages [post]
func (h *SupportHandler) ReplyTicket(c *gin.Context) {
	screens, ok := currentScreens(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "工单")
	if !ok {
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	ticket, err := screens.AddTicketMessage(c.Request.Context(), id, req.Message)
	handler.MustSucceedWithMessage(c, err, "回复成功", ticket)
}

// RegisterRoutes 注册路由
func (h *SupportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/contacts", listScreen(contacts))
	r.GET("/contacts/:id", getScreen(contacts, "联系请求"))

	r.GET("/quotes", listScreen(quotes))
	r.PUT("/quotes/:id", h.UpdateQuote)
	r.DELETE("/quotes/:id", deleteScreen(quotes, "报价", nil))

	r.GET("/tickets", h.ListTickets)
	r.GET("/tickets/:id", getScreen(tickets, "工单"))
	r.PUT("/tickets/:id", updateScreen(tickets, "工单", nil))
	r.POST("/tickets/:id/messages", h.ReplyTicket)
}
