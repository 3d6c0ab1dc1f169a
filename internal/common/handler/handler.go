// Package handler 提供 API Handler 的通用辅助函数
// 用于减少 Handler 层的代码重复，统一错误处理、会话检查、参数解析等操作
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	commonMiddleware "github.com/dumeirei/agency-portal/internal/common/middleware"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/common/utils"
	"github.com/dumeirei/agency-portal/internal/middleware"
	"github.com/dumeirei/agency-portal/internal/repository"
)

// ============================================================================
// 统一错误处理
// ============================================================================

// HandleError 处理错误并发送适当的响应
// 如果 err 为 nil，返回 false（表示无错误需要处理）
// 如果 err 不为 nil，发送错误响应并返回 true（调用方应该 return）
//
// 会话失效类错误返回 401 并携带登录页地址，其余 AppError 按业务码返回
//
// 使用示例:
//
//	result, err := service.DoSomething()
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if !errors.IsAppError(err) {
		commonMiddleware.RecordSpanError(c, err)
		_ = c.Error(err)
		response.InternalError(c, "服务器内部错误")
		return true
	}

	appErr := errors.GetAppError(err)
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	switch appErr.Code {
	case errors.ErrSessionExpired.Code, errors.ErrTokenExpired.Code, errors.ErrTokenInvalid.Code:
		response.SessionExpired(c, appErr.Code, appErr.Message)
	case errors.ErrPermissionDenied.Code:
		response.ErrorWithStatus(c, http.StatusForbidden, appErr.Code, appErr.Message)
	default:
		response.Error(c, appErr.Code, appErr.Message)
	}
	return true
}

// MustSucceed 便捷封装：如果有错误则返回错误响应，否则返回成功响应
//
// 使用示例:
//
//	result, err := service.GetData()
//	handler.MustSucceed(c, err, result)
//	return  // 注意：调用 MustSucceed 后必须 return
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedWithMessage 便捷封装：带自定义成功消息
func MustSucceedWithMessage(c *gin.Context, err error, message string, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, message, data)
}

// MustSucceedPage 便捷封装：分页响应版本
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int, hasMore bool) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize, hasMore)
}

// ============================================================================
// 会话检查
// ============================================================================

// RequireSession 获取当前管理端会话，未登录时返回 401 与登录页地址
//
// 使用示例:
//
//	sess, ok := handler.RequireSession(c)
//	if !ok {
//	    return
//	}
func RequireSession(c *gin.Context) (*repository.Session, bool) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.SessionExpired(c, errors.ErrUnauthorized.Code, "请先登录")
		return nil, false
	}
	return sess, true
}

// ============================================================================
// 参数解析
// ============================================================================

// ParseID 解析路径参数 "id" 为 int64
// 返回 (0, false) 表示解析失败（已发送400响应，调用方应该 return）
//
// 使用示例:
//
//	id, ok := handler.ParseID(c, "文章")
//	if !ok {
//	    return
//	}
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为正整数 ID
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryInt 解析可选的整数查询参数，缺省时返回 def
func ParseQueryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, "无效的参数: "+name)
		return 0, false
	}
	return v, true
}

// ParseQueryBool 解析布尔查询参数，无法解析视为 false
func ParseQueryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

// ============================================================================
// 分页处理
// ============================================================================

// BindPagination 从查询参数绑定并规范化分页参数
// 默认 page=1, pageSize=10, 最大 pageSize=100
//
// 使用示例:
//
//	p := handler.BindPagination(c)
//	list, total, err := repo.List(ctx, p.GetOffset(), p.GetLimit(), filter)
//	p.Total = total
//	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize, p.HasNext())
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}
