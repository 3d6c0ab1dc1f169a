// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrRateLimitExceed = New(1008, "请求过于频繁")
	ErrValidation      = New(1010, "必填字段缺失")
	ErrConfirmRequired = New(1011, "该操作需要确认")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrLoginFailed      = New(2005, "用户名或密码错误")
	ErrSessionNotFound  = New(2006, "会话不存在")
	ErrSessionExpired   = New(2007, "会话已失效，请重新登录")
)

// 内容错误码 (3000-3999)
var (
	ErrArticleNotFound   = New(3000, "文章不存在")
	ErrContactNotFound   = New(3001, "联系请求不存在")
	ErrQuoteNotFound     = New(3002, "报价请求不存在")
	ErrTicketNotFound    = New(3003, "工单不存在")
	ErrUserNotFound      = New(3004, "用户不存在")
	ErrInvalidStatus     = New(3005, "无效的状态")
	ErrInvalidPoints     = New(3006, "积分必须为正数")
	ErrContentUnsafe     = New(3007, "内容无法解析")
	ErrNewsletterInvalid = New(3008, "无效的邮箱地址")
)

// 通知错误码 (4000-4999)
var (
	ErrNotificationNotFound = New(4000, "通知不存在")
	ErrNotificationFilter   = New(4001, "无效的通知筛选条件")
	ErrNotificationType     = New(4002, "无效的通知类型")
	ErrInvalidDays          = New(4003, "天数必须为正数")
)

// 媒体错误码 (5000-5999)
var (
	ErrMediaNotFound    = New(5000, "媒体文件不存在")
	ErrMediaTooLarge    = New(5001, "文件过大")
	ErrMediaFolder      = New(5002, "无效的目录")
	ErrMediaUploadFail  = New(5003, "文件上传失败")
	ErrMediaDeleteFail  = New(5004, "文件删除失败")
	ErrUploadNotTracked = New(5005, "上传任务不存在")
)

// 上游服务错误码 (6000-6999)
var (
	ErrUpstreamUnavailable = New(6000, "上游服务不可用")
	ErrUpstreamRejected    = New(6001, "上游服务拒绝请求")
	ErrUpstreamBadResponse = New(6002, "上游响应格式错误")
	ErrUpstreamTimeout     = New(6003, "上游服务超时")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}

// Is 判断两个错误码是否一致
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == target.Code
}
