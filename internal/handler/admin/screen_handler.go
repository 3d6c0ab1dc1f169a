// Package admin 管理端 HTTP Handler
package admin

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/handler"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/middleware"
	adminService "github.com/dumeirei/agency-portal/internal/service/admin"
)

// SiteCache 官网缓存，*site.Service 满足该接口
type SiteCache interface {
	Invalidate(ctx context.Context)
}

// screenOf 从会话界面集合中取出某个实体的界面
type screenOf[T any] func(*adminService.Screens) *adminService.Screen[T]

// afterWrite 写操作成功后的回调
type afterWrite func(c *gin.Context)

// currentScreens 当前会话的 CRUD 界面
func currentScreens(c *gin.Context) (*adminService.Screens, bool) {
	ws := middleware.GetWorkspace(c)
	if ws == nil {
		response.SessionExpired(c, errors.ErrSessionExpired.Code, errors.ErrSessionExpired.Message)
		return nil, false
	}
	return ws.Screens, true
}

func listScreen[T any](pick screenOf[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		screens, ok := currentScreens(c)
		if !ok {
			return
		}
		var f adminService.Filters
		if err := c.ShouldBindQuery(&f); err != nil {
			response.BadRequest(c, "参数错误: "+err.Error())
			return
		}
		view, err := pick(screens).Query(c.Request.Context(), f)
		handler.MustSucceed(c, err, view)
	}
}

func getScreen[T any](pick screenOf[T], resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		screens, ok := currentScreens(c)
		if !ok {
			return
		}
		id, ok := handler.ParseID(c, resource)
		if !ok {
			return
		}
		rec, err := pick(screens).Get(c.Request.Context(), id)
		handler.MustSucceed(c, err, rec)
	}
}

func createScreen[T any](pick screenOf[T], after afterWrite) gin.HandlerFunc {
	return func(c *gin.Context) {
		screens, ok := currentScreens(c)
		if !ok {
			return
		}
		var fields adminService.Fields
		if err := c.ShouldBindJSON(&fields); err != nil {
			response.BadRequest(c, "请求体必须为 JSON 对象")
			return
		}
		rec, err := pick(screens).Create(c.Request.Context(), fields)
		if handler.HandleError(c, err) {
			return
		}
		if after != nil {
			after(c)
		}
		response.SuccessWithMessage(c, "创建成功", rec)
	}
}

func updateScreen[T any](pick screenOf[T], resource string, after afterWrite) gin.HandlerFunc {
	return func(c *gin.Context) {
		screens, ok := currentScreens(c)
		if !ok {
			return
		}
		id, ok := handler.ParseID(c, resource)
		if !ok {
			return
		}
		var fields adminService.Fields
		if err := c.ShouldBindJSON(&fields); err != nil {
			response.BadRequest(c, "请求体必须为 JSON 对象")
			return
		}
		rec, err := pick(screens).Update(c.Request.Context(), id, fields)
		if handler.HandleError(c, err) {
			return
		}
		if after != nil {
			after(c)
		}
		response.SuccessWithMessage(c, "更新成功", rec)
	}
}

func deleteScreen[T any](pick screenOf[T], resource string, after afterWrite) gin.HandlerFunc {
	return func(c *gin.Context) {
		screens, ok := currentScreens(c)
		if !ok {
			return
		}
		id, ok := handler.ParseID(c, resource)
		if !ok {
			return
		}
		if handler.HandleError(c, pick(screens).Delete(c.Request.Context(), id)) {
			return
		}
		if after != nil {
			after(c)
		}
		response.SuccessWithMessage(c, "删除成功", nil)
	}
}
