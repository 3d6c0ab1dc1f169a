package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/response"
	"github.com/dumeirei/agency-portal/internal/service/workspace"
)

// ContextKeyWorkspace 工作区上下文键
const ContextKeyWorkspace = "workspace"

// Workspaces 工作区注册表，*workspace.Registry 满足该接口
type Workspaces interface {
	Get(sessionID string) (*workspace.Workspace, error)
}

// Workspace 为已认证会话挂载工作区，须位于 SessionAuth 之后
func Workspace(spaces Workspaces) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := spaces.Get(GetSessionID(c))
		if err != nil {
			appErr := errors.GetAppError(err)
			if appErr.Code == errors.ErrSessionNotFound.Code {
				response.SessionExpired(c, errors.ErrSessionExpired.Code, errors.ErrSessionExpired.Message)
			} else {
				response.InternalError(c, appErr.Message)
			}
			c.Abort()
			return
		}
		c.Set(ContextKeyWorkspace, ws)
		c.Next()
	}
}

// GetWorkspace 从上下文获取工作区
func GetWorkspace(c *gin.Context) *workspace.Workspace {
	v, ok := c.Get(ContextKeyWorkspace)
	if !ok {
		return nil
	}
	ws, _ := v.(*workspace.Workspace)
	return ws
}
