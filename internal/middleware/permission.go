package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/response"
)

// 管理端角色
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// RequireRoles 要求指定角色
func RequireRoles(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			response.SessionExpired(c, errors.ErrUnauthorized.Code, "请先登录")
			c.Abort()
			return
		}

		if _, ok := roleSet[role]; !ok {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin 仅管理员可访问，如用户管理与积分调整
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(RoleAdmin)
}

// RequireBackOffice 管理员与版主均可访问
func RequireBackOffice() gin.HandlerFunc {
	return RequireRoles(RoleAdmin, RoleModerator)
}
