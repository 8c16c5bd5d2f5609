package middleware

import (
	"strings"
	"time"

	"proctorx_backend/internal/config"
	"proctorx_backend/internal/model"
	"proctorx_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthMiddleware 验证 Bearer Token 并把 Claims 放入上下文
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(parts[1], cfg.JWT.Secret)
		if err != nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// RoleMiddleware 校验角色，admin 放行所有角色限制
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if claims.Role == model.Admin {
			c.Next()
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		util.Forbidden(c)
		c.Abort()
	}
}

// ActivityMiddleware 异步刷新用户的 last_seen，失败不影响请求
func ActivityMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		claims := util.GetUserFromContext(c)
		if claims == nil {
			return
		}

		go func(userID uint) {
			db.Model(&model.User{}).
				Where("id = ?", userID).
				Update("last_seen", time.Now())
		}(claims.UserID)
	}
}
