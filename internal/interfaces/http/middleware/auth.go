package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"linkhub-api/internal/interfaces/http/dto"
	apperrors "linkhub-api/pkg/errors"
	"linkhub-api/pkg/logger"
	"linkhub-api/pkg/utils"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
	// SkipPaths 跳过认证的路径
	SkipPaths []string
	// Enabled 为 false 时不校验 token，租户由 Tenant 中间件的开发模式兜底
	Enabled bool
	// Optional 允许不带 token 的请求通过（开发环境），带 token 时仍然校验
	Optional bool
}

// Auth 认证中间件
//
// 校验 Bearer token，并把 token 中的租户、用户写入 Gin Context。
// 请求只能访问 token 声明的租户。
func Auth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)
	skip := skipper(cfg.SkipPaths)

	return func(c *gin.Context) {
		if !cfg.Enabled || skip(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" && cfg.Optional {
			c.Next()
			return
		}
		if authHeader == "" {
			dto.AbortWithAppError(c, apperrors.ErrTokenMissing)
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			dto.AbortWithAppError(c, apperrors.ErrTokenInvalid.WithDetail("invalid authorization format"))
			return
		}

		claims, err := jwtManager.ParseAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrExpiredToken):
				dto.AbortWithAppError(c, apperrors.ErrTokenExpired)
			case errors.Is(err, utils.ErrMissingTenant):
				dto.AbortWithAppError(c, apperrors.ErrTenantInvalid.WithDetail("token has no tenant"))
			default:
				dto.AbortWithAppError(c, apperrors.ErrTokenInvalid)
			}
			return
		}

		c.Set(KeyTenantID, claims.TenantID)
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyRole, claims.Role)

		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
