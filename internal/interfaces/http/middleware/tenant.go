package middleware

import (
	"github.com/gin-gonic/gin"

	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/interfaces/http/dto"
	apperrors "linkhub-api/pkg/errors"
	"linkhub-api/pkg/logger"
)

// TenantConfig 租户中间件配置
type TenantConfig struct {
	// IDFormat 租户 ID 格式
	IDFormat repository.TenantIDFormat
	// AllowHeader 允许从请求头读取租户 ID，仅用于开发环境
	AllowHeader bool
	// HeaderName 开发环境读取租户 ID 的请求头
	HeaderName string
	// DefaultTenantID 开发环境的默认租户
	DefaultTenantID string
	// SkipPaths 不需要租户的路径
	SkipPaths []string
}

// Tenant 解析请求的租户
//
// 生产环境只接受 Auth 中间件写入的租户；缺失或格式错误的租户
// 在这里被拒绝，不会进入租户事务。租户只写入日志上下文，
// 数据访问的租户作用域由 TenantContext 建立。
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Tenant-ID"
	}
	skip := skipper(cfg.SkipPaths)

	return func(c *gin.Context) {
		if skip(c.Request.URL.Path) {
			c.Next()
			return
		}

		tenantID := c.GetString(KeyTenantID)
		if tenantID == "" && cfg.AllowHeader {
			tenantID = c.GetHeader(cfg.HeaderName)
			if tenantID == "" {
				tenantID = cfg.DefaultTenantID
			}
		}

		if tenantID == "" {
			dto.AbortWithAppError(c, apperrors.ErrUnauthorized.WithDetail("no tenant for request"))
			return
		}
		if err := cfg.IDFormat.Validate(tenantID); err != nil {
			dto.AbortWithAppError(c, apperrors.ErrTenantInvalid.WithDetail(err.Error()))
			return
		}

		c.Set(KeyTenantID, tenantID)
		ctx := logger.WithContext(c.Request.Context(), logger.TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
