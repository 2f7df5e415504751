package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"linkhub-api/internal/interfaces/http/dto"
	apperrors "linkhub-api/pkg/errors"
	"linkhub-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// Requests 窗口内每个租户允许的请求数
	Requests int
	// Window 窗口长度
	Window time.Duration
	// KeyFunc 由租户 ID 构造限流键
	KeyFunc func(tenantID string) string
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RateLimit 按租户限流，必须位于 Tenant 中间件之后
//
// 单个租户的突发请求在这里被拒绝，而不是排队占满连接池。
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.Requests <= 0 {
		cfg.Requests = 600
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(tenantID string) string { return "ratelimit:tenant:" + tenantID }
	}

	return func(c *gin.Context) {
		tenantID := TenantID(c)
		if tenantID == "" {
			c.Next()
			return
		}

		allowed, remaining, err := limiter.Allow(c.Request.Context(), cfg.KeyFunc(tenantID), cfg.Requests, cfg.Window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			dto.AbortWithAppError(c, apperrors.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
