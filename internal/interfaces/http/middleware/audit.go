package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"linkhub-api/pkg/logger"
)

// Audit 访问日志中间件
//
// 5xx 以 ERROR 记录，4xx 以 WARN 记录，其余为 INFO。
func Audit(skipPaths []string) gin.HandlerFunc {
	skip := skipper(skipPaths)

	return func(c *gin.Context) {
		if skip(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"body_size", c.Writer.Size(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			logger.Error(ctx, "api request", err, fields...)
		case status >= 400:
			logger.Warn(ctx, "api request", fields...)
		default:
			logger.Info(ctx, "api request", fields...)
		}
	}
}
