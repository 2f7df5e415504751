package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"linkhub-api/internal/interfaces/http/dto"
	apperrors "linkhub-api/pkg/errors"
	"linkhub-api/pkg/logger"
)

// Recovery Panic 恢复中间件
//
// 租户事务内的 panic 已由 TenantContext 回滚并清理连接后重新抛出，这里只负责响应。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", err),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				dto.AbortWithAppError(c, apperrors.ErrInternalError)
			}
		}()

		c.Next()
	}
}
