// Package middleware 提供 HTTP 中间件
package middleware

import "github.com/gin-gonic/gin"

// Gin Context 键
const (
	KeyTenantID  = "tenant_id"
	KeyUserID    = "user_id"
	KeyRole      = "role"
	KeyRequestID = "request_id"
	KeyTraceID   = "trace_id"
)

// TenantID 返回已认证的租户 ID
func TenantID(c *gin.Context) string {
	return c.GetString(KeyTenantID)
}

// UserID 返回已认证的用户 ID
func UserID(c *gin.Context) string {
	return c.GetString(KeyUserID)
}

// DefaultSkipPaths 不需要认证与审计的系统端点
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

func skipper(paths []string) func(path string) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(path string) bool {
		_, ok := set[path]
		return ok
	}
}
