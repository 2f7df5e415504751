package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// TenantIDFormat 租户 ID 格式
type TenantIDFormat string

const (
	// TenantIDFormatUUID 租户 ID 为规范 UUID
	TenantIDFormatUUID TenantIDFormat = "uuid"
	// TenantIDFormatSlug 租户 ID 为短标识（字母、数字、-、_）
	TenantIDFormatSlug TenantIDFormat = "slug"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Validate 校验租户 ID，失败时返回包裹 ErrInvalidTenant 的错误
func (f TenantIDFormat) Validate(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: empty tenant id", ErrInvalidTenant)
	}
	if strings.TrimSpace(tenantID) != tenantID {
		return fmt.Errorf("%w: tenant id has surrounding whitespace", ErrInvalidTenant)
	}

	switch f {
	case TenantIDFormatSlug:
		if !slugPattern.MatchString(tenantID) {
			return fmt.Errorf("%w: %q is not a valid tenant slug", ErrInvalidTenant, tenantID)
		}
	case TenantIDFormatUUID, "":
		id, err := uuid.Parse(tenantID)
		if err != nil {
			return fmt.Errorf("%w: %q is not a uuid", ErrInvalidTenant, tenantID)
		}
		// 只接受规范形式，避免同一租户出现多种写法
		if id.String() != tenantID {
			return fmt.Errorf("%w: %q is not in canonical uuid form", ErrInvalidTenant, tenantID)
		}
	default:
		return fmt.Errorf("unknown tenant id format %q", f)
	}
	return nil
}

type tenantScopeKey struct{}

// ContextWithTenant 记录当前事务作用域的租户 ID，仅由租户事务守卫调用
func ContextWithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantScopeKey{}, tenantID)
}

// TenantFromContext 返回当前事务作用域的租户 ID
func TenantFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tenantID, ok := ctx.Value(tenantScopeKey{}).(string)
	if !ok || tenantID == "" {
		return "", false
	}
	return tenantID, true
}
