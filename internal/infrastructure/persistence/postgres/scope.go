package postgres

import (
	"context"

	"linkhub-api/internal/domain/repository"
)

type scopeKey struct{}

// scope 单次 WithTenant 调用的事务作用域
type scope struct {
	tenantID string
	q        Querier
}

// withScope 将事务与租户 ID 绑定到 context
func withScope(ctx context.Context, tenantID string, q Querier) context.Context {
	ctx = repository.ContextWithTenant(ctx, tenantID)
	return context.WithValue(ctx, scopeKey{}, &scope{tenantID: tenantID, q: q})
}

// QuerierFromContext 取出当前作用域的事务和租户 ID
//
// 作用域之外调用返回 ErrNoTenantScope，不回退到连接池，
// 否则 RLS 会把查询静默过滤为零行。
func QuerierFromContext(ctx context.Context) (Querier, string, error) {
	s, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok || s == nil {
		return nil, "", repository.ErrNoTenantScope
	}
	return s.q, s.tenantID, nil
}
