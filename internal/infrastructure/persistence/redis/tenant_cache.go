package redis

import (
	"context"
	"fmt"
	"time"

	"linkhub-api/internal/domain/repository"
	"linkhub-api/pkg/metrics"
)

const tenantExistsValue = "1"

// TenantCache 带缓存的租户校验器，实现 repository.TenantVerifier
//
// 只缓存存在的租户；不存在的租户每次回源，新建租户立即可用。
type TenantCache struct {
	cache *Cache
	ttl   time.Duration
}

var _ repository.TenantVerifier = (*TenantCache)(nil)

// NewTenantCache 创建租户校验器
func NewTenantCache(cache *Cache, ttl time.Duration) *TenantCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TenantCache{cache: cache, ttl: ttl}
}

// VerifyTenant 租户不存在或未激活时返回 ErrInvalidTenant，缓存未命中时调用 exists 回源
func (t *TenantCache) VerifyTenant(ctx context.Context, tenantID string, exists repository.TenantExistsFunc) error {
	_, hit, err := t.cache.GetOrLoad(ctx, tenantKey(tenantID), t.ttl, func(ctx context.Context) (string, bool, error) {
		ok, err := exists(ctx, tenantID)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, fmt.Errorf("%w: tenant %s does not exist", repository.ErrInvalidTenant, tenantID)
		}
		return tenantExistsValue, true, nil
	})
	switch {
	case err != nil:
		metrics.TenantCacheLookups.WithLabelValues("error").Inc()
		return err
	case hit:
		metrics.TenantCacheLookups.WithLabelValues("hit").Inc()
	default:
		metrics.TenantCacheLookups.WithLabelValues("miss").Inc()
	}
	return nil
}

// Invalidate 租户状态变更后清除缓存
func (t *TenantCache) Invalidate(ctx context.Context, tenantID string) error {
	return t.cache.Delete(ctx, tenantKey(tenantID))
}

func tenantKey(tenantID string) string {
	return "tenant:exists:" + tenantID
}
