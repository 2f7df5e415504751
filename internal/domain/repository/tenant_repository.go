// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"linkhub-api/internal/domain/entity"
)

// TenantRepository 租户仓储接口
//
// tenants 表不在 RLS 保护范围内，此仓储不需要租户作用域。
type TenantRepository interface {
	// Create 创建租户
	Create(ctx context.Context, tenant *entity.Tenant) error

	// GetBySlug 根据 Slug 获取租户
	GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error)

	// Exists 检查活跃租户是否存在
	Exists(ctx context.Context, id string) (bool, error)
}
