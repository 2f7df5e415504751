// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
)

// TenantRepository 租户仓储实现
//
// tenants 表是全局目录，不经过租户事务守卫。
type TenantRepository struct {
	client *Client
}

// NewTenantRepository 创建租户仓储
func NewTenantRepository(client *Client) *TenantRepository {
	return &TenantRepository{client: client}
}

// Create 创建租户
func (r *TenantRepository) Create(ctx context.Context, tenant *entity.Tenant) error {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.Create")
	defer span.End()

	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	err := r.client.withConn(ctx, func(q Querier) error {
		_, err := q.Exec(ctx,
			`INSERT INTO tenants (id, name, slug, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
			tenant.ID, tenant.Name, tenant.Slug, string(tenant.Status), tenant.CreatedAt)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return classify("create tenant", err)
	}
	return nil
}

// GetBySlug 根据 Slug 获取租户，不存在时返回 nil
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.GetBySlug")
	defer span.End()

	var (
		tenant entity.Tenant
		status string
	)
	err := r.client.withConn(ctx, func(q Querier) error {
		return q.QueryRow(ctx,
			`SELECT id, name, slug, status, created_at FROM tenants WHERE slug = $1`, slug).
			Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &status, &tenant.CreatedAt)
	})
	if err != nil {
		err = classify("get tenant by slug", err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}
	tenant.Status = entity.TenantStatus(status)
	return &tenant, nil
}

// TenantExistsSQL 查询活跃租户，tenants 表不受 RLS 保护
const TenantExistsSQL = `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1 AND status = $2)`

// Exists 检查活跃租户是否存在
func (r *TenantRepository) Exists(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantRepository.Exists")
	defer span.End()

	var exists bool
	err := r.client.withConn(ctx, func(q Querier) error {
		var err error
		exists, err = tenantExists(ctx, q, id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check tenant exists: %w", err)
	}
	return exists, nil
}

func tenantExists(ctx context.Context, q Querier, id string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, TenantExistsSQL, id, string(entity.TenantStatusActive)).Scan(&exists)
	return exists, err
}
