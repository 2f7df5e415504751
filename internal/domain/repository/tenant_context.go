// Package repository 定义数据访问层接口
package repository

import "context"

// TenantTransactor 租户事务守卫接口（用于 PostgreSQL RLS）
//
// WithTenant 获取连接、开启事务、设置隔离标记后执行 fn。
// fn 返回 nil 时提交，返回错误或 panic 时回滚；
// 无论结果如何，连接归还前都会清除隔离标记。
// fn 不得自行提交、回滚或修改隔离标记。
type TenantTransactor interface {
	WithTenant(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error
}

// TenantExistsFunc 查询租户是否存在
//
// 由守卫提供，查询运行在本次作用域已获取的连接上，不会再占用第二个连接。
type TenantExistsFunc func(ctx context.Context, tenantID string) (bool, error)

// TenantVerifier 校验租户是否存在
type TenantVerifier interface {
	// VerifyTenant 租户不存在时返回 ErrInvalidTenant，需要回源时调用 exists
	VerifyTenant(ctx context.Context, tenantID string, exists TenantExistsFunc) error
}

// InTenant 在租户事务中执行 fn 并返回其结果
func InTenant[T any](ctx context.Context, tx TenantTransactor, tenantID string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := tx.WithTenant(ctx, tenantID, func(txCtx context.Context) error {
		v, err := fn(txCtx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
