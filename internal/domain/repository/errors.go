// Package repository 定义数据访问层接口
package repository

import (
	"errors"
	"fmt"
)

// 租户作用域错误分类
var (
	// ErrInvalidTenant 租户 ID 格式非法或租户不存在，未触达数据库连接
	ErrInvalidTenant = errors.New("invalid tenant id")
	// ErrPoolExhausted 在获取超时内没有可用连接，调用方可退避重试
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrContextTeardown 回滚或清除隔离标记失败，连接已被丢弃
	ErrContextTeardown = errors.New("tenant context teardown failed")
	// ErrNoTenantScope 在租户事务之外执行了租户数据查询
	ErrNoTenantScope = errors.New("no tenant scope in context")
	// ErrGuardClosed 守卫正在关闭，不再接受新的事务
	ErrGuardClosed = errors.New("tenant guard closed")
	// ErrTenantMismatch 在一个租户的事务内请求另一个租户的事务
	ErrTenantMismatch = errors.New("nested tenant scope for a different tenant")

	// ErrNotFound 记录在当前租户内不存在
	ErrNotFound = errors.New("record not found")
	// ErrConflict 唯一约束冲突
	ErrConflict = errors.New("record conflict")
	// ErrRowSecurity 写入被行级安全策略拒绝
	ErrRowSecurity = errors.New("row security policy violation")
)

// QueryError 业务查询失败（事务内），原样向上传递
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// TeardownError 清理租户上下文失败。
// 对该连接是致命的：连接必须被丢弃，不能归还连接池。
// Cause 为业务回调返回的原始错误（可能为 nil）。
type TeardownError struct {
	TenantID string
	Op       string
	Err      error
	Cause    error
}

func (e *TeardownError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tenant context teardown (%s) failed for tenant %s: %v (original error: %v)", e.Op, e.TenantID, e.Err, e.Cause)
	}
	return fmt.Sprintf("tenant context teardown (%s) failed for tenant %s: %v", e.Op, e.TenantID, e.Err)
}

// Is 使 errors.Is(err, ErrContextTeardown) 成立
func (e *TeardownError) Is(target error) bool {
	return target == ErrContextTeardown
}

// Unwrap 同时暴露清理错误与原始错误
func (e *TeardownError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}
