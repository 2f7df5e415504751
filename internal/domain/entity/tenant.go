// Package entity 定义领域实体
package entity

import (
	"time"
)

// TenantStatus 租户状态
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusDeleted   TenantStatus = "deleted"
)

// Tenant 租户实体
//
// tenants 表不受 RLS 保护，仅由认证层与租户目录读取。
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewTenant 创建新租户
func NewTenant(name, slug string) *Tenant {
	return &Tenant{
		Name:      name,
		Slug:      slug,
		Status:    TenantStatusActive,
		CreatedAt: time.Now(),
	}
}

// IsActive 检查租户是否活跃
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
