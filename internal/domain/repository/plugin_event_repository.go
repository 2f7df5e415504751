package repository

import (
	"context"

	"linkhub-api/internal/domain/entity"
)

// PluginEventFilter 插件事件过滤条件
type PluginEventFilter struct {
	Plugin    string
	EventType string
}

// PluginEventRepository 插件事件仓储接口，调用约束同 ActivityRepository
type PluginEventRepository interface {
	Create(ctx context.Context, event *entity.PluginEvent) error
	GetByID(ctx context.Context, id string) (*entity.PluginEvent, error)
	List(ctx context.Context, filter *PluginEventFilter, pagination Pagination) (*PagedResult[*entity.PluginEvent], error)
	Delete(ctx context.Context, id string) (bool, error)
}
