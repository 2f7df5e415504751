package repository

import (
	"context"

	"linkhub-api/internal/domain/entity"
)

// ActivityRepository 活动仓储接口
//
// 所有方法必须在 TenantTransactor.WithTenant 的回调内调用，
// 租户 ID 取自作用域而不是参数。
type ActivityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
	GetByID(ctx context.Context, id string) (*entity.Activity, error)
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Activity], error)
	Delete(ctx context.Context, id string) (bool, error)
}
