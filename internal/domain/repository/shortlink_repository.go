package repository

import (
	"context"

	"linkhub-api/internal/domain/entity"
)

// ShortlinkRepository 短链接仓储接口，调用约束同 ActivityRepository
type ShortlinkRepository interface {
	Create(ctx context.Context, link *entity.Shortlink) error
	GetByID(ctx context.Context, id string) (*entity.Shortlink, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Shortlink, error)
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Shortlink], error)
	IncrementClicks(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
}
