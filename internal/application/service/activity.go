package service

import (
	"context"

	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/pkg/logger"
)

// ActivityService 活动记录服务
type ActivityService struct {
	tx   repository.TenantTransactor
	repo repository.ActivityRepository
}

// NewActivityService 创建活动记录服务
func NewActivityService(tx repository.TenantTransactor, repo repository.ActivityRepository) *ActivityService {
	return &ActivityService{tx: tx, repo: repo}
}

// CreateActivityInput 创建活动记录参数
type CreateActivityInput struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   entity.JSONMap
}

// Create 记录一条活动
func (s *ActivityService) Create(ctx context.Context, tenantID string, in CreateActivityInput) (*entity.Activity, error) {
	if err := required(map[string]string{"actor_id": in.ActorID, "action": in.Action}); err != nil {
		return nil, err
	}

	activity := entity.NewActivity(in.ActorID, in.Action)
	activity.SetTarget(in.TargetType, in.TargetID)
	if in.Metadata != nil {
		activity.Metadata = in.Metadata
	}

	return repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*entity.Activity, error) {
		if err := s.repo.Create(ctx, activity); err != nil {
			return nil, err
		}
		return activity, nil
	})
}

// Get 获取活动记录
func (s *ActivityService) Get(ctx context.Context, tenantID, id string) (*entity.Activity, error) {
	return repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*entity.Activity, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// List 分页列出活动记录
func (s *ActivityService) List(ctx context.Context, tenantID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Activity], error) {
	return repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*repository.PagedResult[*entity.Activity], error) {
		return s.repo.List(ctx, pagination)
	})
}

// Delete 删除活动记录，记录不存在时返回 ErrNotFound
func (s *ActivityService) Delete(ctx context.Context, tenantID, id string) error {
	return s.tx.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		deleted, err := s.repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return repository.ErrNotFound
		}
		logger.Debug(ctx, "activity deleted", "activity_id", id)
		return nil
	})
}
