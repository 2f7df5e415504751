package service

import (
	"context"
	"fmt"
	"time"

	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/pkg/metrics"
)

// 短链接操作写入的活动类型
const (
	ActionShortlinkCreated = "shortlink.created"
	ActionShortlinkDeleted = "shortlink.deleted"
)

// ShortlinkService 短链接服务
//
// 创建与删除时在同一租户事务中写入活动记录，二者同时提交或同时回滚。
type ShortlinkService struct {
	tx         repository.TenantTransactor
	links      repository.ShortlinkRepository
	activities repository.ActivityRepository
	now        func() time.Time
}

// NewShortlinkService 创建短链接服务
func NewShortlinkService(tx repository.TenantTransactor, links repository.ShortlinkRepository, activities repository.ActivityRepository) *ShortlinkService {
	return &ShortlinkService{
		tx:         tx,
		links:      links,
		activities: activities,
		now:        time.Now,
	}
}

// CreateShortlinkInput 创建短链接参数
type CreateShortlinkInput struct {
	Slug      string
	TargetURL string
	CreatedBy string
	ExpiresAt *time.Time
}

// Create 创建短链接，slug 在租户内重复时返回 ErrConflict
func (s *ShortlinkService) Create(ctx context.Context, tenantID string, in CreateShortlinkInput) (*entity.Shortlink, error) {
	if err := required(map[string]string{"slug": in.Slug, "target_url": in.TargetURL}); err != nil {
		return nil, err
	}

	link := entity.NewShortlink(in.Slug, in.TargetURL)
	link.CreatedBy = in.CreatedBy
	link.ExpiresAt = in.ExpiresAt

	return repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*entity.Shortlink, error) {
		if err := s.links.Create(ctx, link); err != nil {
			return nil, err
		}
		if err := s.record(ctx, in.CreatedBy, ActionShortlinkCreated, link); err != nil {
			return nil, err
		}
		return link, nil
	})
}

// Get 获取短链接
func (s *ShortlinkService) Get(ctx context.Context, tenantID, id string) (*entity.Shortlink, error) {
	return repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*entity.Shortlink, error) {
		return s.links.GetByID(ctx, id)
	})
}

// List 分页列出短链接
func (s *ShortlinkService) List(ctx context.Context, tenantID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Shortlink], error) {
	return repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*repository.PagedResult[*entity.Shortlink], error) {
		return s.links.List(ctx, pagination)
	})
}

// Resolve 按 slug 解析短链接并累加点击数
//
// 过期链接返回 ErrShortlinkExpired，且不计入点击。
func (s *ShortlinkService) Resolve(ctx context.Context, tenantID, slug string) (*entity.Shortlink, error) {
	link, err := repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*entity.Shortlink, error) {
		link, err := s.links.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if link.IsExpired(s.now()) {
			return nil, fmt.Errorf("%w: %s", ErrShortlinkExpired, slug)
		}
		clicks, err := s.links.IncrementClicks(ctx, link.ID)
		if err != nil {
			return nil, err
		}
		link.ClickCount = clicks
		return link, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ShortlinkClicksTotal.Inc()
	return link, nil
}

// Delete 删除短链接，记录不存在时返回 ErrNotFound
func (s *ShortlinkService) Delete(ctx context.Context, tenantID, actorID, id string) error {
	return s.tx.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		link, err := s.links.GetByID(ctx, id)
		if err != nil {
			return err
		}
		deleted, err := s.links.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return repository.ErrNotFound
		}
		return s.record(ctx, actorID, ActionShortlinkDeleted, link)
	})
}

func (s *ShortlinkService) record(ctx context.Context, actorID, action string, link *entity.Shortlink) error {
	if s.activities == nil {
		return nil
	}
	activity := entity.NewActivity(actorID, action)
	activity.SetTarget("shortlink", link.ID)
	activity.Metadata = entity.JSONMap{"slug": link.Slug}
	return s.activities.Create(ctx, activity)
}
