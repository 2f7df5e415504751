package service

import (
	"context"
	"time"

	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/pkg/logger"
	"linkhub-api/pkg/metrics"
)

// PluginEventPublisher 发布已提交的插件事件
type PluginEventPublisher interface {
	PublishPluginEvent(ctx context.Context, event *entity.PluginEvent) (string, error)
}

// PluginEventService 插件事件服务
type PluginEventService struct {
	tx        repository.TenantTransactor
	repo      repository.PluginEventRepository
	publisher PluginEventPublisher
}

// NewPluginEventService 创建插件事件服务
func NewPluginEventService(tx repository.TenantTransactor, repo repository.PluginEventRepository) *PluginEventService {
	return &PluginEventService{tx: tx, repo: repo}
}

// WithPublisher 设置事件发布器，事务提交后才发布
func (s *PluginEventService) WithPublisher(p PluginEventPublisher) *PluginEventService {
	s.publisher = p
	return s
}

// RecordPluginEventInput 上报插件事件参数
type RecordPluginEventInput struct {
	Plugin     string
	EventType  string
	Payload    entity.JSONMap
	OccurredAt time.Time
}

// Record 记录一条插件事件
func (s *PluginEventService) Record(ctx context.Context, tenantID string, in RecordPluginEventInput) (*entity.PluginEvent, error) {
	if err := required(map[string]string{"plugin": in.Plugin, "event_type": in.EventType}); err != nil {
		return nil, err
	}

	event := entity.NewPluginEvent(in.Plugin, in.EventType, in.Payload)
	if !in.OccurredAt.IsZero() {
		event.OccurredAt = in.OccurredAt
	}

	event, err := repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*entity.PluginEvent, error) {
		if err := s.repo.Create(ctx, event); err != nil {
			return nil, err
		}
		return event, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.PluginEventsTotal.WithLabelValues(event.Plugin).Inc()

	// 发布失败不影响已提交的记录
	if s.publisher != nil {
		if _, err := s.publisher.PublishPluginEvent(ctx, event); err != nil {
			logger.Warn(ctx, "failed to publish plugin event", "event_id", event.ID, "error", err.Error())
		}
	}
	return event, nil
}

// Get 获取插件事件
func (s *PluginEventService) Get(ctx context.Context, tenantID, id string) (*entity.PluginEvent, error) {
	return repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*entity.PluginEvent, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// List 按插件与事件类型过滤并分页列出
func (s *PluginEventService) List(ctx context.Context, tenantID string, filter *repository.PluginEventFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.PluginEvent], error) {
	return repository.InTenant(ctx, s.tx, tenantID, func(ctx context.Context) (*repository.PagedResult[*entity.PluginEvent], error) {
		return s.repo.List(ctx, filter, pagination)
	})
}

// Delete 删除插件事件，记录不存在时返回 ErrNotFound
func (s *PluginEventService) Delete(ctx context.Context, tenantID, id string) error {
	return s.tx.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		deleted, err := s.repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return repository.ErrNotFound
		}
		return nil
	})
}
