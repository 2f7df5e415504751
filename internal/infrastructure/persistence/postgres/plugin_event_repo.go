// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
)

const pluginEventColumns = `id, tenant_id, plugin, event_type, payload, occurred_at, created_at`

// PluginEventRepository 插件事件仓储实现
type PluginEventRepository struct{}

// NewPluginEventRepository 创建插件事件仓储
func NewPluginEventRepository() *PluginEventRepository {
	return &PluginEventRepository{}
}

// Create 记录插件事件
func (r *PluginEventRepository) Create(ctx context.Context, event *entity.PluginEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.PluginEventRepository.Create")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.TenantID = tenantID

	_, err = q.Exec(ctx,
		`INSERT INTO plugin_events (`+pluginEventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.TenantID, event.Plugin, event.EventType, event.Payload,
		event.OccurredAt, event.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return classify("create plugin event", err)
	}
	return nil
}

// GetByID 根据 ID 获取插件事件
func (r *PluginEventRepository) GetByID(ctx context.Context, id string) (*entity.PluginEvent, error) {
	ctx, span := tracer.Start(ctx, "postgres.PluginEventRepository.GetByID")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}
	event, err := scanPluginEvent(q.QueryRow(ctx,
		`SELECT `+pluginEventColumns+` FROM plugin_events WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, classify("get plugin event", err)
	}
	return event, nil
}

// List 获取插件事件列表，按发生时间倒序
func (r *PluginEventRepository) List(ctx context.Context, filter *repository.PluginEventFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.PluginEvent], error) {
	ctx, span := tracer.Start(ctx, "postgres.PluginEventRepository.List")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	where, args := pluginEventWhere(tenantID, filter)

	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM plugin_events WHERE `+where, args...).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, classify("count plugin events", err)
	}

	n := len(args)
	args = append(args, pagination.Limit(), pagination.Offset())
	rows, err := q.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM plugin_events WHERE %s ORDER BY occurred_at DESC, id LIMIT $%d OFFSET $%d`,
			pluginEventColumns, where, n+1, n+2),
		args...)
	if err != nil {
		span.RecordError(err)
		return nil, classify("list plugin events", err)
	}
	defer rows.Close()

	events := make([]*entity.PluginEvent, 0, pagination.Limit())
	for rows.Next() {
		event, err := scanPluginEvent(rows)
		if err != nil {
			return nil, classify("scan plugin event", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list plugin events", err)
	}
	return repository.NewPagedResult(events, total, pagination), nil
}

// Delete 删除插件事件
func (r *PluginEventRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.PluginEventRepository.Delete")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return false, err
	}
	n, err := q.Exec(ctx, `DELETE FROM plugin_events WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		span.RecordError(err)
		return false, classify("delete plugin event", err)
	}
	return n > 0, nil
}

// pluginEventWhere 构造过滤条件，租户条件始终在首位
func pluginEventWhere(tenantID string, filter *repository.PluginEventFilter) (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if filter != nil {
		if filter.Plugin != "" {
			args = append(args, filter.Plugin)
			conds = append(conds, fmt.Sprintf("plugin = $%d", len(args)))
		}
		if filter.EventType != "" {
			args = append(args, filter.EventType)
			conds = append(conds, fmt.Sprintf("event_type = $%d", len(args)))
		}
	}
	return strings.Join(conds, " AND "), args
}

func scanPluginEvent(row Row) (*entity.PluginEvent, error) {
	var e entity.PluginEvent
	if err := row.Scan(&e.ID, &e.TenantID, &e.Plugin, &e.EventType, &e.Payload,
		&e.OccurredAt, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
