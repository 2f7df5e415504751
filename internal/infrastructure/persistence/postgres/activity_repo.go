// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"

	"github.com/google/uuid"

	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
)

const activityColumns = `id, tenant_id, actor_id, action, target_type, target_id, metadata, created_at`

// ActivityRepository 活动仓储实现
type ActivityRepository struct{}

// NewActivityRepository 创建活动仓储
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

// Create 创建活动记录，租户 ID 取自当前作用域
func (r *ActivityRepository) Create(ctx context.Context, activity *entity.Activity) error {
	ctx, span := tracer.Start(ctx, "postgres.ActivityRepository.Create")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return err
	}
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	activity.TenantID = tenantID

	_, err = q.Exec(ctx,
		`INSERT INTO activities (`+activityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		activity.ID, activity.TenantID, activity.ActorID, activity.Action,
		activity.TargetType, activity.TargetID, activity.Metadata, activity.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return classify("create activity", err)
	}
	return nil
}

// GetByID 根据 ID 获取活动记录
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*entity.Activity, error) {
	ctx, span := tracer.Start(ctx, "postgres.ActivityRepository.GetByID")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	activity, err := scanActivity(q.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = $1 AND tenant_id = $2`,
		id, tenantID))
	if err != nil {
		return nil, classify("get activity", err)
	}
	return activity, nil
}

// List 获取活动列表，按创建时间倒序
func (r *ActivityRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Activity], error) {
	ctx, span := tracer.Start(ctx, "postgres.ActivityRepository.List")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := q.QueryRow(ctx,
		`SELECT count(*) FROM activities WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, classify("count activities", err)
	}

	rows, err := q.Query(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE tenant_id = $1
		 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		tenantID, pagination.Limit(), pagination.Offset())
	if err != nil {
		span.RecordError(err)
		return nil, classify("list activities", err)
	}
	defer rows.Close()

	activities := make([]*entity.Activity, 0, pagination.Limit())
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, classify("scan activity", err)
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list activities", err)
	}
	return repository.NewPagedResult(activities, total, pagination), nil
}

// Delete 删除活动记录，返回是否有记录被删除
func (r *ActivityRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.ActivityRepository.Delete")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return false, err
	}

	n, err := q.Exec(ctx,
		`DELETE FROM activities WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		span.RecordError(err)
		return false, classify("delete activity", err)
	}
	return n > 0, nil
}

func scanActivity(row Row) (*entity.Activity, error) {
	var a entity.Activity
	if err := row.Scan(&a.ID, &a.TenantID, &a.ActorID, &a.Action,
		&a.TargetType, &a.TargetID, &a.Metadata, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
