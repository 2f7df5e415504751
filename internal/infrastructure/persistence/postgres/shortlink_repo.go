// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"

	"github.com/google/uuid"

	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
)

const shortlinkColumns = `id, tenant_id, slug, target_url, created_by, click_count, expires_at, created_at`

// ShortlinkRepository 短链接仓储实现
type ShortlinkRepository struct{}

// NewShortlinkRepository 创建短链接仓储
func NewShortlinkRepository() *ShortlinkRepository {
	return &ShortlinkRepository{}
}

// Create 创建短链接，slug 在租户内重复时返回 ErrConflict
func (r *ShortlinkRepository) Create(ctx context.Context, link *entity.Shortlink) error {
	ctx, span := tracer.Start(ctx, "postgres.ShortlinkRepository.Create")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return err
	}
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	link.TenantID = tenantID

	_, err = q.Exec(ctx,
		`INSERT INTO shortlinks (`+shortlinkColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		link.ID, link.TenantID, link.Slug, link.TargetURL, link.CreatedBy,
		link.ClickCount, link.ExpiresAt, link.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return classify("create shortlink", err)
	}
	return nil
}

// GetByID 根据 ID 获取短链接
func (r *ShortlinkRepository) GetByID(ctx context.Context, id string) (*entity.Shortlink, error) {
	ctx, span := tracer.Start(ctx, "postgres.ShortlinkRepository.GetByID")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}
	link, err := scanShortlink(q.QueryRow(ctx,
		`SELECT `+shortlinkColumns+` FROM shortlinks WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, classify("get shortlink", err)
	}
	return link, nil
}

// GetBySlug 根据 slug 获取短链接
func (r *ShortlinkRepository) GetBySlug(ctx context.Context, slug string) (*entity.Shortlink, error) {
	ctx, span := tracer.Start(ctx, "postgres.ShortlinkRepository.GetBySlug")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}
	link, err := scanShortlink(q.QueryRow(ctx,
		`SELECT `+shortlinkColumns+` FROM shortlinks WHERE slug = $1 AND tenant_id = $2`, slug, tenantID))
	if err != nil {
		return nil, classify("get shortlink by slug", err)
	}
	return link, nil
}

// List 获取短链接列表
func (r *ShortlinkRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Shortlink], error) {
	ctx, span := tracer.Start(ctx, "postgres.ShortlinkRepository.List")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := q.QueryRow(ctx,
		`SELECT count(*) FROM shortlinks WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, classify("count shortlinks", err)
	}

	rows, err := q.Query(ctx,
		`SELECT `+shortlinkColumns+` FROM shortlinks WHERE tenant_id = $1
		 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		tenantID, pagination.Limit(), pagination.Offset())
	if err != nil {
		span.RecordError(err)
		return nil, classify("list shortlinks", err)
	}
	defer rows.Close()

	links := make([]*entity.Shortlink, 0, pagination.Limit())
	for rows.Next() {
		link, err := scanShortlink(rows)
		if err != nil {
			return nil, classify("scan shortlink", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list shortlinks", err)
	}
	return repository.NewPagedResult(links, total, pagination), nil
}

// IncrementClicks 点击数加一并返回新值
func (r *ShortlinkRepository) IncrementClicks(ctx context.Context, id string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ShortlinkRepository.IncrementClicks")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var clicks int64
	if err := q.QueryRow(ctx,
		`UPDATE shortlinks SET click_count = click_count + 1
		 WHERE id = $1 AND tenant_id = $2 RETURNING click_count`, id, tenantID).Scan(&clicks); err != nil {
		span.RecordError(err)
		return 0, classify("increment shortlink clicks", err)
	}
	return clicks, nil
}

// Delete 删除短链接
func (r *ShortlinkRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.ShortlinkRepository.Delete")
	defer span.End()

	q, tenantID, err := QuerierFromContext(ctx)
	if err != nil {
		return false, err
	}
	n, err := q.Exec(ctx, `DELETE FROM shortlinks WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		span.RecordError(err)
		return false, classify("delete shortlink", err)
	}
	return n > 0, nil
}

func scanShortlink(row Row) (*entity.Shortlink, error) {
	var s entity.Shortlink
	if err := row.Scan(&s.ID, &s.TenantID, &s.Slug, &s.TargetURL, &s.CreatedBy,
		&s.ClickCount, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
