package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkhub-api/internal/config"
	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/infrastructure/persistence/postgres"
	"linkhub-api/internal/infrastructure/persistence/postgres/pgfake"
)

var (
	activityColumns    = []string{"id", "tenant_id", "actor_id", "action", "target_type", "target_id", "metadata", "created_at"}
	shortlinkColumns   = []string{"id", "tenant_id", "slug", "target_url", "created_by", "click_count", "expires_at", "created_at"}
	pluginEventColumns = []string{"id", "tenant_id", "plugin", "event_type", "payload", "occurred_at", "created_at"}
)

// inScope 在 sqlmock 连接池上执行一次租户事务，返回 fn 的错误
func inScope(t *testing.T, commit bool, fn func(ctx context.Context, mock sqlmock.Sqlmock) func(ctx context.Context) error) {
	t.Helper()
	pool, mock := newMockPool(t)
	guard := newMockGuard(pool)

	expectEnter(mock, tenantA)
	work := fn(context.Background(), mock)
	if commit {
		expectCommitExit(mock)
	} else {
		expectRollbackExit(mock)
	}

	err := guard.WithTenant(context.Background(), tenantA, work)
	if commit {
		require.NoError(t, err)
	}
	closeMockPool(t, pool, mock)
}

func TestRepositoriesRequireTenantScope(t *testing.T) {
	ctx := context.Background()

	_, err := postgres.NewActivityRepository().GetByID(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNoTenantScope)
	_, err = postgres.NewActivityRepository().List(ctx, repository.NewPagination(1, 10))
	assert.ErrorIs(t, err, repository.ErrNoTenantScope)
	assert.ErrorIs(t, postgres.NewShortlinkRepository().Create(ctx, entity.NewShortlink("s", "https://example.com")), repository.ErrNoTenantScope)
	_, err = postgres.NewShortlinkRepository().IncrementClicks(ctx, "s")
	assert.ErrorIs(t, err, repository.ErrNoTenantScope)
	_, err = postgres.NewPluginEventRepository().Delete(ctx, "e")
	assert.ErrorIs(t, err, repository.ErrNoTenantScope)
}

func TestActivityRepositoryCreateUsesScopeTenant(t *testing.T) {
	repo := postgres.NewActivityRepository()
	activity := entity.NewActivity("user-1", "shortlink.created")
	activity.SetTarget("shortlink", "s1")
	activity.Metadata = entity.JSONMap{"k": "v"}
	// 调用方传入的租户 ID 会被作用域租户覆盖
	activity.TenantID = tenantB

	inScope(t, true, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectExec(`INSERT INTO activities \(id, tenant_id, actor_id, action, target_type, target_id, metadata, created_at\)`).
			WithArgs(sqlmock.AnyArg(), tenantA, "user-1", "shortlink.created", "shortlink", "s1", `{"k":"v"}`, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		return func(ctx context.Context) error {
			return repo.Create(ctx, activity)
		}
	})

	assert.NotEmpty(t, activity.ID)
	assert.Equal(t, tenantA, activity.TenantID)
}

func TestActivityRepositoryGetByID(t *testing.T) {
	repo := postgres.NewActivityRepository()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	inScope(t, true, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectQuery(`FROM activities WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs("act-1", tenantA).
			WillReturnRows(sqlmock.NewRows(activityColumns).
				AddRow("act-1", tenantA, "user-1", "login", "", "", []byte(`{"ip":"10.0.0.1"}`), created))
		return func(ctx context.Context) error {
			a, err := repo.GetByID(ctx, "act-1")
			require.NoError(t, err)
			assert.Equal(t, "login", a.Action)
			assert.Equal(t, "10.0.0.1", a.Metadata["ip"])
			assert.Equal(t, created, a.CreatedAt)
			return nil
		}
	})
}

func TestActivityRepositoryGetByIDNotFound(t *testing.T) {
	repo := postgres.NewActivityRepository()

	inScope(t, false, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectQuery(`FROM activities WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs("missing", tenantA).
			WillReturnRows(sqlmock.NewRows(activityColumns))
		return func(ctx context.Context) error {
			_, err := repo.GetByID(ctx, "missing")
			assert.ErrorIs(t, err, repository.ErrNotFound)
			return err
		}
	})
}

func TestActivityRepositoryList(t *testing.T) {
	repo := postgres.NewActivityRepository()
	now := time.Now().UTC()

	inScope(t, true, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectQuery(`SELECT count\(\*\) FROM activities WHERE tenant_id = \$1`).
			WithArgs(tenantA).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
		mock.ExpectQuery(`FROM activities WHERE tenant_id = \$1\s+ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
			WithArgs(tenantA, 2, 2).
			WillReturnRows(sqlmock.NewRows(activityColumns).
				AddRow("act-3", tenantA, "u", "a", "", "", []byte(`{}`), now))
		return func(ctx context.Context) error {
			page, err := repo.List(ctx, repository.NewPagination(2, 2))
			require.NoError(t, err)
			assert.Equal(t, int64(3), page.Total)
			assert.Equal(t, 2, page.TotalPages)
			require.Len(t, page.Items, 1)
			assert.Equal(t, "act-3", page.Items[0].ID)
			return nil
		}
	})
}

func TestShortlinkRepositoryCreateConflict(t *testing.T) {
	repo := postgres.NewShortlinkRepository()

	inScope(t, false, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectExec(`INSERT INTO shortlinks`).
			WithArgs(sqlmock.AnyArg(), tenantA, "docs", "https://example.com/docs", "user-1", int64(0), nil, sqlmock.AnyArg()).
			WillReturnError(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "shortlinks_tenant_slug_key"`})
		return func(ctx context.Context) error {
			link := entity.NewShortlink("docs", "https://example.com/docs")
			link.CreatedBy = "user-1"
			err := repo.Create(ctx, link)
			assert.ErrorIs(t, err, repository.ErrConflict)
			return err
		}
	})
}

func TestShortlinkRepositoryGetBySlugAndIncrement(t *testing.T) {
	repo := postgres.NewShortlinkRepository()
	now := time.Now().UTC()

	inScope(t, true, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectQuery(`FROM shortlinks WHERE slug = \$1 AND tenant_id = \$2`).
			WithArgs("docs", tenantA).
			WillReturnRows(sqlmock.NewRows(shortlinkColumns).
				AddRow("sl-1", tenantA, "docs", "https://example.com/docs", "user-1", int64(4), nil, now))
		mock.ExpectQuery(`UPDATE shortlinks SET click_count = click_count \+ 1\s+WHERE id = \$1 AND tenant_id = \$2 RETURNING click_count`).
			WithArgs("sl-1", tenantA).
			WillReturnRows(sqlmock.NewRows([]string{"click_count"}).AddRow(int64(5)))
		return func(ctx context.Context) error {
			link, err := repo.GetBySlug(ctx, "docs")
			require.NoError(t, err)
			assert.Nil(t, link.ExpiresAt)
			assert.Equal(t, int64(4), link.ClickCount)

			clicks, err := repo.IncrementClicks(ctx, link.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(5), clicks)
			return nil
		}
	})
}

func TestShortlinkRepositoryDeleteMissing(t *testing.T) {
	repo := postgres.NewShortlinkRepository()

	inScope(t, true, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectExec(`DELETE FROM shortlinks WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs("gone", tenantA).
			WillReturnResult(sqlmock.NewResult(0, 0))
		return func(ctx context.Context) error {
			deleted, err := repo.Delete(ctx, "gone")
			require.NoError(t, err)
			assert.False(t, deleted)
			return nil
		}
	})
}

func TestPluginEventRepositoryListWithFilter(t *testing.T) {
	repo := postgres.NewPluginEventRepository()
	now := time.Now().UTC()

	inScope(t, true, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectQuery(`SELECT count\(\*\) FROM plugin_events WHERE tenant_id = \$1 AND plugin = \$2 AND event_type = \$3`).
			WithArgs(tenantA, "github", "push").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
		mock.ExpectQuery(`WHERE tenant_id = \$1 AND plugin = \$2 AND event_type = \$3 ORDER BY occurred_at DESC, id LIMIT \$4 OFFSET \$5`).
			WithArgs(tenantA, "github", "push", 20, 0).
			WillReturnRows(sqlmock.NewRows(pluginEventColumns).
				AddRow("ev-1", tenantA, "github", "push", `{"ref":"main"}`, now, now))
		return func(ctx context.Context) error {
			page, err := repo.List(ctx, &repository.PluginEventFilter{Plugin: "github", EventType: "push"}, repository.NewPagination(1, 20))
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			assert.Equal(t, "main", page.Items[0].Payload["ref"])
			return nil
		}
	})
}

func TestPluginEventRepositoryRowSecurityViolation(t *testing.T) {
	repo := postgres.NewPluginEventRepository()

	inScope(t, false, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectExec(`INSERT INTO plugin_events`).
			WillReturnError(&pq.Error{Code: "42501", Message: `new row violates row-level security policy for table "plugin_events"`})
		return func(ctx context.Context) error {
			err := repo.Create(ctx, entity.NewPluginEvent("github", "push", nil))
			assert.ErrorIs(t, err, repository.ErrRowSecurity)
			return err
		}
	})
}

func TestPluginEventRepositoryQueryError(t *testing.T) {
	repo := postgres.NewPluginEventRepository()
	dbErr := errors.New("relation does not exist")

	inScope(t, false, func(_ context.Context, mock sqlmock.Sqlmock) func(context.Context) error {
		mock.ExpectQuery(`FROM plugin_events WHERE id = \$1 AND tenant_id = \$2`).
			WillReturnError(dbErr)
		return func(ctx context.Context) error {
			_, err := repo.GetByID(ctx, "ev-1")
			var qErr *repository.QueryError
			assert.ErrorAs(t, err, &qErr)
			assert.ErrorIs(t, err, dbErr)
			return err
		}
	})
}

func TestTenantRepository(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := postgres.NewTenantRepository(postgres.NewClientWithPool(pool, nil))
	ctx := context.Background()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tenants WHERE id = \$1 AND status = \$2\)`).
		WithArgs(tenantA, "active").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := repo.Exists(ctx, tenantA)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`FROM tenants WHERE slug = \$1`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "status", "created_at"}))
	tenant, err := repo.GetBySlug(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, tenant)

	mock.ExpectExec(`INSERT INTO tenants`).
		WithArgs(tenantB, "Acme", "acme", "active", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created := entity.NewTenant("Acme", "acme")
	created.ID = tenantB
	require.NoError(t, repo.Create(ctx, created))

	closeMockPool(t, pool, mock)
}

func TestTenantRepositoryExistsBoundedByAcquireTimeout(t *testing.T) {
	pool := pgfake.New(1)
	pool.SeedTenants(tenantA)
	repo := postgres.NewTenantRepository(postgres.NewClientWithPool(pool,
		&config.PostgresConfig{AcquireTimeout: 30 * time.Millisecond}))

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	_, err = repo.Exists(ctx, tenantA)
	require.ErrorIs(t, err, repository.ErrPoolExhausted)
	assert.Less(t, time.Since(start), time.Second)

	held.Release()
	exists, err := repo.Exists(context.Background(), tenantA)
	require.NoError(t, err)
	assert.True(t, exists)
}
