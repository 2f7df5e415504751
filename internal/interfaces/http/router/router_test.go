package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkhub-api/internal/config"
	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/infrastructure/persistence/postgres"
	"linkhub-api/internal/interfaces/http/handler"
	"linkhub-api/internal/interfaces/http/router"
	"linkhub-api/pkg/utils"
)

const tenantA = "11111111-1111-4111-8111-111111111111"

type okProbe struct{}

func (okProbe) HealthCheck(context.Context) error { return nil }
func (okProbe) Stats() postgres.PoolStat           { return postgres.PoolStat{} }

type listActivities struct {
	handler.ActivityService
	tenant string
}

func (s *listActivities) List(_ context.Context, tenantID string, p repository.Pagination) (*repository.PagedResult[*entity.Activity], error) {
	s.tenant = tenantID
	return repository.NewPagedResult([]*entity.Activity{}, 0, p), nil
}

func newTestRouter(t *testing.T, svc handler.ActivityService) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "linkhub-api", Env: "production"},
		Tenant: config.TenantConfig{
			IDFormat:   "uuid",
			HeaderName: "X-Tenant-ID",
		},
		Observability: config.ObservabilityConfig{
			Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: "router-secret", Issuer: "linkhub"},
		},
	}
	h := &router.Handlers{
		Health:      handler.NewHealthHandler("test", okProbe{}, nil, nil),
		Activity:    handler.NewActivityHandler(svc),
		Shortlink:   handler.NewShortlinkHandler(nil),
		PluginEvent: handler.NewPluginEventHandler(nil),
	}
	return router.New(cfg, h, nil).Engine()
}

func TestRouterSystemEndpoints(t *testing.T) {
	r := newTestRouter(t, &listActivities{})

	for _, path := range []string{"/health", "/live", "/ready", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouterV1RequiresTokenInProduction(t *testing.T) {
	svc := &listActivities{}
	r := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.Header.Set("X-Tenant-ID", tenantA)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.tenant)

	tok, err := utils.NewJWTManager("router-secret", "linkhub").GenerateAccessToken(tenantA, "user-1", "member", time.Hour)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenantA, svc.tenant)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
