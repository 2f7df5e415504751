package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/interfaces/http/middleware"
	"linkhub-api/pkg/utils"
)

const (
	secret  = "test-secret"
	issuer  = "linkhub-test"
	tenantA = "11111111-1111-4111-8111-111111111111"
	tenantB = "22222222-2222-4222-8222-222222222222"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// identityRouter 返回请求最终看到的租户和用户
func identityRouter(auth middleware.AuthConfig, tenant middleware.TenantConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Auth(auth), middleware.Tenant(tenant))
	r.GET("/v1/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.TenantID(c)+"|"+middleware.UserID(c))
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func token(t *testing.T, tenantID string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewJWTManager(secret, issuer).GenerateAccessToken(tenantID, "user-1", "member", ttl)
	require.NoError(t, err)
	return tok
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthTenantFromClaims(t *testing.T) {
	r := identityRouter(
		middleware.AuthConfig{Secret: secret, Issuer: issuer, Enabled: true, SkipPaths: middleware.DefaultSkipPaths},
		middleware.TenantConfig{IDFormat: repository.TenantIDFormatUUID, SkipPaths: middleware.DefaultSkipPaths},
	)

	w := get(r, "/v1/whoami", map[string]string{
		"Authorization": "Bearer " + token(t, tenantA, time.Hour),
		// 生产模式下请求头不能覆盖 token 中的租户
		"X-Tenant-ID": tenantB,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenantA+"|user-1", w.Body.String())

	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	r := identityRouter(
		middleware.AuthConfig{Secret: secret, Issuer: issuer, Enabled: true},
		middleware.TenantConfig{IDFormat: repository.TenantIDFormatUUID},
	)
	otherIssuer, err := utils.NewJWTManager(secret, "someone-else").GenerateAccessToken(tenantA, "user-1", "member", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing", "", `"error_code":"2003"`},
		{"wrong scheme", "Basic abc", `"error_code":"2002"`},
		{"garbage", "Bearer not-a-jwt", `"error_code":"2002"`},
		{"expired", "Bearer " + token(t, tenantA, -time.Minute), `"error_code":"2001"`},
		{"other issuer", "Bearer " + otherIssuer, `"error_code":"2002"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := get(r, "/v1/whoami", headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestTenantDevelopmentFallback(t *testing.T) {
	r := identityRouter(
		middleware.AuthConfig{Secret: secret, Issuer: issuer, Enabled: true, Optional: true},
		middleware.TenantConfig{IDFormat: repository.TenantIDFormatUUID, AllowHeader: true, DefaultTenantID: tenantB},
	)

	w := get(r, "/v1/whoami", map[string]string{"X-Tenant-ID": tenantA})
	assert.Equal(t, tenantA+"|", w.Body.String())

	w = get(r, "/v1/whoami", nil)
	assert.Equal(t, tenantB+"|", w.Body.String())

	// 带 token 时仍然校验，且 token 优先
	w = get(r, "/v1/whoami", map[string]string{
		"Authorization": "Bearer " + token(t, tenantA, time.Hour),
		"X-Tenant-ID":   tenantB,
	})
	assert.Equal(t, tenantA+"|user-1", w.Body.String())

	w = get(r, "/v1/whoami", map[string]string{"Authorization": "Bearer broken"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTenantRejectsMissingAndMalformed(t *testing.T) {
	r := identityRouter(
		middleware.AuthConfig{},
		middleware.TenantConfig{IDFormat: repository.TenantIDFormatUUID, AllowHeader: true},
	)

	w := get(r, "/v1/whoami", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/v1/whoami", map[string]string{"X-Tenant-ID": "acme'; DROP TABLE activities;--"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"2005"`)
}

type stubLimiter struct {
	allowed   bool
	remaining int
	err       error
	keys      []string
}

func (l *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.remaining, l.err
}

func rateLimitRouter(limiter middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.KeyTenantID, tenantA)
		c.Next()
	})
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:  true,
		Requests: 10,
		Window:   30 * time.Second,
		KeyFunc:  func(id string) string { return "rl:" + id },
	}, limiter))
	r.GET("/v1/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true, remaining: 7}
		w := get(rateLimitRouter(limiter), "/v1/ping", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "7", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, []string{"rl:" + tenantA}, limiter.keys)
	})

	t.Run("denied", func(t *testing.T) {
		w := get(rateLimitRouter(&stubLimiter{}), "/v1/ping", nil)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "30", w.Header().Get("Retry-After"))
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		w := get(rateLimitRouter(&stubLimiter{err: errors.New("redis down")}), "/v1/ping", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(middleware.KeyRequestID))
	})

	w := get(r, "/", map[string]string{middleware.RequestIDHeader: "req-123"})
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))

	w = get(r, "/", map[string]string{middleware.RequestIDHeader: strings.Repeat("x", 200)})
	assert.Len(t, w.Body.String(), 36)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.GET("/", func(*gin.Context) {
		panic("boom")
	})

	w := get(r, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"1007"`)
}
