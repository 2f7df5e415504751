// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkhub-api/internal/config"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/infrastructure/persistence/redis"
	"linkhub-api/internal/interfaces/http/handler"
	"linkhub-api/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health      *handler.HealthHandler
	Activity    *handler.ActivityHandler
	Shortlink   *handler.ShortlinkHandler
	PluginEvent *handler.PluginEventHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *Handlers
	limiter  middleware.RateLimiter
}

// New 创建新的路由器，limiter 为 nil 时不限流
func New(cfg *config.Config, handlers *Handlers, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.corsHeaders(),
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Audit(r.skipPaths()))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	health := r.handlers.Health
	r.engine.GET("/health", health.Health)
	r.engine.GET("/ready", health.Ready)
	r.engine.GET("/live", health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	// 认证 → 租户解析 → 按租户限流，之后才会进入租户事务
	v1.Use(
		middleware.Auth(middleware.AuthConfig{
			Secret:   r.cfg.Security.JWT.Secret,
			Issuer:   r.cfg.Security.JWT.Issuer,
			Enabled:  r.cfg.Security.JWT.Secret != "" || !r.cfg.IsDevelopment(),
			Optional: r.cfg.IsDevelopment(),
		}),
		middleware.Tenant(middleware.TenantConfig{
			IDFormat:        repository.TenantIDFormat(r.cfg.Tenant.IDFormat),
			AllowHeader:     r.cfg.IsDevelopment(),
			HeaderName:      r.cfg.Tenant.HeaderName,
			DefaultTenantID: r.cfg.Tenant.DefaultTenantID,
		}),
		middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:  r.cfg.Security.RateLimit.Enabled,
			Requests: r.cfg.Security.RateLimit.Requests,
			Window:   r.cfg.Security.RateLimit.Window,
			KeyFunc:  redis.BuildRateLimitKey,
		}, r.limiter),
	)
	RegisterV1Routes(v1, r.handlers)
}

func (r *Router) skipPaths() []string {
	paths := append([]string{}, middleware.DefaultSkipPaths...)
	if p := r.cfg.Observability.Metrics.Path; p != "" {
		paths = append(paths, p)
	}
	return paths
}

func (r *Router) corsHeaders() []string {
	headers := append([]string{}, r.cfg.Security.CORS.AllowedHeaders...)
	if r.cfg.IsDevelopment() && r.cfg.Tenant.HeaderName != "" {
		headers = append(headers, r.cfg.Tenant.HeaderName)
	}
	return headers
}
