package wire

import (
	"context"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/config"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/infrastructure/messaging"
	"linkhub-api/internal/infrastructure/persistence/postgres"
	"linkhub-api/internal/infrastructure/persistence/redis"
	"linkhub-api/internal/interfaces/http/handler"
	"linkhub-api/internal/interfaces/http/middleware"
	"linkhub-api/internal/interfaces/http/router"
	"linkhub-api/pkg/logger"
)

// DataLayer 数据层依赖容器（用于 bootstrap）
type DataLayer struct {
	PgClient   *postgres.Client
	TenantRepo *postgres.TenantRepository
}

// App 应用依赖容器
//
// 关闭顺序：HTTP 服务器停止接收请求 → Guard.Drain 排空租户事务 → cleanup 关闭连接池。
type App struct {
	Router   *router.Router
	Guard    *postgres.TenantContext
	PgClient *postgres.Client
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideTenantContext 提供租户事务守卫
//
// 开启 tenant.verify_existence 时，租户存在性先查 Redis 缓存，未命中时在守卫获取的连接上查 tenants 表。
func ProvideTenantContext(cfg *config.Config, client *postgres.Client, redisClient *redis.Client) *postgres.TenantContext {
	guardCfg := postgres.TenantContextConfig{
		AcquireTimeout:  cfg.Database.Postgres.AcquireTimeout,
		TeardownTimeout: cfg.Database.Postgres.TeardownTimeout,
		TenantIDFormat:  repository.TenantIDFormat(cfg.Tenant.IDFormat),
	}
	if cfg.Tenant.VerifyExistence {
		guardCfg.Verifier = redis.NewTenantCache(redis.NewCache(redisClient), cfg.Tenant.CacheTTL)
	}
	return postgres.NewTenantContext(client.Pool(), guardCfg)
}

// ProvideRedisClient 提供 Redis 客户端，未启用或不可达时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, cache and rate limiting disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePluginEventService 提供插件事件服务，开启 messaging.redis_stream 时提交后写入 Redis Stream
func ProvidePluginEventService(cfg *config.Config, tx repository.TenantTransactor, repo repository.PluginEventRepository, client *redis.Client) *service.PluginEventService {
	svc := service.NewPluginEventService(tx, repo)
	streamCfg := cfg.Messaging.RedisStream
	if streamCfg.Enabled && client != nil {
		svc.WithPublisher(messaging.NewProducer(client.Redis(), messaging.Stream(streamCfg.Stream), int64(streamCfg.MaxLen)))
	}
	return svc
}

// ProvideRateLimiter 提供按租户限流器，Redis 不可用时不限流
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideCacheProbe 提供 Redis 就绪检查
func ProvideCacheProbe(client *redis.Client) handler.CacheProbe {
	if client == nil {
		return nil
	}
	return client
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, client *postgres.Client, cache handler.CacheProbe, guard *postgres.TenantContext) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, client, cache, guard)
}
