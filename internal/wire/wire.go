//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/config"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/infrastructure/persistence/postgres"
	"linkhub-api/internal/interfaces/http/handler"
	"linkhub-api/internal/interfaces/http/router"
)

// InitializeDataLayer 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(DataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		ServiceSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTenantRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	ProvideTenantContext,
	postgres.NewActivityRepository,
	postgres.NewShortlinkRepository,
	postgres.NewPluginEventRepository,
	// 接口绑定
	wire.Bind(new(repository.TenantTransactor), new(*postgres.TenantContext)),
	wire.Bind(new(repository.ActivityRepository), new(*postgres.ActivityRepository)),
	wire.Bind(new(repository.ShortlinkRepository), new(*postgres.ShortlinkRepository)),
	wire.Bind(new(repository.PluginEventRepository), new(*postgres.PluginEventRepository)),
)

// RedisSet Redis 提供者集合（Redis 可选）
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideRateLimiter,
	ProvideCacheProbe,
)

// ServiceSet 应用服务提供者集合
var ServiceSet = wire.NewSet(
	service.NewActivityService,
	service.NewShortlinkService,
	ProvidePluginEventService,
	wire.Bind(new(handler.ActivityService), new(*service.ActivityService)),
	wire.Bind(new(handler.ShortlinkService), new(*service.ShortlinkService)),
	wire.Bind(new(handler.PluginEventService), new(*service.PluginEventService)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewActivityHandler,
	handler.NewShortlinkHandler,
	handler.NewPluginEventHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
