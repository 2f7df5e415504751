// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"linkhub-api/internal/config"
	"linkhub-api/internal/domain/repository"
)

var tracer = otel.Tracer("postgres")

// 支持的驱动
const (
	DriverPgx = "pgx"
	DriverPq  = "pq"
)

// Client PostgreSQL 客户端，持有进程内唯一的连接池
//
// 生命周期：进程启动时创建，关闭时先由 TenantContext.Drain 排空
// 进行中的租户事务，再调用 Close 关闭连接。
type Client struct {
	pool   Pool
	config *config.PostgresConfig
}

// NewClient 按配置的驱动创建 PostgreSQL 客户端
func NewClient(ctx context.Context, cfg *config.PostgresConfig) (*Client, error) {
	var (
		pool Pool
		err  error
	)

	switch cfg.Driver {
	case DriverPgx, "":
		pool, err = NewPgxPool(ctx, cfg)
	case DriverPq:
		pool, err = NewSQLPool(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported postgres driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	// 验证连接
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{
		pool:   pool,
		config: cfg,
	}, nil
}

// NewClientWithPool 使用已有连接池创建客户端
func NewClientWithPool(pool Pool, cfg *config.PostgresConfig) *Client {
	return &Client{pool: pool, config: cfg}
}

// Pool 获取连接池
func (c *Client) Pool() Pool {
	return c.pool
}

// Close 关闭数据库连接
func (c *Client) Close() {
	c.pool.Close()
}

// Ping 检查数据库连接
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.Ping")
	defer span.End()

	return c.pool.Ping(ctx)
}

// Stats 获取连接池统计信息
func (c *Client) Stats() PoolStat {
	return c.pool.Stat()
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.HealthCheck")
	defer span.End()

	err := c.withConn(ctx, func(q Querier) error {
		var result int
		return q.QueryRow(ctx, "SELECT 1").Scan(&result)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// withConn 在未设置租户标记的连接上执行全局查询（tenants、系统目录）。
// 不得用于受 RLS 保护的表。
// 获取连接受 acquire_timeout 约束，超时返回 ErrPoolExhausted。
func (c *Client) withConn(ctx context.Context, fn func(q Querier) error) error {
	timeout := defaultAcquireTimeout
	if c.config != nil && c.config.AcquireTimeout > 0 {
		timeout = c.config.AcquireTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	conn, err := c.pool.Acquire(actx)
	cancel()
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: no connection available within %s", repository.ErrPoolExhausted, timeout)
		}
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}
