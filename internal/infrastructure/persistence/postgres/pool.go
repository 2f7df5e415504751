// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
)

// Querier 查询接口（连接与事务共用）
//
// pgx 与 database/sql 两种后端都适配到此接口；
// 未命中的单行查询统一返回 sql.ErrNoRows。
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

// Rows 多行结果
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Row 单行结果
type Row interface {
	Scan(dest ...any) error
}

// Tx 绑定在单个连接上的事务
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	// Rollback 对已结束的事务返回 nil
	Rollback(ctx context.Context) error
}

// Conn 从连接池借出的物理连接，会话状态（包括隔离标记）保存在连接上
type Conn interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	// Release 归还连接池
	Release()
	// Discard 关闭物理连接并从连接池移除，之后不得再使用该连接
	Discard(ctx context.Context) error
}

// Pool 有界连接池，不感知租户
type Pool interface {
	// Acquire 阻塞直到有可用连接或 ctx 结束
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Stat() PoolStat
	Close()
}

// PoolStat 连接池统计
type PoolStat struct {
	MaxConns      int32 `json:"max_conns"`
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	// WaitCount 因连接池耗尽而等待的次数
	WaitCount int64 `json:"wait_count"`
}
