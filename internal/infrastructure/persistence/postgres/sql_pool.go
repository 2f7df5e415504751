// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"linkhub-api/internal/config"
)

// SQLPool 基于 database/sql（lib/pq 驱动）的连接池实现
type SQLPool struct {
	db *sql.DB
}

// NewSQLPool 打开 database/sql 连接池，不建立连接
func NewSQLPool(_ context.Context, cfg *config.PostgresConfig) (*SQLPool, error) {
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 配置连接池
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// 连接由 NewClient 统一 ping 验证
	return &SQLPool{db: db}, nil
}

// NewSQLPoolFrom 包装已有的 sql.DB，调用方负责设置连接上限
func NewSQLPoolFrom(db *sql.DB) *SQLPool {
	return &SQLPool{db: db}
}

// DB 获取底层 sql.DB
func (p *SQLPool) DB() *sql.DB {
	return p.db
}

// Acquire 获取专用连接
func (p *SQLPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &sqlConn{conn: c}, nil
}

// Ping 检查连接
func (p *SQLPool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Stat 连接池统计
func (p *SQLPool) Stat() PoolStat {
	s := p.db.Stats()
	return PoolStat{
		MaxConns:      int32(s.MaxOpenConnections),
		TotalConns:    int32(s.OpenConnections),
		IdleConns:     int32(s.Idle),
		AcquiredConns: int32(s.InUse),
		WaitCount:     s.WaitCount,
	}
}

// Close 关闭连接池
func (p *SQLPool) Close() {
	_ = p.db.Close()
}

type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{Rows: rows}, nil
}

func (c *sqlConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

func (c *sqlConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (c *sqlConn) Release() {
	_ = c.conn.Close()
}

// Discard 通过 driver.ErrBadConn 让 database/sql 关闭底层连接而不是放回空闲池
func (c *sqlConn) Discard(_ context.Context) error {
	err := c.conn.Raw(func(any) error {
		return driver.ErrBadConn
	})
	if err == nil || errors.Is(err, driver.ErrBadConn) {
		return nil
	}
	return err
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{Rows: rows}, nil
}

func (t *sqlTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *sqlTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}
