// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"linkhub-api/internal/domain/repository"
	"linkhub-api/pkg/logger"
	"linkhub-api/pkg/metrics"
)

// 隔离标记相关语句，RLS 策略通过 current_setting('app.current_tenant_id', true) 读取
const (
	// TenantSettingName 隔离标记的会话变量名
	TenantSettingName = "app.current_tenant_id"
	// SetTenantSQL 在当前事务内设置隔离标记（is_local = true）
	SetTenantSQL = "SELECT set_config('app.current_tenant_id', $1, true)"
	// ClearTenantSQL 在会话级别清空隔离标记
	ClearTenantSQL = "SELECT set_config('app.current_tenant_id', '', false)"
	// CurrentTenantSQL 读取当前隔离标记
	CurrentTenantSQL = "SELECT coalesce(current_setting('app.current_tenant_id', true), '')"
)

const (
	defaultAcquireTimeout  = 5 * time.Second
	defaultTeardownTimeout = 5 * time.Second
)

// 作用域结果，用于指标标签
const (
	outcomeCommit        = "commit"
	outcomeRollback      = "rollback"
	outcomeRejected      = "rejected"
	outcomePoolExhausted = "pool_exhausted"
	outcomeTeardown      = "teardown_failed"
	outcomeClosed        = "closed"
	outcomeAcquireFailed = "acquire_failed"
	outcomeNested        = "nested"
)

// TenantContextConfig 租户事务守卫配置
type TenantContextConfig struct {
	// AcquireTimeout 获取连接的最长等待时间，超时返回 ErrPoolExhausted
	AcquireTimeout time.Duration
	// TeardownTimeout 回滚、清除标记的最长时间，不受调用方取消影响
	TeardownTimeout time.Duration
	// TenantIDFormat 租户 ID 格式
	TenantIDFormat repository.TenantIDFormat
	// Verifier 可选，校验租户是否存在
	Verifier repository.TenantVerifier
}

// TenantContext 租户事务守卫
//
// 每次调用独占一个连接：获取连接 → BEGIN → 设置隔离标记 → 执行回调
// → COMMIT/ROLLBACK → 清除隔离标记 → 归还连接。
// 回滚或清除失败时连接被丢弃，绝不带着旧租户的标记回到连接池。
type TenantContext struct {
	pool Pool
	cfg  TenantContextConfig

	mu      sync.Mutex
	closing bool
	active  int
	// drained 在 closing 且没有进行中的作用域时关闭
	drained     chan struct{}
	drainedOnce sync.Once
}

// NewTenantContext 创建租户事务守卫
func NewTenantContext(pool Pool, cfg TenantContextConfig) *TenantContext {
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = defaultAcquireTimeout
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = defaultTeardownTimeout
	}
	if cfg.TenantIDFormat == "" {
		cfg.TenantIDFormat = repository.TenantIDFormatUUID
	}
	return &TenantContext{pool: pool, cfg: cfg, drained: make(chan struct{})}
}

// WithTenant 在指定租户的事务中执行 fn
//
// fn 的错误原样返回；回滚或清除标记失败时返回 *repository.TeardownError，
// 其中包裹 fn 的原始错误。fn 中的 panic 在清理完成后重新抛出。
func (tc *TenantContext) WithTenant(ctx context.Context, tenantID string, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "postgres.TenantContext.WithTenant")
	defer span.End()

	start := time.Now()
	outcome := outcomeRejected
	defer func() {
		metrics.TenantScopeTotal.WithLabelValues(outcome).Inc()
		metrics.TenantScopeDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}()

	if err := tc.cfg.TenantIDFormat.Validate(tenantID); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	// 已在租户事务中：同一租户复用当前事务，不同租户视为编程错误
	if _, current, qErr := QuerierFromContext(ctx); qErr == nil {
		if current != tenantID {
			return fmt.Errorf("%w: active %s, requested %s", repository.ErrTenantMismatch, current, tenantID)
		}
		outcome = outcomeNested
		return fn(ctx)
	}

	if !tc.enter() {
		outcome = outcomeClosed
		return repository.ErrGuardClosed
	}
	defer tc.leave()

	conn, err := tc.acquire(ctx)
	if err != nil {
		outcome = outcomeAcquireFailed
		if errors.Is(err, repository.ErrPoolExhausted) {
			outcome = outcomePoolExhausted
			logger.Warn(ctx, "tenant scope rejected: pool exhausted",
				"tenant_id", tenantID,
				"acquire_timeout", tc.cfg.AcquireTimeout.String(),
			)
		}
		return err
	}

	// 存在性校验复用本次获取的连接，此时尚未开启事务，也未设置隔离标记
	if tc.cfg.Verifier != nil {
		if err := tc.verify(ctx, conn, tenantID); err != nil {
			return err
		}
	}

	err = tc.run(ctx, conn, tenantID, fn, &outcome)
	return err
}

// verify 在已获取的连接上校验租户存在，失败时归还连接
func (tc *TenantContext) verify(ctx context.Context, conn Conn, tenantID string) error {
	err := tc.cfg.Verifier.VerifyTenant(ctx, tenantID, func(ctx context.Context, id string) (bool, error) {
		return tenantExists(ctx, conn, id)
	})
	if err == nil {
		return nil
	}
	conn.Release()
	if errors.Is(err, repository.ErrInvalidTenant) {
		return err
	}
	return &repository.QueryError{Op: "verify tenant", Err: err}
}

// run 在已获取的连接上执行完整的事务作用域
func (tc *TenantContext) run(ctx context.Context, conn Conn, tenantID string, fn func(ctx context.Context) error, outcome *string) (err error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		*outcome = outcomeRollback
		return tc.teardown(ctx, conn, nil, tenantID, fmt.Errorf("failed to begin tenant transaction: %w", err), outcome)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		// fn 发生 panic 或调用了 runtime.Goexit：先清理，再继续向上传播
		p := recover()
		cause := errors.New("tenant scope exited without returning")
		if p != nil {
			cause = fmt.Errorf("panic in tenant scope: %v", p)
		}
		*outcome = outcomeRollback
		tErr := tc.teardown(ctx, conn, tx, tenantID, cause, outcome)
		if p != nil {
			logger.Error(ctx, "panic inside tenant scope", tErr, "tenant_id", tenantID)
			panic(p)
		}
	}()

	workErr := setTenant(ctx, tx, tenantID)
	if workErr == nil {
		workErr = fn(withScope(ctx, tenantID, tx))
	}
	finished = true

	if workErr != nil {
		*outcome = outcomeRollback
	} else {
		*outcome = outcomeCommit
	}
	return tc.teardown(ctx, conn, tx, tenantID, workErr, outcome)
}

// teardown 结束事务、清除隔离标记并归还连接
//
// 使用脱离调用方取消的 context，保证取消请求时清理仍然执行。
func (tc *TenantContext) teardown(ctx context.Context, conn Conn, tx Tx, tenantID string, workErr error, outcome *string) error {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tc.cfg.TeardownTimeout)
	defer cancel()

	if tx != nil {
		if workErr == nil {
			if err := tx.Commit(tctx); err != nil {
				*outcome = outcomeRollback
				workErr = &repository.QueryError{Op: "commit tenant transaction", Err: err}
			}
		} else if err := tx.Rollback(tctx); err != nil {
			*outcome = outcomeTeardown
			return tc.discard(tctx, conn, &repository.TeardownError{
				TenantID: tenantID,
				Op:       "rollback",
				Err:      err,
				Cause:    workErr,
			})
		}
	}

	if err := clearTenant(tctx, conn); err != nil {
		*outcome = outcomeTeardown
		return tc.discard(tctx, conn, &repository.TeardownError{
			TenantID: tenantID,
			Op:       "clear marker",
			Err:      err,
			Cause:    workErr,
		})
	}

	conn.Release()
	return workErr
}

// discard 丢弃连接，防止残留标记泄漏给下一个租户
func (tc *TenantContext) discard(ctx context.Context, conn Conn, terr *repository.TeardownError) error {
	metrics.PoolConnectionsDiscarded.WithLabelValues(terr.Op).Inc()
	logger.Error(ctx, "tenant context teardown failed, discarding connection", terr.Err,
		"tenant_id", terr.TenantID,
		"op", terr.Op,
	)
	if err := conn.Discard(ctx); err != nil {
		logger.Warn(ctx, "failed to close discarded connection", "error", err.Error())
	}
	return terr
}

// acquire 在超时内获取连接
func (tc *TenantContext) acquire(ctx context.Context) (Conn, error) {
	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, tc.cfg.AcquireTimeout)
	defer cancel()

	conn, err := tc.pool.Acquire(actx)
	metrics.PoolAcquireDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		return conn, nil
	}

	// 调用方自身取消或超时，原样返回
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if actx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: no connection available within %s", repository.ErrPoolExhausted, tc.cfg.AcquireTimeout)
	}
	return nil, fmt.Errorf("failed to acquire connection: %w", err)
}

// enter 登记一个进行中的作用域，守卫关闭后返回 false
func (tc *TenantContext) enter() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.closing {
		return false
	}
	tc.active++
	return true
}

// leave 注销作用域，排空中的最后一个作用域负责通知 Drain
func (tc *TenantContext) leave() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.active--
	if tc.closing && tc.active == 0 {
		tc.markDrained()
	}
}

func (tc *TenantContext) markDrained() {
	tc.drainedOnce.Do(func() { close(tc.drained) })
}

// Draining 守卫是否已停止接受新作用域
func (tc *TenantContext) Draining() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.closing
}

// Drain 停止接受新作用域并等待进行中的作用域结束
func (tc *TenantContext) Drain(ctx context.Context) error {
	tc.mu.Lock()
	tc.closing = true
	if tc.active == 0 {
		tc.markDrained()
	}
	tc.mu.Unlock()

	select {
	case <-tc.drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain tenant scopes: %w", ctx.Err())
	}
}

// Close 排空进行中的作用域后关闭连接池
//
// 排空超时时不关闭连接池并返回错误，进行中的作用域仍能完成清理；
// 可以稍后再次调用 Close。
func (tc *TenantContext) Close(ctx context.Context) error {
	if err := tc.Drain(ctx); err != nil {
		return err
	}
	tc.pool.Close()
	return nil
}

// setTenant 设置隔离标记，必须是事务的第一条语句
func setTenant(ctx context.Context, tx Tx, tenantID string) error {
	var applied string
	if err := tx.QueryRow(ctx, SetTenantSQL, tenantID).Scan(&applied); err != nil {
		return fmt.Errorf("failed to set tenant context: %w", err)
	}
	if applied != tenantID {
		return fmt.Errorf("failed to set tenant context: marker is %q, want %q", applied, tenantID)
	}
	return nil
}

// clearTenant 在会话级别清空隔离标记并校验
func clearTenant(ctx context.Context, q Querier) error {
	var applied string
	if err := q.QueryRow(ctx, ClearTenantSQL).Scan(&applied); err != nil {
		return fmt.Errorf("failed to clear tenant context: %w", err)
	}
	if applied != "" {
		return fmt.Errorf("failed to clear tenant context: marker still %q", applied)
	}
	return nil
}
