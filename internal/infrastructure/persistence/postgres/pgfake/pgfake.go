// Package pgfake 提供内存版 PostgreSQL 连接池，用于租户事务守卫测试
//
// 每个连接保存会话级与事务级的隔离标记；items 表按隔离标记模拟 RLS：
// 读取只返回当前租户的行，写入其他租户的行被拒绝，标记为空时不可见任何行。
// 事务内写入在提交前对其他连接不可见，回滚后丢弃。
package pgfake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"linkhub-api/internal/infrastructure/persistence/postgres"
)

// items 表语句
const (
	InsertItemSQL = "INSERT INTO items (id, tenant_id, value) VALUES ($1, $2, $3)"
	SelectItemSQL = "SELECT id, tenant_id, value FROM items WHERE id = $1"
	ListItemsSQL  = "SELECT id, tenant_id, value FROM items ORDER BY id"
	CountItemsSQL = "SELECT count(*) FROM items"
	DeleteItemSQL = "DELETE FROM items WHERE id = $1"
)

// 伪语句，用于故障注入与语句日志
const (
	StmtAcquire  = "ACQUIRE"
	StmtBegin    = "BEGIN"
	StmtCommit   = "COMMIT"
	StmtRollback = "ROLLBACK"
	StmtPing     = "PING"
)

var (
	// ErrConnReleased 在归还或丢弃后继续使用连接
	ErrConnReleased = errors.New("pgfake: connection used after release")
	// ErrTxDone 在事务结束后继续使用事务
	ErrTxDone = errors.New("pgfake: transaction already finished")
	// ErrPoolClosed 连接池已关闭
	ErrPoolClosed = errors.New("pgfake: pool closed")
)

// Item items 表的一行
type Item struct {
	ID       string
	TenantID string
	Value    string
}

// Stats 连接池计数
type Stats struct {
	Created   int
	Acquires  int
	Releases  int
	Discards  int
	Begins    int
	Commits   int
	Rollbacks int
	// Misuse 连接或事务结束后仍被使用的次数
	Misuse int
}

// Entry 语句日志
type Entry struct {
	ConnID int
	Stmt   string
}

type failure struct {
	err   error
	times int
}

// Pool 内存连接池，实现 postgres.Pool
type Pool struct {
	size int
	sem  chan struct{}

	mu       sync.Mutex
	idle     []*Conn
	acquired int
	nextID   int
	closed   bool
	items    map[string]Item
	tenants  map[string]string
	failures map[string]*failure
	stats    Stats
	log      []Entry
	waits    int64
}

var _ postgres.Pool = (*Pool)(nil)

// New 创建容量为 size 的连接池
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:     size,
		sem:      make(chan struct{}, size),
		items:    make(map[string]Item),
		tenants:  make(map[string]string),
		failures: make(map[string]*failure),
	}
}

// Fail 让语句 stmt 的后续 times 次执行返回 err，times < 0 表示一直失败
func (p *Pool) Fail(stmt string, err error, times int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[stmt] = &failure{err: err, times: times}
}

// Seed 直接写入已提交的行，绕过 RLS
func (p *Pool) Seed(items ...Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, it := range items {
		p.items[it.ID] = it
	}
}

// SeedTenants 写入活跃租户，供租户存在性查询使用
func (p *Pool) SeedTenants(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.tenants[id] = "active"
	}
}

// Items 返回已提交的全部行，绕过 RLS
func (p *Pool) Items() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Item, 0, len(p.items))
	for _, it := range p.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats 返回计数快照
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Log 返回语句日志
func (p *Pool) Log() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry(nil), p.log...)
}

// Statements 返回指定连接执行过的语句
func (p *Pool) Statements(connID int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.log {
		if e.ConnID == connID {
			out = append(out, e.Stmt)
		}
	}
	return out
}

// Acquire 获取连接，池满时阻塞直到 ctx 结束
func (p *Pool) Acquire(ctx context.Context) (postgres.Conn, error) {
	if err := p.inject(0, StmtAcquire); err != nil {
		return nil, err
	}

	select {
	case p.sem <- struct{}{}:
	default:
		p.mu.Lock()
		p.waits++
		p.mu.Unlock()
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		<-p.sem
		return nil, ErrPoolClosed
	}

	var c *Conn
	if n := len(p.idle); n > 0 {
		c = p.idle[n-1]
		p.idle = p.idle[:n-1]
	} else {
		p.nextID++
		p.stats.Created++
		c = &Conn{pool: p, id: p.nextID}
	}
	c.held = true
	p.acquired++
	p.stats.Acquires++
	return c, nil
}

// Ping 检查连接
func (p *Pool) Ping(_ context.Context) error {
	return p.inject(0, StmtPing)
}

// Stat 连接池统计
func (p *Pool) Stat() postgres.PoolStat {
	p.mu.Lock()
	defer p.mu.Unlock()
	return postgres.PoolStat{
		MaxConns:      int32(p.size),
		TotalConns:    int32(len(p.idle) + p.acquired),
		IdleConns:     int32(len(p.idle)),
		AcquiredConns: int32(p.acquired),
		WaitCount:     p.waits,
	}
}

// Close 关闭连接池
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.idle = nil
}

// inject 记录语句并按需返回注入的错误，调用方不得持有锁
func (p *Pool) inject(connID int, stmt string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.injectLocked(connID, stmt)
}

func (p *Pool) injectLocked(connID int, stmt string) error {
	if connID != 0 {
		p.log = append(p.log, Entry{ConnID: connID, Stmt: stmt})
	}
	f, ok := p.failures[stmt]
	if !ok || f.times == 0 {
		return nil
	}
	if f.times > 0 {
		f.times--
	}
	return f.err
}

// Conn 内存连接，实现 postgres.Conn
type Conn struct {
	pool *Pool
	id   int
	held bool

	// marker 会话级隔离标记
	marker string
	tx     *Tx
}

var _ postgres.Conn = (*Conn)(nil)

// ID 连接编号，丢弃后新建的连接编号不同
func (c *Conn) ID() int {
	return c.id
}

// Marker 返回会话级隔离标记
func (c *Conn) Marker() string {
	c.pool.mu.Lock()
	defer c.pool.mu.Unlock()
	return c.marker
}

func (c *Conn) Exec(_ context.Context, query string, args ...any) (int64, error) {
	p := c.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return 0, err
	}
	res, err := c.execLocked(query, args)
	return res.affected, err
}

func (c *Conn) Query(_ context.Context, query string, args ...any) (postgres.Rows, error) {
	p := c.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return nil, err
	}
	res, err := c.execLocked(query, args)
	if err != nil {
		return nil, err
	}
	return &rows{data: res.rows, pos: -1}, nil
}

func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) postgres.Row {
	r, err := c.Query(ctx, query, args...)
	return &row{rows: r, err: err}
}

// Begin 开启事务，同一连接同时只能有一个事务
func (c *Conn) Begin(_ context.Context) (postgres.Tx, error) {
	p := c.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return nil, err
	}
	if err := p.injectLocked(c.id, StmtBegin); err != nil {
		return nil, err
	}
	if c.tx != nil {
		return nil, errors.New("pgfake: transaction already in progress")
	}
	p.stats.Begins++
	c.tx = &Tx{conn: c}
	return c.tx, nil
}

// Release 归还连接，仍在事务中的连接被销毁
func (c *Conn) Release() {
	p := c.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if !c.held {
		p.stats.Misuse++
		return
	}
	c.held = false
	p.acquired--
	p.stats.Releases++
	if c.tx == nil && !p.closed {
		p.idle = append(p.idle, c)
	} else {
		p.stats.Discards++
	}
	<-p.sem
}

// Discard 关闭连接，不归还连接池
func (c *Conn) Discard(_ context.Context) error {
	p := c.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if !c.held {
		p.stats.Misuse++
		return ErrConnReleased
	}
	c.held = false
	c.tx = nil
	p.acquired--
	p.stats.Discards++
	<-p.sem
	return nil
}

func (c *Conn) usableLocked() error {
	if !c.held {
		c.pool.stats.Misuse++
		return ErrConnReleased
	}
	return nil
}

// effectiveMarker 事务内的本地标记优先于会话标记
func (c *Conn) effectiveMarker() string {
	if c.tx != nil && c.tx.localSet {
		return c.tx.local
	}
	return c.marker
}

type result struct {
	rows     [][]any
	affected int64
}

func (c *Conn) execLocked(query string, args []any) (result, error) {
	p := c.pool
	if err := p.injectLocked(c.id, query); err != nil {
		return result{}, err
	}
	if c.tx != nil && c.tx.aborted {
		return result{}, &pgconn.PgError{Code: "25P02", Message: "current transaction is aborted, commands ignored until end of transaction block"}
	}

	switch query {
	case postgres.SetTenantSQL:
		val, err := stringArg(args, 0)
		if err != nil {
			return result{}, err
		}
		if c.tx != nil {
			c.tx.local, c.tx.localSet = val, true
		} else {
			// 事务外的 is_local 设置不产生效果
			val = c.marker
		}
		return result{rows: [][]any{{val}}, affected: 1}, nil

	case postgres.ClearTenantSQL:
		c.marker = ""
		if c.tx != nil {
			c.tx.local, c.tx.localSet = "", true
		}
		return result{rows: [][]any{{""}}, affected: 1}, nil

	case postgres.CurrentTenantSQL:
		return result{rows: [][]any{{c.effectiveMarker()}}, affected: 1}, nil

	case postgres.TenantExistsSQL:
		id, err := stringArg(args, 0)
		if err != nil {
			return result{}, err
		}
		status, err := stringArg(args, 1)
		if err != nil {
			return result{}, err
		}
		got, ok := p.tenants[id]
		return result{rows: [][]any{{ok && got == status}}, affected: 1}, nil

	case "SELECT 1":
		return result{rows: [][]any{{int64(1)}}, affected: 1}, nil

	case InsertItemSQL:
		id, _ := stringArg(args, 0)
		tenant, _ := stringArg(args, 1)
		value, _ := stringArg(args, 2)
		if marker := c.effectiveMarker(); marker == "" || tenant != marker {
			c.abortLocked()
			return result{}, &pgconn.PgError{Code: "42501", Message: `new row violates row-level security policy for table "items"`}
		}
		view := c.viewLocked()
		if _, exists := view[id]; exists {
			c.abortLocked()
			return result{}, &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "items_pkey"`}
		}
		c.writeLocked(op{item: Item{ID: id, TenantID: tenant, Value: value}})
		return result{affected: 1}, nil

	case SelectItemSQL:
		id, _ := stringArg(args, 0)
		it, ok := c.visibleLocked()[id]
		if !ok {
			return result{}, nil
		}
		return result{rows: [][]any{{it.ID, it.TenantID, it.Value}}, affected: 1}, nil

	case ListItemsSQL:
		visible := c.visibleLocked()
		ids := make([]string, 0, len(visible))
		for id := range visible {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := make([][]any, 0, len(ids))
		for _, id := range ids {
			it := visible[id]
			out = append(out, []any{it.ID, it.TenantID, it.Value})
		}
		return result{rows: out, affected: int64(len(out))}, nil

	case CountItemsSQL:
		return result{rows: [][]any{{int64(len(c.visibleLocked()))}}, affected: 1}, nil

	case DeleteItemSQL:
		id, _ := stringArg(args, 0)
		if _, ok := c.visibleLocked()[id]; !ok {
			return result{}, nil
		}
		c.writeLocked(op{delete: true, item: Item{ID: id}})
		return result{affected: 1}, nil
	}

	return result{}, fmt.Errorf("pgfake: unsupported statement %q", strings.TrimSpace(query))
}

func (c *Conn) abortLocked() {
	if c.tx != nil {
		c.tx.aborted = true
	}
}

// viewLocked 已提交数据叠加本事务未提交的写入，不做 RLS 过滤
func (c *Conn) viewLocked() map[string]Item {
	view := make(map[string]Item, len(c.pool.items))
	for id, it := range c.pool.items {
		view[id] = it
	}
	if c.tx != nil {
		for _, o := range c.tx.pending {
			o.apply(view)
		}
	}
	return view
}

// visibleLocked 按隔离标记过滤后的可见行
func (c *Conn) visibleLocked() map[string]Item {
	marker := c.effectiveMarker()
	out := make(map[string]Item)
	if marker == "" {
		return out
	}
	for id, it := range c.viewLocked() {
		if it.TenantID == marker {
			out[id] = it
		}
	}
	return out
}

func (c *Conn) writeLocked(o op) {
	if c.tx != nil {
		c.tx.pending = append(c.tx.pending, o)
		return
	}
	o.apply(c.pool.items)
}

type op struct {
	delete bool
	item   Item
}

func (o op) apply(m map[string]Item) {
	if o.delete {
		delete(m, o.item.ID)
		return
	}
	m[o.item.ID] = o.item
}

// Tx 内存事务，实现 postgres.Tx
type Tx struct {
	conn     *Conn
	done     bool
	aborted  bool
	local    string
	localSet bool
	pending  []op
}

var _ postgres.Tx = (*Tx)(nil)

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	return t.conn.Exec(ctx, query, args...)
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (postgres.Rows, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.conn.Query(ctx, query, args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) postgres.Row {
	if err := t.check(); err != nil {
		return &row{err: err}
	}
	return t.conn.QueryRow(ctx, query, args...)
}

// Commit 提交事务，已中止的事务提交后等同回滚
func (t *Tx) Commit(_ context.Context) error {
	p := t.conn.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.done {
		p.stats.Misuse++
		return ErrTxDone
	}
	if err := p.injectLocked(t.conn.id, StmtCommit); err != nil {
		t.finishLocked()
		p.stats.Rollbacks++
		return err
	}
	if t.aborted {
		t.finishLocked()
		p.stats.Rollbacks++
		return errors.New("pgfake: commit of aborted transaction rolled back")
	}
	for _, o := range t.pending {
		o.apply(p.items)
	}
	t.finishLocked()
	p.stats.Commits++
	return nil
}

// Rollback 回滚事务，对已结束的事务返回 nil
func (t *Tx) Rollback(_ context.Context) error {
	p := t.conn.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.done {
		return nil
	}
	if err := p.injectLocked(t.conn.id, StmtRollback); err != nil {
		// 回滚失败时事务状态未知，保持打开
		return err
	}
	t.finishLocked()
	p.stats.Rollbacks++
	return nil
}

func (t *Tx) finishLocked() {
	t.done = true
	t.pending = nil
	if t.conn.tx == t {
		t.conn.tx = nil
	}
}

func (t *Tx) check() error {
	p := t.conn.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.done {
		p.stats.Misuse++
		return ErrTxDone
	}
	return nil
}

type rows struct {
	data [][]any
	pos  int
}

func (r *rows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.data) {
		return errors.New("pgfake: scan called without a current row")
	}
	return assign(r.data[r.pos], dest)
}

func (r *rows) Err() error { return nil }

func (r *rows) Close() {}

type row struct {
	rows postgres.Rows
	err  error
}

func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return sql.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func assign(src []any, dest []any) error {
	if len(src) != len(dest) {
		return fmt.Errorf("pgfake: expected %d destinations, got %d", len(src), len(dest))
	}
	for i, d := range dest {
		if s, ok := d.(sql.Scanner); ok {
			if err := s.Scan(src[i]); err != nil {
				return err
			}
			continue
		}
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("pgfake: destination %d is not a pointer", i)
		}
		sv := reflect.ValueOf(src[i])
		target := dv.Elem()
		switch {
		case !sv.IsValid():
			target.Set(reflect.Zero(target.Type()))
		case target.Kind() == reflect.String && sv.Kind() != reflect.String:
			return fmt.Errorf("pgfake: cannot scan %T into %T", src[i], d)
		case sv.Type().AssignableTo(target.Type()):
			target.Set(sv)
		case sv.Type().ConvertibleTo(target.Type()):
			target.Set(sv.Convert(target.Type()))
		default:
			return fmt.Errorf("pgfake: cannot scan %T into %T", src[i], d)
		}
	}
	return nil
}

func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("pgfake: missing argument $%d", i+1)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("pgfake: argument $%d is %T, want string", i+1, args[i])
	}
	return s, nil
}
