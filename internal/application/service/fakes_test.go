package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
)

// fakeTransactor 记录每次作用域的租户与结果，回调报错视为回滚
type fakeTransactor struct {
	mu        sync.Mutex
	scopes    []string
	rollbacks int
	openErr   error
}

func (f *fakeTransactor) WithTenant(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	if err := repository.TenantIDFormatUUID.Validate(tenantID); err != nil {
		return err
	}
	f.mu.Lock()
	f.scopes = append(f.scopes, tenantID)
	openErr := f.openErr
	f.mu.Unlock()
	if openErr != nil {
		return openErr
	}

	err := fn(repository.ContextWithTenant(ctx, tenantID))
	if err != nil {
		f.mu.Lock()
		f.rollbacks++
		f.mu.Unlock()
	}
	return err
}

func scopeTenant(ctx context.Context) (string, error) {
	tenantID, ok := repository.TenantFromContext(ctx)
	if !ok {
		return "", repository.ErrNoTenantScope
	}
	return tenantID, nil
}

type memActivities struct {
	mu      sync.Mutex
	rows    map[string]*entity.Activity
	seq     int
	failErr error
}

func newMemActivities() *memActivities {
	return &memActivities{rows: make(map[string]*entity.Activity)}
}

func (m *memActivities) Create(ctx context.Context, a *entity.Activity) error {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return err
	}
	if m.failErr != nil {
		return m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if a.ID == "" {
		a.ID = fmt.Sprintf("act-%d", m.seq)
	}
	a.TenantID = tenantID
	m.rows[a.ID] = a
	return nil
}

func (m *memActivities) GetByID(ctx context.Context, id string) (*entity.Activity, error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (m *memActivities) List(ctx context.Context, p repository.Pagination) (*repository.PagedResult[*entity.Activity], error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*entity.Activity
	for _, a := range m.rows {
		if a.TenantID == tenantID {
			items = append(items, a)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (m *memActivities) Delete(ctx context.Context, id string) (bool, error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.TenantID != tenantID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memActivities) byAction(action string) []*entity.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Activity
	for _, a := range m.rows {
		if a.Action == action {
			out = append(out, a)
		}
	}
	return out
}

type memShortlinks struct {
	mu   sync.Mutex
	rows map[string]*entity.Shortlink
	seq  int
}

func newMemShortlinks() *memShortlinks {
	return &memShortlinks{rows: make(map[string]*entity.Shortlink)}
}

func (m *memShortlinks) Create(ctx context.Context, link *entity.Shortlink) error {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.rows {
		if l.TenantID == tenantID && l.Slug == link.Slug {
			return fmt.Errorf("create shortlink: %w", repository.ErrConflict)
		}
	}
	m.seq++
	if link.ID == "" {
		link.ID = fmt.Sprintf("sl-%d", m.seq)
	}
	link.TenantID = tenantID
	m.rows[link.ID] = link
	return nil
}

func (m *memShortlinks) find(ctx context.Context, match func(*entity.Shortlink) bool) (*entity.Shortlink, error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.rows {
		if l.TenantID == tenantID && match(l) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memShortlinks) GetByID(ctx context.Context, id string) (*entity.Shortlink, error) {
	return m.find(ctx, func(l *entity.Shortlink) bool { return l.ID == id })
}

func (m *memShortlinks) GetBySlug(ctx context.Context, slug string) (*entity.Shortlink, error) {
	return m.find(ctx, func(l *entity.Shortlink) bool { return l.Slug == slug })
}

func (m *memShortlinks) List(ctx context.Context, p repository.Pagination) (*repository.PagedResult[*entity.Shortlink], error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*entity.Shortlink
	for _, l := range m.rows {
		if l.TenantID == tenantID {
			items = append(items, l)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (m *memShortlinks) IncrementClicks(ctx context.Context, id string) (int64, error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok || l.TenantID != tenantID {
		return 0, repository.ErrNotFound
	}
	l.ClickCount++
	return l.ClickCount, nil
}

func (m *memShortlinks) Delete(ctx context.Context, id string) (bool, error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok || l.TenantID != tenantID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

type memPluginEvents struct {
	mu   sync.Mutex
	rows []*entity.PluginEvent
}

func (m *memPluginEvents) Create(ctx context.Context, e *entity.PluginEvent) error {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", len(m.rows)+1)
	}
	e.TenantID = tenantID
	m.rows = append(m.rows, e)
	return nil
}

func (m *memPluginEvents) GetByID(ctx context.Context, id string) (*entity.PluginEvent, error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ID == id && e.TenantID == tenantID {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPluginEvents) List(ctx context.Context, f *repository.PluginEventFilter, p repository.Pagination) (*repository.PagedResult[*entity.PluginEvent], error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*entity.PluginEvent
	for _, e := range m.rows {
		if e.TenantID != tenantID {
			continue
		}
		if f != nil && f.Plugin != "" && e.Plugin != f.Plugin {
			continue
		}
		if f != nil && f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		items = append(items, e)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (m *memPluginEvents) Delete(ctx context.Context, id string) (bool, error) {
	tenantID, err := scopeTenant(ctx)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.rows {
		if e.ID == id && e.TenantID == tenantID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
