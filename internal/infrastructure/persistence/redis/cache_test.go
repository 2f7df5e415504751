package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkhub-api/internal/domain/repository"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFrom(rdb), mr
}

type stubLookup struct {
	calls   atomic.Int32
	tenants map[string]bool
	err     error
	delay   time.Duration
}

func (s *stubLookup) Exists(_ context.Context, id string) (bool, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return false, s.err
	}
	return s.tenants[id], nil
}

const knownTenant = "7f1c2a8e-3d4b-4c5a-9e6f-0a1b2c3d4e5f"

func TestTenantCacheCachesExistingTenant(t *testing.T) {
	client, mr := newTestClient(t)
	lookup := &stubLookup{tenants: map[string]bool{knownTenant: true}}
	tc := NewTenantCache(NewCache(client), time.Minute)
	ctx := context.Background()

	require.NoError(t, tc.VerifyTenant(ctx, knownTenant, lookup.Exists))
	require.NoError(t, tc.VerifyTenant(ctx, knownTenant, lookup.Exists))

	assert.Equal(t, int32(1), lookup.calls.Load())
	assert.True(t, mr.Exists(tenantKey(knownTenant)))
	assert.Equal(t, time.Minute, mr.TTL(tenantKey(knownTenant)))
}

func TestTenantCacheUnknownTenantIsNotCached(t *testing.T) {
	client, mr := newTestClient(t)
	lookup := &stubLookup{tenants: map[string]bool{}}
	tc := NewTenantCache(NewCache(client), time.Minute)
	ctx := context.Background()

	err := tc.VerifyTenant(ctx, knownTenant, lookup.Exists)
	require.ErrorIs(t, err, repository.ErrInvalidTenant)
	err = tc.VerifyTenant(ctx, knownTenant, lookup.Exists)
	require.ErrorIs(t, err, repository.ErrInvalidTenant)

	assert.Equal(t, int32(2), lookup.calls.Load())
	assert.False(t, mr.Exists(tenantKey(knownTenant)))
}

func TestTenantCacheInvalidate(t *testing.T) {
	client, mr := newTestClient(t)
	lookup := &stubLookup{tenants: map[string]bool{knownTenant: true}}
	tc := NewTenantCache(NewCache(client), time.Minute)
	ctx := context.Background()

	require.NoError(t, tc.VerifyTenant(ctx, knownTenant, lookup.Exists))
	require.NoError(t, tc.Invalidate(ctx, knownTenant))
	assert.False(t, mr.Exists(tenantKey(knownTenant)))

	lookup.tenants[knownTenant] = false
	require.ErrorIs(t, tc.VerifyTenant(ctx, knownTenant, lookup.Exists), repository.ErrInvalidTenant)
}

func TestTenantCacheFallsBackWhenRedisDown(t *testing.T) {
	client, mr := newTestClient(t)
	lookup := &stubLookup{tenants: map[string]bool{knownTenant: true}}
	tc := NewTenantCache(NewCache(client), time.Minute)

	mr.SetError("ERR server unavailable")

	require.NoError(t, tc.VerifyTenant(context.Background(), knownTenant, lookup.Exists))
	assert.Equal(t, int32(1), lookup.calls.Load())
}

func TestTenantCacheWithoutRedis(t *testing.T) {
	lookup := &stubLookup{tenants: map[string]bool{knownTenant: true}}
	tc := NewTenantCache(NewCache(nil), time.Minute)
	ctx := context.Background()

	require.NoError(t, tc.VerifyTenant(ctx, knownTenant, lookup.Exists))
	require.NoError(t, tc.VerifyTenant(ctx, knownTenant, lookup.Exists))
	assert.Equal(t, int32(2), lookup.calls.Load())
	require.NoError(t, tc.Invalidate(ctx, knownTenant))
}

func TestTenantCacheLookupError(t *testing.T) {
	client, _ := newTestClient(t)
	boom := errors.New("db down")
	lookup := &stubLookup{err: boom}
	tc := NewTenantCache(NewCache(client), time.Minute)

	err := tc.VerifyTenant(context.Background(), knownTenant, lookup.Exists)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrInvalidTenant)
}

func TestCacheGetOrLoadCollapsesConcurrentMisses(t *testing.T) {
	client, _ := newTestClient(t)
	lookup := &stubLookup{tenants: map[string]bool{knownTenant: true}, delay: 50 * time.Millisecond}
	tc := NewTenantCache(NewCache(client), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tc.VerifyTenant(context.Background(), knownTenant, lookup.Exists))
		}()
	}
	wg.Wait()

	assert.Less(t, lookup.calls.Load(), int32(10))
}

func TestRateLimiterAllow(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	ctx := context.Background()
	key := BuildRateLimitKey(knownTenant)

	for i := 0; i < 3; i++ {
		allowed, remaining, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, _, err = limiter.Allow(ctx, BuildRateLimitKey("other"), 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestClientHealthCheck(t *testing.T) {
	client, mr := newTestClient(t)
	require.NoError(t, client.HealthCheck(context.Background()))

	require.NoError(t, client.Set(context.Background(), "k", "v", time.Minute))
	v, err := client.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = client.Get(context.Background(), "missing")
	assert.True(t, IsNil(err))

	mr.SetError("ERR server unavailable")
	require.Error(t, client.HealthCheck(context.Background()))
}
