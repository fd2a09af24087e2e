package authz

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestDecisionCacheKey(t *testing.T) {
	cache := NewDecisionCache(NewMemoryStore(), CacheConfig{Enabled: true})
	alice := PrincipalRef{Kind: "user", ID: 42}

	require.Equal(t, "dominion:auth:user:42:global:posts.edit", cache.Key(alice, "posts.edit", nil))
	require.Equal(t, "dominion:auth:user:42:7:posts.edit", cache.Key(alice, "posts.edit", Tenant(7)))
}

func TestDecisionCacheDisabled(t *testing.T) {
	mem := NewMemoryStore()
	cache := NewDecisionCache(mem, CacheConfig{Enabled: false})
	ctx := context.Background()
	alice := PrincipalRef{Kind: "user", ID: 1}

	require.False(t, cache.Enabled())
	require.NoError(t, cache.Put(ctx, alice, "posts.edit", nil, true))
	require.Zero(t, mem.Len())

	_, ok, err := cache.Get(ctx, alice, "posts.edit", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	mem := NewMemoryStore()
	current := time.Now()
	mem.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "k", true, time.Minute, nil))
	_, ok, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok, err = mem.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, mem.Len())
}

func TestFlushForInvalidatesExactScopeOnly(t *testing.T) {
	mem := NewMemoryStore()
	cache := NewDecisionCache(mem, CacheConfig{Enabled: true, TTL: time.Minute})
	ctx := context.Background()
	alice := PrincipalRef{Kind: "user", ID: 1}
	bob := PrincipalRef{Kind: "user", ID: 2}

	require.NoError(t, cache.Put(ctx, alice, "posts.edit", Tenant(7), true))
	require.NoError(t, cache.Put(ctx, alice, "posts.edit", nil, true))
	require.NoError(t, cache.Put(ctx, bob, "posts.edit", Tenant(7), true))
	require.Equal(t, 3, mem.Len())

	require.NoError(t, cache.FlushFor(ctx, alice, Tenant(7)))

	_, ok, err := cache.Get(ctx, alice, "posts.edit", Tenant(7))
	require.NoError(t, err)
	require.False(t, ok)

	// The same principal's global decision and other principals under
	// the same tenant keep their entries.
	_, ok, err = cache.Get(ctx, alice, "posts.edit", nil)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = cache.Get(ctx, bob, "posts.edit", Tenant(7))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFlushPrincipalDropsAllTenants(t *testing.T) {
	mem := NewMemoryStore()
	cache := NewDecisionCache(mem, CacheConfig{Enabled: true, TTL: time.Minute})
	ctx := context.Background()
	alice := PrincipalRef{Kind: "user", ID: 1}
	bob := PrincipalRef{Kind: "user", ID: 2}

	require.NoError(t, cache.Put(ctx, alice, "posts.edit", Tenant(7), true))
	require.NoError(t, cache.Put(ctx, alice, "posts.edit", nil, false))
	require.NoError(t, cache.Put(ctx, bob, "posts.edit", nil, true))

	require.NoError(t, cache.FlushPrincipal(ctx, alice))
	require.Equal(t, 1, mem.Len())

	_, ok, err := cache.Get(ctx, bob, "posts.edit", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFlushTenantDropsAllPrincipals(t *testing.T) {
	mem := NewMemoryStore()
	cache := NewDecisionCache(mem, CacheConfig{Enabled: true, TTL: time.Minute})
	ctx := context.Background()
	alice := PrincipalRef{Kind: "user", ID: 1}
	bob := PrincipalRef{Kind: "user", ID: 2}

	require.NoError(t, cache.Put(ctx, alice, "posts.edit", Tenant(7), true))
	require.NoError(t, cache.Put(ctx, bob, "posts.edit", Tenant(7), true))
	require.NoError(t, cache.Put(ctx, alice, "posts.edit", nil, true))

	require.NoError(t, cache.FlushTenant(ctx, Tenant(7)))
	require.Equal(t, 1, mem.Len())
}

// taglessStore drops tag support to exercise the full-flush fallback.
type taglessStore struct {
	*MemoryStore
	flushes int
}

func (s *taglessStore) SupportsTags() bool { return false }

func (s *taglessStore) Flush(ctx context.Context) error {
	s.flushes++
	return s.MemoryStore.Flush(ctx)
}

func TestTaglessBackendFallsBackToFullFlush(t *testing.T) {
	backend := &taglessStore{MemoryStore: NewMemoryStore()}
	cache := NewDecisionCache(backend, CacheConfig{Enabled: true, TTL: time.Minute})
	ctx := context.Background()
	alice := PrincipalRef{Kind: "user", ID: 1}
	bob := PrincipalRef{Kind: "user", ID: 2}

	require.NoError(t, cache.Put(ctx, alice, "posts.edit", Tenant(7), true))
	require.NoError(t, cache.Put(ctx, bob, "posts.edit", nil, true))

	require.NoError(t, cache.FlushFor(ctx, alice, Tenant(7)))
	require.Equal(t, 1, backend.flushes)
	require.Zero(t, backend.Len(), "a tagless backend flushes everything")
}

func newRedisTestStore(t *testing.T) (*RedisStore, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "dominion"), client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "dominion:auth:user:1:global:posts.edit")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "dominion:auth:user:1:global:posts.edit", true, time.Minute, []string{"dominion:principal:user:1"}))
	require.NoError(t, store.Set(ctx, "dominion:auth:user:1:global:reports.view", false, time.Minute, []string{"dominion:principal:user:1"}))

	value, ok, err := store.Get(ctx, "dominion:auth:user:1:global:posts.edit")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, value)

	value, ok, err = store.Get(ctx, "dominion:auth:user:1:global:reports.view")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, value)
}

func TestRedisStoreInvalidateTag(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "dominion:auth:user:1:7:posts.edit", true, time.Minute, []string{"dominion:principal:user:1:7"}))
	require.NoError(t, store.Set(ctx, "dominion:auth:user:1:global:posts.edit", true, time.Minute, []string{"dominion:principal:user:1:global"}))

	require.NoError(t, store.Invalidate(ctx, "dominion:principal:user:1:7"))

	_, ok, err := store.Get(ctx, "dominion:auth:user:1:7:posts.edit")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(ctx, "dominion:auth:user:1:global:posts.edit")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisStoreFlushScopedToNamespace(t *testing.T) {
	store, client := newRedisTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "dominion:auth:user:1:global:posts.edit", true, time.Minute, nil))
	require.NoError(t, client.Set(ctx, "other:key", "1", 0).Err())

	require.NoError(t, store.Flush(ctx))

	_, ok, err := store.Get(ctx, "dominion:auth:user:1:global:posts.edit")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "1", client.Get(ctx, "other:key").Val(), "flush stays inside the cache namespace")
}
