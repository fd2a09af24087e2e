package authz

import (
	"context"
	"fmt"
	"time"
)

// CacheStore is the key-value backend behind the decision cache.
// Backends that support tag grouping can invalidate every entry
// sharing a tag without enumerating keys; tagless backends fall back
// to a full flush on targeted invalidation.
type CacheStore interface {
	Get(ctx context.Context, key string) (value bool, ok bool, err error)
	Set(ctx context.Context, key string, value bool, ttl time.Duration, tags []string) error
	Invalidate(ctx context.Context, tags ...string) error
	SupportsTags() bool
	Flush(ctx context.Context) error
}

// CacheConfig mirrors the cache section of runtime configuration and
// is read once at construction.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// DecisionCache stores prior authorization decisions keyed by
// (principal, permission name, tenant). Every entry carries three
// tags: one per principal, one per tenant, and one for the exact
// (principal, tenant) pair, so mutations can invalidate at the
// granularity they need.
type DecisionCache struct {
	store   CacheStore
	enabled bool
	ttl     time.Duration
	prefix  string
}

// NewDecisionCache constructs a DecisionCache over the given backend.
func NewDecisionCache(store CacheStore, cfg CacheConfig) *DecisionCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "dominion"
	}
	return &DecisionCache{
		store:   store,
		enabled: cfg.Enabled,
		ttl:     ttl,
		prefix:  prefix,
	}
}

// Enabled reports whether caching is active.
func (c *DecisionCache) Enabled() bool {
	return c != nil && c.enabled && c.store != nil
}

// Get returns a previously cached decision. The second result is
// false when no decision is cached, including when caching is off.
func (c *DecisionCache) Get(ctx context.Context, principal PrincipalRef, permissionName string, tenant *int64) (bool, bool, error) {
	if !c.Enabled() {
		return false, false, nil
	}
	value, ok, err := c.store.Get(ctx, c.Key(principal, permissionName, tenant))
	if err != nil {
		return false, false, fmt.Errorf("authz: cache get: %w", err)
	}
	return value, ok, nil
}

// Put stores a decision with the configured TTL. No-op when disabled.
func (c *DecisionCache) Put(ctx context.Context, principal PrincipalRef, permissionName string, tenant *int64, decision bool) error {
	if !c.Enabled() {
		return nil
	}
	key := c.Key(principal, permissionName, tenant)
	if err := c.store.Set(ctx, key, decision, c.ttl, c.tags(principal, tenant)); err != nil {
		return fmt.Errorf("authz: cache put: %w", err)
	}
	return nil
}

// FlushFor invalidates the decisions cached for exactly this
// (principal, tenant) pair. Decisions the same principal holds under
// other tenants, including the global bucket, stay untouched. When
// the backend cannot group by tags the whole store is flushed: stale
// entries are worse than a cold cache.
func (c *DecisionCache) FlushFor(ctx context.Context, principal PrincipalRef, tenant *int64) error {
	if !c.Enabled() {
		return nil
	}
	if !c.store.SupportsTags() {
		if err := c.store.Flush(ctx); err != nil {
			return fmt.Errorf("authz: cache flush: %w", err)
		}
		return nil
	}
	tag := fmt.Sprintf("%s:principal:%s:%d:%s", c.prefix, principal.Kind, principal.ID, TenantToken(tenant))
	if err := c.store.Invalidate(ctx, tag); err != nil {
		return fmt.Errorf("authz: cache invalidate: %w", err)
	}
	return nil
}

// FlushPrincipal drops the principal's decisions across all tenants.
func (c *DecisionCache) FlushPrincipal(ctx context.Context, principal PrincipalRef) error {
	if !c.Enabled() {
		return nil
	}
	if !c.store.SupportsTags() {
		return c.store.Flush(ctx)
	}
	tag := fmt.Sprintf("%s:principal:%s:%d", c.prefix, principal.Kind, principal.ID)
	return c.store.Invalidate(ctx, tag)
}

// FlushTenant drops every principal's decisions under one tenant.
func (c *DecisionCache) FlushTenant(ctx context.Context, tenant *int64) error {
	if !c.Enabled() {
		return nil
	}
	if !c.store.SupportsTags() {
		return c.store.Flush(ctx)
	}
	return c.store.Invalidate(ctx, fmt.Sprintf("%s:tenant:%s", c.prefix, TenantToken(tenant)))
}

// FlushAll clears the whole decision cache. Role-permission catalog
// edits use it, since role grants are unscoped and can affect any
// cached decision.
func (c *DecisionCache) FlushAll(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.store.Flush(ctx)
}

// Key builds the cache key for one decision. The permission component
// is the reference's cache name: the canonical name for named
// references, the decimal id for raw numeric ones. It is derived
// without a store lookup, so a hit never costs a query.
func (c *DecisionCache) Key(principal PrincipalRef, permissionName string, tenant *int64) string {
	return fmt.Sprintf("%s:auth:%s:%d:%s:%s", c.prefix, principal.Kind, principal.ID, TenantToken(tenant), permissionName)
}

func (c *DecisionCache) tags(principal PrincipalRef, tenant *int64) []string {
	tok := TenantToken(tenant)
	return []string{
		fmt.Sprintf("%s:principal:%s:%d", c.prefix, principal.Kind, principal.ID),
		fmt.Sprintf("%s:tenant:%s", c.prefix, tok),
		fmt.Sprintf("%s:principal:%s:%d:%s", c.prefix, principal.Kind, principal.ID, tok),
	}
}
