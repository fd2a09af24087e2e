package authz

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// MetricsRecorder receives decision and invalidation events. The
// observability package provides the Prometheus-backed implementation.
type MetricsRecorder interface {
	Decision(allowed bool, cached bool)
	Invalidation()
}

// Resolver decides permission checks by combining explicit denials,
// explicit allowances and role-derived grants with a fixed precedence,
// consulting the decision cache around the evaluation.
type Resolver struct {
	store   GrantStore
	cache   *DecisionCache
	perms   ValueResolver
	metrics MetricsRecorder
	group   singleflight.Group
}

// NewResolver constructs a Resolver. metrics may be nil; a nil cache
// degrades to an always-miss cache rather than failing later.
func NewResolver(store GrantStore, cache *DecisionCache, perms ValueResolver, metrics MetricsRecorder) *Resolver {
	if cache == nil {
		cache = NewDecisionCache(nil, CacheConfig{})
	}
	if perms == nil {
		perms = DefaultValueResolver{}
	}
	return &Resolver{store: store, cache: cache, perms: perms, metrics: metrics}
}

// HasPermission reports whether the principal holds the permission
// under the given tenant scope (nil = global).
//
// Precedence is deny > allow > role-derived. Deny and allow each
// accept a tenant-scoped or a global edge as equally authoritative;
// role-derived grants require the role assignment to match the tenant
// argument exactly. Unknown permissions decide false, and that false
// is cached like any other decision.
func (r *Resolver) HasPermission(ctx context.Context, principal PrincipalRef, permission any, tenant *int64) (bool, error) {
	// The cache identity comes from the reference alone; a hit must
	// answer without touching the grant store.
	name := r.cacheName(permission)

	if r.cache.Enabled() {
		cached, ok, err := r.cache.Get(ctx, principal, name, tenant)
		if err != nil {
			return false, err
		}
		if ok {
			r.recordDecision(cached, true)
			return cached, nil
		}
	}

	// Concurrent misses for the same tuple share one evaluation. The
	// read-evaluate-write sequence stays non-atomic; invalidation on
	// write bounds the staleness window.
	key := r.cache.Key(principal, name, tenant)
	value, err, _ := r.group.Do(key, func() (any, error) {
		permissionID, err := r.permissionID(ctx, permission)
		if err != nil {
			return false, err
		}
		decision, err := r.evaluate(ctx, principal, permissionID, tenant)
		if err != nil {
			return false, err
		}
		if r.cache.Enabled() {
			if err := r.cache.Put(ctx, principal, name, tenant, decision); err != nil {
				return false, err
			}
		}
		return decision, nil
	})
	if err != nil {
		return false, err
	}
	decision := value.(bool)
	r.recordDecision(decision, false)
	return decision, nil
}

func (r *Resolver) evaluate(ctx context.Context, principal PrincipalRef, permissionID *int64, tenant *int64) (bool, error) {
	if permissionID == nil {
		return false, nil
	}

	denied, err := r.directEdge(ctx, principal, *permissionID, tenant, EffectDeny)
	if err != nil {
		return false, err
	}
	if denied {
		return false, nil
	}

	allowed, err := r.directEdge(ctx, principal, *permissionID, tenant, EffectAllow)
	if err != nil {
		return false, err
	}
	if allowed {
		return true, nil
	}

	viaRole, err := r.store.RoleGrantExists(ctx, principal, *permissionID, tenant)
	if err != nil {
		return false, fmt.Errorf("authz: role grant lookup: %w", err)
	}
	return viaRole, nil
}

// directEdge checks the tenant-scoped edge (when a tenant is given)
// and the global edge; either one satisfies the effect.
func (r *Resolver) directEdge(ctx context.Context, principal PrincipalRef, permissionID int64, tenant *int64, effect Effect) (bool, error) {
	if tenant != nil {
		exists, err := r.store.PermissionEdgeExists(ctx, principal, permissionID, tenant, effect)
		if err != nil {
			return false, fmt.Errorf("authz: %s edge lookup: %w", effect, err)
		}
		if exists {
			return true, nil
		}
	}
	exists, err := r.store.PermissionEdgeExists(ctx, principal, permissionID, nil, effect)
	if err != nil {
		return false, fmt.Errorf("authz: %s edge lookup: %w", effect, err)
	}
	return exists, nil
}

// cacheName derives the cache identity of a permission reference
// without touching the grant store. Domain values carry their name,
// raw numeric ids key by the number, everything else goes through the
// value resolver.
func (r *Resolver) cacheName(permission any) string {
	switch v := permission.(type) {
	case Permission:
		return v.Name
	case *Permission:
		if v != nil {
			return v.Name
		}
	}
	if id, ok := numericID(permission); ok {
		return strconv.FormatInt(id, 10)
	}
	return r.perms.Resolve(permission)
}

// permissionID resolves any accepted permission reference to its
// numeric id, nil when the permission does not exist.
//
// A raw numeric reference is taken as an id without an existence
// check: a dangling id finds no edges and therefore decides false. A
// name that resolves to no row yields nil for the same outcome.
func (r *Resolver) permissionID(ctx context.Context, permission any) (*int64, error) {
	switch v := permission.(type) {
	case Permission:
		id := v.ID
		return &id, nil
	case *Permission:
		if v != nil {
			id := v.ID
			return &id, nil
		}
	}

	if id, ok := numericID(permission); ok {
		return &id, nil
	}

	name := r.perms.Resolve(permission)
	found, err := r.store.FindPermissionByName(ctx, name)
	if errors.Is(err, ErrPermissionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authz: permission lookup: %w", err)
	}
	id := found.ID
	return &id, nil
}

func (r *Resolver) recordDecision(allowed, cached bool) {
	if r.metrics != nil {
		r.metrics.Decision(allowed, cached)
	}
}
