// Package gate bridges a host application's generic ability checks to
// the authorization engine. A principal participates by exposing the
// PermissionChecker capability; anything else is denied.
package gate

import (
	"context"

	"github.com/infinity-labs/dominion/internal/authz"
)

// Gate intercepts ability checks and delegates to principals that
// expose the permission capability.
type Gate struct {
	policy  authz.Policy
	tenants authz.TenantContext
}

// New constructs a Gate using the given tenant context for ambient
// scope resolution.
func New(tenants authz.TenantContext) *Gate {
	return &Gate{tenants: tenants}
}

// Check evaluates an ability for a principal against an optional
// subject. Principals without the PermissionChecker capability are
// denied without error.
func (g *Gate) Check(ctx context.Context, principal any, ability string, subject any) (bool, error) {
	checker, ok := principal.(authz.PermissionChecker)
	if !ok {
		return false, nil
	}
	permission := g.policy.PermissionName(ability, subject)
	var tenant *int64
	if g.tenants != nil {
		tenant = g.tenants.TenantID(ctx)
	}
	return checker.HasPermission(ctx, permission, tenant)
}
