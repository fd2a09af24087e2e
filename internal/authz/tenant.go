package authz

import "context"

// TenantContext supplies the ambient tenant scope when a caller does
// not pass one explicitly. A nil result means global scope.
type TenantContext interface {
	TenantID(ctx context.Context) *int64
}

type tenantCtxKey struct{}

// WithTenant stores a tenant scope in the context. HTTP middleware
// uses it to make the request's tenant ambient for downstream checks.
func WithTenant(ctx context.Context, tenant *int64) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenant)
}

// TenantFromContext extracts the tenant scope stored by WithTenant.
func TenantFromContext(ctx context.Context) *int64 {
	tenant, _ := ctx.Value(tenantCtxKey{}).(*int64)
	return tenant
}

// ContextTenant reads the ambient tenant from the request context.
// It is the default TenantContext wired by the composition root.
type ContextTenant struct{}

func (ContextTenant) TenantID(ctx context.Context) *int64 {
	return TenantFromContext(ctx)
}

// StaticTenant pins every lookup to a fixed scope. Useful in tests
// and in CLI paths that operate on behalf of one tenant.
type StaticTenant struct {
	Tenant *int64
}

func (s StaticTenant) TenantID(context.Context) *int64 {
	return s.Tenant
}
