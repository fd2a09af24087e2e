package authz

import "context"

// Effect selects the polarity of a direct permission edge.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// GrantStore defines persistence operations for grant edges and the
// permission/role catalog rows they reference. Edge lookups match the
// tenant argument exactly: nil selects the global bucket, a concrete
// id selects that tenant only. Combining tenant-scoped and global
// results is the resolver's job, not the store's.
type GrantStore interface {
	FindPermissionByName(ctx context.Context, name string) (*Permission, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)

	// PermissionEdgeExists reports whether a direct allow or deny edge
	// exists for (principal, permission) at exactly the given tenant.
	PermissionEdgeExists(ctx context.Context, principal PrincipalRef, permissionID int64, tenant *int64, effect Effect) (bool, error)

	// RoleEdgeExists reports whether the principal holds the role at
	// exactly the given tenant.
	RoleEdgeExists(ctx context.Context, principal PrincipalRef, roleID int64, tenant *int64) (bool, error)

	// RoleGrantExists reports whether any role held by the principal at
	// exactly the given tenant carries the permission.
	RoleGrantExists(ctx context.Context, principal PrincipalRef, permissionID int64, tenant *int64) (bool, error)

	AttachPermission(ctx context.Context, principal PrincipalRef, permissionID int64, tenant *int64, effect Effect) error
	AttachRole(ctx context.Context, principal PrincipalRef, roleID int64, tenant *int64) error
	DetachRole(ctx context.Context, principal PrincipalRef, roleID int64, tenant *int64) error
}
