// Package catalog declares the roles and permissions an application
// defines in code. The sync reconciler resolves these references
// through the identity resolvers and mirrors them into storage, so a
// deployment's grant vocabulary lives next to the code that checks it.
package catalog

// RoleName is a role constant declared by the engine itself.
type RoleName string

// Scope is a permission constant declared by the engine itself.
type Scope string

// Built-in roles guarding the engine's own administration surface.
const (
	RoleAdmin   RoleName = "admin"
	RoleAuditor RoleName = "auditor"
)

// Built-in permissions guarding the engine's own administration
// surface.
const (
	ScopeRolesView       Scope = "roles.view"
	ScopeRolesEdit       Scope = "roles.edit"
	ScopePermissionsView Scope = "permissions.view"
	ScopeGrantsEdit      Scope = "grants.edit"
	ScopeAuthzCheck      Scope = "authz.check"
)

// Catalog holds the role and permission references to reconcile. The
// entries are any reference shape the identity resolvers accept:
// strings, named constants, or domain values.
type Catalog struct {
	Roles       []any
	Permissions []any
}

// Default returns the engine's own administration catalog.
func Default() Catalog {
	return Catalog{
		Roles: []any{RoleAdmin, RoleAuditor},
		Permissions: []any{
			ScopeRolesView,
			ScopeRolesEdit,
			ScopePermissionsView,
			ScopeGrantsEdit,
			ScopeAuthzCheck,
		},
	}
}

// Merge combines catalogs, preserving order and keeping duplicates
// for the reconciler to dedupe after name resolution.
func Merge(catalogs ...Catalog) Catalog {
	var merged Catalog
	for _, c := range catalogs {
		merged.Roles = append(merged.Roles, c.Roles...)
		merged.Permissions = append(merged.Permissions, c.Permissions...)
	}
	return merged
}
