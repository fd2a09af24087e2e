package authz

import "context"

// PermissionChecker is the capability a principal type exposes so
// generic ability checks can delegate to the engine. Principal
// implements it; host applications implement it on their own entity
// types by delegating to a bound Principal.
type PermissionChecker interface {
	HasPermission(ctx context.Context, permission any, tenant *int64) (bool, error)
}

// CollectionNamer lets a resource report the collection its
// permissions are grouped under, e.g. a Post reporting "posts".
type CollectionNamer interface {
	CollectionName() string
}

// Policy maps an ability plus an optional resource to a permission
// name: "{collection}.{ability}" when the resource names a collection,
// the bare ability otherwise.
type Policy struct{}

// PermissionName resolves the permission name for an ability check.
func (Policy) PermissionName(ability string, subject any) string {
	if namer, ok := subject.(CollectionNamer); ok {
		if collection := namer.CollectionName(); collection != "" {
			return collection + "." + ability
		}
	}
	return ability
}
