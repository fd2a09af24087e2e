package authz

import "errors"

var (
	// ErrPermissionNotFound indicates that no permission row matches the
	// requested name or id. Permission checks recover from it locally by
	// deciding false; it only propagates from direct store lookups.
	ErrPermissionNotFound = errors.New("authz: permission not found")

	// ErrRoleNotFound indicates that a role referenced by a role
	// operation has not been provisioned. Role operations fail hard on
	// it instead of deciding false.
	ErrRoleNotFound = errors.New("authz: role not found")
)
