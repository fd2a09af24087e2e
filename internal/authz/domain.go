package authz

import (
	"strconv"
	"time"
)

// Permission is an atomic capability identified by a unique name.
type Permission struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Role groups permissions under a named grant. Role-level permission
// grants are unscoped: a role carries its permissions under every
// tenant it is checked against.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PrincipalRef identifies a grant-holding entity as a (kind, id) pair.
// The kind tag keeps references from different entity tables apart.
type PrincipalRef struct {
	Kind string
	ID   int64
}

func (p PrincipalRef) String() string {
	return p.Kind + ":" + strconv.FormatInt(p.ID, 10)
}

// Tenant returns a pointer to id for call sites passing a concrete
// tenant scope. A nil *int64 means the global (unscoped) bucket.
func Tenant(id int64) *int64 {
	return &id
}

// TenantToken renders a tenant scope for cache keys and tags.
func TenantToken(tenant *int64) string {
	if tenant == nil {
		return "global"
	}
	return strconv.FormatInt(*tenant, 10)
}
