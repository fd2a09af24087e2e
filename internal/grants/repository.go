// Package grants implements the authorization grant store on
// PostgreSQL. Principals are referenced polymorphically as a
// (kind, id) pair; tenant scope is a nullable column where NULL is
// the global bucket, so exact-tenant matching uses
// IS NOT DISTINCT FROM throughout.
package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infinity-labs/dominion/internal/authz"
)

// Repository provides PostgreSQL backed persistence for grant edges.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindPermissionByName fetches a permission row by unique name.
func (r *Repository) FindPermissionByName(ctx context.Context, name string) (*authz.Permission, error) {
	var p authz.Permission
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM permissions WHERE name = $1`, name).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrPermissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("grants: find permission: %w", err)
	}
	return &p, nil
}

// FindRoleByName fetches a role row by unique name.
func (r *Repository) FindRoleByName(ctx context.Context, name string) (*authz.Role, error) {
	var role authz.Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authz.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("grants: find role: %w", err)
	}
	return &role, nil
}

// PermissionEdgeExists checks for a direct allow or deny edge at
// exactly the given tenant scope.
func (r *Repository) PermissionEdgeExists(ctx context.Context, principal authz.PrincipalRef, permissionID int64, tenant *int64, effect authz.Effect) (bool, error) {
	table := "principal_permissions"
	if effect == authz.EffectDeny {
		table = "principal_denied_permissions"
	}
	query := fmt.Sprintf(`SELECT EXISTS (
		SELECT 1 FROM %s
		WHERE principal_kind = $1 AND principal_id = $2
		  AND permission_id = $3
		  AND tenant_id IS NOT DISTINCT FROM $4)`, table)
	var exists bool
	if err := r.pool.QueryRow(ctx, query, principal.Kind, principal.ID, permissionID, tenant).Scan(&exists); err != nil {
		return false, fmt.Errorf("grants: %s edge exists: %w", effect, err)
	}
	return exists, nil
}

// RoleEdgeExists checks for a role assignment at exactly the given
// tenant scope.
func (r *Repository) RoleEdgeExists(ctx context.Context, principal authz.PrincipalRef, roleID int64, tenant *int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM principal_roles
		WHERE principal_kind = $1 AND principal_id = $2
		  AND role_id = $3
		  AND tenant_id IS NOT DISTINCT FROM $4)`,
		principal.Kind, principal.ID, roleID, tenant).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("grants: role edge exists: %w", err)
	}
	return exists, nil
}

// RoleGrantExists checks whether any role the principal holds at
// exactly the given tenant scope carries the permission. Role-level
// grants themselves are unscoped.
func (r *Repository) RoleGrantExists(ctx context.Context, principal authz.PrincipalRef, permissionID int64, tenant *int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1
		FROM principal_roles pr
		JOIN permission_role rp ON rp.role_id = pr.role_id
		WHERE pr.principal_kind = $1 AND pr.principal_id = $2
		  AND pr.tenant_id IS NOT DISTINCT FROM $3
		  AND rp.permission_id = $4)`,
		principal.Kind, principal.ID, tenant, permissionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("grants: role grant exists: %w", err)
	}
	return exists, nil
}

// AttachPermission inserts a direct allow or deny edge.
func (r *Repository) AttachPermission(ctx context.Context, principal authz.PrincipalRef, permissionID int64, tenant *int64, effect authz.Effect) error {
	table := "principal_permissions"
	if effect == authz.EffectDeny {
		table = "principal_denied_permissions"
	}
	query := fmt.Sprintf(`INSERT INTO %s (principal_kind, principal_id, permission_id, tenant_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT DO NOTHING`, table)
	if _, err := r.pool.Exec(ctx, query, principal.Kind, principal.ID, permissionID, tenant); err != nil {
		return fmt.Errorf("grants: attach %s edge: %w", effect, err)
	}
	return nil
}

// AttachRole inserts a role assignment edge.
func (r *Repository) AttachRole(ctx context.Context, principal authz.PrincipalRef, roleID int64, tenant *int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO principal_roles (principal_kind, principal_id, role_id, tenant_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT DO NOTHING`,
		principal.Kind, principal.ID, roleID, tenant)
	if err != nil {
		return fmt.Errorf("grants: attach role edge: %w", err)
	}
	return nil
}

// DetachRole deletes the role assignment matching the exact tenant
// scope.
func (r *Repository) DetachRole(ctx context.Context, principal authz.PrincipalRef, roleID int64, tenant *int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM principal_roles
		WHERE principal_kind = $1 AND principal_id = $2
		  AND role_id = $3
		  AND tenant_id IS NOT DISTINCT FROM $4`,
		principal.Kind, principal.ID, roleID, tenant)
	if err != nil {
		return fmt.Errorf("grants: detach role edge: %w", err)
	}
	return nil
}

var _ authz.GrantStore = (*Repository)(nil)
