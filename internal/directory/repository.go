// Package directory manages the role and permission catalog rows the
// decision engine resolves against: CRUD, role-permission grants and
// the reconciliation primitives the sync tool builds on.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infinity-labs/dominion/internal/authz"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]authz.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("directory: list roles: %w", err)
	}
	defer rows.Close()
	var roles []authz.Role
	for rows.Next() {
		var role authz.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("directory: scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list roles: %w", err)
	}
	return roles, nil
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (authz.Role, error) {
	var role authz.Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Role{}, authz.ErrRoleNotFound
	}
	if err != nil {
		return authz.Role{}, fmt.Errorf("directory: get role: %w", err)
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, description string) (authz.Role, error) {
	var role authz.Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, created_at, updated_at)
		 VALUES ($1, $2, now(), now())
		 RETURNING id, name, description, created_at, updated_at`,
		name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return authz.Role{}, mapConstraintErr("directory: create role", err)
	}
	return role, nil
}

// UpdateRole renames a role and updates its description.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string) (authz.Role, error) {
	var role authz.Role
	err := r.pool.QueryRow(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, description, created_at, updated_at`,
		id, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Role{}, authz.ErrRoleNotFound
	}
	if err != nil {
		return authz.Role{}, mapConstraintErr("directory: update role", err)
	}
	return role, nil
}

// DeleteRole removes a role by id.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("directory: delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrRoleNotFound
	}
	return nil
}

// ListPermissions returns all permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("directory: list permissions: %w", err)
	}
	defer rows.Close()
	var perms []authz.Permission
	for rows.Next() {
		var p authz.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("directory: scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list permissions: %w", err)
	}
	return perms, nil
}

// EnsurePermission upserts a permission by name, keeping the stored
// description current.
func (r *Repository) EnsurePermission(ctx context.Context, name, description string) (authz.Permission, error) {
	var p authz.Permission
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, description, created_at, updated_at)
		 VALUES ($1, $2, now(), now())
		 ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = now()
		 RETURNING id, name, description, created_at, updated_at`,
		name, description).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return authz.Permission{}, fmt.Errorf("directory: ensure permission: %w", err)
	}
	return p, nil
}

// ListRolePermissions returns the permissions granted to a role.
func (r *Repository) ListRolePermissions(ctx context.Context, roleID int64) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		 FROM permissions p
		 JOIN permission_role rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("directory: list role permissions: %w", err)
	}
	defer rows.Close()
	var perms []authz.Permission
	for rows.Next() {
		var p authz.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("directory: scan role permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list role permissions: %w", err)
	}
	return perms, nil
}

// AttachPermissionToRole grants a permission to a role.
func (r *Repository) AttachPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO permission_role (role_id, permission_id, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT DO NOTHING`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("directory: attach permission to role: %w", err)
	}
	return nil
}

// DetachPermissionFromRole revokes a permission from a role.
func (r *Repository) DetachPermissionFromRole(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM permission_role WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("directory: detach permission from role: %w", err)
	}
	return nil
}

// EnsureRole creates a role when missing and reports whether a row
// was inserted.
func (r *Repository) EnsureRole(ctx context.Context, name string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO roles (name, description, created_at, updated_at)
		 VALUES ($1, '', now(), now())
		 ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return false, fmt.Errorf("directory: ensure role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreatePermissionIfMissing creates a permission when missing and
// reports whether a row was inserted.
func (r *Repository) CreatePermissionIfMissing(ctx context.Context, name string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO permissions (name, description, created_at, updated_at)
		 VALUES ($1, '', now(), now())
		 ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return false, fmt.Errorf("directory: create permission: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RoleNames returns every role name in the store.
func (r *Repository) RoleNames(ctx context.Context) ([]string, error) {
	return r.names(ctx, `SELECT name FROM roles ORDER BY name`)
}

// PermissionNames returns every permission name in the store.
func (r *Repository) PermissionNames(ctx context.Context) ([]string, error) {
	return r.names(ctx, `SELECT name FROM permissions ORDER BY name`)
}

func (r *Repository) names(ctx context.Context, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("directory: list names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("directory: scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list names: %w", err)
	}
	return names, nil
}

// DeleteRolesByName removes the named roles and returns the count.
func (r *Repository) DeleteRolesByName(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE name = ANY($1)`, names)
	if err != nil {
		return 0, fmt.Errorf("directory: delete roles: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeletePermissionsByName removes the named permissions and returns
// the count.
func (r *Repository) DeletePermissionsByName(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE name = ANY($1)`, names)
	if err != nil {
		return 0, fmt.Errorf("directory: delete permissions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// mapConstraintErr converts a unique violation into ErrDuplicateName.
func mapConstraintErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return fmt.Errorf("%s: %w", op, err)
}
