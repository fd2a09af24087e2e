package directory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/infinity-labs/dominion/internal/authz"
)

// ErrDuplicateName indicates a role or permission name collision.
var ErrDuplicateName = errors.New("directory: name already in use")

// ErrNameRequired indicates a blank role or permission name.
var ErrNameRequired = errors.New("directory: name required")

// RepositoryPort defines the data access methods the service needs.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]authz.Role, error)
	GetRole(ctx context.Context, id int64) (authz.Role, error)
	CreateRole(ctx context.Context, name, description string) (authz.Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (authz.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]authz.Permission, error)
	EnsurePermission(ctx context.Context, name, description string) (authz.Permission, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]authz.Permission, error)
	AttachPermissionToRole(ctx context.Context, roleID, permissionID int64) error
	DetachPermissionFromRole(ctx context.Context, roleID, permissionID int64) error
}

// Service orchestrates catalog administration. Role-permission edits
// flush the entire decision cache: role grants are unscoped, so any
// cached decision may depend on them.
type Service struct {
	repo   RepositoryPort
	cache  *authz.DecisionCache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, cache *authz.DecisionCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]authz.Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (authz.Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (authz.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return authz.Role{}, ErrNameRequired
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole renames a role. The rename leaves grant edges intact
// (they reference the role id), so no cache flush is needed.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (authz.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return authz.Role{}, ErrNameRequired
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role and flushes the decision cache, since any
// principal holding the role loses its derived grants.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	return s.flushDecisions(ctx)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]authz.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// EnsurePermission upserts a permission by name.
func (s *Service) EnsurePermission(ctx context.Context, name, description string) (authz.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return authz.Permission{}, ErrNameRequired
	}
	return s.repo.EnsurePermission(ctx, name, strings.TrimSpace(description))
}

// RolePermissions returns the permissions a role grants.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]authz.Permission, error) {
	return s.repo.ListRolePermissions(ctx, roleID)
}

// SetRolePermissions replaces a role's permission set with the given
// ids, attaching missing grants and detaching stale ones.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	current, err := s.repo.ListRolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, p := range current {
		existing[p.ID] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	changed := false
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermissionToRole(ctx, roleID, id); err != nil {
				return err
			}
			changed = true
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermissionFromRole(ctx, roleID, id); err != nil {
				return err
			}
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flushDecisions(ctx)
}

func (s *Service) flushDecisions(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.FlushAll(ctx); err != nil {
		s.logger.Error("flush decision cache", slog.Any("error", err))
		return err
	}
	return nil
}
