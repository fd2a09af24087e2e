// Package sync reconciles configured role and permission catalogs
// into storage: create-if-missing, optional pruning of rows the
// catalog no longer declares, and a dry-run mode that reports without
// mutating.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/infinity-labs/dominion/internal/authz"
	"github.com/infinity-labs/dominion/internal/catalog"
)

// DirectoryStore is the slice of the directory repository the
// reconciler needs.
type DirectoryStore interface {
	EnsureRole(ctx context.Context, name string) (created bool, err error)
	CreatePermissionIfMissing(ctx context.Context, name string) (created bool, err error)
	RoleNames(ctx context.Context) ([]string, error)
	PermissionNames(ctx context.Context) ([]string, error)
	DeleteRolesByName(ctx context.Context, names []string) (int64, error)
	DeletePermissionsByName(ctx context.Context, names []string) (int64, error)
}

// Options control a reconciliation run.
type Options struct {
	// DryRun reports what would change without mutating storage.
	DryRun bool
	// Prune removes stored rows the catalog no longer declares.
	Prune bool
}

// Report summarises one reconciliation run. In dry-run mode the
// created/pruned lists hold the names that would have changed.
type Report struct {
	CreatedRoles       []string
	PrunedRoles        []string
	CreatedPermissions []string
	PrunedPermissions  []string
}

// Empty reports whether the run changed (or would change) nothing.
func (r *Report) Empty() bool {
	return len(r.CreatedRoles) == 0 && len(r.PrunedRoles) == 0 &&
		len(r.CreatedPermissions) == 0 && len(r.PrunedPermissions) == 0
}

// Reconciler mirrors a catalog into the directory store.
type Reconciler struct {
	store  DirectoryStore
	roles  authz.ValueResolver
	perms  authz.ValueResolver
	logger *slog.Logger
}

// NewReconciler constructs a Reconciler. Nil resolvers default to
// DefaultValueResolver.
func NewReconciler(store DirectoryStore, roles, perms authz.ValueResolver, logger *slog.Logger) *Reconciler {
	if roles == nil {
		roles = authz.DefaultValueResolver{}
	}
	if perms == nil {
		perms = authz.DefaultValueResolver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, roles: roles, perms: perms, logger: logger}
}

// Sync reconciles the catalog against storage and returns a report.
func (r *Reconciler) Sync(ctx context.Context, cat catalog.Catalog, opts Options) (*Report, error) {
	report := &Report{}

	roleNames := resolveNames(r.roles, cat.Roles)
	if err := r.syncRoles(ctx, roleNames, opts, report); err != nil {
		return nil, err
	}

	permNames := resolveNames(r.perms, cat.Permissions)
	if err := r.syncPermissions(ctx, permNames, opts, report); err != nil {
		return nil, err
	}

	r.logger.Info("catalog sync completed",
		slog.Bool("dry_run", opts.DryRun),
		slog.Int("roles_created", len(report.CreatedRoles)),
		slog.Int("roles_pruned", len(report.PrunedRoles)),
		slog.Int("permissions_created", len(report.CreatedPermissions)),
		slog.Int("permissions_pruned", len(report.PrunedPermissions)))
	return report, nil
}

func (r *Reconciler) syncRoles(ctx context.Context, defined []string, opts Options, report *Report) error {
	stored, err := r.store.RoleNames(ctx)
	if err != nil {
		return fmt.Errorf("sync: list roles: %w", err)
	}
	storedSet := toSet(stored)

	for _, name := range defined {
		if _, ok := storedSet[name]; ok {
			continue
		}
		if opts.DryRun {
			report.CreatedRoles = append(report.CreatedRoles, name)
			continue
		}
		created, err := r.store.EnsureRole(ctx, name)
		if err != nil {
			return fmt.Errorf("sync: create role %q: %w", name, err)
		}
		if created {
			report.CreatedRoles = append(report.CreatedRoles, name)
		}
	}

	if !opts.Prune {
		return nil
	}
	stale := staleNames(stored, defined)
	if len(stale) == 0 {
		return nil
	}
	if opts.DryRun {
		report.PrunedRoles = stale
		return nil
	}
	if _, err := r.store.DeleteRolesByName(ctx, stale); err != nil {
		return fmt.Errorf("sync: prune roles: %w", err)
	}
	report.PrunedRoles = stale
	return nil
}

func (r *Reconciler) syncPermissions(ctx context.Context, defined []string, opts Options, report *Report) error {
	stored, err := r.store.PermissionNames(ctx)
	if err != nil {
		return fmt.Errorf("sync: list permissions: %w", err)
	}
	storedSet := toSet(stored)

	for _, name := range defined {
		if _, ok := storedSet[name]; ok {
			continue
		}
		if opts.DryRun {
			report.CreatedPermissions = append(report.CreatedPermissions, name)
			continue
		}
		created, err := r.store.CreatePermissionIfMissing(ctx, name)
		if err != nil {
			return fmt.Errorf("sync: create permission %q: %w", name, err)
		}
		if created {
			report.CreatedPermissions = append(report.CreatedPermissions, name)
		}
	}

	if !opts.Prune {
		return nil
	}
	stale := staleNames(stored, defined)
	if len(stale) == 0 {
		return nil
	}
	if opts.DryRun {
		report.PrunedPermissions = stale
		return nil
	}
	if _, err := r.store.DeletePermissionsByName(ctx, stale); err != nil {
		return fmt.Errorf("sync: prune permissions: %w", err)
	}
	report.PrunedPermissions = stale
	return nil
}

// resolveNames resolves catalog references to canonical names,
// dropping blanks and duplicates while preserving first-seen order.
func resolveNames(resolver authz.ValueResolver, refs []any) []string {
	seen := make(map[string]struct{}, len(refs))
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := resolver.Resolve(ref)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func staleNames(stored, defined []string) []string {
	keep := toSet(defined)
	var stale []string
	for _, name := range stored {
		if _, ok := keep[name]; !ok {
			stale = append(stale, name)
		}
	}
	return stale
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
