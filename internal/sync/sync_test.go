package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infinity-labs/dominion/internal/catalog"
)

type fakeDirectory struct {
	roles map[string]struct{}
	perms map[string]struct{}

	roleCreates int
	permCreates int
	roleDeletes int
	permDeletes int
}

func newFakeDirectory(roles, perms []string) *fakeDirectory {
	f := &fakeDirectory{
		roles: make(map[string]struct{}),
		perms: make(map[string]struct{}),
	}
	for _, r := range roles {
		f.roles[r] = struct{}{}
	}
	for _, p := range perms {
		f.perms[p] = struct{}{}
	}
	return f
}

func (f *fakeDirectory) EnsureRole(_ context.Context, name string) (bool, error) {
	if _, ok := f.roles[name]; ok {
		return false, nil
	}
	f.roles[name] = struct{}{}
	f.roleCreates++
	return true, nil
}

func (f *fakeDirectory) CreatePermissionIfMissing(_ context.Context, name string) (bool, error) {
	if _, ok := f.perms[name]; ok {
		return false, nil
	}
	f.perms[name] = struct{}{}
	f.permCreates++
	return true, nil
}

func (f *fakeDirectory) RoleNames(context.Context) ([]string, error) {
	return keys(f.roles), nil
}

func (f *fakeDirectory) PermissionNames(context.Context) ([]string, error) {
	return keys(f.perms), nil
}

func (f *fakeDirectory) DeleteRolesByName(_ context.Context, names []string) (int64, error) {
	for _, name := range names {
		delete(f.roles, name)
		f.roleDeletes++
	}
	return int64(len(names)), nil
}

func (f *fakeDirectory) DeletePermissionsByName(_ context.Context, names []string) (int64, error) {
	for _, name := range names {
		delete(f.perms, name)
		f.permDeletes++
	}
	return int64(len(names)), nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

var _ DirectoryStore = (*fakeDirectory)(nil)

func TestSyncCreatesMissingEntries(t *testing.T) {
	store := newFakeDirectory([]string{"admin"}, []string{"roles.view"})
	reconciler := NewReconciler(store, nil, nil, nil)

	report, err := reconciler.Sync(context.Background(), catalog.Default(), Options{})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"auditor"}, report.CreatedRoles)
	require.Len(t, report.CreatedPermissions, 4)
	require.Contains(t, store.perms, "grants.edit")
	require.Empty(t, report.PrunedRoles)
	require.Empty(t, report.PrunedPermissions)
}

func TestSyncDryRunReportsWithoutMutating(t *testing.T) {
	store := newFakeDirectory(nil, nil)
	reconciler := NewReconciler(store, nil, nil, nil)

	report, err := reconciler.Sync(context.Background(), catalog.Default(), Options{DryRun: true})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"admin", "auditor"}, report.CreatedRoles)
	require.Len(t, report.CreatedPermissions, 5)
	require.Zero(t, store.roleCreates)
	require.Zero(t, store.permCreates)
	require.Empty(t, store.roles)
}

func TestSyncPruneRemovesStaleEntries(t *testing.T) {
	store := newFakeDirectory([]string{"admin", "auditor", "legacy-role"}, nil)
	store.perms["legacy.permission"] = struct{}{}
	reconciler := NewReconciler(store, nil, nil, nil)

	report, err := reconciler.Sync(context.Background(), catalog.Default(), Options{Prune: true})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"legacy-role"}, report.PrunedRoles)
	require.ElementsMatch(t, []string{"legacy.permission"}, report.PrunedPermissions)
	require.NotContains(t, store.roles, "legacy-role")
	require.NotContains(t, store.perms, "legacy.permission")
}

func TestSyncPruneDryRunKeepsStaleEntries(t *testing.T) {
	store := newFakeDirectory([]string{"admin", "auditor", "legacy-role"}, nil)
	reconciler := NewReconciler(store, nil, nil, nil)

	report, err := reconciler.Sync(context.Background(), catalog.Default(), Options{DryRun: true, Prune: true})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"legacy-role"}, report.PrunedRoles)
	require.Contains(t, store.roles, "legacy-role")
	require.Zero(t, store.roleDeletes)
}

func TestSyncWithoutPruneKeepsStaleEntries(t *testing.T) {
	store := newFakeDirectory([]string{"admin", "auditor", "legacy-role"}, nil)
	reconciler := NewReconciler(store, nil, nil, nil)

	report, err := reconciler.Sync(context.Background(), catalog.Default(), Options{})
	require.NoError(t, err)

	require.Empty(t, report.PrunedRoles)
	require.Contains(t, store.roles, "legacy-role")
}

func TestResolveNamesDedupesAndDropsBlanks(t *testing.T) {
	store := newFakeDirectory(nil, nil)
	reconciler := NewReconciler(store, nil, nil, nil)

	cat := catalog.Catalog{
		Roles: []any{"editor", catalog.RoleName("editor"), "", nil, "viewer"},
	}
	report, err := reconciler.Sync(context.Background(), cat, Options{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, []string{"editor", "viewer"}, report.CreatedRoles)
}
