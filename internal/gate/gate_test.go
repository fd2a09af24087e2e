package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infinity-labs/dominion/internal/authz"
)

type stubChecker struct {
	lastPermission any
	lastTenant     *int64
	allowed        bool
}

func (s *stubChecker) HasPermission(_ context.Context, permission any, tenant *int64) (bool, error) {
	s.lastPermission = permission
	s.lastTenant = tenant
	return s.allowed, nil
}

type post struct{}

func (post) CollectionName() string { return "posts" }

func TestCheckDelegatesToChecker(t *testing.T) {
	checker := &stubChecker{allowed: true}
	g := New(authz.ContextTenant{})

	allowed, err := g.Check(context.Background(), checker, "edit", post{})
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, "posts.edit", checker.lastPermission)
	require.Nil(t, checker.lastTenant)
}

func TestCheckUsesAmbientTenant(t *testing.T) {
	checker := &stubChecker{allowed: true}
	g := New(authz.ContextTenant{})
	ctx := authz.WithTenant(context.Background(), authz.Tenant(7))

	_, err := g.Check(ctx, checker, "edit", nil)
	require.NoError(t, err)
	require.Equal(t, "edit", checker.lastPermission)
	require.NotNil(t, checker.lastTenant)
	require.Equal(t, int64(7), *checker.lastTenant)
}

func TestCheckDeniesNonParticipants(t *testing.T) {
	g := New(authz.ContextTenant{})

	allowed, err := g.Check(context.Background(), struct{}{}, "edit", post{})
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = g.Check(context.Background(), nil, "edit", nil)
	require.NoError(t, err)
	require.False(t, allowed)
}
