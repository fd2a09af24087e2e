package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type scope string

func (s scope) String() string { return string(s) }

type namedString string

type namedInt int

func TestDefaultValueResolver(t *testing.T) {
	resolver := DefaultValueResolver{}

	require.Equal(t, "", resolver.Resolve(nil))
	require.Equal(t, "posts.edit", resolver.Resolve("posts.edit"))
	require.Equal(t, "posts.edit", resolver.Resolve(Permission{Name: "posts.edit"}))
	require.Equal(t, "posts.edit", resolver.Resolve(&Permission{Name: "posts.edit"}))
	require.Equal(t, "", resolver.Resolve((*Permission)(nil)))
	require.Equal(t, "editor", resolver.Resolve(Role{Name: "editor"}))
	require.Equal(t, "reports.view", resolver.Resolve(scope("reports.view")))
	require.Equal(t, "grants.edit", resolver.Resolve(namedString("grants.edit")))
	require.Equal(t, "7", resolver.Resolve(namedInt(7)))
}

func TestNumericIDMatchesOnlyPlainIntegers(t *testing.T) {
	id, ok := numericID(7)
	require.True(t, ok)
	require.Equal(t, int64(7), id)

	id, ok = numericID(int64(9))
	require.True(t, ok)
	require.Equal(t, int64(9), id)

	_, ok = numericID(uint32(3))
	require.True(t, ok)

	// Declared integer types resolve as enumerated references, not ids.
	_, ok = numericID(namedInt(7))
	require.False(t, ok)

	_, ok = numericID("7")
	require.False(t, ok)
}
