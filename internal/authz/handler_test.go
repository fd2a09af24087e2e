package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, store GrantStore) *httptest.Server {
	t.Helper()
	engine, err := NewEngine(EngineConfig{
		Store:   store,
		Cache:   NewDecisionCache(NewMemoryStore(), CacheConfig{Enabled: true, TTL: time.Minute}),
		Tenants: ContextTenant{},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(slog.Default(), engine).MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCheckEndpoint(t *testing.T) {
	store := newMockGrantStore()
	srv := newTestServer(t, store)

	alice := PrincipalRef{Kind: "user", ID: 1}
	require.NoError(t, store.AttachPermission(context.Background(), alice, 1, Tenant(7), EffectAllow))

	resp := postJSON(t, srv.URL+"/check", map[string]any{
		"principal_kind": "user",
		"principal_id":   1,
		"permission":     "posts.edit",
		"tenant_id":      7,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body checkResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Allowed)

	// The same check without tenant scope runs globally and denies.
	resp = postJSON(t, srv.URL+"/check", map[string]any{
		"principal_kind": "user",
		"principal_id":   1,
		"permission":     "posts.edit",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Allowed)
}

func TestCheckEndpointValidation(t *testing.T) {
	srv := newTestServer(t, newMockGrantStore())

	resp := postJSON(t, srv.URL+"/check", map[string]any{
		"principal_kind": "user",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGrantEndpoints(t *testing.T) {
	store := newMockGrantStore()
	srv := newTestServer(t, store)

	resp := postJSON(t, srv.URL+"/principals/user/1/allow", map[string]any{
		"permission": "posts.edit",
		"tenant_id":  7,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/principals/user/1/deny", map[string]any{
		"permission": "reports.view",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	alice := PrincipalRef{Kind: "user", ID: 1}
	require.True(t, store.permEdges[permEdgeKey{alice, 1, "7", EffectAllow}])
	require.True(t, store.permEdges[permEdgeKey{alice, 2, "global", EffectDeny}])
}

func TestRoleEndpoints(t *testing.T) {
	store := newMockGrantStore()
	srv := newTestServer(t, store)
	client := srv.Client()

	resp := postJSON(t, srv.URL+"/principals/user/1/roles", map[string]any{
		"role":      "editor",
		"tenant_id": 7,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err := client.Get(srv.URL + "/principals/user/1/roles/editor?tenant_id=7")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var held hasRoleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&held))
	require.True(t, held.HasRole)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/principals/user/1/roles/editor?tenant_id=7", nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/principals/user/1/roles/editor?tenant_id=7")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&held))
	require.False(t, held.HasRole)
}

func TestRoleEndpointsUnknownRole(t *testing.T) {
	srv := newTestServer(t, newMockGrantStore())

	resp := postJSON(t, srv.URL+"/principals/user/1/roles", map[string]any{
		"role": "no-such-role",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
