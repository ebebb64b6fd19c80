package rbac

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/shared"
	_ "github.com/FreezerDie/GameKeyStoreBackEnd/testing"
)

type mockGrantAdmin struct {
	mockGrantSource
	added    map[int64][]string
	removed  []string
	replaced map[int64][]string
}

func (m *mockGrantAdmin) AddMany(ctx context.Context, roleID int64, permissionNames []string) (int, error) {
	if m.added == nil {
		m.added = make(map[int64][]string)
	}
	m.added[roleID] = append(m.added[roleID], permissionNames...)
	return len(permissionNames), nil
}

func (m *mockGrantAdmin) Add(ctx context.Context, roleID int64, permissionName string) error {
	_, err := m.AddMany(ctx, roleID, []string{permissionName})
	return err
}

func (m *mockGrantAdmin) Remove(ctx context.Context, roleID int64, permissionName string) error {
	m.removed = append(m.removed, permissionName)
	return nil
}

func (m *mockGrantAdmin) ReplaceAll(ctx context.Context, roleID int64, permissionNames []string) error {
	if m.replaced == nil {
		m.replaced = make(map[int64][]string)
	}
	m.replaced[roleID] = permissionNames
	return nil
}

type handlerHarness struct {
	router *chi.Mux
	admin  *mockGrantAdmin
	roles  *mockRoleCreator
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	t.Helper()
	admin := &mockGrantAdmin{}
	creator := &mockRoleCreator{}

	gateGrants := &mockGrantSource{}
	gateGrants.grant(1, "permissions.read", "roles.create", "roles.read", "roles.update")
	gate := Gate{Resolver: NewResolver(gateGrants, nil, nil, discardLogger()), Logger: discardLogger()}

	h := NewHandler(discardLogger(), admin,
		NewRegistry(creator, admin, discardLogger()),
		NewResolver(admin, nil, nil, discardLogger()))

	router := chi.NewRouter()
	h.MountRoutes(router, gate)
	return &handlerHarness{router: router, admin: admin, roles: creator}
}

func (h *handlerHarness) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	adminRole := int64(1)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(),
		&shared.Identity{Subject: "1", UserID: 1, RoleID: &adminRole}))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestListPermissionsEndpoint(t *testing.T) {
	h := newHandlerHarness(t)

	rec := h.do(t, http.MethodGet, "/permissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Permissions []Permission `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Permissions, len(AllPermissions()))
}

func TestEndpointsRequireIdentity(t *testing.T) {
	h := newHandlerHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/permissions", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateCustomRoleEndpoint(t *testing.T) {
	h := newHandlerHarness(t)

	rec := h.do(t, http.MethodPost, "/roles", map[string]any{
		"name":        "Support",
		"description": "Handles tickets",
		"permissions": []string{"orders.read", "users.read"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var role Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	assert.Equal(t, "Support", role.Name)
	assert.ElementsMatch(t, []string{"orders.read", "users.read"}, h.admin.added[role.ID])
}

func TestCreateCustomRoleEndpointRejectsUnknownPermissions(t *testing.T) {
	h := newHandlerHarness(t)

	rec := h.do(t, http.MethodPost, "/roles", map[string]any{
		"name":        "Broken",
		"permissions": []string{"orders.read", "bogus!!name"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		InvalidPermissions []string `json:"invalid_permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"bogus!!name"}, body.InvalidPermissions)
	assert.Empty(t, h.roles.created)
}

func TestCreateCustomRoleEndpointValidatesBody(t *testing.T) {
	h := newHandlerHarness(t)

	rec := h.do(t, http.MethodPost, "/roles", map[string]any{
		"name":        "X",
		"permissions": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateFromTemplateEndpoint(t *testing.T) {
	h := newHandlerHarness(t)

	rec := h.do(t, http.MethodPost, "/templates/customer/roles", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var role Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	assert.Equal(t, "Customer", role.Name)
	assert.NotEmpty(t, h.admin.added[role.ID])

	rec = h.do(t, http.MethodPost, "/templates/wizard/roles", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRoleGrantsEndpointFlagsUnregistered(t *testing.T) {
	h := newHandlerHarness(t)
	h.admin.grant(5, "games.read", "coupons.redeem")

	rec := h.do(t, http.MethodGet, "/roles/5/permissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Grants []struct {
			PermissionName string `json:"permission_name"`
			Registered     bool   `json:"registered"`
		} `json:"grants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Grants, 2)
	assert.True(t, body.Grants[0].Registered)
	assert.False(t, body.Grants[1].Registered)
}

func TestGrantMutationEndpoints(t *testing.T) {
	h := newHandlerHarness(t)

	rec := h.do(t, http.MethodPost, "/roles/5/permissions", map[string]any{
		"permissions": []string{"games.read", "games.update"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"games.read", "games.update"}, h.admin.added[5])

	rec = h.do(t, http.MethodPut, "/roles/5/permissions", map[string]any{
		"permissions": []string{"games.read"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"games.read"}, h.admin.replaced[5])

	rec = h.do(t, http.MethodDelete, "/roles/5/permissions/games.read", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"games.read"}, h.admin.removed)

	rec = h.do(t, http.MethodGet, "/roles/zero/permissions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheInvalidationEndpoints(t *testing.T) {
	h := newHandlerHarness(t)

	rec := h.do(t, http.MethodPost, "/roles/5/cache/invalidate", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = h.do(t, http.MethodPost, "/cache/invalidate", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
