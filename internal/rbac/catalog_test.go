package rbac

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogNamesWellFormed(t *testing.T) {
	perms := AllPermissions()
	require.NotEmpty(t, perms)

	seen := make(map[string]bool, len(perms))
	for _, p := range perms {
		assert.Equal(t, p.Resource+"."+p.Action, p.Name)
		assert.NotEmpty(t, p.Description, "permission %s has no description", p.Name)
		assert.False(t, strings.Contains(p.Action, "."), "action %q contains a dot", p.Action)
		assert.False(t, seen[p.Name], "duplicate permission %s", p.Name)
		seen[p.Name] = true
	}
}

func TestAllPermissionsReturnsCopy(t *testing.T) {
	first := AllPermissions()
	first[0].Name = "mutated"
	second := AllPermissions()
	assert.NotEqual(t, "mutated", second[0].Name)
}

func TestIsValidPermission(t *testing.T) {
	assert.True(t, IsValidPermission("games.read"))
	assert.True(t, IsValidPermission("roles.delete"))

	// Matching is exact; normalization happens at resolution time.
	assert.False(t, IsValidPermission("GAMES.READ"))
	assert.False(t, IsValidPermission("games"))
	assert.False(t, IsValidPermission("games.fly"))
	assert.False(t, IsValidPermission(""))
}

func TestPermissionFromNameCatalogHit(t *testing.T) {
	p, err := PermissionFromName("orders.update")
	require.NoError(t, err)
	assert.Equal(t, "orders", p.Resource)
	assert.Equal(t, "update", p.Action)
	assert.Equal(t, "Update order status", p.Description)
}

func TestPermissionFromNameSynthesizesUnregistered(t *testing.T) {
	p, err := PermissionFromName("coupons.redeem")
	require.NoError(t, err)
	assert.Equal(t, "coupons", p.Resource)
	assert.Equal(t, "redeem", p.Action)
	assert.Equal(t, "coupons.redeem", p.Name)
	assert.Equal(t, "Permission to redeem coupons", p.Description)
}

func TestPermissionFromNameRejectsMalformed(t *testing.T) {
	for _, name := range []string{"", "games", ".read", "games.", "a.b.c", "games..read"} {
		_, err := PermissionFromName(name)
		assert.ErrorIs(t, err, ErrInvalidPermissionName, "name %q", name)
	}
}

func TestStrictPermissionFromName(t *testing.T) {
	_, err := StrictPermissionFromName("coupons.redeem")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPermission))

	p, err := StrictPermissionFromName("cart.update")
	require.NoError(t, err)
	assert.Equal(t, "cart", p.Resource)
}

func TestPermissionsByResource(t *testing.T) {
	grouped := PermissionsByResource()
	require.Contains(t, grouped, "games")
	assert.Len(t, grouped["games"], 4)
	require.Contains(t, grouped, "permissions")
	assert.Len(t, grouped["permissions"], 1)

	total := 0
	for _, perms := range grouped {
		total += len(perms)
	}
	assert.Equal(t, len(AllPermissions()), total)
}
