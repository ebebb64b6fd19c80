package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRoleCreator struct {
	nextID  int64
	created []Role
	err     error
}

func (m *mockRoleCreator) CreateRole(ctx context.Context, name, description string) (Role, error) {
	if m.err != nil {
		return Role{}, m.err
	}
	m.nextID++
	role := Role{ID: m.nextID, Name: name, Description: description, CreatedAt: time.Now()}
	m.created = append(m.created, role)
	return role, nil
}

type mockGranter struct {
	byRole map[int64][]string
	err    error
}

func (m *mockGranter) AddMany(ctx context.Context, roleID int64, permissionNames []string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.byRole == nil {
		m.byRole = make(map[int64][]string)
	}
	m.byRole[roleID] = append(m.byRole[roleID], permissionNames...)
	return len(permissionNames), nil
}

func TestRoleTemplatesAreCatalogBacked(t *testing.T) {
	templates := RoleTemplates()
	require.Len(t, templates, 4)

	assert.Equal(t, "Admin", templates[0].Name)
	assert.Len(t, templates[0].Permissions, len(AllPermissions()))

	for _, tpl := range templates {
		require.NotEmpty(t, tpl.Permissions, "template %s is empty", tpl.Name)
		for _, p := range tpl.Permissions {
			assert.True(t, IsValidPermission(p.Name), "template %s carries unknown %s", tpl.Name, p.Name)
		}
	}
}

func TestTemplateByName(t *testing.T) {
	tpl, ok := TemplateByName("customer")
	require.True(t, ok)
	assert.Equal(t, "Customer", tpl.Name)

	tpl, ok = TemplateByName("STAFF")
	require.True(t, ok)
	assert.Equal(t, "Staff", tpl.Name)

	_, ok = TemplateByName("wizard")
	assert.False(t, ok)
}

func TestCreateRoleFromTemplate(t *testing.T) {
	creator := &mockRoleCreator{}
	granter := &mockGranter{}
	registry := NewRegistry(creator, granter, discardLogger())

	tpl, ok := TemplateByName("Staff")
	require.True(t, ok)

	role, err := registry.CreateRoleFromTemplate(context.Background(), tpl)
	require.NoError(t, err)
	assert.Equal(t, "Staff", role.Name)
	assert.Len(t, granter.byRole[role.ID], len(tpl.Permissions))
	assert.Contains(t, granter.byRole[role.ID], "game_keys.create")
}

func TestCreateRoleFromTemplateCreatorFailure(t *testing.T) {
	creator := &mockRoleCreator{err: errors.New("duplicate role")}
	granter := &mockGranter{}
	registry := NewRegistry(creator, granter, discardLogger())

	_, err := registry.CreateRoleFromTemplate(context.Background(), RoleTemplates()[0])
	require.Error(t, err)
	assert.Empty(t, granter.byRole, "no grants may be written when the role was not created")
}

func TestCreateCustomRole(t *testing.T) {
	creator := &mockRoleCreator{}
	granter := &mockGranter{}
	registry := NewRegistry(creator, granter, discardLogger())

	role, err := registry.CreateCustomRole(context.Background(), "Support", "Handles tickets",
		[]string{"orders.read", "users.read"})
	require.NoError(t, err)
	assert.Equal(t, "Support", role.Name)
	assert.ElementsMatch(t, []string{"orders.read", "users.read"}, granter.byRole[role.ID])
}

func TestCreateCustomRoleRejectsUnknownNames(t *testing.T) {
	creator := &mockRoleCreator{}
	granter := &mockGranter{}
	registry := NewRegistry(creator, granter, discardLogger())

	_, err := registry.CreateCustomRole(context.Background(), "Broken", "",
		[]string{"orders.read", "bogus!!name", "coupons.redeem"})
	require.Error(t, err)

	var invalid *InvalidPermissionSetError
	require.True(t, errors.As(err, &invalid))
	assert.ElementsMatch(t, []string{"bogus!!name", "coupons.redeem"}, invalid.Names)

	assert.Empty(t, creator.created, "validation failure must not create a role")
	assert.Empty(t, granter.byRole)
}
