package rbac

import (
	"context"
	"log/slog"
	"strings"
)

// RoleCreator persists new roles. Implemented by the roles repository.
type RoleCreator interface {
	CreateRole(ctx context.Context, name, description string) (Role, error)
}

// Granter writes role grants. Implemented by *GrantStore.
type Granter interface {
	AddMany(ctx context.Context, roleID int64, permissionNames []string) (int, error)
}

// Registry instantiates roles from predefined or caller-supplied
// permission bundles.
type Registry struct {
	roles  RoleCreator
	grants Granter
	logger *slog.Logger
}

// NewRegistry constructs a Registry.
func NewRegistry(roles RoleCreator, grants Granter, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{roles: roles, grants: grants, logger: logger}
}

// RoleTemplates returns the built-in role bundles in stable order.
func RoleTemplates() []RoleTemplate {
	return []RoleTemplate{
		{
			Name:        "Admin",
			Description: "Full access to every store capability",
			Permissions: AllPermissions(),
		},
		{
			Name:        "Manager",
			Description: "Runs the storefront: games, keys, categories and orders",
			Permissions: pick(
				"games.read", "games.create", "games.update", "games.delete",
				"game_keys.read", "game_keys.create", "game_keys.update", "game_keys.delete",
				"categories.read", "categories.create", "categories.update", "categories.delete",
				"orders.read", "orders.update", "orders.delete",
				"users.read", "permissions.read",
				"storage.read", "storage.create",
			),
		},
		{
			Name:        "Staff",
			Description: "Day-to-day catalog and order handling",
			Permissions: pick(
				"games.read", "games.update",
				"game_keys.read", "game_keys.create",
				"categories.read",
				"orders.read", "orders.update",
				"storage.read",
			),
		},
		{
			Name:        "Customer",
			Description: "Browses the store and manages own cart and orders",
			Permissions: pick(
				"games.read", "categories.read",
				"cart.read", "cart.create", "cart.update", "cart.delete",
				"orders.read", "orders.create",
			),
		},
	}
}

// TemplateByName finds a built-in template, matching case-insensitively.
func TemplateByName(name string) (RoleTemplate, bool) {
	for _, tpl := range RoleTemplates() {
		if strings.EqualFold(tpl.Name, name) {
			return tpl, true
		}
	}
	return RoleTemplate{}, false
}

// CreateRoleFromTemplate creates a role and grants the template's
// permissions. Grant writes invalidate the role's cache entry as a side
// effect of AddMany.
func (r *Registry) CreateRoleFromTemplate(ctx context.Context, tpl RoleTemplate) (Role, error) {
	role, err := r.roles.CreateRole(ctx, tpl.Name, tpl.Description)
	if err != nil {
		return Role{}, err
	}
	names := make([]string, len(tpl.Permissions))
	for i, p := range tpl.Permissions {
		names[i] = p.Name
	}
	written, err := r.grants.AddMany(ctx, role.ID, names)
	if err != nil {
		return Role{}, err
	}
	r.logger.Info("rbac: role created from template",
		slog.String("template", tpl.Name), slog.Int64("role_id", role.ID), slog.Int("grants", written))
	return role, nil
}

// CreateCustomRole validates every permission name against the catalog
// before creating anything. Unknown names fail with
// *InvalidPermissionSetError and leave no role behind.
func (r *Registry) CreateCustomRole(ctx context.Context, name, description string, permissionNames []string) (Role, error) {
	var invalid []string
	perms := make([]Permission, 0, len(permissionNames))
	for _, pn := range permissionNames {
		if !IsValidPermission(pn) {
			invalid = append(invalid, pn)
			continue
		}
		p, _ := StrictPermissionFromName(pn)
		perms = append(perms, p)
	}
	if len(invalid) > 0 {
		return Role{}, &InvalidPermissionSetError{Names: invalid}
	}
	return r.CreateRoleFromTemplate(ctx, RoleTemplate{
		Name:        name,
		Description: description,
		Permissions: perms,
	})
}

func pick(names ...string) []Permission {
	perms := make([]Permission, 0, len(names))
	for _, name := range names {
		if p, ok := catalogByName[name]; ok {
			perms = append(perms, p)
		}
	}
	return perms
}
