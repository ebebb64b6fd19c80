package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Catalog errors.
var (
	// ErrUnknownPermission indicates a name absent from the catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
	// ErrInvalidPermissionName indicates a name that is not resource.action shaped.
	ErrInvalidPermissionName = errors.New("rbac: invalid permission name format")
)

// catalog is the compiled-in permission registry. It is the single
// source of truth for valid permission names; grants stored in the
// database reference these names. It changes only through redeployment.
var catalog = []Permission{
	def("games", "read", "View games and their details"),
	def("games", "create", "Add new games to the store"),
	def("games", "update", "Edit existing games"),
	def("games", "delete", "Remove games from the store"),

	def("game_keys", "read", "View game keys and stock levels"),
	def("game_keys", "create", "Upload new game keys"),
	def("game_keys", "update", "Edit game key metadata"),
	def("game_keys", "delete", "Remove game keys"),

	def("categories", "read", "View game categories"),
	def("categories", "create", "Create game categories"),
	def("categories", "update", "Edit game categories"),
	def("categories", "delete", "Remove game categories"),

	def("orders", "read", "View customer orders"),
	def("orders", "create", "Place orders"),
	def("orders", "update", "Update order status"),
	def("orders", "delete", "Cancel and remove orders"),

	def("cart", "read", "View shopping cart contents"),
	def("cart", "create", "Add items to the cart"),
	def("cart", "update", "Change cart item quantities"),
	def("cart", "delete", "Remove items from the cart"),

	def("users", "read", "View user accounts"),
	def("users", "update", "Edit user accounts and role assignment"),
	def("users", "delete", "Deactivate user accounts"),

	def("roles", "read", "View roles"),
	def("roles", "create", "Create roles"),
	def("roles", "update", "Edit roles and their grants"),
	def("roles", "delete", "Remove roles"),

	def("permissions", "read", "View the permission catalog"),

	def("storage", "read", "Download files from object storage"),
	def("storage", "create", "Upload files to object storage"),
	def("storage", "delete", "Delete files from object storage"),
}

var catalogByName = func() map[string]Permission {
	m := make(map[string]Permission, len(catalog))
	for _, p := range catalog {
		m[p.Name] = p
	}
	return m
}()

func def(resource, action, description string) Permission {
	return Permission{
		Resource:    resource,
		Action:      action,
		Name:        resource + "." + action,
		Description: description,
	}
}

// AllPermissions returns every registered permission in stable order.
func AllPermissions() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// PermissionsByResource groups the catalog by resource for reporting.
func PermissionsByResource() map[string][]Permission {
	grouped := make(map[string][]Permission)
	for _, p := range catalog {
		grouped[p.Resource] = append(grouped[p.Resource], p)
	}
	return grouped
}

// IsValidPermission reports whether name exactly matches a registered
// permission. Case sensitive.
func IsValidPermission(name string) bool {
	_, ok := catalogByName[name]
	return ok
}

// PermissionFromName resolves a permission name to its definition.
// Names missing from the catalog but still shaped like resource.action
// are synthesized rather than rejected, so grants referencing renamed
// permissions stay displayable. Malformed names fail with
// ErrInvalidPermissionName.
func PermissionFromName(name string) (Permission, error) {
	if p, ok := catalogByName[name]; ok {
		return p, nil
	}
	resource, action, ok := strings.Cut(name, ".")
	if !ok || resource == "" || action == "" || strings.Contains(action, ".") {
		return Permission{}, fmt.Errorf("%w: %q", ErrInvalidPermissionName, name)
	}
	return Permission{
		Resource:    resource,
		Action:      action,
		Name:        name,
		Description: fmt.Sprintf("Permission to %s %s", action, resource),
	}, nil
}

// StrictPermissionFromName resolves against the catalog only.
func StrictPermissionFromName(name string) (Permission, error) {
	if p, ok := catalogByName[name]; ok {
		return p, nil
	}
	return Permission{}, fmt.Errorf("%w: %q", ErrUnknownPermission, name)
}
