package rbac

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// GrantSource reads persisted role grants. Implemented by *GrantStore.
type GrantSource interface {
	ListByRole(ctx context.Context, roleID int64) ([]RoleGrant, error)
}

// UserDirectory resolves a user to its assigned role. The second return
// is false when the user does not exist or carries no role; both are
// normal negatives, not errors.
type UserDirectory interface {
	RoleIDForUser(ctx context.Context, userID int64) (int64, bool, error)
}

// Resolver derives effective permission sets and answers point queries,
// backed by a TTL cache. All methods are fail closed: an unreachable
// backing store yields an empty set or a denial, never an error, and
// the failure is cached under the shortened TTL so legitimate access
// resumes within one retry interval.
type Resolver struct {
	grants GrantSource
	users  UserDirectory
	cache  *Cache
	logger *slog.Logger
}

// NewResolver constructs a Resolver. cache may be nil, in which case
// every call recomputes from the grant source.
func NewResolver(grants GrantSource, users UserDirectory, cache *Cache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{grants: grants, users: users, cache: cache, logger: logger}
}

// RolePermissions returns the effective permission set for a role. A
// role without grants, an unknown role, and a backing-store outage all
// resolve to the empty set.
func (r *Resolver) RolePermissions(ctx context.Context, roleID int64) []Permission {
	perms, _ := r.rolePermissions(ctx, roleID)
	return perms
}

// cachedPermissionSet is the cache representation of a resolved set.
// Healthy is false when the set is a fail-closed placeholder written
// after a grant-source failure, so point checks derived from it inherit
// the shortened TTL and the denial never outlives one retry interval.
type cachedPermissionSet struct {
	Permissions []Permission `json:"permissions"`
	Healthy     bool         `json:"healthy"`
}

// rolePermissions reports ok=false when the permission set reflects a
// grant-source failure, fresh or cached, so point checks can shorten
// their own cache TTL.
func (r *Resolver) rolePermissions(ctx context.Context, roleID int64) ([]Permission, bool) {
	key := roleKey(roleID)
	var cached cachedPermissionSet
	if r.cache.Fetch(ctx, key, &cached) {
		return cached.Permissions, cached.Healthy
	}

	grants, err := r.grants.ListByRole(ctx, roleID)
	if err != nil {
		r.logger.Error("rbac: list grants failed, resolving to empty set",
			slog.Int64("role_id", roleID), slog.Any("error", err))
		r.storeEntry(ctx, key, cachedPermissionSet{Permissions: []Permission{}}, false)
		return nil, false
	}

	perms := make([]Permission, 0, len(grants))
	for _, g := range grants {
		p, err := PermissionFromName(g.PermissionName)
		if err != nil {
			// Malformed names in old grants are skipped, not fatal.
			r.logger.Warn("rbac: skipping malformed grant",
				slog.Int64("role_id", roleID), slog.String("permission", g.PermissionName))
			continue
		}
		perms = append(perms, p)
	}
	r.storeEntry(ctx, key, cachedPermissionSet{Permissions: perms, Healthy: true}, true)
	return perms, true
}

// RoleHasPermission reports whether the role holds (resource, action).
// Matching is case insensitive on both segments.
func (r *Resolver) RoleHasPermission(ctx context.Context, roleID int64, resource, action string) bool {
	return r.hasPermission(ctx, RoleRef(roleID), resource, action)
}

// UserHasPermission resolves the user's role through the directory and
// delegates to the role check. A user without a role is a stable
// negative.
func (r *Resolver) UserHasPermission(ctx context.Context, userID int64, resource, action string) bool {
	return r.hasPermission(ctx, UserRef(userID), resource, action)
}

// ActorHasPermission answers the point query for a gate-resolved actor.
// The role fast path and the user lookup path agree for the same
// underlying role.
func (r *Resolver) ActorHasPermission(ctx context.Context, actor Actor, resource, action string) bool {
	if !actor.Valid() {
		return false
	}
	return r.hasPermission(ctx, actor, resource, action)
}

func (r *Resolver) hasPermission(ctx context.Context, actor Actor, resource, action string) bool {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if resource == "" || action == "" {
		return false
	}

	key := checkKey(actor, resource, action)
	var cached bool
	if r.cache.Fetch(ctx, key, &cached) {
		return cached
	}

	roleID, hasRole, ok := r.resolveRole(ctx, actor)
	if !hasRole {
		r.storeEntry(ctx, key, false, ok)
		return false
	}

	perms, ok := r.rolePermissions(ctx, roleID)
	granted := false
	for _, p := range perms {
		if strings.EqualFold(p.Resource, resource) && strings.EqualFold(p.Action, action) {
			granted = true
			break
		}
	}
	r.storeEntry(ctx, key, granted, ok)
	return granted
}

type cachedUserRole struct {
	RoleID  int64 `json:"role_id"`
	HasRole bool  `json:"has_role"`
}

// resolveRole maps the actor to a role ID. ok=false marks a directory
// failure during this call.
func (r *Resolver) resolveRole(ctx context.Context, actor Actor) (roleID int64, hasRole, ok bool) {
	switch actor.kind {
	case actorRole:
		return actor.id, true, true
	case actorUser:
		key := userRoleKey(actor.id)
		var cached cachedUserRole
		if r.cache.Fetch(ctx, key, &cached) {
			return cached.RoleID, cached.HasRole, true
		}
		if r.users == nil {
			return 0, false, true
		}
		id, found, err := r.users.RoleIDForUser(ctx, actor.id)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("rbac: user lookup failed, denying",
				slog.Int64("user_id", actor.id), slog.Any("error", err))
			r.storeEntry(ctx, key, cachedUserRole{}, false)
			return 0, false, false
		}
		if err != nil {
			return 0, false, false
		}
		entry := cachedUserRole{RoleID: id, HasRole: found}
		r.storeEntry(ctx, key, entry, true)
		return id, found, true
	default:
		return 0, false, true
	}
}

// storeEntry writes a cache entry, shortening the TTL when the value
// was produced by a failure path.
func (r *Resolver) storeEntry(ctx context.Context, key string, value any, healthy bool) {
	ttl := r.cache.TTL()
	if !healthy {
		ttl = r.cache.NegativeTTL()
	}
	if ttl <= 0 {
		return
	}
	if err := r.cache.Store(ctx, key, value, ttl); err != nil {
		r.logger.Warn("rbac: cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// InvalidateRole removes the cached permission set for a role. Derived
// point-check and per-user entries are left to expire by TTL; the
// resulting staleness is bounded by the standard TTL and accepted by
// contract.
func (r *Resolver) InvalidateRole(ctx context.Context, roleID int64) error {
	return r.cache.Delete(ctx, roleKey(roleID))
}

// InvalidateUser removes the cached user-to-role mapping.
func (r *Resolver) InvalidateUser(ctx context.Context, userID int64) error {
	return r.cache.Delete(ctx, userRoleKey(userID))
}

// InvalidateAll purges the rbac key space. Best effort; callers must
// not depend on it for correctness.
func (r *Resolver) InvalidateAll(ctx context.Context) error {
	return r.cache.Purge(ctx)
}
