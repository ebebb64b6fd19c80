package rbac

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Permission represents an atomic capability on a resource.
type Permission struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleGrant ties a permission name to a role.
type RoleGrant struct {
	ID             uuid.UUID `json:"id"`
	RoleID         int64     `json:"role_id"`
	PermissionName string    `json:"permission_name"`
	GrantedAt      time.Time `json:"granted_at"`
}

// RoleTemplate bundles catalog permissions used to bootstrap a role.
type RoleTemplate struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

type actorKind int

const (
	actorNone actorKind = iota
	actorRole
	actorUser
)

// Actor identifies the subject of an authorization check. It carries
// either a role reference (taken from trusted claims) or a user
// reference that still needs a directory lookup. Resolved once at the
// gate boundary.
type Actor struct {
	kind actorKind
	id   int64
}

// RoleRef builds an actor from an already-known role ID.
func RoleRef(roleID int64) Actor {
	return Actor{kind: actorRole, id: roleID}
}

// UserRef builds an actor from a user ID.
func UserRef(userID int64) Actor {
	return Actor{kind: actorUser, id: userID}
}

// Valid reports whether the actor references anything at all.
func (a Actor) Valid() bool {
	return a.kind != actorNone
}

func (a Actor) String() string {
	switch a.kind {
	case actorRole:
		return "role:" + strconv.FormatInt(a.id, 10)
	case actorUser:
		return "user:" + strconv.FormatInt(a.id, 10)
	default:
		return "anonymous"
	}
}

// InvalidPermissionSetError reports permission names rejected during
// role creation.
type InvalidPermissionSetError struct {
	Names []string
}

func (e *InvalidPermissionSetError) Error() string {
	return fmt.Sprintf("rbac: invalid permission set: %v", e.Names)
}
