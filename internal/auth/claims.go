package auth

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/shared"
)

// Claims is the token payload this service reads. Tokens are issued and
// signed elsewhere; only the subject and the optional role claim matter
// here. A token carrying role_id lets authorization skip the user
// directory entirely.
type Claims struct {
	jwt.RegisteredClaims
	RoleID *int64 `json:"role_id,omitempty"`
}

// Identity converts verified claims into the request identity. The
// subject must be the numeric user id; anything else fails with
// shared.ErrInvalidToken.
func (c *Claims) Identity() (*shared.Identity, error) {
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, shared.ErrInvalidToken
	}
	return &shared.Identity{
		Subject: c.Subject,
		UserID:  userID,
		RoleID:  c.RoleID,
	}, nil
}
