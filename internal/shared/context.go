package shared

import "context"

// Identity describes the authenticated actor as carried by a verified
// token: a mandatory subject (the user ID) and an optional role claim.
// It is attached once by the auth middleware and only read afterwards.
type Identity struct {
	Subject string
	UserID  int64
	RoleID  *int64
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context; nil when the
// request was unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// Pagination carries list windowing parameters parsed from a request.
type Pagination struct {
	Limit  int
	Offset int
}

// Clamp normalizes the window to sane bounds.
func (p Pagination) Clamp(maxLimit int) Pagination {
	if p.Limit <= 0 || p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
