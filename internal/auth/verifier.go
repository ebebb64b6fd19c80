package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/shared"
)

// Verifier checks a bearer token and returns its claims. The token
// issuer lives outside this service; swapping in a remote or JWKS-based
// verifier only requires satisfying this interface.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// HMACVerifier validates HS256 tokens against a shared secret.
type HMACVerifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewHMACVerifier constructs a verifier. issuer is optional; when set,
// tokens from other issuers are rejected.
func NewHMACVerifier(secret, issuer string) *HMACVerifier {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &HMACVerifier{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(opts...),
	}
}

// Verify parses and validates the token.
func (v *HMACVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidToken, err)
	}
	return claims, nil
}

var _ Verifier = (*HMACVerifier)(nil)
