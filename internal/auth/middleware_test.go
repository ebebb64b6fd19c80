package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/shared"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func testClaims(subject string) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "gamekeystore",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestHMACVerifier(t *testing.T) {
	verifier := NewHMACVerifier(testSecret, "gamekeystore")

	claims, err := verifier.Verify(context.Background(), signToken(t, testSecret, testClaims("42")))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
}

func TestHMACVerifierRejectsBadSignature(t *testing.T) {
	verifier := NewHMACVerifier(testSecret, "")

	_, err := verifier.Verify(context.Background(), signToken(t, "other-secret", testClaims("42")))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestHMACVerifierRejectsExpired(t *testing.T) {
	verifier := NewHMACVerifier(testSecret, "")
	claims := testClaims("42")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	_, err := verifier.Verify(context.Background(), signToken(t, testSecret, claims))
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestHMACVerifierRejectsWrongIssuer(t *testing.T) {
	verifier := NewHMACVerifier(testSecret, "gamekeystore")
	claims := testClaims("42")
	claims.Issuer = "someone-else"

	_, err := verifier.Verify(context.Background(), signToken(t, testSecret, claims))
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestClaimsIdentity(t *testing.T) {
	roleID := int64(7)
	claims := testClaims("42")
	claims.RoleID = &roleID

	identity, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
	require.NotNil(t, identity.RoleID)
	assert.Equal(t, int64(7), *identity.RoleID)
}

func TestClaimsIdentityRejectsNonNumericSubject(t *testing.T) {
	for _, subject := range []string{"", "alice", "-3", "0"} {
		claims := testClaims(subject)
		_, err := claims.Identity()
		assert.ErrorIs(t, err, shared.ErrInvalidToken, "subject %q", subject)
	}
}

func identityEcho(t *testing.T) (http.Handler, *[]*shared.Identity) {
	t.Helper()
	var seen []*shared.Identity
	verifier := NewHMACVerifier(testSecret, "")
	handler := Middleware(verifier, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, shared.IdentityFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))
	return handler, &seen
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	handler, seen := identityEcho(t)

	roleID := int64(7)
	claims := testClaims("42")
	claims.RoleID = &roleID

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, claims))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, *seen, 1)
	identity := (*seen)[0]
	require.NotNil(t, identity)
	assert.Equal(t, int64(42), identity.UserID)
	require.NotNil(t, identity.RoleID)
	assert.Equal(t, int64(7), *identity.RoleID)
}

func TestMiddlewarePassesUnauthenticatedThrough(t *testing.T) {
	handler, seen := identityEcho(t)

	for _, header := range []string{"", "Bearer " + signToken(t, "other-secret", testClaims("42")), "Basic Zm9v"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	require.Len(t, *seen, 3)
	for i, identity := range *seen {
		assert.Nil(t, identity, "request %d must stay unauthenticated", i)
	}
}

func TestRequireIdentity(t *testing.T) {
	handler := RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), &shared.Identity{Subject: "42", UserID: 42}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", bearerToken(req))

	req.Header.Set("Authorization", "Token abc")
	assert.Empty(t, bearerToken(req))
}
