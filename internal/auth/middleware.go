package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/shared"
)

// Middleware extracts and verifies the bearer token, attaching the
// resulting identity to the request context. Requests without a token,
// or with one that fails verification, proceed unauthenticated; the
// authorization gate denies them downstream. That keeps public routes
// working through the same chain.
func Middleware(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if logger != nil {
					logger.Warn("token rejected", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			identity, err := claims.Identity()
			if err != nil {
				if logger != nil {
					logger.Warn("token subject unusable", slog.String("subject", claims.Subject))
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity rejects unauthenticated requests with 401. Used on
// routes where a missing identity should read as "log in" rather than
// the gate's blanket 403.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.IdentityFromContext(r.Context()) == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
