package rbac

import (
	"context"
	"net/http"

	"log/slog"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/shared"
)

// DecisionRecorder observes authorization outcomes for metrics.
type DecisionRecorder interface {
	RecordAuthzDecision(outcome string)
}

// Authorization outcomes reported to the DecisionRecorder.
const (
	DecisionAllowed      = "allowed"
	DecisionDenied       = "denied"
	DecisionUnidentified = "unidentified"
)

// Gate wires capability checks for HTTP handlers. It talks to the
// resolver and nothing else; every failure mode, including an absent or
// unreadable identity, collapses to 403.
type Gate struct {
	Resolver *Resolver
	Logger   *slog.Logger
	Metrics  DecisionRecorder
}

// Require ensures the current actor holds (resource, action) before the
// wrapped handler runs.
func (g Gate) Require(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := g.currentActor(r)
			if !ok {
				g.record(DecisionUnidentified)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if !g.Resolver.ActorHasPermission(r.Context(), actor, resource, action) {
				if g.Logger != nil {
					g.Logger.Info("authorization denied",
						slog.String("actor", actor.String()),
						slog.String("resource", resource),
						slog.String("action", action))
				}
				g.record(DecisionDenied)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			g.record(DecisionAllowed)
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize is the predicate form of Require, for callers outside the
// middleware chain. Never returns an error; denial and infrastructure
// faults are indistinguishable to the caller.
func (g Gate) Authorize(ctx context.Context, actor Actor, resource, action string) bool {
	if !actor.Valid() {
		return false
	}
	return g.Resolver.ActorHasPermission(ctx, actor, resource, action)
}

func (g Gate) currentActor(r *http.Request) (Actor, bool) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		return Actor{}, false
	}
	// Prefer the role claim: it avoids a directory lookup entirely and
	// must agree with the user path for the same role.
	if id.RoleID != nil {
		return RoleRef(*id.RoleID), true
	}
	if id.UserID != 0 {
		return UserRef(id.UserID), true
	}
	return Actor{}, false
}

func (g Gate) record(outcome string) {
	if g.Metrics != nil {
		g.Metrics.RecordAuthzDecision(outcome)
	}
}
