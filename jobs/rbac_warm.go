package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/FreezerDie/GameKeyStoreBackEnd/internal/jobs"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/rbac"
)

// RoleIDSource lists role ids to warm. Implemented by the roles
// repository.
type RoleIDSource interface {
	ListRoleIDs(ctx context.Context) ([]int64, error)
}

// RBACWarmJob re-resolves permission sets for roles so the first
// request after a deploy does not pay the grant-store round trip.
type RBACWarmJob struct {
	roles    RoleIDSource
	resolver *rbac.Resolver
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewRBACWarmJob constructs the job. metrics may be nil.
func NewRBACWarmJob(roles RoleIDSource, resolver *rbac.Resolver, logger *slog.Logger, metrics *jobmetrics.Metrics) *RBACWarmJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RBACWarmJob{roles: roles, resolver: resolver, logger: logger, metrics: metrics}
}

// Handle processes TaskRBACWarm tasks.
func (j *RBACWarmJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("rbac_warm")
	return tracker.End(j.handle(ctx, t))
}

func (j *RBACWarmJob) handle(ctx context.Context, t *asynq.Task) error {
	var payload RBACWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ids := payload.RoleIDs
	if len(ids) == 0 {
		var err error
		ids, err = j.roles.ListRoleIDs(ctx)
		if err != nil {
			return err
		}
	}
	warmed := 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		// Drop the entry first so the warm run observes current grants
		// instead of refreshing a stale set.
		if err := j.resolver.InvalidateRole(ctx, id); err != nil {
			j.logger.Warn("warm: invalidate role", slog.Int64("role_id", id), slog.Any("error", err))
			continue
		}
		j.resolver.RolePermissions(ctx, id)
		warmed++
	}
	j.logger.Info("rbac cache warmed", slog.Int("roles", warmed))
	return nil
}
