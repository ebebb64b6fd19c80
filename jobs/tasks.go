package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRBACWarm re-resolves role permission sets so caches are hot
	// after deploys and after the nightly invalidation window.
	TaskRBACWarm = "rbac:warm"
)

// RBACWarmPayload scopes a warm run. An empty RoleIDs warms every role.
type RBACWarmPayload struct {
	RoleIDs []int64 `json:"role_ids,omitempty"`
}

// NewRBACWarmTask constructs an Asynq task.
func NewRBACWarmTask(payload RBACWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRBACWarm, data), nil
}
