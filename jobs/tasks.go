package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAlertDispatch delivers one persisted alert to its channels.
	TaskAlertDispatch = "alerts:dispatch"
	// TaskMovementPrune enforces the movement history retention bounds.
	TaskMovementPrune = "stock:prune_movements"
)

// AlertDispatchPayload identifies the alert to deliver.
type AlertDispatchPayload struct {
	OrgID   uuid.UUID `json:"org_id"`
	AlertID uuid.UUID `json:"alert_id"`
}

// NewAlertDispatchTask constructs an alert dispatch task.
func NewAlertDispatchTask(payload AlertDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertDispatch, data, asynq.Queue(QueueDefault)), nil
}

// MovementPrunePayload carries scheduling metadata.
type MovementPrunePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewMovementPruneTask constructs the nightly prune task.
func NewMovementPruneTask(at time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(MovementPrunePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMovementPrune, data, asynq.Queue(QueueDefault)), nil
}
