package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockflow-io/stockflow/internal/alerts"
	"github.com/stockflow-io/stockflow/internal/stock"
)

// NewAlertDispatchHandler returns the handler for TaskAlertDispatch. Delivery
// is a structured log line for now; push and email channels hang off here.
func NewAlertDispatchHandler(service *alerts.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AlertDispatchPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		alert, err := service.Get(ctx, payload.OrgID, payload.AlertID)
		if err != nil {
			// Dismissed-and-purged alerts are not worth retrying.
			logger.Warn("alert dispatch: load failed",
				slog.String("alert_id", payload.AlertID.String()), slog.Any("error", err))
			return asynq.SkipRetry
		}
		logger.Info("alert dispatched",
			slog.String("alert_id", alert.ID.String()),
			slog.String("org_id", alert.OrgID.String()),
			slog.String("type", alert.Type),
			slog.String("severity", string(alert.Severity)),
			slog.String("title", alert.Title))
		return nil
	}
}

// NewMovementPruneHandler returns the handler for TaskMovementPrune.
func NewMovementPruneHandler(service *stock.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MovementPrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		pruned, err := service.PruneMovements(ctx)
		if err != nil {
			return err
		}
		logger.Info("movement prune run",
			slog.Time("scheduled_for", payload.ScheduledFor),
			slog.Int64("pruned", pruned))
		return nil
	}
}

// NewMovementPruneCron builds the nightly cron registration.
func NewMovementPruneCron() (CronRegistration, error) {
	task, err := NewMovementPruneTask(time.Now().UTC())
	if err != nil {
		return CronRegistration{}, err
	}
	return CronRegistration{Spec: "0 3 * * *", Task: task}, nil
}
