package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/shopstack-erp/shopstack/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecalcSweep triggers the nightly full recalculation sweep, the
	// consistency backstop for aggregates drifted by partial failures.
	TaskRecalcSweep = "inventory:recalc_sweep"
)

// RecalcSweepPayload carries scheduling metadata.
type RecalcSweepPayload struct {
	SweepID      string    `json:"sweep_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewRecalcSweepTask constructs an Asynq task for the recalculation sweep.
func NewRecalcSweepTask(at time.Time) (*asynq.Task, error) {
	payload := RecalcSweepPayload{SweepID: uuid.NewString(), ScheduledFor: at}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecalcSweep, body, asynq.Queue(QueueDefault)), nil
}

// NewRecalcSweepHandler processes TaskRecalcSweep tasks.
func NewRecalcSweepHandler(rc *inventory.Recalculator, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RecalcSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("recalculation sweep started", slog.String("sweep_id", payload.SweepID))
		return rc.SweepAll(ctx)
	}
}
