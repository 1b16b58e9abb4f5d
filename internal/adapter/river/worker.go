package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// LifecycleWorker processes subscription lifecycle jobs from the River
// queue. For now it logs the event; future versions will dispatch customer
// notifications and billing webhooks.
type LifecycleWorker struct {
	river.WorkerDefaults[LifecycleJobArgs]
}

// Work processes a single lifecycle job.
func (w *LifecycleWorker) Work(ctx context.Context, job *river.Job[LifecycleJobArgs]) error {
	slog.InfoContext(ctx, "subscription lifecycle event",
		"event", job.Args.Event,
		"order_id", job.Args.OrderID,
		"tenant_id", job.Args.TenantID,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
