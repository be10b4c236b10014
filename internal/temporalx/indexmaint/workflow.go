package indexmaint

import (
	"time"

	"go.temporal.io/sdk/workflow"
)

// Workflow refreshes search centroids on a fixed cadence. It runs as a
// long-lived singleton and rolls over via continue-as-new before the
// history grows unbounded.
func Workflow(ctx workflow.Context, interval time.Duration) error {
	const (
		continueTickLimit    = 500
		continueHistoryLimit = 10000
	)
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
	})

	for tick := 1; ; tick++ {
		var out RefreshResult
		if err := workflow.ExecuteActivity(ctx, ActivityRefresh).Get(ctx, &out); err != nil {
			// A failed pass only means stale centroids; searches still work.
			workflow.GetLogger(ctx).Warn("centroid refresh failed", "error", err)
		}
		if err := workflow.Sleep(ctx, interval); err != nil {
			return err
		}
		if shouldContinueAsNew(ctx, tick, continueTickLimit, continueHistoryLimit) {
			return workflow.NewContinueAsNewError(ctx, Workflow, interval)
		}
	}
}

func shouldContinueAsNew(ctx workflow.Context, ticks, maxTicks, maxHistory int) bool {
	if maxTicks > 0 && ticks >= maxTicks {
		return true
	}
	info := workflow.GetInfo(ctx)
	if info == nil || maxHistory <= 0 {
		return false
	}
	return info.GetCurrentHistoryLength() >= maxHistory
}
