package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/craftwise/craftwise-backend/internal/engine/vectorindex"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/temporalx"
	"github.com/craftwise/craftwise-backend/internal/temporalx/indexmaint"
)

// Runner hosts the index-maintenance worker and keeps the singleton
// maintenance workflow scheduled.
type Runner struct {
	log *logger.Logger

	tc       temporalsdkclient.Client
	problems *vectorindex.Index
	recipes  *vectorindex.Index
}

func NewRunner(
	log *logger.Logger,
	tc temporalsdkclient.Client,
	problems *vectorindex.Index,
	recipes *vectorindex.Index,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if problems == nil || recipes == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:      log,
		tc:       tc,
		problems: problems,
		recipes:  recipes,
	}, nil
}

func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := temporalx.LoadConfig()
	if r.log != nil {
		r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrencyFromEnv(),
		MaxConcurrentWorkflowTaskExecutionSize: concurrencyFromEnv(),
	})
	acts := &indexmaint.Activities{
		Log:      r.log,
		Problems: r.problems,
		Recipes:  r.recipes,
	}
	w.RegisterWorkflowWithOptions(indexmaint.Workflow, workflow.RegisterOptions{Name: indexmaint.WorkflowName})
	w.RegisterActivityWithOptions(acts.Refresh, activity.RegisterOptions{Name: indexmaint.ActivityRefresh})

	if err := w.Start(); err != nil {
		return err
	}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			w.Stop()
		}()
	}

	if err := r.ensureWorkflow(ctx, cfg); err != nil {
		if r.log != nil {
			r.log.Warn("index maintenance workflow not started", "error", err)
		}
	}
	return nil
}

// ensureWorkflow starts the singleton maintenance workflow; if it is
// already running the server rejects the duplicate and we move on.
func (r *Runner) ensureWorkflow(ctx context.Context, cfg temporalx.Config) error {
	baseCtx := ctx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	startCtx, cancel := context.WithTimeout(baseCtx, 10*time.Second)
	defer cancel()

	_, err := r.tc.ExecuteWorkflow(startCtx, temporalsdkclient.StartWorkflowOptions{
		ID:                    indexmaint.WorkflowID,
		TaskQueue:             cfg.TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, indexmaint.WorkflowName, maintenanceInterval())
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	if r.log != nil {
		r.log.Info("Index maintenance workflow running", "workflow_id", indexmaint.WorkflowID)
	}
	return nil
}

func maintenanceInterval() time.Duration {
	v := os.Getenv("INDEX_MAINTENANCE_INTERVAL_SECONDS")
	if v == "" {
		return 10 * time.Minute
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 10 * time.Minute
	}
	return time.Duration(n) * time.Second
}

func concurrencyFromEnv() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 4
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 4
	}
	return n
}
