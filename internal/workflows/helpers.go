package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/consilium-ai/consilium/internal/activities"
)

// withActivityOptions applies the standard deliberation activity options.
// Retries stay disabled: a failed model call is dropped (parallel stages) or
// fails the run (sequential steps), never silently retried.
func withActivityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
}

// publishEvent emits a streaming progress event. Event delivery is
// best-effort and never affects the deliberation outcome.
func publishEvent(ctx workflow.Context, input activities.PublishEventInput) {
	if input.WorkflowID == "" {
		input.WorkflowID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	err := workflow.ExecuteActivity(ctx, activities.PublishEventActivity, input).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("Failed to publish event", "type", input.Type, "error", err)
	}
}

// persistResult records the finished deliberation. Persistence failures are
// logged and never fail the run. The disconnected context keeps the write
// alive through workflow cancellation.
func persistResult(ctx workflow.Context, input activities.PersistDeliberationInput) {
	detached, _ := workflow.NewDisconnectedContext(ctx)
	detached = workflow.WithActivityOptions(detached, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	err := workflow.ExecuteActivity(detached, activities.PersistDeliberationActivity, input).Get(detached, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("Failed to persist deliberation", "error", err)
	}
}
