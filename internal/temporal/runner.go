package temporal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/workflows"
)

// Dial connects to the Temporal cluster.
func Dial(hostPort, namespace string, logger *zap.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
		Logger:    NewZapAdapter(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}
	return c, nil
}

// Runner executes deliberation workflows and waits for their results.
type Runner struct {
	client    client.Client
	taskQueue string
}

// NewRunner builds a Runner on an established Temporal client.
func NewRunner(c client.Client, taskQueue string) *Runner {
	return &Runner{client: c, taskQueue: taskQueue}
}

// RunCouncil starts a council deliberation and blocks until it finishes.
func (r *Runner) RunCouncil(ctx context.Context, input workflows.DeliberationInput) (*workflows.DeliberationResult, error) {
	run, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "council-" + uuid.New().String(),
		TaskQueue: r.taskQueue,
	}, workflows.CouncilWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("start council workflow: %w", err)
	}

	var result workflows.DeliberationResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunDxO starts a research chain and blocks until it finishes.
func (r *Runner) RunDxO(ctx context.Context, input workflows.ResearchInput) (*workflows.ResearchResult, error) {
	run, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "dxo-" + uuid.New().String(),
		TaskQueue: r.taskQueue,
	}, workflows.DxOWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("start dxo workflow: %w", err)
	}

	var result workflows.ResearchResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
