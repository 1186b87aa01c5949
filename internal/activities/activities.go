// Package activities implements the Temporal activities behind the
// deliberation workflows: model invocation, paper search, durable persistence,
// and streaming progress events.
package activities

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/arxiv"
	"github.com/consilium-ai/consilium/internal/db"
	"github.com/consilium-ai/consilium/internal/llm"
	"github.com/consilium-ai/consilium/internal/metrics"
	"github.com/consilium-ai/consilium/internal/pricing"
	"github.com/consilium-ai/consilium/internal/streaming"
	"github.com/consilium-ai/consilium/internal/tracing"
)

// Activities holds the shared dependencies for all activity implementations.
// The db client is optional; persistence degrades to a no-op without it.
type Activities struct {
	llm    *llm.Client
	arxiv  *arxiv.Client
	db     *db.Client
	logger *zap.Logger
}

// New builds the activity set.
func New(llmClient *llm.Client, arxivClient *arxiv.Client, dbClient *db.Client, logger *zap.Logger) *Activities {
	return &Activities{
		llm:    llmClient,
		arxiv:  arxivClient,
		db:     dbClient,
		logger: logger,
	}
}

// InvokeModel performs one model invocation and records token and cost
// metrics.
func (a *Activities) InvokeModel(ctx context.Context, input InvokeModelInput) (*InvokeModelResult, error) {
	ctx, span := tracing.StartSpan(ctx, "InvokeModel")
	defer span.End()

	start := time.Now()
	completion, err := a.llm.Invoke(ctx, input.SystemPrompt, input.UserMessage, input.MaxTokens, input.Temperature)
	elapsed := time.Since(start)
	metrics.ModelInvocationDuration.Observe(float64(elapsed.Milliseconds()))

	if err != nil {
		metrics.ModelInvocations.WithLabelValues("error").Inc()
		if input.Stage == StageInitialResponses || input.Stage == StagePeerReview {
			metrics.CouncilMemberFailures.WithLabelValues(input.Stage).Inc()
		}
		a.logger.Warn("Model invocation failed",
			zap.String("agent_id", input.AgentID),
			zap.String("stage", input.Stage),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.ModelInvocations.WithLabelValues("success").Inc()

	model := a.llm.ModelID()
	cost := pricing.CostUSD(model, completion.Usage.InputTokens, completion.Usage.OutputTokens)
	metrics.TokensUsed.Observe(float64(completion.Usage.InputTokens + completion.Usage.OutputTokens))
	metrics.CostUSD.Observe(cost)

	a.logger.Debug("Model invocation completed",
		zap.String("agent_id", input.AgentID),
		zap.String("stage", input.Stage),
		zap.Int("input_tokens", completion.Usage.InputTokens),
		zap.Int("output_tokens", completion.Usage.OutputTokens),
		zap.Duration("elapsed", elapsed),
	)

	return &InvokeModelResult{
		Content:    completion.Content,
		StopReason: completion.StopReason,
		Usage: TokenUsage{
			InputTokens:  completion.Usage.InputTokens,
			OutputTokens: completion.Usage.OutputTokens,
		},
		Model:   model,
		CostUSD: cost,
	}, nil
}

// SearchPapers queries arXiv and returns the formatted paper block. Search
// problems surface as an empty result, never as an activity failure.
func (a *Activities) SearchPapers(ctx context.Context, input SearchPapersInput) (*SearchPapersResult, error) {
	ctx, span := tracing.StartSpan(ctx, "SearchPapers")
	defer span.End()

	papers := a.arxiv.Search(ctx, input.Query)
	if len(papers) == 0 {
		metrics.PaperSearches.WithLabelValues("empty").Inc()
	} else {
		metrics.PaperSearches.WithLabelValues("success").Inc()
	}
	metrics.PapersFound.Observe(float64(len(papers)))

	a.logger.Info("Paper search completed",
		zap.String("query", input.Query),
		zap.Int("papers_found", len(papers)),
	)

	return &SearchPapersResult{
		PapersBlock: arxiv.Format(papers),
		PapersFound: len(papers),
	}, nil
}

// PersistDeliberation writes the completed deliberation to Postgres. Without
// a configured database it logs and succeeds; persistence never fails a
// deliberation.
func (a *Activities) PersistDeliberation(ctx context.Context, input PersistDeliberationInput) error {
	if a.db == nil {
		a.logger.Debug("Persistence disabled, skipping deliberation record",
			zap.String("workflow_id", input.WorkflowID),
		)
		return nil
	}

	err := a.db.RecordDeliberation(ctx, db.DeliberationRecord{
		WorkflowID:   input.WorkflowID,
		Mode:         input.Mode,
		Question:     input.Question,
		Answer:       input.Answer,
		Model:        input.Model,
		InputTokens:  input.InputTokens,
		OutputTokens: input.OutputTokens,
		CostUSD:      input.CostUSD,
		DurationMS:   input.DurationMS,
		Metadata:     input.Metadata,
	})
	if err != nil {
		a.logger.Warn("Failed to persist deliberation",
			zap.String("workflow_id", input.WorkflowID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// PublishEvent pushes a progress event to streaming subscribers.
func (a *Activities) PublishEvent(ctx context.Context, input PublishEventInput) error {
	streaming.Get().Publish(input.WorkflowID, streaming.Event{
		WorkflowID: input.WorkflowID,
		Type:       input.Type,
		Stage:      input.Stage,
		AgentID:    input.AgentID,
		Message:    input.Message,
		Timestamp:  time.Now().UTC(),
	})
	return nil
}
