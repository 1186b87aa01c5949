package workflows

import (
	"fmt"
	"strings"

	"go.temporal.io/sdk/workflow"

	"github.com/consilium-ai/consilium/internal/activities"
	"github.com/consilium-ai/consilium/internal/prompts"
	"github.com/consilium-ai/consilium/internal/ranking"
	"github.com/consilium-ai/consilium/internal/streaming"
)

const (
	defaultCouncilMembers  = 3
	defaultBaseTemperature = 0.7
	memberMaxTokens        = 4096
	evaluatorMaxTokens     = 4096
	chairmanMaxTokens      = 2000
	evaluatorTemperature   = 0.5
	chairmanTemperature    = 0.6
)

// CouncilWorkflow runs the 3-stage council deliberation: parallel member
// responses, anonymized peer review with rank aggregation, and chairman
// synthesis.
func CouncilWorkflow(ctx workflow.Context, input DeliberationInput) (*DeliberationResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = withActivityOptions(ctx)

	members := input.Members
	if members <= 0 {
		members = defaultCouncilMembers
	}
	baseTemp := input.BaseTemperature
	if baseTemp <= 0 {
		baseTemp = defaultBaseTemperature
	}

	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID
	startedAt := workflow.Now(ctx)
	logger.Info("Starting council deliberation",
		"question", truncateForLog(input.Question),
		"members", members,
	)

	// Stage 1: parallel member responses. Each member gets a slightly higher
	// temperature so perspectives diverge. Failed members are dropped.
	publishEvent(ctx, activities.PublishEventInput{
		WorkflowID: workflowID,
		Type:       streaming.TypeStageStarted,
		Stage:      StageInitialResponses,
	})

	stage1Futures := make([]workflow.Future, members)
	for i := 0; i < members; i++ {
		stage1Futures[i] = workflow.ExecuteActivity(ctx, activities.InvokeModelActivity, activities.InvokeModelInput{
			AgentID:      fmt.Sprintf("Member %d", i+1),
			SystemPrompt: prompts.CouncilMemberSystem,
			UserMessage:  input.Question,
			MaxTokens:    memberMaxTokens,
			Temperature:  baseTemp + float64(i)*0.1,
			WorkflowID:   workflowID,
			Stage:        StageInitialResponses,
		})
	}

	var totalTokens int
	var totalCost float64

	stage1 := make([]MemberResponse, 0, members)
	for i, future := range stage1Futures {
		memberID := fmt.Sprintf("Member %d", i+1)
		var result activities.InvokeModelResult
		if err := future.Get(ctx, &result); err != nil {
			logger.Error("Council member failed", "member_id", memberID, "error", err)
			publishEvent(ctx, activities.PublishEventInput{
				WorkflowID: workflowID,
				Type:       streaming.TypeAgentFailed,
				Stage:      StageInitialResponses,
				AgentID:    memberID,
			})
			continue
		}
		stage1 = append(stage1, MemberResponse{
			MemberID: memberID,
			Content:  result.Content,
			Usage:    result.Usage,
		})
		totalTokens += result.Usage.InputTokens + result.Usage.OutputTokens
		totalCost += result.CostUSD
	}
	logger.Info("Stage 1 complete", "responses", len(stage1))

	if len(stage1) == 0 {
		publishEvent(ctx, activities.PublishEventInput{
			WorkflowID: workflowID,
			Type:       streaming.TypeFailed,
			Stage:      StageInitialResponses,
		})
		return nil, fmt.Errorf("no responses collected in stage 1")
	}
	publishEvent(ctx, activities.PublishEventInput{
		WorkflowID: workflowID,
		Type:       streaming.TypeStageCompleted,
		Stage:      StageInitialResponses,
	})

	// Stage 2: anonymized peer review. Each surviving member ranks the
	// anonymized response set; failed reviewers are dropped.
	publishEvent(ctx, activities.PublishEventInput{
		WorkflowID: workflowID,
		Type:       streaming.TypeStageStarted,
		Stage:      StagePeerReview,
	})

	rankingMembers := make([]ranking.Member, len(stage1))
	for i, r := range stage1 {
		rankingMembers[i] = ranking.Member{ID: r.MemberID, Content: r.Content}
	}
	anonymized, labelMap := ranking.Anonymize(rankingMembers)
	evaluatorMessage := prompts.EvaluatorUserMessage(input.Question, anonymized)

	stage2Futures := make([]workflow.Future, len(stage1))
	for i, r := range stage1 {
		stage2Futures[i] = workflow.ExecuteActivity(ctx, activities.InvokeModelActivity, activities.InvokeModelInput{
			AgentID:      r.MemberID,
			SystemPrompt: prompts.EvaluatorSystem,
			UserMessage:  evaluatorMessage,
			MaxTokens:    evaluatorMaxTokens,
			Temperature:  evaluatorTemperature,
			WorkflowID:   workflowID,
			Stage:        StagePeerReview,
		})
	}

	stage2 := make([]RankingRecord, 0, len(stage1))
	for i, future := range stage2Futures {
		memberID := stage1[i].MemberID
		var result activities.InvokeModelResult
		if err := future.Get(ctx, &result); err != nil {
			logger.Error("Peer review failed", "member_id", memberID, "error", err)
			publishEvent(ctx, activities.PublishEventInput{
				WorkflowID: workflowID,
				Type:       streaming.TypeAgentFailed,
				Stage:      StagePeerReview,
				AgentID:    memberID,
			})
			continue
		}
		stage2 = append(stage2, RankingRecord{
			MemberID:      memberID,
			RawText:       result.Content,
			ParsedRanking: ranking.ParseRanking(result.Content),
			Usage:         result.Usage,
		})
		totalTokens += result.Usage.InputTokens + result.Usage.OutputTokens
		totalCost += result.CostUSD
	}
	logger.Info("Stage 2 complete", "rankings", len(stage2))

	if len(stage2) == 0 {
		publishEvent(ctx, activities.PublishEventInput{
			WorkflowID: workflowID,
			Type:       streaming.TypeFailed,
			Stage:      StagePeerReview,
		})
		return nil, fmt.Errorf("no rankings collected in stage 2")
	}
	publishEvent(ctx, activities.PublishEventInput{
		WorkflowID: workflowID,
		Type:       streaming.TypeStageCompleted,
		Stage:      StagePeerReview,
	})

	parsed := make([][]string, len(stage2))
	for i, r := range stage2 {
		parsed[i] = r.ParsedRanking
	}
	aggregate := ranking.Aggregate(parsed, labelMap)

	// Stage 3: chairman synthesis over de-anonymized responses and the
	// aggregate ranking summary. A chairman failure fails the run.
	publishEvent(ctx, activities.PublishEventInput{
		WorkflowID: workflowID,
		Type:       streaming.TypeStageStarted,
		Stage:      StageSynthesis,
	})

	responseBlocks := make([]string, len(stage1))
	for i, r := range stage1 {
		responseBlocks[i] = fmt.Sprintf("%s: %s", r.MemberID, r.Content)
	}
	chairmanMessage := prompts.ChairmanUserMessage(
		input.Question,
		strings.Join(responseBlocks, "\n\n---\n\n"),
		ranking.Summary(aggregate),
	)

	var synthesis activities.InvokeModelResult
	err := workflow.ExecuteActivity(ctx, activities.InvokeModelActivity, activities.InvokeModelInput{
		AgentID:      "Chairman",
		SystemPrompt: prompts.ChairmanSystem,
		UserMessage:  chairmanMessage,
		MaxTokens:    chairmanMaxTokens,
		Temperature:  chairmanTemperature,
		WorkflowID:   workflowID,
		Stage:        StageSynthesis,
	}).Get(ctx, &synthesis)
	if err != nil {
		logger.Error("Chairman synthesis failed", "error", err)
		publishEvent(ctx, activities.PublishEventInput{
			WorkflowID: workflowID,
			Type:       streaming.TypeFailed,
			Stage:      StageSynthesis,
		})
		return nil, fmt.Errorf("chairman synthesis failed: %w", err)
	}
	totalTokens += synthesis.Usage.InputTokens + synthesis.Usage.OutputTokens
	totalCost += synthesis.CostUSD
	publishEvent(ctx, activities.PublishEventInput{
		WorkflowID: workflowID,
		Type:       streaming.TypeStageCompleted,
		Stage:      StageSynthesis,
	})
	logger.Info("Stage 3 complete")

	result := &DeliberationResult{
		Question: input.Question,
		Stage1:   stage1,
		Stage2:   stage2,
		Stage3: SynthesisRecord{
			Content: synthesis.Content,
			Usage:   synthesis.Usage,
		},
		Metadata: DeliberationMetadata{
			LabelToMember:     labelMap,
			AggregateRankings: aggregate,
			TokensUsed:        totalTokens,
			CostUSD:           totalCost,
		},
	}

	persistResult(ctx, activities.PersistDeliberationInput{
		WorkflowID:   workflowID,
		Mode:         ModeCouncil,
		Question:     input.Question,
		Answer:       synthesis.Content,
		Model:        synthesis.Model,
		InputTokens:  sumInputTokens(result),
		OutputTokens: sumOutputTokens(result),
		CostUSD:      totalCost,
		DurationMS:   workflow.Now(ctx).Sub(startedAt).Milliseconds(),
		Metadata: map[string]interface{}{
			"members":   members,
			"survivors": len(stage1),
		},
	})

	publishEvent(ctx, activities.PublishEventInput{
		WorkflowID: workflowID,
		Type:       streaming.TypeCompleted,
	})
	return result, nil
}

func sumInputTokens(r *DeliberationResult) int {
	total := r.Stage3.Usage.InputTokens
	for _, s := range r.Stage1 {
		total += s.Usage.InputTokens
	}
	for _, s := range r.Stage2 {
		total += s.Usage.InputTokens
	}
	return total
}

func sumOutputTokens(r *DeliberationResult) int {
	total := r.Stage3.Usage.OutputTokens
	for _, s := range r.Stage1 {
		total += s.Usage.OutputTokens
	}
	for _, s := range r.Stage2 {
		total += s.Usage.OutputTokens
	}
	return total
}

func truncateForLog(s string) string {
	if len(s) <= 100 {
		return s
	}
	return s[:100] + "..."
}
