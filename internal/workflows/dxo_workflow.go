package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/consilium-ai/consilium/internal/activities"
	"github.com/consilium-ai/consilium/internal/prompts"
	"github.com/consilium-ai/consilium/internal/streaming"
)

// noPapersSentinel replaces the papers block when the search comes back empty,
// so role prompts still read naturally.
const noPapersSentinel = "No relevant papers found on arXiv."

type researchStep struct {
	Role        string
	Step        string
	System      string
	MaxTokens   int
	Temperature float64
}

var researchSteps = []researchStep{
	{Role: "Lead Researcher", Step: "Initial Research", System: prompts.LeadResearcherSystem, MaxTokens: 2000, Temperature: 0.7},
	{Role: "Critical Reviewer", Step: "Critical Review", System: prompts.CriticalReviewerSystem, MaxTokens: 1500, Temperature: 0.6},
	{Role: "Domain Expert", Step: "Expert Validation", System: prompts.DomainExpertSystem, MaxTokens: 1500, Temperature: 0.6},
	{Role: "Lead Researcher", Step: "Final Synthesis", System: prompts.FinalSynthesisSystem, MaxTokens: 3000, Temperature: 0.6},
}

// DxOWorkflow runs the 4-step sequential research chain: initial research
// over retrieved papers, critical review, domain expert validation, and final
// synthesis. Every step consumes the prior steps' output verbatim, and any
// step failure fails the run.
func DxOWorkflow(ctx workflow.Context, input ResearchInput) (*ResearchResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = withActivityOptions(ctx)

	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID
	startedAt := workflow.Now(ctx)
	logger.Info("Starting research chain", "question", truncateForLog(input.Question))

	// Paper retrieval. Search failures degrade to the sentinel instead of
	// failing the run.
	var search activities.SearchPapersResult
	err := workflow.ExecuteActivity(ctx, activities.SearchPapersActivity, activities.SearchPapersInput{
		Query: input.Question,
	}).Get(ctx, &search)
	if err != nil {
		logger.Warn("Paper search failed, continuing without papers", "error", err)
		search = activities.SearchPapersResult{}
	}
	papersBlock := search.PapersBlock
	if search.PapersFound == 0 {
		papersBlock = noPapersSentinel
	}

	var totalTokens int
	var totalCost float64
	var model string
	steps := make([]StepRecord, 0, len(researchSteps))

	runStep := func(step researchStep, userMessage string) (*StepRecord, error) {
		publishEvent(ctx, activities.PublishEventInput{
			WorkflowID: workflowID,
			Type:       streaming.TypeAgentStarted,
			Stage:      step.Step,
			AgentID:    step.Role,
		})

		var result activities.InvokeModelResult
		err := workflow.ExecuteActivity(ctx, activities.InvokeModelActivity, activities.InvokeModelInput{
			AgentID:      step.Role,
			SystemPrompt: step.System,
			UserMessage:  userMessage,
			MaxTokens:    step.MaxTokens,
			Temperature:  step.Temperature,
			WorkflowID:   workflowID,
			Stage:        step.Step,
		}).Get(ctx, &result)
		if err != nil {
			logger.Error("Research step failed", "role", step.Role, "step", step.Step, "error", err)
			publishEvent(ctx, activities.PublishEventInput{
				WorkflowID: workflowID,
				Type:       streaming.TypeFailed,
				Stage:      step.Step,
				AgentID:    step.Role,
			})
			return nil, fmt.Errorf("%s (%s) failed: %w", step.Role, step.Step, err)
		}
		totalTokens += result.Usage.InputTokens + result.Usage.OutputTokens
		totalCost += result.CostUSD
		model = result.Model

		publishEvent(ctx, activities.PublishEventInput{
			WorkflowID: workflowID,
			Type:       streaming.TypeAgentCompleted,
			Stage:      step.Step,
			AgentID:    step.Role,
		})
		return &StepRecord{
			Role:    step.Role,
			Step:    step.Step,
			Content: result.Content,
			Usage:   result.Usage,
		}, nil
	}

	// Step 1: Lead Researcher over the retrieved papers.
	initial, err := runStep(researchSteps[0], prompts.LeadResearcherUserMessage(input.Question, papersBlock))
	if err != nil {
		return nil, err
	}
	initial.Papers = papersBlock
	steps = append(steps, *initial)

	// Step 2: Critical Reviewer challenges the initial findings.
	critique, err := runStep(researchSteps[1], prompts.CriticalReviewerUserMessage(input.Question, initial.Content, papersBlock))
	if err != nil {
		return nil, err
	}
	steps = append(steps, *critique)

	// Step 3: Domain Expert validates findings and answers the critique.
	expert, err := runStep(researchSteps[2], prompts.DomainExpertUserMessage(input.Question, initial.Content, critique.Content, papersBlock))
	if err != nil {
		return nil, err
	}
	steps = append(steps, *expert)

	// Step 4: Lead Researcher synthesizes the final report.
	final, err := runStep(researchSteps[3], prompts.FinalSynthesisUserMessage(input.Question, initial.Content, critique.Content, expert.Content, papersBlock))
	if err != nil {
		return nil, err
	}
	steps = append(steps, *final)

	logger.Info("Research chain complete", "papers_found", search.PapersFound)

	result := &ResearchResult{
		Question: input.Question,
		Workflow: steps,
		Metadata: ResearchMetadata{
			PapersFound: search.PapersFound,
			TotalSteps:  len(steps),
			TokensUsed:  totalTokens,
			CostUSD:     totalCost,
		},
	}

	var inputTokens, outputTokens int
	for _, s := range steps {
		inputTokens += s.Usage.InputTokens
		outputTokens += s.Usage.OutputTokens
	}
	persistResult(ctx, activities.PersistDeliberationInput{
		WorkflowID:   workflowID,
		Mode:         ModeDxO,
		Question:     input.Question,
		Answer:       final.Content,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      totalCost,
		DurationMS:   workflow.Now(ctx).Sub(startedAt).Milliseconds(),
		Metadata: map[string]interface{}{
			"papers_found": search.PapersFound,
			"total_steps":  len(steps),
		},
	})

	publishEvent(ctx, activities.PublishEventInput{
		WorkflowID: workflowID,
		Type:       streaming.TypeCompleted,
	})
	return result, nil
}
