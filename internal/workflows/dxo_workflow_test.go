package workflows

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/consilium-ai/consilium/internal/activities"
)

type dxoStubEnv struct {
	env *testsuite.TestWorkflowEnvironment

	mu        sync.Mutex
	messages  map[string]string
	persisted []activities.PersistDeliberationInput
}

func newDxOStubEnv(t *testing.T, search *activities.SearchPapersResult, invoke func(input activities.InvokeModelInput) (*activities.InvokeModelResult, error)) *dxoStubEnv {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	s := &dxoStubEnv{
		env:      ts.NewTestWorkflowEnvironment(),
		messages: make(map[string]string),
	}

	s.env.RegisterActivityWithOptions(func(ctx context.Context, input activities.SearchPapersInput) (*activities.SearchPapersResult, error) {
		return search, nil
	}, activity.RegisterOptions{Name: activities.SearchPapersActivity})
	s.env.RegisterActivityWithOptions(func(ctx context.Context, input activities.InvokeModelInput) (*activities.InvokeModelResult, error) {
		s.mu.Lock()
		s.messages[input.Stage] = input.UserMessage
		s.mu.Unlock()
		return invoke(input)
	}, activity.RegisterOptions{Name: activities.InvokeModelActivity})
	s.env.RegisterActivityWithOptions(func(ctx context.Context, input activities.PersistDeliberationInput) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.persisted = append(s.persisted, input)
		return nil
	}, activity.RegisterOptions{Name: activities.PersistDeliberationActivity})
	s.env.RegisterActivityWithOptions(func(ctx context.Context, input activities.PublishEventInput) error {
		return nil
	}, activity.RegisterOptions{Name: activities.PublishEventActivity})

	return s
}

func TestDxOWorkflowRunsFourSteps(t *testing.T) {
	papers := "Paper 1:\nTitle: Quantum Error Correction\nAbstract: Surface codes."
	s := newDxOStubEnv(t,
		&activities.SearchPapersResult{PapersBlock: papers, PapersFound: 1},
		func(input activities.InvokeModelInput) (*activities.InvokeModelResult, error) {
			return invocation("output of "+input.Stage, 100, 200), nil
		},
	)

	s.env.ExecuteWorkflow(DxOWorkflow, ResearchInput{Question: "What are the latest advances in quantum error correction?"})
	require.True(t, s.env.IsWorkflowCompleted())
	require.NoError(t, s.env.GetWorkflowError())

	var result ResearchResult
	require.NoError(t, s.env.GetWorkflowResult(&result))

	require.Len(t, result.Workflow, 4)
	assert.Equal(t, "Lead Researcher", result.Workflow[0].Role)
	assert.Equal(t, "Initial Research", result.Workflow[0].Step)
	assert.Equal(t, papers, result.Workflow[0].Papers)
	assert.Equal(t, "Critical Reviewer", result.Workflow[1].Role)
	assert.Equal(t, "Critical Review", result.Workflow[1].Step)
	assert.Equal(t, "Domain Expert", result.Workflow[2].Role)
	assert.Equal(t, "Expert Validation", result.Workflow[2].Step)
	assert.Equal(t, "Lead Researcher", result.Workflow[3].Role)
	assert.Equal(t, "Final Synthesis", result.Workflow[3].Step)

	assert.Equal(t, 1, result.Metadata.PapersFound)
	assert.Equal(t, 4, result.Metadata.TotalSteps)
	assert.Equal(t, 4*(100+200), result.Metadata.TokensUsed)

	// Each step consumed the prior steps' output.
	assert.Contains(t, s.messages["Initial Research"], papers)
	assert.Contains(t, s.messages["Critical Review"], "output of Initial Research")
	assert.Contains(t, s.messages["Expert Validation"], "output of Initial Research")
	assert.Contains(t, s.messages["Expert Validation"], "output of Critical Review")
	assert.Contains(t, s.messages["Final Synthesis"], "output of Initial Research")
	assert.Contains(t, s.messages["Final Synthesis"], "output of Critical Review")
	assert.Contains(t, s.messages["Final Synthesis"], "output of Expert Validation")
	assert.Contains(t, s.messages["Final Synthesis"], papers)

	// Final report is the persisted answer.
	require.Len(t, s.persisted, 1)
	assert.Equal(t, ModeDxO, s.persisted[0].Mode)
	assert.Equal(t, "output of Final Synthesis", s.persisted[0].Answer)
}

func TestDxOWorkflowEmptySearchUsesSentinel(t *testing.T) {
	s := newDxOStubEnv(t,
		&activities.SearchPapersResult{PapersBlock: "No papers found.", PapersFound: 0},
		func(input activities.InvokeModelInput) (*activities.InvokeModelResult, error) {
			return invocation("output of "+input.Stage, 1, 1), nil
		},
	)

	s.env.ExecuteWorkflow(DxOWorkflow, ResearchInput{Question: "q"})
	require.True(t, s.env.IsWorkflowCompleted())
	require.NoError(t, s.env.GetWorkflowError())

	var result ResearchResult
	require.NoError(t, s.env.GetWorkflowResult(&result))

	assert.Equal(t, 0, result.Metadata.PapersFound)
	assert.Equal(t, noPapersSentinel, result.Workflow[0].Papers)
	assert.Contains(t, s.messages["Initial Research"], noPapersSentinel)
	assert.Contains(t, s.messages["Final Synthesis"], noPapersSentinel)
}

func TestDxOWorkflowFailsOnStepError(t *testing.T) {
	s := newDxOStubEnv(t,
		&activities.SearchPapersResult{PapersBlock: "No papers found.", PapersFound: 0},
		func(input activities.InvokeModelInput) (*activities.InvokeModelResult, error) {
			if input.Stage == "Critical Review" {
				return nil, fmt.Errorf("gateway down")
			}
			return invocation("ok", 1, 1), nil
		},
	)

	s.env.ExecuteWorkflow(DxOWorkflow, ResearchInput{Question: "q"})
	require.True(t, s.env.IsWorkflowCompleted())

	err := s.env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Critical Reviewer (Critical Review) failed")
}
