package activities

// Activity names used for registration and workflow-side references.
const (
	InvokeModelActivity         = "InvokeModel"
	SearchPapersActivity        = "SearchPapers"
	PersistDeliberationActivity = "PersistDeliberation"
	PublishEventActivity        = "PublishEvent"
)

// Council stage names carried in activity inputs, metrics labels, and
// progress events.
const (
	StageInitialResponses = "initial_responses"
	StagePeerReview       = "peer_review"
	StageSynthesis        = "synthesis"
)

// TokenUsage reports token consumption for one model invocation.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// InvokeModelInput is one model invocation request.
type InvokeModelInput struct {
	AgentID      string  `json:"agent_id"`
	SystemPrompt string  `json:"system_prompt"`
	UserMessage  string  `json:"user_message"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	WorkflowID   string  `json:"workflow_id"`
	Stage        string  `json:"stage"`
}

// InvokeModelResult is the completion for one invocation.
type InvokeModelResult struct {
	Content    string     `json:"content"`
	StopReason string     `json:"stop_reason"`
	Usage      TokenUsage `json:"usage"`
	Model      string     `json:"model"`
	CostUSD    float64    `json:"cost_usd"`
}

// SearchPapersInput is a paper search request.
type SearchPapersInput struct {
	Query string `json:"query"`
}

// SearchPapersResult carries the formatted paper block for role prompts.
type SearchPapersResult struct {
	PapersBlock string `json:"papers_block"`
	PapersFound int    `json:"papers_found"`
}

// PersistDeliberationInput records a completed deliberation.
type PersistDeliberationInput struct {
	WorkflowID   string                 `json:"workflow_id"`
	Mode         string                 `json:"mode"`
	Question     string                 `json:"question"`
	Answer       string                 `json:"answer"`
	Model        string                 `json:"model"`
	InputTokens  int                    `json:"input_tokens"`
	OutputTokens int                    `json:"output_tokens"`
	CostUSD      float64                `json:"cost_usd"`
	DurationMS   int64                  `json:"duration_ms"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// PublishEventInput emits a streaming progress event.
type PublishEventInput struct {
	WorkflowID string `json:"workflow_id"`
	Type       string `json:"type"`
	Stage      string `json:"stage,omitempty"`
	AgentID    string `json:"agent_id,omitempty"`
	Message    string `json:"message,omitempty"`
}
