package workflows

import (
	"github.com/consilium-ai/consilium/internal/activities"
	"github.com/consilium-ai/consilium/internal/ranking"
)

// Deliberation modes.
const (
	ModeCouncil = "council"
	ModeDxO     = "dxo"
)

// Council stage names, re-exported from the activity layer so both sides
// share one definition.
const (
	StageInitialResponses = activities.StageInitialResponses
	StagePeerReview       = activities.StagePeerReview
	StageSynthesis        = activities.StageSynthesis
)

// DeliberationInput starts a council deliberation.
type DeliberationInput struct {
	Question        string  `json:"question"`
	Members         int     `json:"members"`
	BaseTemperature float64 `json:"base_temperature"`
}

// MemberResponse is one surviving stage 1 response.
type MemberResponse struct {
	MemberID string                `json:"member_id"`
	Content  string                `json:"content"`
	Usage    activities.TokenUsage `json:"usage"`
}

// RankingRecord is one surviving stage 2 peer review.
type RankingRecord struct {
	MemberID      string                `json:"member_id"`
	RawText       string                `json:"raw_text"`
	ParsedRanking []string              `json:"parsed_ranking"`
	Usage         activities.TokenUsage `json:"usage"`
}

// SynthesisRecord is the stage 3 chairman output.
type SynthesisRecord struct {
	Content string                `json:"content"`
	Usage   activities.TokenUsage `json:"usage"`
}

// DeliberationMetadata carries the label mapping, aggregate rankings, and
// rolled-up cost for a council run.
type DeliberationMetadata struct {
	LabelToMember     map[string]string          `json:"label_to_member"`
	AggregateRankings []ranking.AggregateRanking `json:"aggregate_rankings"`
	TokensUsed        int                        `json:"tokens_used"`
	CostUSD           float64                    `json:"cost_usd"`
}

// DeliberationResult is the full council outcome.
type DeliberationResult struct {
	Question string               `json:"question"`
	Stage1   []MemberResponse     `json:"stage1"`
	Stage2   []RankingRecord      `json:"stage2"`
	Stage3   SynthesisRecord      `json:"stage3"`
	Metadata DeliberationMetadata `json:"metadata"`
}

// ResearchInput starts a DxO research chain.
type ResearchInput struct {
	Question string `json:"question"`
}

// StepRecord is one completed role step in the research chain.
type StepRecord struct {
	Role    string                `json:"role"`
	Step    string                `json:"step"`
	Content string                `json:"content"`
	Papers  string                `json:"papers,omitempty"`
	Usage   activities.TokenUsage `json:"usage"`
}

// ResearchMetadata summarizes a DxO run.
type ResearchMetadata struct {
	PapersFound int     `json:"papers_found"`
	TotalSteps  int     `json:"total_steps"`
	TokensUsed  int     `json:"tokens_used"`
	CostUSD     float64 `json:"cost_usd"`
}

// ResearchResult is the full DxO outcome. Workflow holds the four steps in
// execution order; the last step is the final report.
type ResearchResult struct {
	Question string           `json:"question"`
	Workflow []StepRecord     `json:"workflow"`
	Metadata ResearchMetadata `json:"metadata"`
}
