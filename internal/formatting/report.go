// Package formatting renders deliberation results as markdown for the
// single-text invocation surface.
package formatting

import (
	"fmt"
	"strings"

	"github.com/consilium-ai/consilium/internal/workflows"
)

// CouncilReport flattens a council deliberation into a markdown document.
func CouncilReport(result *workflows.DeliberationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# LLM Council Deliberation Results\n\n## Question\n%s\n\n## Stage 1: Independent Responses\n", result.Question)
	for _, response := range result.Stage1 {
		fmt.Fprintf(&b, "\n### %s\n%s\n", response.MemberID, response.Content)
	}

	b.WriteString("\n## Stage 2: Peer Review & Rankings\n\n### Aggregate Rankings\n")
	for _, rank := range result.Metadata.AggregateRankings {
		fmt.Fprintf(&b, "- %s (avg rank: %.2f, votes: %d)\n", rank.MemberID, rank.AveragePosition, rank.VoteCount)
	}

	fmt.Fprintf(&b, "\n## Stage 3: Chairman Synthesis\n\n%s\n", result.Stage3.Content)
	return b.String()
}

// ResearchReport flattens a DxO research chain into a markdown document.
func ResearchReport(result *workflows.ResearchResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# DxO Decision Framework Results\n\n## Question\n%s\n\n## Sequential Research Workflow\n", result.Question)
	for _, step := range result.Workflow {
		fmt.Fprintf(&b, "\n### %s: %s\n\n%s\n", step.Role, step.Step, step.Content)
	}
	return b.String()
}
