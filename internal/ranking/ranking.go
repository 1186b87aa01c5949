// Package ranking implements the shared deliberation primitives of the council
// protocol: positional anonymization of member responses, best-effort extraction
// of rankings from free-form reviewer text, and mean-position aggregation.
//
// Everything in this package is pure and deterministic. ParseRanking in
// particular is total: it never fails, it degrades through fallback tiers
// (FINAL RANKING section -> whole-text scan -> empty).
package ranking

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// MaxLabels caps how many responses can enter anonymized peer review.
// Responses beyond the cap are excluded from review but stay in stage-1 output.
const MaxLabels = 8

var labelLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// Member is one council member's stage-1 response as seen by the anonymizer.
type Member struct {
	ID      string
	Content string
}

// AggregateRanking is the consensus position of one anonymized response across
// all reviewers that mentioned it. Labels with zero votes are never present.
type AggregateRanking struct {
	ResponseLabel   string  `json:"response_label"`
	MemberID        string  `json:"member_id"`
	AveragePosition float64 `json:"average_position"`
	VoteCount       int     `json:"vote_count"`
}

// Anonymize relabels responses positionally as "Response A", "Response B", ...
// and returns the review block plus the label->member mapping. The mapping is
// built fresh per deliberation and must never be reused across runs.
func Anonymize(members []Member) (string, map[string]string) {
	labelMap := make(map[string]string)
	blocks := make([]string, 0, len(members))

	for i, m := range members {
		if i >= MaxLabels {
			break
		}
		label := fmt.Sprintf("Response %s", labelLetters[i])
		labelMap[label] = m.ID
		blocks = append(blocks, fmt.Sprintf("\n%s:\n%s\n", label, m.Content))
	}

	return strings.Join(blocks, "\n---\n"), labelMap
}

var (
	// Matches the FINAL RANKING section up to the first blank line or end of text.
	rankingSectionRe = regexp.MustCompile(`(?is)FINAL RANKING:?\s*\n(.*?)(?:\n\n|\z)`)
	// Matches "Response <letter>" tokens for the anonymized label set A-H.
	responseLabelRe = regexp.MustCompile(`(?i)Response\s+([A-H])`)
)

// ParseRanking extracts an ordered ranking from raw reviewer output.
//
// Tier 1: restrict to the FINAL RANKING section when present (case-insensitive).
// Tier 2: scan the entire text when the section is absent.
// Tier 3: no recognizable labels -> empty ranking (a parse anomaly, never fatal).
//
// Duplicate labels keep their first occurrence only. Re-applying ParseRanking to
// its own canonical output yields the same sequence.
func ParseRanking(text string) []string {
	scope := text
	if m := rankingSectionRe.FindStringSubmatch(text); m != nil {
		scope = m[1]
	}

	matches := responseLabelRe.FindAllStringSubmatch(scope, -1)
	seen := make(map[string]bool, len(matches))
	ranked := make([]string, 0, len(matches))
	for _, m := range matches {
		letter := strings.ToUpper(m[1])
		if seen[letter] {
			continue
		}
		seen[letter] = true
		ranked = append(ranked, "Response "+letter)
	}
	return ranked
}

// Aggregate computes the mean 1-based position of every label that appears in
// at least one parsed ranking. Labels nobody voted for are omitted entirely
// rather than carrying a sentinel average. The result is sorted ascending by
// average position; ties keep the order in which labels first appeared across
// the voter lists (voters in submission order).
func Aggregate(parsed [][]string, labelMap map[string]string) []AggregateRanking {
	positionSums := make(map[string]int)
	voteCounts := make(map[string]int)
	var firstSeen []string

	for _, voter := range parsed {
		for pos, label := range voter {
			if _, ok := positionSums[label]; !ok {
				firstSeen = append(firstSeen, label)
			}
			positionSums[label] += pos + 1
			voteCounts[label]++
		}
	}

	aggregate := make([]AggregateRanking, 0, len(firstSeen))
	for _, label := range firstSeen {
		memberID, ok := labelMap[label]
		if !ok {
			memberID = "Unknown"
		}
		aggregate = append(aggregate, AggregateRanking{
			ResponseLabel:   label,
			MemberID:        memberID,
			AveragePosition: float64(positionSums[label]) / float64(voteCounts[label]),
			VoteCount:       voteCounts[label],
		})
	}

	sort.SliceStable(aggregate, func(i, j int) bool {
		return aggregate[i].AveragePosition < aggregate[j].AveragePosition
	})

	return aggregate
}

// Summary renders aggregate rankings as the text block handed to the chairman,
// one "rank. member (avg rank: X.XX)" line per label.
func Summary(aggregate []AggregateRanking) string {
	lines := make([]string, 0, len(aggregate))
	for i, r := range aggregate {
		lines = append(lines, fmt.Sprintf("%d. %s (avg rank: %.2f)", i+1, r.MemberID, r.AveragePosition))
	}
	return strings.Join(lines, "\n")
}
