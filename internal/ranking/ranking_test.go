package ranking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeIsPositionalBijection(t *testing.T) {
	members := []Member{
		{ID: "Member 1", Content: "first answer"},
		{ID: "Member 2", Content: "second answer"},
		{ID: "Member 3", Content: "third answer"},
	}

	block, labelMap := Anonymize(members)

	require.Len(t, labelMap, 3)
	assert.Equal(t, "Member 1", labelMap["Response A"])
	assert.Equal(t, "Member 2", labelMap["Response B"])
	assert.Equal(t, "Member 3", labelMap["Response C"])

	// Every label resolves to a distinct member.
	seen := map[string]bool{}
	for _, id := range labelMap {
		assert.False(t, seen[id], "member %s mapped twice", id)
		seen[id] = true
	}

	assert.Contains(t, block, "Response A:\nfirst answer")
	assert.Contains(t, block, "\n---\n")
}

func TestAnonymizeCapsAtEightLabels(t *testing.T) {
	var members []Member
	for i := 0; i < 10; i++ {
		members = append(members, Member{ID: fmt.Sprintf("Member %d", i+1), Content: "x"})
	}

	block, labelMap := Anonymize(members)

	assert.Len(t, labelMap, MaxLabels)
	assert.Contains(t, block, "Response H:")
	assert.NotContains(t, block, "Member 9")
	assert.NotContains(t, block, "Member 10")
}

func TestParseRankingFromFinalRankingSection(t *testing.T) {
	text := "Some evaluation prose.\n\nFINAL RANKING:\n1. Response C\n2. Response A\n3. Response A\n"
	assert.Equal(t, []string{"Response C", "Response A"}, ParseRanking(text))
}

func TestParseRankingWholeTextFallback(t *testing.T) {
	text := "I'd pick Response B first."
	assert.Equal(t, []string{"Response B"}, ParseRanking(text))
}

func TestParseRankingCaseInsensitive(t *testing.T) {
	text := "final ranking:\n1. response c\n2. RESPONSE a\n"
	assert.Equal(t, []string{"Response C", "Response A"}, ParseRanking(text))
}

func TestParseRankingIgnoresLettersOutsideLabelSet(t *testing.T) {
	text := "FINAL RANKING:\n1. Response Z\n2. Response A\n"
	assert.Equal(t, []string{"Response A"}, ParseRanking(text))
}

func TestParseRankingEmptyOnUnrecognizableText(t *testing.T) {
	assert.Empty(t, ParseRanking("no ranking here at all"))
	assert.Empty(t, ParseRanking(""))
}

func TestParseRankingSectionStopsAtBlankLine(t *testing.T) {
	text := "FINAL RANKING:\n1. Response B\n\nAs an aside, Response A was also fine."
	assert.Equal(t, []string{"Response B"}, ParseRanking(text))
}

func TestParseRankingIdempotent(t *testing.T) {
	first := ParseRanking("FINAL RANKING:\n1. Response C\n2. Response A\n3. Response B\n")
	second := ParseRanking(strings.Join(first, "\n"))
	assert.Equal(t, first, second)
}

func TestAggregateAveragesAndVoteCounts(t *testing.T) {
	labelMap := map[string]string{
		"Response A": "Member 1",
		"Response B": "Member 2",
	}
	parsed := [][]string{
		{"Response A", "Response B"},
		{"Response B", "Response A"},
	}

	agg := Aggregate(parsed, labelMap)

	require.Len(t, agg, 2)
	// Tie on 1.5 average; stable order keeps first-appearance (A before B).
	assert.Equal(t, "Response A", agg[0].ResponseLabel)
	assert.InDelta(t, 1.5, agg[0].AveragePosition, 1e-9)
	assert.Equal(t, 2, agg[0].VoteCount)
	assert.Equal(t, "Response B", agg[1].ResponseLabel)
	assert.InDelta(t, 1.5, agg[1].AveragePosition, 1e-9)
	assert.Equal(t, 2, agg[1].VoteCount)
}

func TestAggregateOmitsZeroVoteLabels(t *testing.T) {
	labelMap := map[string]string{
		"Response A": "Member 1",
		"Response B": "Member 2",
		"Response C": "Member 3",
	}
	parsed := [][]string{
		{"Response A"},
		{"Response A"},
	}

	agg := Aggregate(parsed, labelMap)

	require.Len(t, agg, 1)
	assert.Equal(t, "Response A", agg[0].ResponseLabel)
	assert.InDelta(t, 1.0, agg[0].AveragePosition, 1e-9)
}

func TestAggregateSortsAscendingByAverage(t *testing.T) {
	labelMap := map[string]string{
		"Response A": "Member 1",
		"Response B": "Member 2",
		"Response C": "Member 3",
	}
	// All three voters agree: C > A > B.
	parsed := [][]string{
		{"Response C", "Response A", "Response B"},
		{"Response C", "Response A", "Response B"},
		{"Response C", "Response A", "Response B"},
	}

	agg := Aggregate(parsed, labelMap)

	require.Len(t, agg, 3)
	assert.Equal(t, "Response C", agg[0].ResponseLabel)
	assert.InDelta(t, 1.0, agg[0].AveragePosition, 1e-9)
	assert.Equal(t, "Response A", agg[1].ResponseLabel)
	assert.InDelta(t, 2.0, agg[1].AveragePosition, 1e-9)
	assert.Equal(t, "Response B", agg[2].ResponseLabel)
	assert.InDelta(t, 3.0, agg[2].AveragePosition, 1e-9)
}

func TestAggregateResolvesUnknownLabels(t *testing.T) {
	agg := Aggregate([][]string{{"Response D"}}, map[string]string{})
	require.Len(t, agg, 1)
	assert.Equal(t, "Unknown", agg[0].MemberID)
}

func TestSummaryFormat(t *testing.T) {
	agg := []AggregateRanking{
		{ResponseLabel: "Response C", MemberID: "Member 3", AveragePosition: 1.0, VoteCount: 3},
		{ResponseLabel: "Response A", MemberID: "Member 1", AveragePosition: 2.0, VoteCount: 3},
	}

	summary := Summary(agg)

	assert.Equal(t, "1. Member 3 (avg rank: 1.00)\n2. Member 1 (avg rank: 2.00)", summary)
}
