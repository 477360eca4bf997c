package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-match-go/internal/types"
)

func reqMatch(text string, mustHave bool, weight int, sim float64, score int) types.RequirementMatch {
	return types.RequirementMatch{
		Requirement: types.Requirement{Text: text, MustHave: mustHave, Weight: weight},
		Similarity:  sim,
		Score10:     score,
	}
}

func TestAggregateWeightedComposite(t *testing.T) {
	matches := []types.RequirementMatch{
		reqMatch("a", true, 2, 0.8, 8),
		reqMatch("b", true, 2, 0.95, 10),
		reqMatch("c", false, 1, 0.4, 4),
	}

	result := Aggregate(matches, DefaultAggregatePolicy())

	// (8*2 + 10*2 + 4*1) / 5 = 8.0
	assert.Equal(t, 8.0, result.CompositeScore10)
	assert.Len(t, result.Breakdown, 3)
}

func TestAggregateRoundsToOneDecimal(t *testing.T) {
	matches := []types.RequirementMatch{
		reqMatch("a", false, 1, 0.7, 7),
		reqMatch("b", false, 2, 0.6, 6),
	}

	result := Aggregate(matches, DefaultAggregatePolicy())

	// (7 + 12) / 3 = 6.333... -> 6.3
	assert.Equal(t, 6.3, result.CompositeScore10)
}

func TestAggregateClampsWeights(t *testing.T) {
	matches := []types.RequirementMatch{
		reqMatch("a", false, 9, 0.8, 8), // treated as weight 3
		reqMatch("b", false, 0, 0.4, 4), // treated as weight 1
	}

	result := Aggregate(matches, DefaultAggregatePolicy())

	// (8*3 + 4*1) / 4 = 7.0
	assert.Equal(t, 7.0, result.CompositeScore10)
}

func TestAggregateGapLists(t *testing.T) {
	matches := []types.RequirementMatch{
		reqMatch("kubernetes", true, 3, 0.2, 0),  // must-have below 0.35 -> missing; sim 0.2, score 0 -> improve
		reqMatch("go", true, 3, 0.9, 9),          // strong, no gap
		reqMatch("graphql", false, 1, 0.5, 5),    // weak but present -> improve
		reqMatch("cobol", false, 1, 0.05, 1),     // below improve band, ignored
	}

	result := Aggregate(matches, DefaultAggregatePolicy())

	assert.Equal(t, []string{"kubernetes"}, result.Gaps.MustHaveMissing)
	assert.Equal(t, []string{"kubernetes", "graphql"}, result.Gaps.Improve)
}

func TestAggregateScoreBounds(t *testing.T) {
	matches := []types.RequirementMatch{
		reqMatch("a", true, 3, 1.0, 10),
		reqMatch("b", false, 1, 0.0, 0),
	}

	result := Aggregate(matches, DefaultAggregatePolicy())

	assert.GreaterOrEqual(t, result.CompositeScore10, 0.0)
	assert.LessOrEqual(t, result.CompositeScore10, 10.0)
}

func TestAnalyzeCandidateNoRequirements(t *testing.T) {
	chunks := []*types.Chunk{{ChunkID: 0, Embedding: []float64{1, 0}}}

	_, err := AnalyzeCandidate(nil, chunks, DefaultMatchPolicy(), DefaultAggregatePolicy())

	assert.ErrorIs(t, err, ErrNoRequirements)
}

func TestAnalyzeCandidateNoEmbeddedChunks(t *testing.T) {
	reqs := []types.Requirement{{Text: "go", Weight: 1, Vector: []float64{1, 0}}}
	chunks := []*types.Chunk{{ChunkID: 0, Content: "never embedded"}}

	_, err := AnalyzeCandidate(reqs, chunks, DefaultMatchPolicy(), DefaultAggregatePolicy())

	assert.ErrorIs(t, err, ErrNoEmbeddedChunks)
}

func TestAnalyzeCandidateEndToEnd(t *testing.T) {
	reqs := []types.Requirement{
		{Text: "go", MustHave: true, Weight: 3, Vector: []float64{1, 0}},
		{Text: "sql", MustHave: false, Weight: 1, Vector: []float64{0, 1}},
	}
	chunks := []*types.Chunk{
		{ChunkID: 0, Content: "golang services", Embedding: []float64{1, 0}},
		{ChunkID: 1, Content: "database work", Embedding: []float64{0.6, 0.8}},
	}

	result, err := AnalyzeCandidate(reqs, chunks, DefaultMatchPolicy(), DefaultAggregatePolicy())

	require.NoError(t, err)
	require.Len(t, result.Breakdown, 2)
	assert.Equal(t, 10, result.Breakdown[0].Score10)
	assert.Equal(t, 0, result.Breakdown[0].BestChunk.ChunkID)
	assert.Equal(t, 8, result.Breakdown[1].Score10)
	assert.Equal(t, 1, result.Breakdown[1].BestChunk.ChunkID)
	// (10*3 + 8*1) / 4 = 9.5
	assert.Equal(t, 9.5, result.CompositeScore10)
	assert.Empty(t, result.Gaps.MustHaveMissing)
}
