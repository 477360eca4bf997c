package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-match-go/internal/types"
)

// vecWithCosine builds a unit vector whose cosine against the unit x-axis
// vector is exactly sim.
func vecWithCosine(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

var xAxis = []float64{1, 0}

func TestMatchRequirementPicksHighestSimilarity(t *testing.T) {
	req := types.Requirement{Text: "Node.js", Weight: 2, Vector: xAxis}
	chunks := []*types.Chunk{
		{ChunkID: 0, Content: "weak", Embedding: vecWithCosine(0.2)},
		{ChunkID: 1, Content: "strong", Embedding: vecWithCosine(0.9)},
		{ChunkID: 2, Content: "middle", Embedding: vecWithCosine(0.5)},
	}

	match := MatchRequirement(req, chunks, DefaultMatchPolicy())

	require.NotNil(t, match.BestChunk)
	assert.Equal(t, 1, match.BestChunk.ChunkID)
	assert.InDelta(t, 0.9, match.Similarity, 1e-9)
	assert.Equal(t, 9, match.Score10)
}

func TestMatchRequirementTieKeepsFirstChunk(t *testing.T) {
	req := types.Requirement{Text: "SQL", Weight: 1, Vector: xAxis}
	same := vecWithCosine(0.7)
	chunks := []*types.Chunk{
		{ChunkID: 0, Embedding: same},
		{ChunkID: 1, Embedding: same},
	}

	match := MatchRequirement(req, chunks, DefaultMatchPolicy())

	require.NotNil(t, match.BestChunk)
	assert.Equal(t, 0, match.BestChunk.ChunkID)
}

func TestMatchRequirementSkipsUnembeddedChunks(t *testing.T) {
	req := types.Requirement{Text: "Go", Weight: 3, Vector: xAxis}
	chunks := []*types.Chunk{
		{ChunkID: 0, Content: "no vector"},
		{ChunkID: 1, Embedding: vecWithCosine(0.4)},
	}

	match := MatchRequirement(req, chunks, DefaultMatchPolicy())

	require.NotNil(t, match.BestChunk)
	assert.Equal(t, 1, match.BestChunk.ChunkID)
}

func TestMatchRequirementNoEligibleChunks(t *testing.T) {
	req := types.Requirement{Text: "Go", Weight: 1, Vector: xAxis}

	match := MatchRequirement(req, []*types.Chunk{{ChunkID: 0}}, DefaultMatchPolicy())

	assert.Nil(t, match.BestChunk)
	assert.Equal(t, 0.0, match.Similarity)
	assert.Equal(t, 0, match.Score10)
}

func TestScoreHighSimilarityNoPenalty(t *testing.T) {
	req := types.Requirement{Text: "Node.js", MustHave: true, Weight: 3, Vector: xAxis}
	chunks := []*types.Chunk{{ChunkID: 0, Embedding: vecWithCosine(0.82)}}

	match := MatchRequirement(req, chunks, DefaultMatchPolicy())

	assert.Equal(t, 8, match.Score10)
}

func TestScoreMustHaveNearMissPenalized(t *testing.T) {
	req := types.Requirement{Text: "Node.js", MustHave: true, Weight: 3, Vector: xAxis}
	chunks := []*types.Chunk{{ChunkID: 0, Embedding: vecWithCosine(0.1)}}

	// round(0.1*10)=1, then the must-have penalty floors it at 0.
	match := MatchRequirement(req, chunks, DefaultMatchPolicy())

	assert.Equal(t, 0, match.Score10)
}

func TestScoreNiceToHaveNearMissNotPenalized(t *testing.T) {
	req := types.Requirement{Text: "Node.js", MustHave: false, Weight: 1, Vector: xAxis}
	chunks := []*types.Chunk{{ChunkID: 0, Embedding: vecWithCosine(0.1)}}

	match := MatchRequirement(req, chunks, DefaultMatchPolicy())

	assert.Equal(t, 1, match.Score10)
}

func TestScorePenaltyNeverExceedsUnpenalizedScore(t *testing.T) {
	policy := DefaultMatchPolicy()
	for _, sim := range []float64{0.0, 0.05, 0.1, 0.15, 0.2, 0.25, 0.29} {
		must := types.Requirement{Text: "x", MustHave: true, Weight: 1, Vector: xAxis}
		nice := types.Requirement{Text: "x", MustHave: false, Weight: 1, Vector: xAxis}
		chunks := []*types.Chunk{{ChunkID: 0, Embedding: vecWithCosine(sim)}}

		mustScore := MatchRequirement(must, chunks, policy).Score10
		niceScore := MatchRequirement(nice, chunks, policy).Score10

		assert.LessOrEqual(t, mustScore, niceScore, "sim=%f", sim)
		assert.GreaterOrEqual(t, mustScore, 0, "sim=%f", sim)
		assert.LessOrEqual(t, mustScore, 10, "sim=%f", sim)
	}
}

func TestScoreBoundsOnNegativeSimilarity(t *testing.T) {
	req := types.Requirement{Text: "x", MustHave: false, Weight: 1, Vector: xAxis}
	chunks := []*types.Chunk{{ChunkID: 0, Embedding: []float64{-1, 0}}}

	match := MatchRequirement(req, chunks, DefaultMatchPolicy())

	assert.Equal(t, 0, match.Score10)
	assert.InDelta(t, -1.0, match.Similarity, 1e-9)
}

func TestClampWeight(t *testing.T) {
	assert.Equal(t, 1, clampWeight(0))
	assert.Equal(t, 1, clampWeight(1))
	assert.Equal(t, 3, clampWeight(3))
	assert.Equal(t, 3, clampWeight(7))
}
