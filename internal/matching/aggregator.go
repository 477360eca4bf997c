package matching

import (
	"errors"
	"math"

	"cv-match-go/internal/types"
)

// Sentinel failure conditions of an analysis run. Both are input problems,
// fatal for the run and not retried.
var (
	// ErrNoRequirements - the job carries zero requirements.
	ErrNoRequirements = errors.New("job has no requirements")
	// ErrNoEmbeddedChunks - the candidate has zero chunks with embeddings.
	ErrNoEmbeddedChunks = errors.New("candidate has no embedded chunks")
)

// AggregatePolicy holds the gap-detection thresholds.
type AggregatePolicy struct {
	// MissingThreshold: a must-have below this similarity lands in the
	// must-have-missing gap list.
	MissingThreshold float64
	// ImproveMinSimilarity / ImproveMaxScore10 bound the "weak but present"
	// band worth strengthening.
	ImproveMinSimilarity float64
	ImproveMaxScore10    int
}

// DefaultAggregatePolicy returns the production defaults.
func DefaultAggregatePolicy() AggregatePolicy {
	return AggregatePolicy{
		MissingThreshold:     0.35,
		ImproveMinSimilarity: 0.2,
		ImproveMaxScore10:    7,
	}
}

// AnalyzeCandidate matches every requirement against the candidate's chunks
// and aggregates the results into a weighted composite with a gap list.
// Requirement vectors must already be attached. The result is always either a
// complete AnalysisResult or an error; never a silently partial breakdown.
func AnalyzeCandidate(requirements []types.Requirement, chunks []*types.Chunk, matchPolicy MatchPolicy, aggPolicy AggregatePolicy) (*types.AnalysisResult, error) {
	if len(requirements) == 0 {
		return nil, ErrNoRequirements
	}
	embedded := 0
	for _, chunk := range chunks {
		if chunk.Embedded() {
			embedded++
		}
	}
	if embedded == 0 {
		return nil, ErrNoEmbeddedChunks
	}

	matches := make([]types.RequirementMatch, 0, len(requirements))
	for _, req := range requirements {
		matches = append(matches, MatchRequirement(req, chunks, matchPolicy))
	}

	return Aggregate(matches, aggPolicy), nil
}

// Aggregate folds per-requirement matches into the composite score and gaps.
func Aggregate(matches []types.RequirementMatch, policy AggregatePolicy) *types.AnalysisResult {
	result := &types.AnalysisResult{
		Breakdown: matches,
		Gaps: types.GapSummary{
			MustHaveMissing: []string{},
			Improve:         []string{},
		},
	}

	var weightedSum, totalWeight float64
	for _, m := range matches {
		weight := float64(clampWeight(m.Requirement.Weight))
		weightedSum += float64(m.Score10) * weight
		totalWeight += weight

		if m.Requirement.MustHave && m.Similarity < policy.MissingThreshold {
			result.Gaps.MustHaveMissing = append(result.Gaps.MustHaveMissing, m.Requirement.Text)
		}
		if m.Similarity >= policy.ImproveMinSimilarity && m.Score10 < policy.ImproveMaxScore10 {
			result.Gaps.Improve = append(result.Gaps.Improve, m.Requirement.Text)
		}
	}

	if totalWeight > 0 {
		result.CompositeScore10 = round1(weightedSum / totalWeight)
	}
	return result
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
