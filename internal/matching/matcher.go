package matching

import (
	"math"

	"cv-match-go/internal/types"
)

// MatchPolicy holds the hand-tuned constants of requirement scoring. They are
// fields rather than literals so scoring behavior can be tested and adjusted
// per deployment.
type MatchPolicy struct {
	// MustHavePenaltyThreshold is the similarity below which a must-have
	// requirement is considered a near-miss.
	MustHavePenaltyThreshold float64
	// MustHavePenalty is subtracted from score10 on a must-have near-miss.
	MustHavePenalty int
}

// DefaultMatchPolicy returns the production defaults.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{
		MustHavePenaltyThreshold: 0.3,
		MustHavePenalty:          4,
	}
}

// MatchRequirement finds the best chunk for one requirement by linear scan
// over the candidate's chunks. Only chunks carrying an embedding participate;
// ties keep the first-seen chunk, so ascending chunk order makes the result
// deterministic. With no eligible chunks the match has similarity 0 and a nil
// best chunk.
func MatchRequirement(req types.Requirement, chunks []*types.Chunk, policy MatchPolicy) types.RequirementMatch {
	match := types.RequirementMatch{Requirement: req}

	for _, chunk := range chunks {
		if !chunk.Embedded() {
			continue
		}
		sim := Cosine(req.Vector, chunk.Embedding)
		if match.BestChunk == nil || sim > match.Similarity {
			match.BestChunk = chunk
			match.Similarity = sim
		}
	}

	match.Score10 = scoreRequirement(req, match.Similarity, policy)
	return match
}

// scoreRequirement maps a similarity to a 0-10 score. A near-miss on a
// must-have requirement is penalized harder than a miss on an optional one.
func scoreRequirement(req types.Requirement, similarity float64, policy MatchPolicy) int {
	score := int(math.Round(similarity * 10))
	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	if req.MustHave && similarity < policy.MustHavePenaltyThreshold {
		score -= policy.MustHavePenalty
		if score < 0 {
			score = 0
		}
	}
	return score
}

// clampWeight bounds a requirement weight to [1,3].
func clampWeight(weight int) int {
	if weight < 1 {
		return 1
	}
	if weight > 3 {
		return 3
	}
	return weight
}
