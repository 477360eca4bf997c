package scoring

import (
	"math"

	"cv-match-go/internal/parser"
	"cv-match-go/internal/types"
)

// ScoreCandidate combines the match breakdown, heuristic candidate meta and
// the job's experience band into one explainable outcome. It is a pure
// function of its inputs; duplicate marking across a batch happens separately
// in MarkDuplicates.
func ScoreCandidate(analysis *types.AnalysisResult, meta *types.CandidateMeta, band *types.ExperienceBand, policy ScoringPolicy) *types.CandidateScores {
	scores := &types.CandidateScores{}

	mustPercent, mustCount := subsetPercent(analysis.Breakdown, true)
	nicePercent, _ := subsetPercent(analysis.Breakdown, false)
	scores.MustPercent = mustPercent
	scores.NicePercent = nicePercent
	scores.GatePassed = mustCount == 0 || mustPercent >= policy.GatePercent
	scores.MissingMust = analysis.Gaps.MustHaveMissing

	scores.ExperienceScore, scores.ExperienceStatus = experienceScore(meta, band, policy)
	scores.QualityScore = qualityScore(meta, policy)

	final := policy.MustWeight*mustPercent +
		policy.NiceWeight*nicePercent +
		policy.ExperienceWeight*scores.ExperienceScore +
		policy.QualityWeight*scores.QualityScore
	scores.FinalScore = clamp(round1(final), 0, 100)

	switch {
	case !scores.GatePassed || scores.FinalScore < policy.ExcludeThreshold:
		scores.Status = types.StatusExcluded
	case scores.FinalScore >= policy.RecommendThreshold:
		scores.Status = types.StatusRecommended
	default:
		scores.Status = types.StatusConsider
	}

	return scores
}

// subsetPercent computes coverage over the must-have (or nice-to-have) subset
// of the breakdown: total score10 against the subset's 10-per-requirement
// maximum. An empty subset yields 0%.
func subsetPercent(breakdown []types.RequirementMatch, mustHave bool) (float64, int) {
	var sum, count int
	for _, m := range breakdown {
		if m.Requirement.MustHave != mustHave {
			continue
		}
		sum += m.Score10
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(sum) / float64(count*10) * 100, count
}

// experienceScore positions the candidate's extracted years against the job's
// band. Without a band the score scales with raw years; unknown years get a
// neutral default.
func experienceScore(meta *types.CandidateMeta, band *types.ExperienceBand, policy ScoringPolicy) (float64, types.ExperienceStatus) {
	years := float64(meta.YearsExperience)

	if band == nil {
		if !meta.YearsKnown {
			return policy.ExpUnknownDefault, types.ExperienceUnknown
		}
		return math.Min(years*policy.ExpPerYearNoBand, policy.ExpNoBandCap), types.ExperienceUnknown
	}

	if !meta.YearsKnown {
		return policy.ExpUnknownDefault, types.ExperienceUnknown
	}

	min := float64(band.MinYears)
	switch {
	case years < min:
		score := math.Max(policy.ExpBelowFloor, policy.ExpBelowBase-(min-years)*policy.ExpBelowPerYear)
		return score, types.ExperienceBelow
	case band.MaxYears != nil && years > float64(*band.MaxYears):
		over := years - float64(*band.MaxYears)
		score := math.Max(policy.ExpAboveFloor, policy.ExpAboveBase-over*policy.ExpAbovePerYear)
		return score, types.ExperienceAbove
	default:
		return policy.ExpWithinScore, types.ExperienceWithin
	}
}

// qualityScore is an additive structural signal, capped at 100. It rewards
// substance (text length), structure (headings, bullets), reachability
// (contact fields) and breadth (languages, links).
func qualityScore(meta *types.CandidateMeta, policy ScoringPolicy) float64 {
	var score float64

	switch {
	case meta.TextLength > policy.QualityLongTextChars:
		score += policy.QualityLongTextBonus
	case meta.TextLength > policy.QualityMediumTextChars:
		score += policy.QualityMediumTextBonus
	case meta.TextLength > policy.QualityShortTextChars:
		score += policy.QualityShortTextBonus
	}

	if hasSignal(meta, parser.SignalStructuredText) {
		score += policy.QualityHeadingsBonus
	}
	if hasSignal(meta, parser.SignalBulletFormatted) {
		score += policy.QualityBulletsBonus
	}

	switch {
	case meta.Email != "" && meta.Phone != "":
		score += policy.QualityBothContactBonus
	case meta.Email != "" || meta.Phone != "":
		score += policy.QualityOneContactBonus
	}

	if len(meta.Languages) > 1 {
		score += policy.QualityMultilingualBonus
	}
	if len(meta.Projects) > 0 || len(meta.GitHub) > 0 || len(meta.LinkedIn) > 0 {
		score += policy.QualityAnyLinkBonus
	}

	return clamp(score, 0, 100)
}

func hasSignal(meta *types.CandidateMeta, signal string) bool {
	for _, s := range meta.QualitySignals {
		if s == signal {
			return true
		}
	}
	return false
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
