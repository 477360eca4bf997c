package scoring

// ScoringPolicy gathers every hand-tuned constant of the composite scorer.
// Keeping them as named fields allows policy experiments and per-deployment
// tuning without touching the scoring algorithm itself.
type ScoringPolicy struct {
	// GatePercent is the minimum must-have coverage (0-100) a candidate needs
	// before it can be anything other than excluded.
	GatePercent float64

	// Final blend weights over the four component scores; they sum to 1.
	MustWeight       float64
	NiceWeight       float64
	ExperienceWeight float64
	QualityWeight    float64

	// Status thresholds on the final 0-100 score.
	RecommendThreshold float64
	ExcludeThreshold   float64

	// Experience scoring without a configured band.
	ExpPerYearNoBand  float64 // score per raw year
	ExpNoBandCap      float64 // cap on the raw-years score
	ExpUnknownDefault float64 // score when years could not be extracted

	// Experience scoring against a configured band.
	ExpWithinScore   float64
	ExpBelowBase     float64 // starting score when under the band minimum
	ExpBelowPerYear  float64 // deducted per year short
	ExpBelowFloor    float64
	ExpAboveBase     float64 // starting score when over the band maximum
	ExpAbovePerYear  float64 // deducted per year over
	ExpAboveFloor    float64

	// Additive quality score (capped at 100).
	QualityLongTextChars     int
	QualityMediumTextChars   int
	QualityShortTextChars    int
	QualityLongTextBonus     float64
	QualityMediumTextBonus   float64
	QualityShortTextBonus    float64
	QualityHeadingsBonus     float64
	QualityBulletsBonus      float64
	QualityBothContactBonus  float64
	QualityOneContactBonus   float64
	QualityMultilingualBonus float64
	QualityAnyLinkBonus      float64
}

// DefaultScoringPolicy returns the production defaults.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		GatePercent: 60,

		MustWeight:       0.5,
		NiceWeight:       0.2,
		ExperienceWeight: 0.2,
		QualityWeight:    0.1,

		RecommendThreshold: 85,
		ExcludeThreshold:   65,

		ExpPerYearNoBand:  15,
		ExpNoBandCap:      90,
		ExpUnknownDefault: 60,

		ExpWithinScore:  100,
		ExpBelowBase:    100,
		ExpBelowPerYear: 18,
		ExpBelowFloor:   25,
		ExpAboveBase:    95,
		ExpAbovePerYear: 10,
		ExpAboveFloor:   55,

		QualityLongTextChars:     2000,
		QualityMediumTextChars:   900,
		QualityShortTextChars:    300,
		QualityLongTextBonus:     40,
		QualityMediumTextBonus:   28,
		QualityShortTextBonus:    18,
		QualityHeadingsBonus:     24,
		QualityBulletsBonus:      16,
		QualityBothContactBonus:  10,
		QualityOneContactBonus:   6,
		QualityMultilingualBonus: 10,
		QualityAnyLinkBonus:      8,
	}
}
