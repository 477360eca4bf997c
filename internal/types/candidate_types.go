package types

// SectionType classifies a slice of résumé text.
type SectionType string

const (
	// SectionExperience work experience section
	SectionExperience SectionType = "experience"
	// SectionSkills skills section
	SectionSkills SectionType = "skills"
	// SectionEducation education section
	SectionEducation SectionType = "education"
	// SectionSummary summary / objective section
	SectionSummary SectionType = "summary"
	// SectionOther unclassified content
	SectionOther SectionType = "other"
)

// Chunk is a bounded slice of a candidate's résumé text tagged with its
// inferred section. Embedding stays nil until the chunk has been vectorized;
// a chunk whose vector failed validation keeps a nil embedding and is simply
// skipped during matching.
type Chunk struct {
	ChunkID   int         `json:"chunk_id"`
	Section   SectionType `json:"section"`
	Content   string      `json:"content"`
	Embedding []float64   `json:"-"`
}

// Embedded reports whether the chunk carries a usable vector.
func (c *Chunk) Embedded() bool {
	return len(c.Embedding) > 0
}

// Requirement is a single weighted job requirement. Weight is clamped to
// [1,3] by the matcher; MustHave requirements additionally gate overall
// candidate acceptance.
type Requirement struct {
	Text     string    `json:"text"`
	MustHave bool      `json:"must_have"`
	Weight   int       `json:"weight"`
	Vector   []float64 `json:"-"`
}

// RequirementMatch is the best chunk found for one requirement.
// BestChunk is nil when the candidate had no embedded chunks.
type RequirementMatch struct {
	Requirement Requirement `json:"requirement"`
	BestChunk   *Chunk      `json:"best_chunk,omitempty"`
	Similarity  float64     `json:"similarity"`
	Score10     int         `json:"score_10"`
}

// GapSummary lists requirements the candidate misses or only weakly covers.
type GapSummary struct {
	MustHaveMissing []string `json:"must_have_missing"`
	Improve         []string `json:"improve"`
}

// AnalysisResult is the full per-candidate matching outcome. Immutable once
// computed; a re-run rebuilds the whole chain from raw text.
type AnalysisResult struct {
	Breakdown        []RequirementMatch `json:"breakdown"`
	CompositeScore10 float64            `json:"composite_score_10"`
	Gaps             GapSummary         `json:"gaps"`
}

// ProjectLink is a labeled URL pulled out of the résumé text.
type ProjectLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CandidateMeta holds heuristic structural signals extracted from raw résumé
// text. Every field is best-effort: a pattern miss leaves it empty.
type CandidateMeta struct {
	DisplayName     string        `json:"display_name"`
	Email           string        `json:"email,omitempty"`
	Phone           string        `json:"phone,omitempty"`
	Location        string        `json:"location,omitempty"`
	Languages       []string      `json:"languages,omitempty"`
	YearsExperience int           `json:"years_experience,omitempty"`
	YearsKnown      bool          `json:"years_known"`
	LastCompany     string        `json:"last_company,omitempty"`
	Projects        []ProjectLink `json:"projects,omitempty"`
	GitHub          []string      `json:"github,omitempty"`
	LinkedIn        []string      `json:"linkedin,omitempty"`
	TextLength      int           `json:"text_length"`
	QualitySignals  []string      `json:"quality_signals,omitempty"`
}

// ExperienceBand is the job's acceptable experience range in years.
// A nil MaxYears means open-ended above MinYears.
type ExperienceBand struct {
	MinYears int  `json:"min_years" yaml:"min_years"`
	MaxYears *int `json:"max_years,omitempty" yaml:"max_years"`
}

// ExperienceStatus positions a candidate's years against the job's band.
type ExperienceStatus string

const (
	ExperienceWithin  ExperienceStatus = "within"
	ExperienceBelow   ExperienceStatus = "below"
	ExperienceAbove   ExperienceStatus = "above"
	ExperienceUnknown ExperienceStatus = "unknown"
)

// CandidateStatus is the final recommendation bucket.
type CandidateStatus string

const (
	StatusRecommended CandidateStatus = "recommended"
	StatusConsider    CandidateStatus = "consider"
	StatusExcluded    CandidateStatus = "excluded"
)

// CandidateScores is the composite, explainable scoring outcome for one
// candidate against one job. Recomputed whenever any input changes.
type CandidateScores struct {
	MustPercent      float64          `json:"must_percent"`
	NicePercent      float64          `json:"nice_percent"`
	ExperienceScore  float64          `json:"experience_score"`
	ExperienceStatus ExperienceStatus `json:"experience_status"`
	QualityScore     float64          `json:"quality_score"`
	FinalScore       float64          `json:"final_score"`
	GatePassed       bool             `json:"gate_passed"`
	Status           CandidateStatus  `json:"status"`
	MissingMust      []string         `json:"missing_must,omitempty"`
	DuplicateOf      string           `json:"duplicate_of,omitempty"`
}

// RankedCandidate pairs a candidate with everything the reviewer needs to
// understand its position in the ranking.
type RankedCandidate struct {
	CandidateID string           `json:"candidate_id"`
	Scores      *CandidateScores `json:"scores"`
	Analysis    *AnalysisResult  `json:"analysis,omitempty"`
	Meta        *CandidateMeta   `json:"meta,omitempty"`
}
