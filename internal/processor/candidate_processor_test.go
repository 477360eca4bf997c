package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-match-go/internal/types"
)

// stubEmbedder maps texts to fixed two-dimensional vectors by keyword so
// similarity outcomes in tests are exact.
type stubEmbedder struct {
	calls [][]string
	fail  error
	// vectorFor overrides the default keyword mapping when set.
	vectorFor func(text string) []float64
}

func (s *stubEmbedder) Dimensions() int { return 2 }

func (s *stubEmbedder) EmbedStrings(_ context.Context, texts []string) ([][]float64, error) {
	s.calls = append(s.calls, texts)
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if s.vectorFor != nil {
			out[i] = s.vectorFor(text)
			continue
		}
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "sql"):
			out[i] = []float64{0, 1}
		case strings.Contains(lower, "go"):
			out[i] = []float64{1, 0}
		default:
			out[i] = []float64{0.5, 0.5}
		}
	}
	return out, nil
}

func testRequirements() []types.Requirement {
	return []types.Requirement{
		{Text: "Go", MustHave: true, Weight: 3},
		{Text: "SQL", MustHave: false, Weight: 1},
	}
}

const sampleResume = `Omar Hassan
omar@example.com

Experience:
Built golang services

Skills:
Postgres SQL and databases`

func newTestProcessor(t *testing.T, embedder TextEmbedder) *CandidateProcessor {
	t.Helper()
	p, err := NewCandidateProcessor(embedder)
	require.NoError(t, err)
	return p
}

func TestNewCandidateProcessorRequiresEmbedder(t *testing.T) {
	_, err := NewCandidateProcessor(nil)
	assert.Error(t, err)
}

func TestAnalyzeCandidateHappyPath(t *testing.T) {
	embedder := &stubEmbedder{}
	p := newTestProcessor(t, embedder)

	reqs, err := p.EmbedRequirements(context.Background(), testRequirements())
	require.NoError(t, err)

	analysis, err := p.AnalyzeCandidate(context.Background(), CandidateInput{
		CandidateID: "cand-1",
		RawText:     sampleResume,
		SourceName:  "omar.pdf",
	}, reqs, nil)

	require.NoError(t, err)
	assert.Equal(t, "cand-1", analysis.CandidateID)
	require.Len(t, analysis.Analysis.Breakdown, 2)
	// "Go" aligns perfectly with the experience chunk, "SQL" with skills.
	assert.Equal(t, 10, analysis.Analysis.Breakdown[0].Score10)
	assert.Equal(t, 10, analysis.Analysis.Breakdown[1].Score10)
	assert.Equal(t, 10.0, analysis.Analysis.CompositeScore10)
	assert.Equal(t, "Omar Hassan", analysis.Meta.DisplayName)
	assert.Equal(t, "omar@example.com", analysis.Meta.Email)
	assert.True(t, analysis.Scores.GatePassed)
}

func TestAnalyzeCandidateEmptyTextFails(t *testing.T) {
	p := newTestProcessor(t, &stubEmbedder{})

	_, err := p.AnalyzeCandidate(context.Background(), CandidateInput{
		CandidateID: "cand-1",
		RawText:     "   \n\n  ",
	}, testRequirementsWithVectors(), nil)

	assert.ErrorIs(t, err, ErrNoCVText)
	assert.Equal(t, CodeNoCVText, ErrorCode(err))
}

func TestAnalyzeCandidateNoRequirementsFails(t *testing.T) {
	p := newTestProcessor(t, &stubEmbedder{})

	_, err := p.AnalyzeCandidate(context.Background(), CandidateInput{
		CandidateID: "cand-1",
		RawText:     sampleResume,
	}, nil, nil)

	assert.ErrorIs(t, err, ErrNoJobRequirements)
	assert.Equal(t, CodeNoJobRequirements, ErrorCode(err))
}

func TestAnalyzeCandidateEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{fail: errors.New("gateway timeout")}
	p := newTestProcessor(t, embedder)

	_, err := p.AnalyzeCandidate(context.Background(), CandidateInput{
		CandidateID: "cand-1",
		RawText:     sampleResume,
	}, testRequirementsWithVectors(), nil)

	assert.ErrorIs(t, err, ErrEmbeddingsFailed)
	assert.Equal(t, CodeEmbeddingsFailed, ErrorCode(err))
}

func TestAnalyzeCandidateDropsInvalidChunkVectors(t *testing.T) {
	// The skills chunk comes back as a zero vector and must be dropped; the
	// remaining chunk still carries the analysis.
	embedder := &stubEmbedder{vectorFor: func(text string) []float64 {
		if strings.Contains(strings.ToLower(text), "sql") {
			return []float64{0, 0}
		}
		return []float64{1, 0}
	}}
	p := newTestProcessor(t, embedder)

	analysis, err := p.AnalyzeCandidate(context.Background(), CandidateInput{
		CandidateID: "cand-1",
		RawText:     sampleResume,
	}, testRequirementsWithVectors(), nil)

	require.NoError(t, err)
	for _, m := range analysis.Analysis.Breakdown {
		if m.BestChunk != nil {
			assert.NotEqual(t, types.SectionSkills, m.BestChunk.Section)
		}
	}
}

func TestAnalyzeCandidateAllVectorsInvalidFails(t *testing.T) {
	embedder := &stubEmbedder{vectorFor: func(string) []float64 {
		return []float64{0, 0}
	}}
	p := newTestProcessor(t, embedder)

	_, err := p.AnalyzeCandidate(context.Background(), CandidateInput{
		CandidateID: "cand-1",
		RawText:     sampleResume,
	}, testRequirementsWithVectors(), nil)

	assert.ErrorIs(t, err, ErrNoCVText)
}

func TestEmbedRequirementsEmptyList(t *testing.T) {
	p := newTestProcessor(t, &stubEmbedder{})

	_, err := p.EmbedRequirements(context.Background(), nil)

	assert.ErrorIs(t, err, ErrNoJobRequirements)
}

func TestEmbedRequirementsSkipsCachedVectors(t *testing.T) {
	embedder := &stubEmbedder{}
	p := newTestProcessor(t, embedder)

	reqs, err := p.EmbedRequirements(context.Background(), testRequirementsWithVectors())

	require.NoError(t, err)
	assert.Empty(t, embedder.calls, "cached vectors must not be re-embedded")
	assert.Equal(t, []float64{1, 0}, reqs[0].Vector)
}

func TestEmbedRequirementsInvalidVectorFails(t *testing.T) {
	embedder := &stubEmbedder{vectorFor: func(string) []float64 {
		return []float64{0, 0}
	}}
	p := newTestProcessor(t, embedder)

	_, err := p.EmbedRequirements(context.Background(), testRequirements())

	assert.ErrorIs(t, err, ErrEmbeddingsFailed)
}

func TestAnalyzeBatchRankingAndFailures(t *testing.T) {
	embedder := &stubEmbedder{}
	p := newTestProcessor(t, embedder)

	inputs := []CandidateInput{
		{CandidateID: "cand-a", RawText: sampleResume, SourceName: "a.pdf"},
		{CandidateID: "cand-b", RawText: "Lina Said\nlina@example.com\n\nExperience:\nBuilt golang services", SourceName: "b.pdf"},
		{CandidateID: "cand-c", RawText: "", SourceName: "c.pdf"},
	}

	result, err := p.AnalyzeBatch(context.Background(), inputs, testRequirements(), nil)

	require.NoError(t, err)
	require.Len(t, result.Ranked, 2)
	// cand-a covers both requirements fully, cand-b covers the nice-to-have
	// only weakly.
	assert.Equal(t, "cand-a", result.Ranked[0].CandidateID)
	assert.Equal(t, "cand-b", result.Ranked[1].CandidateID)
	assert.Greater(t, result.Ranked[0].Scores.FinalScore, result.Ranked[1].Scores.FinalScore)

	require.Contains(t, result.Failed, "cand-c")
	assert.ErrorIs(t, result.Failed["cand-c"], ErrNoCVText)
}

func TestAnalyzeBatchMarksDuplicates(t *testing.T) {
	embedder := &stubEmbedder{}
	p := newTestProcessor(t, embedder)

	inputs := []CandidateInput{
		{CandidateID: "cand-a", RawText: sampleResume, SourceName: "a.pdf"},
		{CandidateID: "cand-d", RawText: "O. Hassan\nomar@example.com\n\nExperience:\nBuilt golang services", SourceName: "d.pdf"},
	}

	result, err := p.AnalyzeBatch(context.Background(), inputs, testRequirements(), nil)

	require.NoError(t, err)
	require.Len(t, result.Ranked, 2)
	for _, cand := range result.Ranked {
		if cand.CandidateID == "cand-d" {
			assert.Equal(t, "cand-a", cand.Scores.DuplicateOf)
			assert.Equal(t, types.StatusExcluded, cand.Scores.Status)
		} else {
			assert.Empty(t, cand.Scores.DuplicateOf)
		}
	}
}

func TestAnalyzeBatchEmptyRequirementsFails(t *testing.T) {
	p := newTestProcessor(t, &stubEmbedder{})

	_, err := p.AnalyzeBatch(context.Background(), []CandidateInput{
		{CandidateID: "cand-a", RawText: sampleResume},
	}, nil, nil)

	assert.ErrorIs(t, err, ErrNoJobRequirements)
}

func testRequirementsWithVectors() []types.Requirement {
	reqs := testRequirements()
	reqs[0].Vector = []float64{1, 0}
	reqs[1].Vector = []float64{0, 1}
	return reqs
}
