package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cv-match-go/internal/logger"
	"cv-match-go/internal/matching"
	"cv-match-go/internal/parser"
	"cv-match-go/internal/scoring"
	"cv-match-go/internal/tracing"
	"cv-match-go/internal/types"
)

// CandidateProcessor runs the full analysis pipeline for candidates against
// one job: segment -> embed -> match -> aggregate -> meta -> composite score.
// It holds no mutable state between candidates; every run is a pure function
// of its inputs plus the configured policies.
type CandidateProcessor struct {
	chunker       *parser.SectionChunker
	embedder      TextEmbedder
	matchPolicy   matching.MatchPolicy
	aggPolicy     matching.AggregatePolicy
	scoringPolicy scoring.ScoringPolicy
	logger        zerolog.Logger
}

// CandidateInput is one candidate's raw material for a run.
type CandidateInput struct {
	CandidateID string
	RawText     string
	SourceName  string // upload filename, display-name fallback
}

// CandidateAnalysis is the complete per-candidate outcome.
type CandidateAnalysis struct {
	CandidateID string
	Chunks      []*types.Chunk
	Meta        *types.CandidateMeta
	Analysis    *types.AnalysisResult
	Scores      *types.CandidateScores
}

// BatchResult pairs the ranking with per-candidate failures. Failed
// candidates are absent from Ranked. Chunks holds each ranked candidate's
// section chunks so callers can persist them for auditability.
type BatchResult struct {
	Ranked []*types.RankedCandidate
	Chunks map[string][]*types.Chunk
	Failed map[string]error
}

// NewCandidateProcessor builds a processor around an embedding gateway.
func NewCandidateProcessor(embedder TextEmbedder, opts ...Option) (*CandidateProcessor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder must not be nil")
	}
	p := &CandidateProcessor{
		chunker:       parser.NewSectionChunker(),
		embedder:      embedder,
		matchPolicy:   matching.DefaultMatchPolicy(),
		aggPolicy:     matching.DefaultAggregatePolicy(),
		scoringPolicy: scoring.DefaultScoringPolicy(),
		logger:        logger.Logger.With().Str("component", "candidate_processor").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EmbedRequirements attaches vectors to the job's requirements. Requirements
// whose text already carries a valid vector are left untouched, so cached
// vectors can be passed through. Any invalid returned vector fails the call:
// a requirement silently matching nothing would corrupt every ranking.
func (p *CandidateProcessor) EmbedRequirements(ctx context.Context, requirements []types.Requirement) ([]types.Requirement, error) {
	if len(requirements) == 0 {
		return nil, NewNoJobRequirementsError("", "empty requirement list")
	}

	dim := p.embedder.Dimensions()
	var texts []string
	var indices []int
	for i, req := range requirements {
		if matching.ValidVector(req.Vector, dim) {
			continue
		}
		texts = append(texts, req.Text)
		indices = append(indices, i)
	}
	if len(texts) == 0 {
		return requirements, nil
	}

	vectors, err := p.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, NewEmbeddingsFailedError("", err.Error())
	}
	if len(vectors) != len(texts) {
		return nil, NewEmbeddingsFailedError("", fmt.Sprintf("requirement vector count mismatch: want %d, got %d", len(texts), len(vectors)))
	}

	out := make([]types.Requirement, len(requirements))
	copy(out, requirements)
	for j, idx := range indices {
		if !matching.ValidVector(vectors[j], dim) {
			return nil, NewEmbeddingsFailedError("", fmt.Sprintf("invalid vector for requirement %q", requirements[idx].Text))
		}
		out[idx].Vector = vectors[j]
	}
	return out, nil
}

// AnalyzeCandidate runs the pipeline for a single candidate. Requirements
// must already carry vectors (see EmbedRequirements). Chunks whose returned
// vector fails validation are dropped from matching; if that drops every
// chunk the run fails with the no-text kind.
func (p *CandidateProcessor) AnalyzeCandidate(ctx context.Context, input CandidateInput, requirements []types.Requirement, band *types.ExperienceBand) (*CandidateAnalysis, error) {
	tracer := otel.Tracer("cv-match-go/processor")
	ctx, span := tracer.Start(ctx, "CandidateProcessor.AnalyzeCandidate")
	defer span.End()
	span.SetAttributes(attribute.String("candidate.id", input.CandidateID))

	if len(requirements) == 0 {
		return nil, NewNoJobRequirementsError(input.CandidateID, "")
	}

	chunks := p.chunker.ChunkText(input.RawText)
	if len(chunks) == 0 {
		return nil, NewNoCVTextError(input.CandidateID, "segmenter produced no chunks")
	}
	span.SetAttributes(attribute.Int("candidate.chunks", len(chunks)))

	if err := p.embedChunks(ctx, input.CandidateID, chunks); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, err
	}

	analysis, err := matching.AnalyzeCandidate(requirements, chunks, p.matchPolicy, p.aggPolicy)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrNoEmbeddedChunks):
			return nil, NewNoCVTextError(input.CandidateID, "all chunk vectors failed validation")
		case errors.Is(err, matching.ErrNoRequirements):
			return nil, NewNoJobRequirementsError(input.CandidateID, "")
		default:
			return nil, err
		}
	}

	meta := parser.ExtractCandidateMeta(input.RawText, input.SourceName)
	scores := scoring.ScoreCandidate(analysis, meta, band, p.scoringPolicy)

	p.logger.Debug().
		Str("candidate_id", input.CandidateID).
		Float64("composite_10", analysis.CompositeScore10).
		Float64("final", scores.FinalScore).
		Str("status", string(scores.Status)).
		Msg("candidate analyzed")

	return &CandidateAnalysis{
		CandidateID: input.CandidateID,
		Chunks:      chunks,
		Meta:        meta,
		Analysis:    analysis,
		Scores:      scores,
	}, nil
}

// embedChunks vectorizes the candidate's chunks in one ordered pass, skipping
// chunks that already carry a valid vector (re-embedding is idempotent). A
// failed gateway call aborts the candidate; it never proceeds with a mix of
// real and zero vectors. Individual invalid vectors only drop their chunk.
func (p *CandidateProcessor) embedChunks(ctx context.Context, candidateID string, chunks []*types.Chunk) error {
	dim := p.embedder.Dimensions()

	var texts []string
	var pending []*types.Chunk
	for _, chunk := range chunks {
		if matching.ValidVector(chunk.Embedding, dim) {
			continue
		}
		chunk.Embedding = nil
		texts = append(texts, chunk.Content)
		pending = append(pending, chunk)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := p.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return NewEmbeddingsFailedError(candidateID, err.Error())
	}
	if len(vectors) != len(pending) {
		return NewEmbeddingsFailedError(candidateID, fmt.Sprintf("chunk vector count mismatch: want %d, got %d", len(pending), len(vectors)))
	}

	dropped := 0
	for i, chunk := range pending {
		if matching.ValidVector(vectors[i], dim) {
			chunk.Embedding = vectors[i]
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		p.logger.Warn().
			Str("candidate_id", candidateID).
			Int("dropped", dropped).
			Int("total", len(pending)).
			Msg("dropped chunks with invalid vectors")
	}
	return nil
}

// AnalyzeBatch scores a batch of candidates against one job and returns them
// ranked by final score. Scoring itself is independent per candidate;
// duplicate detection runs afterwards as a sequential fold in input order so
// canonical-vs-duplicate assignment is deterministic.
func (p *CandidateProcessor) AnalyzeBatch(ctx context.Context, inputs []CandidateInput, requirements []types.Requirement, band *types.ExperienceBand) (*BatchResult, error) {
	tracer := otel.Tracer("cv-match-go/processor")
	ctx, span := tracer.Start(ctx, "CandidateProcessor.AnalyzeBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(inputs)))

	embedded, err := p.EmbedRequirements(ctx, requirements)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, err
	}

	result := &BatchResult{Chunks: make(map[string][]*types.Chunk), Failed: make(map[string]error)}
	for _, input := range inputs {
		analysis, err := p.AnalyzeCandidate(ctx, input, embedded, band)
		if err != nil {
			p.logger.Warn().Err(err).Str("candidate_id", input.CandidateID).Msg("candidate analysis failed")
			result.Failed[input.CandidateID] = err
			continue
		}
		result.Chunks[input.CandidateID] = analysis.Chunks
		result.Ranked = append(result.Ranked, &types.RankedCandidate{
			CandidateID: analysis.CandidateID,
			Scores:      analysis.Scores,
			Analysis:    analysis.Analysis,
			Meta:        analysis.Meta,
		})
	}

	// Duplicate fold before ranking: duplicates are excluded regardless of
	// their own score but stay visible in the output.
	scoring.MarkDuplicates(result.Ranked)

	sort.SliceStable(result.Ranked, func(i, j int) bool {
		return result.Ranked[i].Scores.FinalScore > result.Ranked[j].Scores.FinalScore
	})

	return result, nil
}
