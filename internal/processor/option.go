package processor

import (
	"cv-match-go/internal/matching"
	"cv-match-go/internal/parser"
	"cv-match-go/internal/scoring"

	"github.com/rs/zerolog"
)

// Option configures a CandidateProcessor.
type Option func(*CandidateProcessor)

// WithChunker replaces the default section chunker.
func WithChunker(chunker *parser.SectionChunker) Option {
	return func(p *CandidateProcessor) {
		if chunker != nil {
			p.chunker = chunker
		}
	}
}

// WithMatchPolicy overrides the requirement-scoring constants.
func WithMatchPolicy(policy matching.MatchPolicy) Option {
	return func(p *CandidateProcessor) {
		p.matchPolicy = policy
	}
}

// WithAggregatePolicy overrides the gap-detection thresholds.
func WithAggregatePolicy(policy matching.AggregatePolicy) Option {
	return func(p *CandidateProcessor) {
		p.aggPolicy = policy
	}
}

// WithScoringPolicy overrides the composite-scoring constants.
func WithScoringPolicy(policy scoring.ScoringPolicy) Option {
	return func(p *CandidateProcessor) {
		p.scoringPolicy = policy
	}
}

// WithProcessorLogger sets the processor's logger.
func WithProcessorLogger(logger zerolog.Logger) Option {
	return func(p *CandidateProcessor) {
		p.logger = logger
	}
}
