package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"cv-match-go/internal/config"
	"cv-match-go/internal/logger"
	"cv-match-go/internal/parser"
	"cv-match-go/internal/storage"
)

// ExtractionWorker consumes upload events and turns stored files into
// normalized plain text ready for analysis. It also backfills the candidate
// row with the heuristic contact fields so duplicate checks and ranking
// displays work before any scoring has run.
type ExtractionWorker struct {
	cfg       *config.Config
	storage   *storage.Storage
	extractor parser.TextExtractor
	logger    zerolog.Logger
}

// NewExtractionWorker wires the worker to its dependencies.
func NewExtractionWorker(cfg *config.Config, st *storage.Storage, extractor parser.TextExtractor) *ExtractionWorker {
	return &ExtractionWorker{
		cfg:       cfg,
		storage:   st,
		extractor: extractor,
		logger:    logger.Logger.With().Str("component", "extraction_worker").Logger(),
	}
}

// Run blocks consuming the analysis queue until ctx is canceled.
func (w *ExtractionWorker) Run(ctx context.Context) error {
	w.logger.Info().Str("queue", w.cfg.RabbitMQ.AnalysisQueue).Msg("extraction worker started")
	return w.storage.RabbitMQ.Consume(ctx, w.cfg.RabbitMQ.AnalysisQueue, w.cfg.RabbitMQ.PrefetchCount, w.handleMessage)
}

func (w *ExtractionWorker) handleMessage(ctx context.Context, body []byte) error {
	var event storage.CandidateUploadedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// A malformed message would loop forever on requeue; drop it.
		w.logger.Error().Err(err).Msg("discarding malformed upload event")
		return nil
	}
	if err := w.extract(ctx, event); err != nil {
		w.logger.Warn().Err(err).Str("candidate_id", event.CandidateID).Msg("extraction failed")
		return err
	}
	return nil
}

func (w *ExtractionWorker) extract(ctx context.Context, event storage.CandidateUploadedEvent) error {
	fileBytes, err := w.storage.MinIO.GetCandidateFile(ctx, event.OriginalFileKey)
	if err != nil {
		return fmt.Errorf("load original file: %w", err)
	}

	text, err := w.extractor.ExtractTextFromBytes(ctx, fileBytes, event.OriginalFilename)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	normalized := parser.NormalizeText(text)
	if normalized == "" {
		// Nothing extractable; analysis will later surface this candidate
		// with the no-text error code.
		if err := w.storage.MySQL.UpdateCandidateStatus(ctx, event.CandidateID, "EXTRACTION_EMPTY"); err != nil {
			return fmt.Errorf("mark extraction empty: %w", err)
		}
		w.logger.Warn().Str("candidate_id", event.CandidateID).Msg("no text extracted from upload")
		return nil
	}

	parsedKey, err := w.storage.MinIO.UploadParsedText(ctx, event.CandidateID, normalized)
	if err != nil {
		return fmt.Errorf("store parsed text: %w", err)
	}

	meta := parser.ExtractCandidateMeta(normalized, event.OriginalFilename)
	updates := map[string]interface{}{
		"parsed_text_key":   parsedKey,
		"display_name":      meta.DisplayName,
		"email":             meta.Email,
		"phone":             meta.Phone,
		"processing_status": "PENDING_ANALYSIS",
	}
	if err := w.storage.MySQL.UpdateCandidateFields(ctx, event.CandidateID, updates); err != nil {
		return fmt.Errorf("update candidate row: %w", err)
	}

	w.logger.Info().
		Str("candidate_id", event.CandidateID).
		Int("text_chars", len(normalized)).
		Msg("candidate text extracted")
	return nil
}
