package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cv-match-go/internal/config"
	"cv-match-go/internal/logger"
	"cv-match-go/internal/matching"
	"cv-match-go/internal/processor"
	"cv-match-go/internal/storage"
	"cv-match-go/internal/storage/models"
	"cv-match-go/internal/types"
)

// JobHandler coordinates job creation, batch analysis and ranking reads.
type JobHandler struct {
	cfg       *config.Config
	storage   *storage.Storage
	processor *processor.CandidateProcessor
}

// NewJobHandler wires the handler to its storage and processing dependencies.
func NewJobHandler(cfg *config.Config, st *storage.Storage, proc *processor.CandidateProcessor) *JobHandler {
	return &JobHandler{cfg: cfg, storage: st, processor: proc}
}

// CreateJobRequest is the POST /jobs payload.
type CreateJobRequest struct {
	Title          string                `json:"title"`
	Department     string                `json:"department"`
	Location       string                `json:"location"`
	Description    string                `json:"description"`
	Requirements   []types.Requirement   `json:"requirements"`
	ExperienceBand *types.ExperienceBand `json:"experience_band,omitempty"`
}

// CreateJobResponse returns the new job's id.
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// APIError is the error envelope returned by every endpoint.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HandleCreateJob validates and stores a new job posting.
func (h *JobHandler) HandleCreateJob(ctx context.Context, req *CreateJobRequest) (*CreateJobResponse, error) {
	if req.Title == "" {
		return nil, &APIError{Code: "INVALID_REQUEST", Message: "title is required"}
	}
	if err := validateRequirements(req.Requirements); err != nil {
		return nil, err
	}

	jobUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	jobID := jobUUID.String()

	requirementsJSON, err := models.ToJSON(req.Requirements)
	if err != nil {
		return nil, fmt.Errorf("marshal requirements: %w", err)
	}
	job := &models.Job{
		JobID:            jobID,
		Title:            req.Title,
		Department:       req.Department,
		Location:         req.Location,
		DescriptionText:  req.Description,
		RequirementsJSON: requirementsJSON,
	}
	if req.ExperienceBand != nil {
		bandJSON, err := models.ToJSON(req.ExperienceBand)
		if err != nil {
			return nil, fmt.Errorf("marshal experience band: %w", err)
		}
		job.ExperienceBandJSON = bandJSON
	}

	if err := h.storage.MySQL.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("store job: %w", err)
	}

	logger.Info().Str("job_id", jobID).Str("title", req.Title).Int("requirements", len(req.Requirements)).Msg("job created")
	return &CreateJobResponse{JobID: jobID, Status: "CREATED"}, nil
}

// UpdateRequirementsRequest is the PUT /jobs/:job_id/requirements payload.
type UpdateRequirementsRequest struct {
	Requirements []types.Requirement `json:"requirements"`
}

// UpdateRequirementsResponse confirms the replacement.
type UpdateRequirementsResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// HandleUpdateRequirements replaces a job's requirement list. The cached
// requirement vectors and the ranking are invalidated: both were computed
// against the old list and the next analysis must re-embed.
func (h *JobHandler) HandleUpdateRequirements(ctx context.Context, jobID string, req *UpdateRequirementsRequest) (*UpdateRequirementsResponse, error) {
	if err := validateRequirements(req.Requirements); err != nil {
		return nil, err
	}

	requirementsJSON, err := models.ToJSON(req.Requirements)
	if err != nil {
		return nil, fmt.Errorf("marshal requirements: %w", err)
	}
	if err := h.storage.MySQL.UpdateJobRequirements(ctx, jobID, requirementsJSON); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, &APIError{Code: "JOB_NOT_FOUND", Message: "job does not exist"}
		}
		return nil, fmt.Errorf("update requirements: %w", err)
	}

	if err := h.storage.Redis.InvalidateJobRequirementVectors(ctx, jobID); err != nil {
		logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to invalidate requirement vector cache")
	}
	if err := h.storage.Redis.InvalidateRanking(ctx, jobID); err != nil {
		logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to invalidate ranking cache")
	}

	logger.Info().Str("job_id", jobID).Int("requirements", len(req.Requirements)).Msg("job requirements updated")
	return &UpdateRequirementsResponse{JobID: jobID, Status: "UPDATED"}, nil
}

// validateRequirements rejects empty lists and blank requirement texts.
func validateRequirements(requirements []types.Requirement) error {
	if len(requirements) == 0 {
		return &APIError{Code: processor.CodeNoJobRequirements, Message: "at least one requirement is required"}
	}
	for i := range requirements {
		if requirements[i].Text == "" {
			return &APIError{Code: "INVALID_REQUEST", Message: fmt.Sprintf("requirement %d has empty text", i)}
		}
	}
	return nil
}

// RankedEntry is one row of the ranking response.
type RankedEntry struct {
	CandidateID      string            `json:"candidate_id"`
	DisplayName      string            `json:"display_name,omitempty"`
	FinalScore       *float64          `json:"final_score,omitempty"`
	CompositeScore10 *float64          `json:"composite_score_10,omitempty"`
	Status           string            `json:"status"`
	DuplicateOf      string            `json:"duplicate_of,omitempty"`
	Gaps             *types.GapSummary `json:"gaps,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`
}

// RankingResponse is the GET /jobs/:job_id/ranking payload.
type RankingResponse struct {
	JobID       string        `json:"job_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Candidates  []RankedEntry `json:"candidates"`
}

// AnalyzeResponse summarizes one batch analysis run.
type AnalyzeResponse struct {
	JobID    string            `json:"job_id"`
	Analyzed int               `json:"analyzed"`
	Failed   map[string]string `json:"failed,omitempty"` // candidate id -> error code
}

// HandleAnalyzeJob scores every extracted candidate of a job and persists the
// outcome. Requirement vectors are cached per job; repeated runs skip the
// embedding gateway.
func (h *JobHandler) HandleAnalyzeJob(ctx context.Context, jobID string) (*AnalyzeResponse, error) {
	job, err := h.storage.MySQL.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, &APIError{Code: "JOB_NOT_FOUND", Message: "job does not exist"}
		}
		return nil, fmt.Errorf("load job: %w", err)
	}

	var requirements []types.Requirement
	if err := json.Unmarshal(job.RequirementsJSON, &requirements); err != nil {
		return nil, fmt.Errorf("decode job requirements: %w", err)
	}
	if len(requirements) == 0 {
		return nil, &APIError{Code: processor.CodeNoJobRequirements, Message: "job has no requirements"}
	}

	var band *types.ExperienceBand
	if len(job.ExperienceBandJSON) > 0 {
		band = &types.ExperienceBand{}
		if err := json.Unmarshal(job.ExperienceBandJSON, band); err != nil {
			return nil, fmt.Errorf("decode experience band: %w", err)
		}
	}

	requirements = h.loadCachedVectors(ctx, jobID, requirements)
	embedded, err := h.processor.EmbedRequirements(ctx, requirements)
	if err != nil {
		return nil, h.mapProcessorError(err)
	}
	if cacheErr := h.storage.Redis.CacheJobRequirementVectors(ctx, jobID, embedded); cacheErr != nil {
		logger.Warn().Err(cacheErr).Str("job_id", jobID).Msg("failed to cache requirement vectors")
	}

	inputs, preFailed, err := h.collectInputs(ctx, jobID)
	if err != nil {
		return nil, err
	}

	result, err := h.processor.AnalyzeBatch(ctx, inputs, embedded, band)
	if err != nil {
		return nil, h.mapProcessorError(err)
	}

	if err := h.persistResults(ctx, jobID, result); err != nil {
		return nil, err
	}
	h.persistFailures(ctx, jobID, result.Failed)

	if err := h.storage.Redis.InvalidateRanking(ctx, jobID); err != nil {
		logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to invalidate ranking cache")
	}

	resp := &AnalyzeResponse{JobID: jobID, Analyzed: len(result.Ranked), Failed: map[string]string{}}
	for candidateID, code := range preFailed {
		resp.Failed[candidateID] = code
	}
	for candidateID, failErr := range result.Failed {
		resp.Failed[candidateID] = processor.ErrorCode(failErr)
	}
	if len(resp.Failed) == 0 {
		resp.Failed = nil
	}
	return resp, nil
}

// loadCachedVectors overlays previously cached vectors onto the job's
// requirement list. Cache entries are matched by text; stale entries are
// simply ignored and re-embedded.
func (h *JobHandler) loadCachedVectors(ctx context.Context, jobID string, requirements []types.Requirement) []types.Requirement {
	cached, err := h.storage.Redis.GetJobRequirementVectors(ctx, jobID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Err(err).Str("job_id", jobID).Msg("requirement vector cache read failed")
		}
		return requirements
	}

	byText := make(map[string][]float64, len(cached))
	for _, c := range cached {
		byText[c.Text] = c.Vector
	}
	for i := range requirements {
		if vec, ok := byText[requirements[i].Text]; ok && matching.ValidVector(vec, 0) {
			requirements[i].Vector = vec
		}
	}
	return requirements
}

// collectInputs loads the extracted text of every analyzable candidate.
// Candidates without extracted text are reported, not silently skipped.
func (h *JobHandler) collectInputs(ctx context.Context, jobID string) ([]processor.CandidateInput, map[string]string, error) {
	candidates, err := h.storage.MySQL.ListCandidatesByJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("list candidates: %w", err)
	}

	var inputs []processor.CandidateInput
	preFailed := make(map[string]string)
	for _, cand := range candidates {
		if cand.ParsedTextKey == "" {
			preFailed[cand.CandidateID] = processor.CodeNoCVText
			continue
		}
		text, err := h.storage.MinIO.GetParsedText(ctx, cand.ParsedTextKey)
		if err != nil {
			logger.Warn().Err(err).Str("candidate_id", cand.CandidateID).Msg("failed to load parsed text")
			preFailed[cand.CandidateID] = processor.CodeInternal
			continue
		}
		inputs = append(inputs, processor.CandidateInput{
			CandidateID: cand.CandidateID,
			RawText:     text,
			SourceName:  cand.OriginalFilename,
		})
	}
	return inputs, preFailed, nil
}

func (h *JobHandler) persistResults(ctx context.Context, jobID string, result *processor.BatchResult) error {
	now := time.Now()
	for _, cand := range result.Ranked {
		breakdownJSON, err := models.ToJSON(cand.Analysis.Breakdown)
		if err != nil {
			return fmt.Errorf("marshal breakdown for %s: %w", cand.CandidateID, err)
		}
		gapsJSON, err := models.ToJSON(cand.Analysis.Gaps)
		if err != nil {
			return fmt.Errorf("marshal gaps for %s: %w", cand.CandidateID, err)
		}
		metaJSON, err := models.ToJSON(cand.Meta)
		if err != nil {
			return fmt.Errorf("marshal meta for %s: %w", cand.CandidateID, err)
		}

		composite := cand.Analysis.CompositeScore10
		final := cand.Scores.FinalScore
		record := &models.AnalysisRecord{
			JobID:            jobID,
			CandidateID:      cand.CandidateID,
			CompositeScore10: &composite,
			FinalScore:       &final,
			Status:           string(cand.Scores.Status),
			BreakdownJSON:    breakdownJSON,
			GapsJSON:         gapsJSON,
			MetaJSON:         metaJSON,
			AnalyzedAt:       &now,
		}
		if cand.Scores.DuplicateOf != "" {
			dup := cand.Scores.DuplicateOf
			record.DuplicateOf = &dup
		}
		if err := h.storage.MySQL.UpsertAnalysisRecord(ctx, record); err != nil {
			return fmt.Errorf("persist analysis for %s: %w", cand.CandidateID, err)
		}

		if chunks, ok := result.Chunks[cand.CandidateID]; ok {
			rows := make([]models.CandidateChunk, len(chunks))
			for i, chunk := range chunks {
				rows[i] = models.CandidateChunk{
					CandidateID: cand.CandidateID,
					ChunkID:     chunk.ChunkID,
					Section:     string(chunk.Section),
					Content:     chunk.Content,
				}
			}
			if err := h.storage.MySQL.ReplaceCandidateChunks(ctx, cand.CandidateID, rows); err != nil {
				return fmt.Errorf("persist chunks for %s: %w", cand.CandidateID, err)
			}
		}

		if err := h.storage.MySQL.UpdateCandidateStatus(ctx, cand.CandidateID, "ANALYZED"); err != nil {
			logger.Warn().Err(err).Str("candidate_id", cand.CandidateID).Msg("failed to update candidate status")
		}
	}
	return nil
}

// persistFailures records per-candidate analysis failures so the ranking can
// surface them. Persistence errors here are logged, not fatal: the analysis
// itself already succeeded for the rest of the batch.
func (h *JobHandler) persistFailures(ctx context.Context, jobID string, failed map[string]error) {
	now := time.Now()
	for candidateID, failErr := range failed {
		record := &models.AnalysisRecord{
			JobID:       jobID,
			CandidateID: candidateID,
			Status:      "FAILED",
			ErrorCode:   processor.ErrorCode(failErr),
			AnalyzedAt:  &now,
		}
		if err := h.storage.MySQL.UpsertAnalysisRecord(ctx, record); err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("failed to persist analysis failure")
		}
		if err := h.storage.MySQL.UpdateCandidateStatus(ctx, candidateID, "ANALYSIS_FAILED"); err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("failed to update candidate status")
		}
	}
}

// HandleGetRanking returns a job's ranking, served from the Redis cache when
// fresh.
func (h *JobHandler) HandleGetRanking(ctx context.Context, jobID string) (*RankingResponse, error) {
	if payload, err := h.storage.Redis.GetRanking(ctx, jobID); err == nil {
		var resp RankingResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return &resp, nil
		}
		logger.Warn().Str("job_id", jobID).Msg("corrupt ranking cache entry, rebuilding")
	} else if !errors.Is(err, storage.ErrNotFound) {
		logger.Warn().Err(err).Str("job_id", jobID).Msg("ranking cache read failed")
	}

	if _, err := h.storage.MySQL.GetJob(ctx, jobID); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, &APIError{Code: "JOB_NOT_FOUND", Message: "job does not exist"}
		}
		return nil, fmt.Errorf("load job: %w", err)
	}

	records, err := h.storage.MySQL.ListAnalysisRecordsByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list analysis records: %w", err)
	}

	resp := &RankingResponse{JobID: jobID, GeneratedAt: time.Now(), Candidates: make([]RankedEntry, 0, len(records))}
	for _, record := range records {
		entry := RankedEntry{
			CandidateID:      record.CandidateID,
			FinalScore:       record.FinalScore,
			CompositeScore10: record.CompositeScore10,
			Status:           record.Status,
			ErrorCode:        record.ErrorCode,
		}
		if record.DuplicateOf != nil {
			entry.DuplicateOf = *record.DuplicateOf
		}
		if len(record.MetaJSON) > 0 {
			var meta types.CandidateMeta
			if err := json.Unmarshal(record.MetaJSON, &meta); err == nil {
				entry.DisplayName = meta.DisplayName
			}
		}
		if len(record.GapsJSON) > 0 {
			var gaps types.GapSummary
			if err := json.Unmarshal(record.GapsJSON, &gaps); err == nil {
				entry.Gaps = &gaps
			}
		}
		resp.Candidates = append(resp.Candidates, entry)
	}

	if payload, err := json.Marshal(resp); err == nil {
		if err := h.storage.Redis.CacheRanking(ctx, jobID, payload); err != nil {
			logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to cache ranking")
		}
	}
	return resp, nil
}

// mapProcessorError converts pipeline errors to API error envelopes.
func (h *JobHandler) mapProcessorError(err error) error {
	code := processor.ErrorCode(err)
	if code == processor.CodeInternal {
		return err
	}
	return &APIError{Code: code, Message: err.Error()}
}
