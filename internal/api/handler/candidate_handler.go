package handler

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cv-match-go/internal/config"
	"cv-match-go/internal/logger"
	"cv-match-go/internal/storage"
	"cv-match-go/internal/storage/models"
)

// CandidateHandler receives résumé uploads and queues them for extraction.
type CandidateHandler struct {
	cfg     *config.Config
	storage *storage.Storage
}

// NewCandidateHandler wires the handler to its storage dependencies.
func NewCandidateHandler(cfg *config.Config, st *storage.Storage) *CandidateHandler {
	return &CandidateHandler{cfg: cfg, storage: st}
}

// CandidateUploadResponse is the upload endpoint's payload.
type CandidateUploadResponse struct {
	CandidateID string `json:"candidate_id"`
	Status      string `json:"status"`
}

// presignExpiry bounds how long a download link stays valid.
const presignExpiry = 15 * time.Minute

// CandidateFileURLResponse carries a temporary download link for the
// candidate's original upload.
type CandidateFileURLResponse struct {
	CandidateID      string `json:"candidate_id"`
	URL              string `json:"url"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// CandidateDeleteResponse confirms a candidate's removal.
type CandidateDeleteResponse struct {
	CandidateID string `json:"candidate_id"`
	Status      string `json:"status"`
}

// HandleCandidateUpload stores an uploaded résumé and publishes the
// extraction event. Re-uploads of a byte-identical file are skipped via the
// MD5 set; content-level duplicates (same person, different file) are caught
// later during batch analysis.
func (h *CandidateHandler) HandleCandidateUpload(ctx context.Context, reader io.Reader, fileSize int64, filename, jobID string) (*CandidateUploadResponse, error) {
	if jobID == "" {
		return nil, &APIError{Code: "INVALID_REQUEST", Message: "job_id is required"}
	}
	if _, err := h.storage.MySQL.GetJob(ctx, jobID); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, &APIError{Code: "JOB_NOT_FOUND", Message: "job does not exist"}
		}
		return nil, fmt.Errorf("load job: %w", err)
	}

	// The reader can only be consumed once and the MD5 gate must run before
	// the object upload, so buffer the file.
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(fileBytes) == 0 {
		return nil, &APIError{Code: "INVALID_REQUEST", Message: "uploaded file is empty"}
	}
	sum := md5.Sum(fileBytes)
	fileMD5 := hex.EncodeToString(sum[:])

	seen, err := h.storage.Redis.CheckAndAddRawFileMD5(ctx, fileMD5)
	if err != nil {
		return nil, fmt.Errorf("check file md5: %w", err)
	}
	if seen {
		logger.Info().Str("md5", fileMD5).Str("filename", filename).Msg("duplicate file upload skipped")
		return &CandidateUploadResponse{Status: "DUPLICATE_FILE_SKIPPED"}, nil
	}

	candUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate candidate id: %w", err)
	}
	candidateID := candUUID.String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}
	objectKey, _, err := h.storage.MinIO.UploadCandidateFile(ctx, candidateID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		return nil, fmt.Errorf("store original file: %w", err)
	}

	candidate := &models.Candidate{
		CandidateID:      candidateID,
		JobID:            jobID,
		OriginalFilename: filename,
		OriginalFileKey:  objectKey,
		RawFileMD5:       fileMD5,
		ProcessingStatus: "PENDING_EXTRACTION",
	}
	if err := h.storage.MySQL.CreateCandidate(ctx, candidate); err != nil {
		return nil, fmt.Errorf("store candidate: %w", err)
	}

	if h.storage.RabbitMQ != nil {
		event := storage.CandidateUploadedEvent{
			CandidateID:      candidateID,
			JobID:            jobID,
			OriginalFileKey:  objectKey,
			OriginalFilename: filename,
			RawFileMD5:       fileMD5,
			UploadedAt:       time.Now(),
		}
		if err := h.storage.RabbitMQ.PublishCandidateUploaded(ctx, event); err != nil {
			return nil, fmt.Errorf("publish upload event: %w", err)
		}
	} else {
		logger.Warn().Str("candidate_id", candidateID).Msg("rabbitmq not configured, extraction event not published")
	}

	logger.Info().
		Str("candidate_id", candidateID).
		Str("job_id", jobID).
		Str("filename", filename).
		Msg("candidate uploaded, extraction queued")
	return &CandidateUploadResponse{CandidateID: candidateID, Status: "SUBMITTED_FOR_EXTRACTION"}, nil
}

// HandleGetCandidateFileURL returns a short-lived presigned link to the
// candidate's original upload, so reviewers can read the résumé without the
// API proxying file bytes.
func (h *CandidateHandler) HandleGetCandidateFileURL(ctx context.Context, candidateID string) (*CandidateFileURLResponse, error) {
	if candidateID == "" {
		return nil, &APIError{Code: "INVALID_REQUEST", Message: "candidate_id is required"}
	}

	candidate, err := h.storage.MySQL.GetCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, &APIError{Code: "CANDIDATE_NOT_FOUND", Message: "candidate does not exist"}
		}
		return nil, fmt.Errorf("load candidate: %w", err)
	}
	if candidate.OriginalFileKey == "" {
		return nil, &APIError{Code: "CANDIDATE_NOT_FOUND", Message: "candidate has no stored file"}
	}

	url, err := h.storage.MinIO.GetPresignedURL(ctx, candidate.OriginalFileKey, presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign candidate file: %w", err)
	}
	return &CandidateFileURLResponse{
		CandidateID:      candidateID,
		URL:              url,
		ExpiresInSeconds: int(presignExpiry.Seconds()),
	}, nil
}

// HandleDeleteCandidate removes a candidate: stored objects first, then the
// relational rows, then the job's cached ranking. Object deletion going first
// means a failure can leave rows pointing at deleted objects, which analysis
// already tolerates as a no-text candidate.
func (h *CandidateHandler) HandleDeleteCandidate(ctx context.Context, candidateID string) (*CandidateDeleteResponse, error) {
	if candidateID == "" {
		return nil, &APIError{Code: "INVALID_REQUEST", Message: "candidate_id is required"}
	}

	candidate, err := h.storage.MySQL.GetCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, &APIError{Code: "CANDIDATE_NOT_FOUND", Message: "candidate does not exist"}
		}
		return nil, fmt.Errorf("load candidate: %w", err)
	}

	if err := h.storage.MinIO.DeleteCandidateObjects(ctx, candidate.OriginalFileKey, candidate.ParsedTextKey); err != nil {
		return nil, fmt.Errorf("delete candidate objects: %w", err)
	}
	if err := h.storage.MySQL.DeleteCandidate(ctx, candidateID); err != nil {
		return nil, fmt.Errorf("delete candidate rows: %w", err)
	}
	if err := h.storage.Redis.InvalidateRanking(ctx, candidate.JobID); err != nil {
		logger.Warn().Err(err).Str("job_id", candidate.JobID).Msg("failed to invalidate ranking cache")
	}

	logger.Info().
		Str("candidate_id", candidateID).
		Str("job_id", candidate.JobID).
		Msg("candidate deleted")
	return &CandidateDeleteResponse{CandidateID: candidateID, Status: "DELETED"}, nil
}
