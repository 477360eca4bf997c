package processor

import (
	"errors"
	"fmt"
)

// Base error kinds of an analysis run. Input problems (no text, no
// requirements) are unprocessable and not retried; an embedding failure is an
// upstream-dependency failure and the caller may retry the whole batch.
var (
	ErrNoCVText          = errors.New("candidate has no usable résumé text")
	ErrNoJobRequirements = errors.New("job has no requirements")
	ErrEmbeddingsFailed  = errors.New("embedding gateway call failed")
)

// Stable error codes surfaced to API clients.
const (
	CodeNoCVText          = "NO_CV_TEXT"
	CodeNoJobRequirements = "NO_JOB_REQUIREMENTS"
	CodeEmbeddingsFailed  = "EMBEDDINGS_FAILED"
	CodeInternal          = "INTERNAL"
)

// AnalysisError carries the failing candidate and operation alongside the
// base kind.
type AnalysisError struct {
	CandidateID string
	Op          string
	BaseErr     error
	Detail      string
}

func (e *AnalysisError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (op:%s, candidate:%s): %s", e.BaseErr, e.Op, e.CandidateID, e.Detail)
	}
	return fmt.Sprintf("%s (op:%s, candidate:%s)", e.BaseErr, e.Op, e.CandidateID)
}

func (e *AnalysisError) Unwrap() error {
	return e.BaseErr
}

// Is supports errors.Is against the base kinds.
func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func NewNoCVTextError(candidateID, detail string) error {
	return &AnalysisError{CandidateID: candidateID, Op: "segment", BaseErr: ErrNoCVText, Detail: detail}
}

func NewNoJobRequirementsError(candidateID, detail string) error {
	return &AnalysisError{CandidateID: candidateID, Op: "validate", BaseErr: ErrNoJobRequirements, Detail: detail}
}

func NewEmbeddingsFailedError(candidateID, detail string) error {
	return &AnalysisError{CandidateID: candidateID, Op: "embed", BaseErr: ErrEmbeddingsFailed, Detail: detail}
}

// ErrorCode maps any error to its stable API code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoCVText):
		return CodeNoCVText
	case errors.Is(err, ErrNoJobRequirements):
		return CodeNoJobRequirements
	case errors.Is(err, ErrEmbeddingsFailed):
		return CodeEmbeddingsFailed
	default:
		return CodeInternal
	}
}
