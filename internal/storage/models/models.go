package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Job is a job posting with its weighted requirement list and optional
// experience band, both stored as JSON documents.
type Job struct {
	JobID              string         `gorm:"type:char(36);primaryKey"`
	Title              string         `gorm:"type:varchar(255);not null"`
	Department         string         `gorm:"type:varchar(255)"`
	Location           string         `gorm:"type:varchar(255)"`
	DescriptionText    string         `gorm:"type:text"`
	RequirementsJSON   datatypes.JSON `gorm:"type:json;not null"`
	ExperienceBandJSON datatypes.JSON `gorm:"type:json"`
	Status             string         `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jobs_status"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// Candidate is one uploaded résumé targeted at a job. The raw file and its
// extracted text live in object storage; only their keys are kept here.
type Candidate struct {
	CandidateID      string    `gorm:"type:char(36);primaryKey"`
	JobID            string    `gorm:"type:char(36);not null;index:idx_candidates_job_id"`
	DisplayName      string    `gorm:"type:varchar(255)"`
	Email            string    `gorm:"type:varchar(255);index:idx_candidates_email"`
	Phone            string    `gorm:"type:varchar(50)"`
	OriginalFilename string    `gorm:"type:varchar(255)"`
	OriginalFileKey  string    `gorm:"type:varchar(1024)"`
	ParsedTextKey    string    `gorm:"type:varchar(1024)"`
	RawFileMD5       string    `gorm:"type:char(32);index:idx_candidates_raw_file_md5"`
	ProcessingStatus string    `gorm:"type:varchar(50);default:'PENDING_ANALYSIS';index:idx_candidates_processing_status"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Job *Job `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// CandidateChunk is one section-tagged slice of a candidate's résumé text,
// persisted so an analysis can be audited without re-running the segmenter.
type CandidateChunk struct {
	ChunkDBID   uint64    `gorm:"primaryKey;autoIncrement"`
	CandidateID string    `gorm:"type:char(36);not null;index:idx_cc_candidate_id;uniqueIndex:idx_cc_candidate_chunk,priority:1"`
	ChunkID     int       `gorm:"not null;uniqueIndex:idx_cc_candidate_chunk,priority:2"`
	Section     string    `gorm:"type:varchar(50);not null;index:idx_cc_section"`
	Content     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateChunk) TableName() string {
	return "candidate_chunks"
}

// AnalysisRecord is the scored outcome of one candidate against one job. A
// re-analysis upserts the same row; history is not kept.
type AnalysisRecord struct {
	RecordID         uint64         `gorm:"primaryKey;autoIncrement"`
	JobID            string         `gorm:"type:char(36);not null;index:idx_ar_job_final_score,priority:1;uniqueIndex:idx_ar_job_candidate,priority:1"`
	CandidateID      string         `gorm:"type:char(36);not null;uniqueIndex:idx_ar_job_candidate,priority:2"`
	CompositeScore10 *float64       `gorm:"type:float"`
	FinalScore       *float64       `gorm:"type:float;index:idx_ar_job_final_score,priority:2"`
	Status           string         `gorm:"type:varchar(50);default:'PENDING';index:idx_ar_status"`
	DuplicateOf      *string        `gorm:"type:char(36)"`
	BreakdownJSON    datatypes.JSON `gorm:"type:json"`
	GapsJSON         datatypes.JSON `gorm:"type:json"`
	MetaJSON         datatypes.JSON `gorm:"type:json"`
	ErrorCode        string         `gorm:"type:varchar(50)"`
	AnalyzedAt       *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Job       *Job       `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

// ToJSON marshals any value into a datatypes.JSON column value.
func ToJSON(v any) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
