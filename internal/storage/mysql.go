package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"cv-match-go/internal/config"
	"cv-match-go/internal/storage/models"
)

var mysqlTracer = otel.Tracer("cv-match-go/storage/mysql")

// ErrRecordNotFound re-exports gorm's not-found sentinel so callers do not
// import gorm directly.
var ErrRecordNotFound = gorm.ErrRecordNotFound

type gormSpanKey struct{}

// gormTracingPlugin registers OpenTelemetry spans around every gorm
// operation, tagged with the table and SQL operation kind.
type gormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

func (p *gormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

func (p *gormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	// gorm exposes one callback chain per statement kind; wrap each of them.
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}
	return nil
}

func (p *gormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}
		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

func (p *gormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// Not-found is a normal outcome, not a failure.
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
				return
			}
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// MySQL wraps the gorm connection and the relational operations of the
// application.
type MySQL struct {
	db *gorm.DB
}

// NewMySQL opens the connection, configures the pool and runs auto-migration
// for the application schema.
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config cannot be nil")
	}

	logLevel := gormlogger.LogLevel(cfg.LogLevel)
	if logLevel == 0 {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	if err := db.Use(&gormTracingPlugin{tracer: mysqlTracer, dbName: cfg.Database}); err != nil {
		return nil, fmt.Errorf("register gorm tracing plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access underlying sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	if err := db.AutoMigrate(
		&models.Job{},
		&models.Candidate{},
		&models.CandidateChunk{},
		&models.AnalysisRecord{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate schema: %w", err)
	}

	return &MySQL{db: db}, nil
}

// DB exposes the raw gorm handle for operations not covered here.
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close closes the underlying connection pool.
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateJob inserts a new job posting.
func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	return m.db.WithContext(ctx).Create(job).Error
}

// GetJob loads one job by id.
func (m *MySQL) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJobRequirements replaces a job's requirement list. The caller is
// responsible for invalidating the cached requirement vectors afterwards.
func (m *MySQL) UpdateJobRequirements(ctx context.Context, jobID string, requirementsJSON datatypes.JSON) error {
	result := m.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("job_id = ?", jobID).
		Update("requirements_json", requirementsJSON)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateCandidate inserts a new candidate row.
func (m *MySQL) CreateCandidate(ctx context.Context, candidate *models.Candidate) error {
	return m.db.WithContext(ctx).Create(candidate).Error
}

// GetCandidate loads one candidate by id.
func (m *MySQL) GetCandidate(ctx context.Context, candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := m.db.WithContext(ctx).First(&candidate, "candidate_id = ?", candidateID).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

// ListCandidatesByJob returns all candidates uploaded against one job.
func (m *MySQL) ListCandidatesByJob(ctx context.Context, jobID string) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := m.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&candidates).Error
	return candidates, err
}

// UpdateCandidateStatus moves a candidate through its processing lifecycle.
func (m *MySQL) UpdateCandidateStatus(ctx context.Context, candidateID, status string) error {
	result := m.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Where("candidate_id = ?", candidateID).
		Update("processing_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateCandidateFields applies a partial update to one candidate row. A
// no-op update (identical values) is not an error, so retried messages stay
// idempotent.
func (m *MySQL) UpdateCandidateFields(ctx context.Context, candidateID string, fields map[string]interface{}) error {
	return m.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Where("candidate_id = ?", candidateID).
		Updates(fields).Error
}

// DeleteCandidate removes a candidate together with its chunks and analysis
// records in one transaction.
func (m *MySQL) DeleteCandidate(ctx context.Context, candidateID string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.CandidateChunk{}).Error; err != nil {
			return err
		}
		if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.AnalysisRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("candidate_id = ?", candidateID).Delete(&models.Candidate{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ReplaceCandidateChunks swaps the stored chunk set of one candidate in a
// single transaction, keeping re-analysis idempotent.
func (m *MySQL) ReplaceCandidateChunks(ctx context.Context, candidateID string, chunks []models.CandidateChunk) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.CandidateChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.Create(&chunks).Error
	})
}

// UpsertAnalysisRecord writes the scored outcome for one (job, candidate)
// pair, overwriting any previous analysis of the same pair.
func (m *MySQL) UpsertAnalysisRecord(ctx context.Context, record *models.AnalysisRecord) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}, {Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"composite_score10", "final_score", "status", "duplicate_of",
			"breakdown_json", "gaps_json", "meta_json", "error_code", "analyzed_at",
		}),
	}).Create(record).Error
}

// ListAnalysisRecordsByJob returns a job's analysis outcomes ordered by final
// score, best first. Failed candidates (null score) sort last.
func (m *MySQL) ListAnalysisRecordsByJob(ctx context.Context, jobID string) ([]models.AnalysisRecord, error) {
	var records []models.AnalysisRecord
	err := m.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("final_score IS NULL, final_score DESC").
		Find(&records).Error
	return records, err
}
