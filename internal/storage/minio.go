package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"

	"cv-match-go/internal/config"
	"cv-match-go/internal/logger"
)

// ObjectStorage abstracts résumé file storage.
type ObjectStorage interface {
	// UploadCandidateFile streams the original upload into the originals
	// bucket, computing its MD5 on the way. Returns the object key and the
	// hex MD5.
	UploadCandidateFile(ctx context.Context, candidateID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)

	// UploadParsedText stores the extracted plain text of a candidate.
	UploadParsedText(ctx context.Context, candidateID, text string) (string, error)

	// GetCandidateFile downloads an original upload by object key.
	GetCandidateFile(ctx context.Context, objectKey string) ([]byte, error)

	// GetParsedText downloads a candidate's extracted text by object key.
	GetParsedText(ctx context.Context, objectKey string) (string, error)

	// GetPresignedURL returns a temporary download URL for an original.
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)

	// DeleteCandidateObjects removes both stored objects of a candidate.
	DeleteCandidateObjects(ctx context.Context, originalKey, parsedKey string) error
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO stores original uploads and extracted text in two buckets with
// independent retention.
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	parsedBucket   string
	logger         zerolog.Logger
}

// NewMinIO connects to the object store, ensures both buckets exist and
// applies the configured lifecycle rules.
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("minio config cannot be nil")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		originalBucket: cfg.OriginalsBucket,
		parsedBucket:   cfg.ParsedTextBucket,
		logger:         logger.Logger.With().Str("component", "minio").Logger(),
	}

	if err := m.ensureBucketExists(m.originalBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("ensure originals bucket %s: %w", m.originalBucket, err)
	}
	if err := m.ensureBucketExists(m.parsedBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("ensure parsed-text bucket %s: %w", m.parsedBucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 || cfg.ParsedTextExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			// Lifecycle is best-effort: some S3-compatible backends reject it.
			m.logger.Warn().Err(err).Msg("failed to set bucket lifecycle rules")
		}
	}

	m.logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("originals_bucket", m.originalBucket).
		Str("parsed_bucket", m.parsedBucket).
		Msg("minio client initialized")
	return m, nil
}

func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucketName, err)
	}
	m.logger.Info().Str("bucket", bucketName).Msg("bucket created")
	return nil
}

func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setBucketExpiry(ctx, m.originalBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return err
		}
	}
	if m.cfg.ParsedTextExpireDays > 0 {
		if err := m.setBucketExpiry(ctx, m.parsedBucket, "expire-parsed-text", m.cfg.ParsedTextExpireDays); err != nil {
			return err
		}
	}
	return nil
}

func (m *MinIO) setBucketExpiry(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	if err := m.client.SetBucketLifecycle(ctx, bucketName, lc); err != nil {
		return fmt.Errorf("set lifecycle on bucket %s: %w", bucketName, err)
	}
	return nil
}

// UploadCandidateFile streams the upload while hashing it, so dedup never
// needs a second pass over the file.
func (m *MinIO) UploadCandidateFile(ctx context.Context, candidateID, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	objectKey := fmt.Sprintf("candidates/%s/original%s", candidateID, fileExt)

	hasher := md5.New()
	tee := io.TeeReader(reader, hasher)

	_, err := m.client.PutObject(ctx, m.originalBucket, objectKey, tee, fileSize, minio.PutObjectOptions{
		ContentType: contentTypeForExt(fileExt),
	})
	if err != nil {
		return "", "", fmt.Errorf("upload original %s: %w", objectKey, err)
	}

	md5Hex := hex.EncodeToString(hasher.Sum(nil))
	m.logger.Debug().
		Str("candidate_id", candidateID).
		Str("object_key", objectKey).
		Str("md5", md5Hex).
		Msg("original file uploaded")
	return objectKey, md5Hex, nil
}

// UploadParsedText stores the extracted text alongside the original.
func (m *MinIO) UploadParsedText(ctx context.Context, candidateID, text string) (string, error) {
	objectKey := fmt.Sprintf("candidates/%s/parsed_text.txt", candidateID)
	_, err := m.client.PutObject(ctx, m.parsedBucket, objectKey, strings.NewReader(text), int64(len(text)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("upload parsed text %s: %w", objectKey, err)
	}
	return objectKey, nil
}

// GetCandidateFile downloads an original upload.
func (m *MinIO) GetCandidateFile(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.originalBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get original %s: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read original %s: %w", objectKey, err)
	}
	return data, nil
}

// GetParsedText downloads a candidate's extracted text.
func (m *MinIO) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.parsedBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get parsed text %s: %w", objectKey, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return "", fmt.Errorf("read parsed text %s: %w", objectKey, err)
	}
	return buf.String(), nil
}

// GetPresignedURL returns a temporary download URL for an original upload.
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.originalBucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", objectKey, err)
	}
	return u.String(), nil
}

// DeleteCandidateObjects removes a candidate's stored objects. Missing
// objects are not an error.
func (m *MinIO) DeleteCandidateObjects(ctx context.Context, originalKey, parsedKey string) error {
	if originalKey != "" {
		if err := m.client.RemoveObject(ctx, m.originalBucket, originalKey, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove original %s: %w", originalKey, err)
		}
	}
	if parsedKey != "" {
		if err := m.client.RemoveObject(ctx, m.parsedBucket, parsedKey, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove parsed text %s: %w", parsedKey, err)
		}
	}
	return nil
}

// contentTypeForExt maps common résumé extensions to MIME types.
func contentTypeForExt(fileExt string) string {
	switch strings.ToLower(fileExt) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
