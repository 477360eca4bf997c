package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
embedding:
  api_key: "sk-test"
  base_url: "https://api.openai.com/v1"
  model: "text-embedding-3-large"
  dimensions: 3072
mysql:
  host: "127.0.0.1"
  port: 3306
  username: "app"
  password: "secret"
  database: "cv_match"
server:
  address: ":9090"
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, 3072, cfg.Embedding.Dimensions)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "app:secret@tcp(127.0.0.1:3306)/cv_match?charset=utf8mb4&parseTime=True&loc=Local", cfg.MySQL.DSN())
}

func TestLoadConfigExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_EMBEDDING_KEY", "sk-from-env")

	path := writeTempConfig(t, `
embedding:
  api_key: "${TEST_EMBEDDING_KEY}"
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Embedding.APIKey)
}

func TestLoadConfigKeepsUnknownEnvReference(t *testing.T) {
	path := writeTempConfig(t, `
embedding:
  api_key: "${DOES_NOT_EXIST_XYZ}"
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "${DOES_NOT_EXIST_XYZ}", cfg.Embedding.APIKey)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, `
embedding:
  api_key: "sk-test"
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "candidate.events.exchange", cfg.RabbitMQ.CandidateEventsExchange)
	assert.Equal(t, "candidate.uploaded", cfg.RabbitMQ.UploadedRoutingKey)
	assert.Equal(t, "q.candidate_analysis", cfg.RabbitMQ.AnalysisQueue)
	assert.Equal(t, 30, cfg.Redis.MD5RecordExpireDays)
	assert.Equal(t, 300, cfg.Redis.RankingCacheTTLSecs)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "cv-originals", cfg.MinIO.OriginalsBucket)
	assert.Equal(t, "cv-parsed-text", cfg.MinIO.ParsedTextBucket)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}
