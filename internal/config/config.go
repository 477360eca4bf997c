package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, one section per subsystem.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Tika      TikaConfig      `yaml:"tika"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	MinIO     MinIOConfig     `yaml:"minio"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Scoring   ScoringConfig   `yaml:"scoring"`
}

// EmbeddingConfig points at an OpenAI-compatible /embeddings endpoint.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`      // texts per request
	Timeout    int    `yaml:"timeout_seconds"` // per-request timeout
}

// TikaConfig configures the external text-extraction server.
type TikaConfig struct {
	ServerURL string `yaml:"server_url"`
	Timeout   int    `yaml:"timeout_seconds"`
}

// MySQLConfig holds the relational store settings.
type MySQLConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	Database               string `yaml:"database"`
	Charset                string `yaml:"charset"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               int    `yaml:"log_level"` // gorm logger level: 1 silent .. 4 info
}

// DSN assembles the MySQL connection string.
func (c *MySQLConfig) DSN() string {
	charset := c.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, charset)
}

// RedisConfig holds connection and retention settings for Redis.
type RedisConfig struct {
	Address             string `yaml:"address"`
	Password            string `yaml:"password"`
	DB                  int    `yaml:"db"`
	PoolSize            int    `yaml:"pool_size"`
	DialTimeoutSeconds  int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MD5RecordExpireDays int    `yaml:"md5_record_expire_days"`
	RankingCacheTTLSecs int    `yaml:"ranking_cache_ttl_seconds"`
}

// MinIOConfig holds object-storage settings for résumé files.
type MinIOConfig struct {
	Endpoint               string `yaml:"endpoint"`
	AccessKeyID            string `yaml:"accessKeyID"`
	SecretAccessKey        string `yaml:"secretAccessKey"`
	UseSSL                 bool   `yaml:"useSSL"`
	OriginalsBucket        string `yaml:"originalsBucket"`
	ParsedTextBucket       string `yaml:"parsedTextBucket"`
	Location               string `yaml:"location"`
	OriginalFileExpireDays int    `yaml:"original_file_expire_days"`
	ParsedTextExpireDays   int    `yaml:"parsed_text_expire_days"`
}

// RabbitMQConfig holds the messaging topology for upload events.
type RabbitMQConfig struct {
	URL                     string `yaml:"url"`
	CandidateEventsExchange string `yaml:"candidate_events_exchange"`
	UploadedRoutingKey      string `yaml:"uploaded_routing_key"`
	AnalysisQueue           string `yaml:"analysis_queue"`
	PrefetchCount           int    `yaml:"prefetch_count"`
	MaxRetries              int    `yaml:"max_retries"`
	RetryInterval           string `yaml:"retry_interval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	APIKey  string `yaml:"api_key"` // optional; enables key auth when set
}

// LoggerConfig mirrors logger.Config so the whole app configures from one file.
type LoggerConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	TimeFormat   string `yaml:"time_format"`
	ReportCaller bool   `yaml:"report_caller"`
}

// TracingConfig controls the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // OTLP gRPC endpoint, host:port
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// ScoringConfig exposes the hand-tuned matching and scoring constants so a
// deployment can adjust policy without a rebuild. Zero values mean "use the
// built-in default".
type ScoringConfig struct {
	MustHavePenaltyThreshold float64 `yaml:"must_have_penalty_threshold"` // default 0.3
	MustHavePenalty          int     `yaml:"must_have_penalty"`           // default 4
	MissingThreshold         float64 `yaml:"missing_threshold"`           // default 0.35
	ImproveMinSimilarity     float64 `yaml:"improve_min_similarity"`      // default 0.2
	ImproveMaxScore10        int     `yaml:"improve_max_score_10"`        // default 7
	GatePercent              float64 `yaml:"gate_percent"`                // default 60
	RecommendThreshold       float64 `yaml:"recommend_threshold"`         // default 85
	ExcludeThreshold         float64 `yaml:"exclude_threshold"`           // default 65
}

// LoadConfig reads and parses a YAML config file. Values of the form
// ${ENV_NAME} are expanded from the environment before parsing, which keeps
// secrets like API keys out of the file itself.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "internal/config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		// Leave unknown references intact so they are visible in errors.
		return "${" + key + "}"
	})

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Embedding.Model == "" {
		config.Embedding.Model = "text-embedding-3-small"
	}
	if config.Embedding.Dimensions == 0 {
		config.Embedding.Dimensions = 1536
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 64
	}
	if config.Embedding.Timeout == 0 {
		config.Embedding.Timeout = 30
	}
	if config.Tika.Timeout == 0 {
		config.Tika.Timeout = 60
	}
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.RabbitMQ.RetryInterval == "" {
		config.RabbitMQ.RetryInterval = "5s"
	}
	if config.RabbitMQ.CandidateEventsExchange == "" {
		config.RabbitMQ.CandidateEventsExchange = "candidate.events.exchange"
	}
	if config.RabbitMQ.UploadedRoutingKey == "" {
		config.RabbitMQ.UploadedRoutingKey = "candidate.uploaded"
	}
	if config.RabbitMQ.AnalysisQueue == "" {
		config.RabbitMQ.AnalysisQueue = "q.candidate_analysis"
	}
	if config.Redis.MD5RecordExpireDays == 0 {
		config.Redis.MD5RecordExpireDays = 30
	}
	if config.Redis.RankingCacheTTLSecs == 0 {
		config.Redis.RankingCacheTTLSecs = 300
	}
	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Tracing.Endpoint == "" {
		config.Tracing.Endpoint = "localhost:4317"
	}
	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = "cv-match"
	}
	if config.Tracing.SampleRatio == 0 {
		config.Tracing.SampleRatio = 1.0
	}
	if strings.TrimSpace(config.MinIO.OriginalsBucket) == "" {
		config.MinIO.OriginalsBucket = "cv-originals"
	}
	if strings.TrimSpace(config.MinIO.ParsedTextBucket) == "" {
		config.MinIO.ParsedTextBucket = "cv-parsed-text"
	}
}
