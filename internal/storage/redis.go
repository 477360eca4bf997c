package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"cv-match-go/internal/config"
	"cv-match-go/internal/constants"
	"cv-match-go/internal/types"
)

// ErrNotFound is returned when a key is absent. It aliases redis.Nil so
// callers do not import the redis package.
var ErrNotFound = redis.Nil

// Redis wraps the client plus the application's key-value operations:
// upload dedup, requirement-vector caching and ranking caching.
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedis connects, instruments the client with OpenTelemetry tracing and
// verifies the connection with a ping.
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("instrument redis with opentelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the client connection.
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// md5ExpireDuration returns the configured retention of the upload-dedup set.
func (r *Redis) md5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// CheckAndAddRawFileMD5 registers an uploaded file's MD5 and reports whether
// it was seen before. The set expiry is refreshed on every write so the set
// ages out as a whole once uploads stop.
func (r *Redis) CheckAndAddRawFileMD5(ctx context.Context, md5Hex string) (seen bool, err error) {
	added, err := r.Client.SAdd(ctx, constants.RawFileMD5SetKey, md5Hex).Result()
	if err != nil {
		return false, fmt.Errorf("sadd file md5: %w", err)
	}
	if err := r.Client.Expire(ctx, constants.RawFileMD5SetKey, r.md5ExpireDuration()).Err(); err != nil {
		return false, fmt.Errorf("refresh md5 set expiry: %w", err)
	}
	return added == 0, nil
}

// cachedRequirement is the wire form of one requirement with its vector.
type cachedRequirement struct {
	Text     string    `json:"text"`
	MustHave bool      `json:"must_have"`
	Weight   int       `json:"weight"`
	Vector   []float64 `json:"vector"`
}

// CacheJobRequirementVectors stores a job's embedded requirements so repeated
// analyses of the same job skip the embedding gateway entirely.
func (r *Redis) CacheJobRequirementVectors(ctx context.Context, jobID string, requirements []types.Requirement) error {
	cached := make([]cachedRequirement, len(requirements))
	for i, req := range requirements {
		cached[i] = cachedRequirement{Text: req.Text, MustHave: req.MustHave, Weight: req.Weight, Vector: req.Vector}
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal requirement vectors: %w", err)
	}
	key := constants.JobVectorKeyPrefix + jobID
	if err := r.Client.Set(ctx, key, payload, constants.JobVectorCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache requirement vectors: %w", err)
	}
	return nil
}

// GetJobRequirementVectors loads the cached embedded requirements for a job.
// Returns ErrNotFound on a cache miss.
func (r *Redis) GetJobRequirementVectors(ctx context.Context, jobID string) ([]types.Requirement, error) {
	payload, err := r.Client.Get(ctx, constants.JobVectorKeyPrefix+jobID).Bytes()
	if err != nil {
		return nil, err
	}
	var cached []cachedRequirement
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, fmt.Errorf("unmarshal requirement vectors: %w", err)
	}
	out := make([]types.Requirement, len(cached))
	for i, c := range cached {
		out[i] = types.Requirement{Text: c.Text, MustHave: c.MustHave, Weight: c.Weight, Vector: c.Vector}
	}
	return out, nil
}

// InvalidateJobRequirementVectors drops a job's cached vectors, forcing a
// re-embed on the next analysis.
func (r *Redis) InvalidateJobRequirementVectors(ctx context.Context, jobID string) error {
	return r.Client.Del(ctx, constants.JobVectorKeyPrefix+jobID).Err()
}

// rankingTTL returns the configured ranking cache lifetime.
func (r *Redis) rankingTTL() time.Duration {
	secs := r.config.RankingCacheTTLSecs
	if secs <= 0 {
		secs = 300
	}
	return time.Duration(secs) * time.Second
}

// CacheRanking stores the serialized ranking response for a job.
func (r *Redis) CacheRanking(ctx context.Context, jobID string, payload []byte) error {
	return r.Client.Set(ctx, constants.RankingKeyPrefix+jobID, payload, r.rankingTTL()).Err()
}

// GetRanking loads a job's cached ranking. Returns ErrNotFound on a miss.
func (r *Redis) GetRanking(ctx context.Context, jobID string) ([]byte, error) {
	return r.Client.Get(ctx, constants.RankingKeyPrefix+jobID).Bytes()
}

// InvalidateRanking drops a job's cached ranking; called after any analysis
// run changes the scores.
func (r *Redis) InvalidateRanking(ctx context.Context, jobID string) error {
	return r.Client.Del(ctx, constants.RankingKeyPrefix+jobID).Err()
}
