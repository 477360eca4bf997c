package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cv-match-go/internal/config"
	applogger "cv-match-go/internal/logger"
)

// defaultEmbedBatchSize bounds texts per upstream request; the provider caps
// request size and token count, and one oversized call would fail the whole
// candidate.
const defaultEmbedBatchSize = 64

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Vectors come
// back in input order; the caller is responsible for validating them against
// the configured dimensionality.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	batchSize  int
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewOpenAIEmbedder builds an embedder from config. The API key is required.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key must not be empty")
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/embeddings"
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIEmbedder{
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     applogger.Logger.With().Str("component", "openai_embedder").Logger(),
	}, nil
}

// Dimensions returns the expected vector length, 0 when unconstrained.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// openAIEmbeddingRequest is the OpenAI-compatible request body.
type openAIEmbeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type openAIEmbeddingResponse struct {
	Object string             `json:"object"`
	Data   []openAIDataEntry  `json:"data"`
	Model  string             `json:"model"`
	Error  *openAIErrorDetail `json:"error,omitempty"`
}

type openAIDataEntry struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// EmbedStrings embeds texts in input order, splitting into batches internally.
// A failed batch fails the whole call; partial results are never returned.
func (e *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("cv-match-go/parser")
	ctx, span := tracer.Start(ctx, "OpenAIEmbedder.EmbedStrings")
	defer span.End()
	span.SetAttributes(
		attribute.Int("embedding.input_count", len(texts)),
		attribute.String("embedding.model", e.model),
	)

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "embedding batch failed")
			return nil, fmt.Errorf("embed batch [%d:%d): %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	reqBody := openAIEmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: "float",
	}
	if e.dimensions > 0 {
		reqBody.Dimensions = e.dimensions
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		e.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", truncateForLog(string(body), 200)).
			Msg("embedding endpoint returned error")
		return nil, fmt.Errorf("embedding endpoint returned status %d", resp.StatusCode)
	}

	var parsed openAIEmbeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding API error %s: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(parsed.Data))
	}

	// Place by returned index; providers are allowed to reorder entries.
	vectors := make([][]float64, len(texts))
	for _, entry := range parsed.Data {
		if entry.Index < 0 || entry.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range", entry.Index)
		}
		vectors[entry.Index] = entry.Embedding
	}
	return vectors, nil
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
