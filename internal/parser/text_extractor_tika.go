package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	applogger "cv-match-go/internal/logger"
)

// TextExtractor turns a binary document (PDF, DOCX, ...) into plain text.
// Extraction is a collaborator concern: the matching pipeline only ever sees
// the returned string, and an empty string is legal — it surfaces downstream
// as a no-text failure for that candidate.
type TextExtractor interface {
	ExtractTextFromBytes(ctx context.Context, data []byte, filename string) (string, error)
}

// TikaTextExtractor extracts text through an Apache Tika server.
type TikaTextExtractor struct {
	ServerURL string
	Client    *http.Client
	logger    zerolog.Logger
}

// TikaOption configures a TikaTextExtractor.
type TikaOption func(*TikaTextExtractor)

// WithTikaTimeout overrides the HTTP client timeout.
func WithTikaTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaTextExtractor) {
		e.Client.Timeout = timeout
	}
}

// WithTikaLogger sets a custom logger.
func WithTikaLogger(logger zerolog.Logger) TikaOption {
	return func(e *TikaTextExtractor) {
		e.logger = logger
	}
}

var _ TextExtractor = (*TikaTextExtractor)(nil)

// NewTikaTextExtractor builds an extractor against serverURL,
// e.g. http://localhost:9998.
func NewTikaTextExtractor(serverURL string, options ...TikaOption) *TikaTextExtractor {
	extractor := &TikaTextExtractor{
		ServerURL: serverURL,
		Client:    &http.Client{Timeout: 60 * time.Second},
		logger:    applogger.Logger.With().Str("component", "tika_extractor").Logger(),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

// ExtractTextFromBytes sends the document to Tika's /tika endpoint and
// returns the plain-text body. Tika detects the content type itself.
func (e *TikaTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, filename string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.ServerURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build tika request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika server returned status %d for %s", resp.StatusCode, filename)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read tika response: %w", err)
	}

	e.logger.Debug().
		Str("filename", filename).
		Int("text_bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("text extracted")
	return string(body), nil
}
