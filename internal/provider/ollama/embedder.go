// Package ollama is an embedding provider for a locally-resident model
// served by Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/domain"
	"github.com/unswcbr/dory/internal/metrics"
)

// Embedder calls the Ollama /api/embeddings endpoint, one request per text.
type Embedder struct {
	host       string
	model      string
	dimensions int
	client     *http.Client
	logger     *zap.Logger
}

// Config holds the Ollama provider settings.
type Config struct {
	Host       string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	host := cfg.Host
	if host == "" {
		host = "http://localhost:11434"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Embedder{
		host:       host,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements domain.Embedder. Ollama has no native batch endpoint,
// so texts are embedded sequentially; order is preserved by construction.
func (e *Embedder) Embed(ctx context.Context, texts []string, _ domain.Role) ([][]float32, error) {
	vecs := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		vecs = append(vecs, vec)
	}

	if err := domain.CheckDimensions(vecs, e.dimensions); err != nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues("ollama", e.model, "dimension_mismatch").Inc()
		return nil, err
	}
	return vecs, nil
}

func (e *Embedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := e.client.Do(req)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "error").Inc()
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("call ollama: %w", domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "error").Inc()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama status %d: %s: %w",
			resp.StatusCode, bytes.TrimSpace(msg), domain.ErrProviderUnavailable)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", domain.ErrProviderUnavailable)
	}
	if len(parsed.Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "error").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrProviderUnavailable)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("ollama", e.model).Observe(time.Since(start).Seconds())

	return parsed.Embedding, nil
}

// HealthCheck pings the Ollama root endpoint.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.host+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping ollama: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	return nil
}
