package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/domain"
	"github.com/unswcbr/dory/internal/metrics"
)

// RetryConfig configures retry behavior for provider calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for embedding API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// RetryingEmbedder retries transient provider failures with exponential
// backoff. Only domain.ErrProviderUnavailable is retried; a dimension
// mismatch or caller cancellation fails immediately.
type RetryingEmbedder struct {
	inner    domain.Embedder
	provider string
	cfg      RetryConfig
	logger   *zap.Logger
}

// NewRetryingEmbedder creates a retrying decorator.
func NewRetryingEmbedder(inner domain.Embedder, provider string, cfg RetryConfig, logger *zap.Logger) *RetryingEmbedder {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultRetryConfig().InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultRetryConfig().MaxInterval
	}
	return &RetryingEmbedder{inner: inner, provider: provider, cfg: cfg, logger: logger}
}

// Embed delegates with up to MaxRetries additional attempts.
func (e *RetryingEmbedder) Embed(ctx context.Context, texts []string, role domain.Role) ([][]float32, error) {
	var lastErr error
	delay := e.cfg.InitialInterval

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		vecs, err := e.inner.Embed(ctx, texts, role)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("Embedding succeeded after retry",
					zap.String("provider", e.provider),
					zap.Int("attempts", attempt+1),
				)
			}
			return vecs, nil
		}

		lastErr = err

		if !errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		if attempt == e.cfg.MaxRetries {
			break
		}

		metrics.EmbeddingRetriesTotal.WithLabelValues(e.provider).Inc()
		e.logger.Warn("Transient provider failure, retrying",
			zap.String("provider", e.provider),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, e.cfg.MaxInterval)
		}
	}

	return nil, fmt.Errorf("embed after %d retries: %w", e.cfg.MaxRetries, lastErr)
}
