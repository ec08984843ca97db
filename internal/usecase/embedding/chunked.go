// Package embedding holds the embedder decorator chain assembled around a
// base provider: batch chunking and bounded retries.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/domain"
)

// ChunkedEmbedder splits oversize inputs into provider-sized sub-batches
// and concatenates the results in order. A failure in any sub-batch fails
// the whole call; no partial results are surfaced.
type ChunkedEmbedder struct {
	inner     domain.Embedder
	batchSize int
	logger    *zap.Logger
}

// NewChunkedEmbedder creates a chunking decorator.
func NewChunkedEmbedder(inner domain.Embedder, batchSize int, logger *zap.Logger) *ChunkedEmbedder {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &ChunkedEmbedder{inner: inner, batchSize: batchSize, logger: logger}
}

// Embed delegates in sub-batches of at most batchSize texts.
func (e *ChunkedEmbedder) Embed(ctx context.Context, texts []string, role domain.Role) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= e.batchSize {
		return e.inner.Embed(ctx, texts, role)
	}

	vecs := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += e.batchSize {
		end := offset + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk, err := e.inner.Embed(ctx, texts[offset:end], role)
		if err != nil {
			e.logger.Error("Sub-batch embedding failed",
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", end-offset),
				zap.Error(err),
			)
			return nil, fmt.Errorf("embed chunk at %d: %w", offset, err)
		}
		vecs = append(vecs, chunk...)
	}
	return vecs, nil
}
