package domain

import (
	"context"
	"fmt"
)

// Role selects the asymmetric-retrieval prefix applied before embedding.
type Role string

const (
	// RoleDocument marks texts embedded at ingestion time.
	RoleDocument Role = "document"
	// RoleQuery marks texts embedded at query time.
	RoleQuery Role = "query"
)

// Embedder is the shared text vectorization contract between layers.
// Implementations return one vector per input text, order preserved.
type Embedder interface {
	Embed(ctx context.Context, texts []string, role Role) ([][]float32, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PrefixEmbedder is a decorator that prepends the configured document or
// query prefix before delegating. Some embedding models encode asymmetric
// retrieval and need differing prefixes per role.
type PrefixEmbedder struct {
	inner       Embedder
	docPrefix   string
	queryPrefix string
}

// NewPrefixEmbedder creates a prefixing decorator.
func NewPrefixEmbedder(inner Embedder, docPrefix, queryPrefix string) *PrefixEmbedder {
	return &PrefixEmbedder{inner: inner, docPrefix: docPrefix, queryPrefix: queryPrefix}
}

// Embed prepends the role's prefix to each text and delegates.
func (e *PrefixEmbedder) Embed(ctx context.Context, texts []string, role Role) ([][]float32, error) {
	prefix := e.docPrefix
	if role == RoleQuery {
		prefix = e.queryPrefix
	}
	if prefix == "" {
		return e.inner.Embed(ctx, texts, role)
	}

	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = prefix + t
	}

	vecs, err := e.inner.Embed(ctx, prefixed, role)
	if err != nil {
		return nil, fmt.Errorf("prefix embed: %w", err)
	}
	return vecs, nil
}

// CheckDimensions verifies every vector has the expected length.
// A zero want disables the check (provider reports its own dimensionality).
func CheckDimensions(vecs [][]float32, want int) error {
	if want <= 0 {
		return nil
	}
	for i, v := range vecs {
		if len(v) != want {
			return fmt.Errorf("vector %d has %d dimensions, want %d: %w",
				i, len(v), want, ErrDimensionMismatch)
		}
	}
	return nil
}
