// Package retrieval scores a query embedding against a domain corpus and
// returns the top-k passages.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/unswcbr/dory/internal/domain"
	"github.com/unswcbr/dory/internal/metrics"
)

// CorpusReader is the consumer interface over the passage store.
type CorpusReader interface {
	Passages(domainID string) []domain.Passage
}

// Service is the retrieval engine. Scores are cosine similarity in [-1, 1];
// ties break by ingestion order.
type Service struct {
	corpus CorpusReader
}

// New creates a retrieval engine over a passage store.
func New(corpus CorpusReader) *Service {
	return &Service{corpus: corpus}
}

// Retrieve returns the k best passages for the query embedding, descending
// by score. k larger than the corpus returns every passage. A domain with
// zero ingested passages yields domain.ErrEmptyCorpus; callers must not
// confuse it with low relevance.
func (s *Service) Retrieve(
	ctx context.Context, domainID string, queryVec []float32, k int,
) ([]domain.RetrievedPassage, error) {
	passages := s.corpus.Passages(domainID)
	if len(passages) == 0 {
		return nil, fmt.Errorf("domain %s: %w", domainID, domain.ErrEmptyCorpus)
	}
	if len(queryVec) != len(passages[0].Embedding) {
		return nil, fmt.Errorf("query has %d dimensions, corpus has %d: %w",
			len(queryVec), len(passages[0].Embedding), domain.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	scored := make([]domain.RetrievedPassage, len(passages))
	for i, p := range passages {
		scored[i] = domain.RetrievedPassage{
			Passage: p,
			Score:   cosine(queryVec, p.Embedding),
		}
	}

	// Stable sort keeps ingestion order on equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	if k < 0 {
		k = 0
	}
	top := scored[:k]
	for i := range top {
		top[i].Rank = i + 1
	}

	metrics.RetrievalDuration.WithLabelValues(domainID).Observe(time.Since(start).Seconds())
	return top, nil
}

// TopScore returns only the best similarity in the domain, for trial
// retrievals during ambiguous routing.
func (s *Service) TopScore(ctx context.Context, domainID string, queryVec []float32) (float64, error) {
	top, err := s.Retrieve(ctx, domainID, queryVec, 1)
	if err != nil {
		return 0, err
	}
	return top[0].Score, nil
}

// cosine computes cosine similarity with an epsilon guard on zero vectors.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-9)
}
