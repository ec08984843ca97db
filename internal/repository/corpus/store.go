// Package corpus is the in-memory passage store: the ingestion interface
// the core depends on, populated before any query arrives.
package corpus

import (
	"fmt"
	"sync/atomic"

	"github.com/unswcbr/dory/internal/domain"
)

// Store holds per-domain passage slices behind an atomic pointer.
// Ingest swaps a domain's whole corpus at once; readers never lock.
type Store struct {
	corpora atomic.Pointer[map[string][]domain.Passage]
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	empty := make(map[string][]domain.Passage)
	s.corpora.Store(&empty)
	return s
}

// Ingest replaces the domain's corpus with the given passages, preserving
// their order as the ingestion order used for tie-breaking. Passages must
// all carry an embedding of the same length.
func (s *Store) Ingest(domainID string, passages []domain.Passage) error {
	if domainID == "" {
		return fmt.Errorf("domain id is required")
	}
	dim := -1
	owned := make([]domain.Passage, len(passages))
	for i, p := range passages {
		if len(p.Embedding) == 0 {
			return fmt.Errorf("passage %s/%d has no embedding", p.SourceID, p.Seq)
		}
		if dim == -1 {
			dim = len(p.Embedding)
		} else if len(p.Embedding) != dim {
			return fmt.Errorf("passage %s/%d has %d dimensions, corpus has %d: %w",
				p.SourceID, p.Seq, len(p.Embedding), dim, domain.ErrDimensionMismatch)
		}
		p.Domain = domainID
		owned[i] = p
	}

	// Copy-on-write swap of the whole table.
	for {
		old := s.corpora.Load()
		next := make(map[string][]domain.Passage, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[domainID] = owned
		if s.corpora.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// Passages returns the domain's corpus in ingestion order.
// The returned slice is shared and must not be mutated.
func (s *Store) Passages(domainID string) []domain.Passage {
	return (*s.corpora.Load())[domainID]
}

// Len returns the number of ingested passages for a domain.
func (s *Store) Len(domainID string) int {
	return len(s.Passages(domainID))
}
