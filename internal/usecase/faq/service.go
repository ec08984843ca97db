// Package faq is the fuzzy FAQ matcher: a curated table of known
// question/answer pairs scanned before any network-bound step.
package faq

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/unswcbr/dory/internal/domain"
	"github.com/unswcbr/dory/internal/metrics"
)

// entry is an FAQEntry with its keys pre-normalized at load time,
// so Match does no per-query normalization of the table side.
type entry struct {
	source domain.FAQEntry
	keys   []string
}

// Service matches queries against the FAQ table. Lookups are pure; the
// table is immutable and replaced wholesale on reload.
type Service struct {
	table     atomic.Pointer[[]entry]
	threshold int
	logger    *zap.Logger
}

// New creates a matcher with the given entries and acceptance threshold
// on a 0-100 scale.
func New(entries []domain.FAQEntry, threshold int, logger *zap.Logger) *Service {
	s := &Service{threshold: threshold, logger: logger}
	s.Replace(entries)
	return s
}

// Replace swaps the whole table atomically. Safe against concurrent Match.
func (s *Service) Replace(entries []domain.FAQEntry) {
	table := make([]entry, 0, len(entries))
	for _, e := range entries {
		keys := make([]string, 0, 1+len(e.Paraphrases))
		keys = append(keys, normalize(e.Question))
		for _, p := range e.Paraphrases {
			keys = append(keys, normalize(p))
		}
		table = append(table, entry{source: e, keys: keys})
	}
	s.table.Store(&table)
}

// Len returns the number of loaded entries.
func (s *Service) Len() int {
	return len(*s.table.Load())
}

// Match returns the best-scoring entry at or above the threshold.
// Ties break toward the earliest-registered entry. O(table size) scan,
// acceptable for a small curated table.
func (s *Service) Match(queryText string) (domain.FAQEntry, bool) {
	q := normalize(queryText)
	if q == "" {
		metrics.FAQLookupsTotal.WithLabelValues("miss").Inc()
		return domain.FAQEntry{}, false
	}

	best := -1
	bestScore := 0
	table := *s.table.Load()
	for i := range table {
		for _, key := range table[i].keys {
			if score := similarity(q, key); score > bestScore {
				bestScore = score
				best = i
			}
		}
	}

	if best < 0 || bestScore < s.threshold {
		metrics.FAQLookupsTotal.WithLabelValues("miss").Inc()
		return domain.FAQEntry{}, false
	}

	metrics.FAQLookupsTotal.WithLabelValues("hit").Inc()
	s.logger.Debug("FAQ hit",
		zap.String("question", table[best].source.Question),
		zap.Int("score", bestScore),
	)
	return table[best].source, true
}

// tableFile is the on-disk FAQ table format.
type tableFile struct {
	Entries []domain.FAQEntry `yaml:"entries"`
}

// LoadTable reads FAQ entries from a YAML file.
func LoadTable(path string) ([]domain.FAQEntry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read faq table %s: %w", path, err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse faq table: %w", err)
	}
	for i, e := range f.Entries {
		if e.Question == "" {
			return nil, fmt.Errorf("faq entry %d: question is required", i)
		}
		if e.Answer == "" {
			return nil, fmt.Errorf("faq entry %d (%q): answer is required", i, e.Question)
		}
	}
	return f.Entries, nil
}
