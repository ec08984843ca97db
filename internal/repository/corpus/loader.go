package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unswcbr/dory/internal/domain"
)

// LoadSnapshot reads a JSONL file of already-embedded passages produced by
// the external ingestion pipeline and ingests them per domain. One JSON
// object per line: {"domain", "source_id", "seq", "text", "embedding"}.
func LoadSnapshot(s *Store, path string) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	byDomain := make(map[string][]domain.Passage)
	var order []string

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var p domain.Passage
		if err := json.Unmarshal(raw, &p); err != nil {
			return 0, fmt.Errorf("snapshot line %d: %w", line, err)
		}
		if p.Domain == "" {
			return 0, fmt.Errorf("snapshot line %d: missing domain", line)
		}
		if _, seen := byDomain[p.Domain]; !seen {
			order = append(order, p.Domain)
		}
		byDomain[p.Domain] = append(byDomain[p.Domain], p)
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}

	total := 0
	for _, id := range order {
		if err := s.Ingest(id, byDomain[id]); err != nil {
			return 0, fmt.Errorf("ingest domain %s: %w", id, err)
		}
		total += len(byDomain[id])
	}
	return total, nil
}
