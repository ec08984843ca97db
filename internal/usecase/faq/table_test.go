package faq

import (
	"os"
	"path/filepath"
	"testing"
)

const goodTable = `entries:
  - question: when is the digital engineering summit?
    paraphrases:
      - what date is the summit?
    answer: 24 November 2025.
    domain: summit
  - question: where is the summit venue?
    answer: National Convention Centre Canberra.
`

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faq.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

func TestLoadTable(t *testing.T) {
	entries, err := LoadTable(writeTable(t, goodTable))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Question != "when is the digital engineering summit?" {
		t.Errorf("unexpected question: %q", entries[0].Question)
	}
	if len(entries[0].Paraphrases) != 1 {
		t.Errorf("expected 1 paraphrase, got %d", len(entries[0].Paraphrases))
	}
	if entries[1].Domain != "" {
		t.Errorf("expected empty domain, got %q", entries[1].Domain)
	}
}

func TestLoadTable_MissingAnswer(t *testing.T) {
	_, err := LoadTable(writeTable(t, "entries:\n  - question: orphan?\n"))
	if err == nil {
		t.Fatal("expected error for entry without answer")
	}
}

func TestLoadTable_MissingFile(t *testing.T) {
	if _, err := LoadTable(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
