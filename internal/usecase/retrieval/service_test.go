package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/unswcbr/dory/internal/domain"
)

// --- Mocks ---

type mockCorpus struct {
	passages map[string][]domain.Passage
}

func (m *mockCorpus) Passages(domainID string) []domain.Passage {
	return m.passages[domainID]
}

func corpusWith(passages ...domain.Passage) *mockCorpus {
	return &mockCorpus{passages: map[string][]domain.Passage{"de": passages}}
}

func passage(sourceID string, seq int, embedding []float32) domain.Passage {
	return domain.Passage{
		Domain:    "de",
		SourceID:  sourceID,
		Seq:       seq,
		Text:      "text " + sourceID,
		Embedding: embedding,
	}
}

// --- Tests ---

func TestRetrieve_OrdersByScoreDescending(t *testing.T) {
	svc := New(corpusWith(
		passage("far", 0, []float32{0, 1}),
		passage("near", 1, []float32{1, 0}),
		passage("mid", 2, []float32{1, 1}),
	))

	got, err := svc.Retrieve(context.Background(), "de", []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 passages, got %d", len(got))
	}
	if got[0].SourceID != "near" || got[1].SourceID != "mid" || got[2].SourceID != "far" {
		t.Errorf("wrong order: %s, %s, %s", got[0].SourceID, got[1].SourceID, got[2].SourceID)
	}
	for i, p := range got {
		if p.Rank != i+1 {
			t.Errorf("passage %d has rank %d", i, p.Rank)
		}
		if p.Score < -1.001 || p.Score > 1.001 {
			t.Errorf("score out of cosine range: %f", p.Score)
		}
	}
}

func TestRetrieve_TiesKeepIngestionOrder(t *testing.T) {
	// Identical embeddings produce identical scores.
	svc := New(corpusWith(
		passage("first", 0, []float32{1, 1}),
		passage("second", 1, []float32{1, 1}),
		passage("third", 2, []float32{1, 1}),
	))

	got, err := svc.Retrieve(context.Background(), "de", []float32{1, 1}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].SourceID != "first" || got[1].SourceID != "second" || got[2].SourceID != "third" {
		t.Errorf("ties must keep ingestion order: %s, %s, %s",
			got[0].SourceID, got[1].SourceID, got[2].SourceID)
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	svc := New(corpusWith(
		passage("a", 0, []float32{0.3, 0.7}),
		passage("b", 1, []float32{0.7, 0.3}),
		passage("c", 2, []float32{0.5, 0.5}),
	))

	first, err := svc.Retrieve(context.Background(), "de", []float32{0.6, 0.4}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := svc.Retrieve(context.Background(), "de", []float32{0.6, 0.4}, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for j := range first {
			if again[j].SourceID != first[j].SourceID {
				t.Fatalf("run %d diverged at position %d", i, j)
			}
		}
	}
}

func TestRetrieve_KLargerThanCorpus(t *testing.T) {
	svc := New(corpusWith(passage("only", 0, []float32{1, 0})))

	got, err := svc.Retrieve(context.Background(), "de", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected the whole corpus, got %d passages", len(got))
	}
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	svc := New(&mockCorpus{passages: map[string][]domain.Passage{}})

	_, err := svc.Retrieve(context.Background(), "de", []float32{1, 0}, 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestRetrieve_QueryDimensionMismatch(t *testing.T) {
	svc := New(corpusWith(passage("a", 0, []float32{1, 0})))

	_, err := svc.Retrieve(context.Background(), "de", []float32{1, 0, 0}, 5)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRetrieve_CancelledContext(t *testing.T) {
	svc := New(corpusWith(passage("a", 0, []float32{1, 0})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Retrieve(ctx, "de", []float32{1, 0}, 5); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestTopScore(t *testing.T) {
	svc := New(corpusWith(
		passage("near", 0, []float32{1, 0}),
		passage("far", 1, []float32{0, 1}),
	))

	score, err := svc.TopScore(context.Background(), "de", []float32{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(score-1) > 0.01 {
		t.Errorf("expected score near 1, got %f", score)
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	got := cosine([]float32{0, 0}, []float32{1, 0})
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("zero vector must not produce NaN or Inf, got %f", got)
	}
}
