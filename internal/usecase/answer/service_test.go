package answer

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/domain"
	"github.com/unswcbr/dory/internal/registry"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ []string, _ domain.Role) ([][]float32, error) {
	return nil, nil
}

func testService(t *testing.T) *Service {
	t.Helper()
	reg, err := registry.New([]registry.Entry{
		{
			Domain:   domain.Domain{ID: "summit", ConfidenceFloor: 0.25},
			Embedder: stubEmbedder{},
		},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return New(reg, zap.NewNop())
}

func retrieved(sourceID string, score float64, text string) domain.RetrievedPassage {
	return domain.RetrievedPassage{
		Passage: domain.Passage{Domain: "summit", SourceID: sourceID, Text: text},
		Score:   score,
	}
}

func TestAssemble_PassBuildsContext(t *testing.T) {
	svc := testService(t)
	decision := domain.RoutingDecision{Mode: domain.ModeRetrieval, Domain: "summit"}
	passages := []domain.RetrievedPassage{
		retrieved("program.md", 0.82, "Session 1 opens at 9:00."),
		retrieved("venue.md", 0.61, "The venue is the NCCC."),
	}

	verdict, context := svc.Assemble(decision, passages)
	if verdict != domain.VerdictPass {
		t.Fatalf("expected pass, got %s", verdict)
	}
	if !strings.Contains(context, "Context from summit knowledge base:") {
		t.Errorf("missing header: %q", context)
	}
	if !strings.Contains(context, "- [0.82] program.md: Session 1 opens at 9:00.") {
		t.Errorf("missing first passage line: %q", context)
	}
	if !strings.Contains(context, "- [0.61] venue.md: The venue is the NCCC.") {
		t.Errorf("missing second passage line: %q", context)
	}
	if strings.Index(context, "program.md") > strings.Index(context, "venue.md") {
		t.Error("passages must appear best first")
	}
}

func TestAssemble_TopScoreBelowFloorFallsBack(t *testing.T) {
	svc := testService(t)
	decision := domain.RoutingDecision{Mode: domain.ModeRetrieval, Domain: "summit"}
	passages := []domain.RetrievedPassage{retrieved("weak.md", 0.12, "Barely related.")}

	verdict, context := svc.Assemble(decision, passages)
	if verdict != domain.VerdictFallback {
		t.Fatalf("expected fallback, got %s", verdict)
	}
	if context != "" {
		t.Errorf("fallback must not leak context, got %q", context)
	}
}

func TestAssemble_NoPassagesFallsBack(t *testing.T) {
	svc := testService(t)
	decision := domain.RoutingDecision{Mode: domain.ModeRetrieval, Domain: "summit"}

	verdict, context := svc.Assemble(decision, nil)
	if verdict != domain.VerdictFallback {
		t.Fatalf("expected fallback, got %s", verdict)
	}
	if context != "" {
		t.Errorf("expected empty context, got %q", context)
	}
}

func TestAssemble_NoRetrievalAlwaysEmptyContext(t *testing.T) {
	svc := testService(t)
	decision := domain.RoutingDecision{Mode: domain.ModeNoRetrieval}
	// Even with passages handed in, no-retrieval must not leak them.
	passages := []domain.RetrievedPassage{retrieved("leak.md", 0.99, "Should not appear.")}

	verdict, context := svc.Assemble(decision, passages)
	if verdict != domain.VerdictPass {
		t.Fatalf("expected pass, got %s", verdict)
	}
	if context != "" {
		t.Errorf("no-retrieval must produce empty context, got %q", context)
	}
}

func TestAssemble_AmbiguousTagClarifies(t *testing.T) {
	svc := testService(t)
	decision := domain.RoutingDecision{
		Mode: domain.ModeNoRetrieval,
		Tags: []string{"below-floor", "ambiguous"},
	}

	verdict, context := svc.Assemble(decision, nil)
	if verdict != domain.VerdictClarify {
		t.Fatalf("expected clarify, got %s", verdict)
	}
	if context != "" {
		t.Errorf("clarify must produce empty context, got %q", context)
	}
}

func TestAssemble_DegradedTagFallsBack(t *testing.T) {
	svc := testService(t)
	decision := domain.RoutingDecision{
		Mode: domain.ModeNoRetrieval,
		Tags: []string{"degraded"},
	}

	verdict, _ := svc.Assemble(decision, nil)
	if verdict != domain.VerdictFallback {
		t.Fatalf("expected fallback, got %s", verdict)
	}
}

func TestAssemble_FAQHitPassesWithEmptyContext(t *testing.T) {
	svc := testService(t)
	decision := domain.RoutingDecision{Mode: domain.ModeFAQHit}

	verdict, context := svc.Assemble(decision, nil)
	if verdict != domain.VerdictPass {
		t.Fatalf("expected pass, got %s", verdict)
	}
	if context != "" {
		t.Errorf("faq hit carries its own answer, got context %q", context)
	}
}
