// Package answer applies the behavioral governance rules to retrieval
// output and assembles the final context block.
package answer

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/domain"
	"github.com/unswcbr/dory/internal/metrics"
	"github.com/unswcbr/dory/internal/registry"
)

// Service decides the verdict for a routed query and builds the context
// block handed to the generation layer.
type Service struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// New creates the governance service.
func New(reg *registry.Registry, logger *zap.Logger) *Service {
	return &Service{reg: reg, logger: logger}
}

// Assemble evaluates the decision and passages and fills in the verdict
// and context of a RetrievalResult. Non-retrieval decisions always
// produce an empty context, whatever passages the caller handed in.
func (s *Service) Assemble(
	decision domain.RoutingDecision, passages []domain.RetrievedPassage,
) (domain.Verdict, string) {
	verdict, context := s.assemble(decision, passages)
	metrics.GovernanceVerdictsTotal.WithLabelValues(string(verdict)).Inc()
	return verdict, context
}

func (s *Service) assemble(
	decision domain.RoutingDecision, passages []domain.RetrievedPassage,
) (domain.Verdict, string) {
	if decision.Mode != domain.ModeRetrieval {
		if slices.Contains(decision.Tags, "ambiguous") {
			return domain.VerdictClarify, ""
		}
		if slices.Contains(decision.Tags, "degraded") {
			return domain.VerdictFallback, ""
		}
		return domain.VerdictPass, ""
	}

	if len(passages) == 0 {
		return domain.VerdictFallback, ""
	}

	floor := 0.0
	if entry, err := s.reg.Get(decision.Domain); err == nil {
		floor = entry.Domain.ConfidenceFloor
	}
	if passages[0].Score < floor {
		s.logger.Debug("Top score below confidence floor",
			zap.String("domain", decision.Domain),
			zap.Float64("score", passages[0].Score),
			zap.Float64("floor", floor))
		return domain.VerdictFallback, ""
	}

	return domain.VerdictPass, buildContext(decision.Domain, passages)
}

// buildContext renders the retrieved passages as one block, best first.
func buildContext(domainID string, passages []domain.RetrievedPassage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context from %s knowledge base:\n", domainID)
	for _, p := range passages {
		fmt.Fprintf(&b, "- [%.2f] %s: %s\n", p.Score, p.SourceID, p.Text)
	}
	return b.String()
}
