// Package pipeline wires the FAQ matcher, router, retrieval engine and
// governance filter into the single entry point the transport exposes.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/domain"
	"github.com/unswcbr/dory/internal/metrics"
	"github.com/unswcbr/dory/internal/registry"
)

// FAQMatcher answers a query from the FAQ table, if it matches.
type FAQMatcher interface {
	Match(query string) (domain.FAQEntry, bool)
}

// Router classifies a query into a mode and, for retrieval, a domain.
type Router interface {
	Route(ctx context.Context, q domain.Query, state domain.ConversationState) (domain.RoutingDecision, domain.ConversationState, error)
}

// Retriever returns the top-k passages of a domain for a query vector.
type Retriever interface {
	Retrieve(ctx context.Context, domainID string, queryVec []float32, k int) ([]domain.RetrievedPassage, error)
}

// Assembler produces the governance verdict and context block.
type Assembler interface {
	Assemble(decision domain.RoutingDecision, passages []domain.RetrievedPassage) (domain.Verdict, string)
}

// Service is the query pipeline.
type Service struct {
	faq       FAQMatcher
	router    Router
	retriever Retriever
	assembler Assembler
	reg       *registry.Registry
	logger    *zap.Logger
}

// New creates the pipeline.
func New(
	faq FAQMatcher,
	router Router,
	retriever Retriever,
	assembler Assembler,
	reg *registry.Registry,
	logger *zap.Logger,
) *Service {
	return &Service{
		faq:       faq,
		router:    router,
		retriever: retriever,
		assembler: assembler,
		reg:       reg,
		logger:    logger,
	}
}

// RouteAndRetrieve runs a query through the full pipeline and always
// returns a well-formed result unless the request itself is defective.
// Provider outages degrade to a fallback verdict instead of failing.
func (s *Service) RouteAndRetrieve(
	ctx context.Context, q domain.Query, state domain.ConversationState,
) (domain.RetrievalResult, error) {
	// FAQ hit is terminal: no routing, no retrieval, no state change.
	if entry, ok := s.faq.Match(q.Text); ok {
		decision := domain.RoutingDecision{
			Mode:       domain.ModeFAQHit,
			Confidence: 1,
			Tags:       []string{"faq"},
		}
		metrics.RoutingDecisionsTotal.WithLabelValues(string(decision.Mode), "").Inc()
		return domain.RetrievalResult{
			Decision: decision,
			Verdict:  domain.VerdictPass,
			Answer:   entry.Answer,
			State:    state,
		}, nil
	}

	decision, newState, err := s.router.Route(ctx, q, state)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("route: %w", err)
	}

	var passages []domain.RetrievedPassage
	if decision.Mode == domain.ModeRetrieval {
		passages, err = s.retrieve(ctx, decision.Domain, q.Text)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrEmptyCorpus):
			s.logger.Warn("Routed to empty corpus", zap.String("domain", decision.Domain))
			decision.Tags = append(decision.Tags, "empty-corpus")
			passages = nil
		case errors.Is(err, domain.ErrProviderUnavailable):
			s.logger.Error("Embedding provider unavailable",
				zap.String("domain", decision.Domain), zap.Error(err))
			decision = domain.RoutingDecision{
				Mode: domain.ModeNoRetrieval,
				Tags: append(decision.Tags, "degraded"),
			}
			passages = nil
		default:
			return domain.RetrievalResult{}, err
		}
	}

	verdict, contextBlock := s.assembler.Assemble(decision, passages)
	metrics.RoutingDecisionsTotal.WithLabelValues(string(decision.Mode), decision.Domain).Inc()

	return domain.RetrievalResult{
		Decision: decision,
		Passages: passages,
		Verdict:  verdict,
		Context:  contextBlock,
		State:    newState,
	}, nil
}

func (s *Service) retrieve(ctx context.Context, domainID, queryText string) ([]domain.RetrievedPassage, error) {
	entry, err := s.reg.Get(domainID)
	if err != nil {
		return nil, err
	}
	vecs, err := entry.Embedder.Embed(ctx, []string{queryText}, domain.RoleQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.retriever.Retrieve(ctx, domainID, vecs[0], entry.Domain.TopK)
}
