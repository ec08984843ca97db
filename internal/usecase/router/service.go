// Package router classifies queries into no-retrieval or a knowledge
// domain, by keyword rules first and trial retrieval when rules are
// inconclusive.
package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unswcbr/dory/internal/domain"
	"github.com/unswcbr/dory/internal/registry"
)

// Trialer runs the read-only trial retrieval used to break ambiguity.
type Trialer interface {
	TopScore(ctx context.Context, domainID string, queryVec []float32) (float64, error)
}

// Service routes queries. Deterministic for identical inputs: rules are
// evaluated in registration order and trial scores compare strictly.
type Service struct {
	reg            *registry.Registry
	trialer        Trialer
	generalMarkers []string
	logger         *zap.Logger
}

// New creates a router.
func New(reg *registry.Registry, trialer Trialer, generalMarkers []string, logger *zap.Logger) *Service {
	return &Service{
		reg:            reg,
		trialer:        trialer,
		generalMarkers: generalMarkers,
		logger:         logger,
	}
}

// Route classifies the query and returns the decision plus the updated
// conversation state. The input state is never mutated.
func (s *Service) Route(
	ctx context.Context, q domain.Query, state domain.ConversationState,
) (domain.RoutingDecision, domain.ConversationState, error) {
	text := strings.ToLower(strings.TrimSpace(q.Text))

	// Tier 1a: explicit general-knowledge markers beat everything,
	// including a pinned domain.
	if marker, ok := s.generalMarker(text); ok {
		state.PinnedDomain = ""
		return domain.RoutingDecision{
			Mode:       domain.ModeNoRetrieval,
			Confidence: 1,
			Tags:       []string{"general-marker:" + marker},
		}, state, nil
	}

	// Caller-resolved intent pins the domain for the session.
	if q.DomainHint != "" {
		if s.reg.Has(q.DomainHint) {
			state.PinnedDomain = q.DomainHint
			return domain.RoutingDecision{
				Mode:       domain.ModeRetrieval,
				Domain:     q.DomainHint,
				Confidence: 1,
				Tags:       []string{"hint"},
			}, state, nil
		}
		s.logger.Warn("Ignoring unknown domain hint", zap.String("hint", q.DomainHint))
	}

	// Tier 1b: keyword rules, in registration order.
	for _, id := range s.reg.IDs() {
		entry, err := s.reg.Get(id)
		if err != nil {
			return domain.RoutingDecision{}, state, err
		}
		if term, ok := matchTrigger(text, entry.Domain.TriggerTerms); ok {
			state.PinnedDomain = id
			return domain.RoutingDecision{
				Mode:       domain.ModeRetrieval,
				Domain:     id,
				Confidence: 1,
				Tags:       []string{"keyword:" + id, "term:" + term},
			}, state, nil
		}
	}

	// A previously pinned domain keeps routing there without a trial.
	if state.PinnedDomain != "" && s.reg.Has(state.PinnedDomain) {
		return domain.RoutingDecision{
			Mode:       domain.ModeRetrieval,
			Domain:     state.PinnedDomain,
			Confidence: 1,
			Tags:       []string{"pinned"},
		}, state, nil
	}

	// Tier 2: trial retrieval across all domains.
	return s.routeByTrial(ctx, q.Text, state)
}

// routeByTrial embeds the query per domain and compares each domain's best
// similarity against its own confidence floor. Trials run concurrently;
// results are compared in registration order for determinism.
func (s *Service) routeByTrial(
	ctx context.Context, queryText string, state domain.ConversationState,
) (domain.RoutingDecision, domain.ConversationState, error) {
	ids := s.reg.IDs()
	scores := make([]float64, len(ids))
	errs := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		entry, err := s.reg.Get(id)
		if err != nil {
			return domain.RoutingDecision{}, state, err
		}
		g.Go(func() error {
			vecs, err := entry.Embedder.Embed(gctx, []string{queryText}, domain.RoleQuery)
			if err != nil {
				if errors.Is(err, domain.ErrDimensionMismatch) {
					return err // config defect, fail the request
				}
				errs[i] = err
				scores[i] = math.Inf(-1)
				return nil
			}
			score, err := s.trialer.TopScore(gctx, id, vecs[0])
			if err != nil {
				if errors.Is(err, domain.ErrDimensionMismatch) {
					return err
				}
				errs[i] = err
				scores[i] = math.Inf(-1)
				return nil
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.RoutingDecision{}, state, fmt.Errorf("trial retrieval: %w", err)
	}

	bestIdx := -1
	bestScore := math.Inf(-1)
	usable := 0
	for i := range ids {
		if errs[i] != nil {
			if !errors.Is(errs[i], domain.ErrEmptyCorpus) {
				s.logger.Warn("Trial retrieval failed",
					zap.String("domain", ids[i]), zap.Error(errs[i]))
			}
			continue
		}
		usable++
		entry, _ := s.reg.Get(ids[i])
		if scores[i] >= entry.Domain.ConfidenceFloor && scores[i] > bestScore {
			bestScore = scores[i]
			bestIdx = i
		}
	}

	// Every trial failed on provider errors: degrade rather than fail.
	if usable == 0 && len(ids) > 0 {
		return domain.RoutingDecision{
			Mode: domain.ModeNoRetrieval,
			Tags: []string{"degraded"},
		}, state, nil
	}

	if bestIdx >= 0 {
		state.PinnedDomain = ids[bestIdx]
		return domain.RoutingDecision{
			Mode:       domain.ModeRetrieval,
			Domain:     ids[bestIdx],
			Confidence: bestScore,
			Tags:       []string{"trial:" + ids[bestIdx]},
		}, state, nil
	}

	// No domain cleared its floor: plain general question, or ambiguous
	// if the caller asked to clarify instead.
	tags := []string{"below-floor"}
	if state.ClarifyOnAmbiguity {
		tags = append(tags, "ambiguous")
	}
	return domain.RoutingDecision{
		Mode: domain.ModeNoRetrieval,
		Tags: tags,
	}, state, nil
}

func (s *Service) generalMarker(text string) (string, bool) {
	for _, m := range s.generalMarkers {
		if strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}

// matchTrigger reports the first trigger term contained in the query.
func matchTrigger(text string, terms []string) (string, bool) {
	for _, t := range terms {
		if t != "" && strings.Contains(text, strings.ToLower(t)) {
			return t, true
		}
	}
	return "", false
}
