// Package chi exposes the query pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/domain"
	healthuc "github.com/unswcbr/dory/internal/usecase/health"
)

const maxQueryBytes = 1 << 16

// Pipeline is the query entry point the server fronts.
type Pipeline interface {
	RouteAndRetrieve(ctx context.Context, q domain.Query, state domain.ConversationState) (domain.RetrievalResult, error)
}

// Server implements the HTTP API.
type Server struct {
	pipeline Pipeline
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(pipeline Pipeline, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{pipeline: pipeline, health: health, logger: logger}
}

// Mount attaches the API routes to the router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/v1/query", s.handleQuery)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Query text is required")
		return
	}

	q := domain.Query{
		Text:       req.Query,
		Turn:       req.Turn,
		DomainHint: req.DomainHint,
	}
	var state domain.ConversationState
	if req.State != nil {
		state = domain.ConversationState{
			PinnedDomain:       req.State.PinnedDomain,
			ClarifyOnAmbiguity: req.State.ClarifyOnAmbiguity,
		}
	}

	res, err := s.pipeline.RouteAndRetrieve(r.Context(), q, state)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToResponse(res))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownDomain):
		writeError(w, http.StatusBadRequest, "unknown_domain", domain.ErrUnknownDomain.Error())
	case errors.Is(err, domain.ErrDimensionMismatch):
		writeError(w, http.StatusBadRequest, "dimension_mismatch", domain.ErrDimensionMismatch.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "provider_unavailable", domain.ErrProviderUnavailable.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request cancelled")
	default:
		s.logger.Error("internal error",
			zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
