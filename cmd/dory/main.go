package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unswcbr/dory/internal/config"
	dbRedis "github.com/unswcbr/dory/internal/db/redis"
	"github.com/unswcbr/dory/internal/domain"
	logpkg "github.com/unswcbr/dory/internal/logger"
	"github.com/unswcbr/dory/internal/metrics"
	"github.com/unswcbr/dory/internal/provider/ollama"
	"github.com/unswcbr/dory/internal/provider/openai"
	"github.com/unswcbr/dory/internal/registry"
	"github.com/unswcbr/dory/internal/repository/corpus"
	"github.com/unswcbr/dory/internal/repository/embcache"
	chiTransport "github.com/unswcbr/dory/internal/transport/chi"
	answeruc "github.com/unswcbr/dory/internal/usecase/answer"
	embeddinguc "github.com/unswcbr/dory/internal/usecase/embedding"
	faquc "github.com/unswcbr/dory/internal/usecase/faq"
	healthuc "github.com/unswcbr/dory/internal/usecase/health"
	pipelineuc "github.com/unswcbr/dory/internal/usecase/pipeline"
	retrievaluc "github.com/unswcbr/dory/internal/usecase/retrieval"
	routeruc "github.com/unswcbr/dory/internal/usecase/router"
	"github.com/unswcbr/dory/internal/version"
)

func main() {
	// Local development keeps secrets in .env; absence is not an error.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting dory routing core",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("domains", len(cfg.Domains)),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Optional embedding cache store
	var cacheStore *dbRedis.Store
	if cfg.Cache.Enabled {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()
		logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Build one embedder chain per domain
	entries := make([]registry.Entry, 0, len(cfg.Domains))
	providerCheckers := make(map[string]healthuc.ProviderChecker, len(cfg.Providers))
	for _, dc := range cfg.Domains {
		provCfg := cfg.Providers[dc.Provider]
		embedder, checker := buildEmbedder(dc.Provider, provCfg, dc, cacheStore, cfg.Cache, logger)
		providerCheckers[dc.Provider] = checker
		entries = append(entries, registry.Entry{
			Domain: domain.Domain{
				ID:              dc.ID,
				Provider:        dc.Provider,
				Model:           provCfg.Model,
				Dimensions:      provCfg.Dimensions,
				DocumentPrefix:  dc.DocumentPrefix,
				QueryPrefix:     dc.QueryPrefix,
				BatchSize:       dc.BatchSize,
				TopK:            dc.TopK,
				ConfidenceFloor: dc.ConfidenceFloor,
				TriggerTerms:    dc.TriggerTerms,
			},
			Embedder: embedder,
		})
	}

	reg, err := registry.New(entries)
	if err != nil {
		logger.Fatal("Failed to build domain registry", zap.Error(err))
	}

	// Corpus store, optionally pre-loaded from an ingestion snapshot
	corpusStore := corpus.New()
	if cfg.Corpus.Snapshot != "" {
		n, err := corpus.LoadSnapshot(corpusStore, cfg.Corpus.Snapshot)
		if err != nil {
			logger.Fatal("Failed to load corpus snapshot",
				zap.String("path", cfg.Corpus.Snapshot), zap.Error(err))
		}
		logger.Info("Corpus snapshot loaded",
			zap.String("path", cfg.Corpus.Snapshot), zap.Int("passages", n))
	}

	// FAQ table with optional hot reload
	faqEntries, err := faquc.LoadTable(cfg.FAQ.Path)
	if err != nil {
		logger.Fatal("Failed to load FAQ table",
			zap.String("path", cfg.FAQ.Path), zap.Error(err))
	}
	faqSvc := faquc.New(faqEntries, cfg.FAQ.Threshold, logger)
	logger.Info("FAQ table loaded",
		zap.String("path", cfg.FAQ.Path), zap.Int("entries", faqSvc.Len()))

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.FAQ.Watch {
		go func() {
			if err := faqSvc.Watch(rootCtx, cfg.FAQ.Path); err != nil {
				logger.Error("FAQ watcher stopped", zap.Error(err))
			}
		}()
	}

	// Use case services
	retrievalSvc := retrievaluc.New(corpusStore)
	routerSvc := routeruc.New(reg, retrievalSvc, cfg.Router.GeneralMarkers, logger)
	answerSvc := answeruc.New(reg, logger)
	pipelineSvc := pipelineuc.New(faqSvc, routerSvc, retrievalSvc, answerSvc, reg, logger)

	var cachePinger healthuc.CachePinger
	if cacheStore != nil {
		cachePinger = cacheStore
	}
	healthSvc := healthuc.New(cachePinger, providerCheckers)

	server := chiTransport.NewServer(pipelineSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain for one domain:
// provider -> Retrying -> Chunked -> Cached -> Prefix. The prefix sits
// outermost so cache keys include it; the chunker sits below the cache
// so every text hits the cache individually.
func buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	dc config.DomainConfig,
	cacheStore *dbRedis.Store,
	cacheCfg config.CacheConfig,
	logger *zap.Logger,
) (domain.Embedder, healthuc.ProviderChecker) {
	timeout := time.Duration(provCfg.TimeoutSec) * time.Second

	var base domain.Embedder
	var checker healthuc.ProviderChecker
	switch provCfg.Kind {
	case "ollama":
		e := ollama.NewEmbedder(&ollama.Config{
			Host:       provCfg.Host,
			Model:      provCfg.Model,
			Dimensions: provCfg.Dimensions,
			Timeout:    timeout,
			Logger:     logger,
		})
		base, checker = e, e
	default:
		e := openai.NewEmbedder(&openai.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      provCfg.Model,
			Dimensions: provCfg.Dimensions,
			Provider:   provName,
			Timeout:    timeout,
			Logger:     logger,
		})
		base, checker = e, e
	}

	retryCfg := embeddinguc.DefaultRetryConfig()
	if provCfg.MaxRetries > 0 {
		retryCfg.MaxRetries = provCfg.MaxRetries
	}
	embedder := domain.Embedder(embeddinguc.NewRetryingEmbedder(base, provName, retryCfg, logger))
	embedder = embeddinguc.NewChunkedEmbedder(embedder, dc.BatchSize, logger)

	if cacheStore != nil {
		var ttl time.Duration
		if cacheCfg.TTLSec > 0 {
			ttl = time.Duration(cacheCfg.TTLSec) * time.Second
		}
		embedder = embcache.New(embedder, cacheStore, embcache.Config{
			KeyPrefix:  cacheCfg.KeyPrefix,
			Provider:   provName,
			Model:      provCfg.Model,
			TTL:        ttl,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}

	if dc.DocumentPrefix != "" || dc.QueryPrefix != "" {
		embedder = domain.NewPrefixEmbedder(embedder, dc.DocumentPrefix, dc.QueryPrefix)
	}

	return embedder, checker
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
