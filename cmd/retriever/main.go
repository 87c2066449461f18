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
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/config"
	"github.com/kailas-cloud/retriever/internal/db"
	dbRedis "github.com/kailas-cloud/retriever/internal/db/redis"
	"github.com/kailas-cloud/retriever/internal/domain"
	logpkg "github.com/kailas-cloud/retriever/internal/logger"
	"github.com/kailas-cloud/retriever/internal/metrics"
	"github.com/kailas-cloud/retriever/internal/repository/embcache"
	keywordrepo "github.com/kailas-cloud/retriever/internal/repository/keyword"
	partitionrepo "github.com/kailas-cloud/retriever/internal/repository/partition"
	cacherepo "github.com/kailas-cloud/retriever/internal/repository/resultcache"
	tenantrepo "github.com/kailas-cloud/retriever/internal/repository/tenant"
	vectorrepo "github.com/kailas-cloud/retriever/internal/repository/vector"
	chiTransport "github.com/kailas-cloud/retriever/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/retriever/internal/transport/openai"
	breakeruc "github.com/kailas-cloud/retriever/internal/usecase/breaker"
	embeddinguc "github.com/kailas-cloud/retriever/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/retriever/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/retriever/internal/usecase/ingest"
	"github.com/kailas-cloud/retriever/internal/usecase/limiter"
	queryuc "github.com/kailas-cloud/retriever/internal/usecase/query"
	registryuc "github.com/kailas-cloud/retriever/internal/usecase/registry"
	"github.com/kailas-cloud/retriever/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting retriever API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Global key prefix for tenant partitions, records and caches.
	domain.KeyPrefix = cfg.Storage.KeyPrefix

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Repositories
	partitionRepo := partitionrepo.New(store, cfg.Index.VectorDim).
		WithHNSW(partitionrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
	vectorRepo := vectorrepo.New(store, time.Duration(cfg.Search.VectorTimeoutMs)*time.Millisecond)
	keywordRepo := keywordrepo.New(store, time.Duration(cfg.Search.KeywordTimeoutMs)*time.Millisecond)
	cacheRepo := cacherepo.New(store, time.Duration(cfg.Cache.TTLSec)*time.Second, cfg.Cache.StaleFactor)
	tenantRepo := tenantrepo.New(store)

	// Optional query embedder chain: OpenAI -> Cached -> Instrumented
	embedder := buildEmbedder(cfg.Embedding, store, logger)

	// Use case services
	breakers := breakeruc.New(breakeruc.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Window:           time.Duration(cfg.Breaker.WindowSec) * time.Second,
		Cooldown:         time.Duration(cfg.Breaker.CooldownSec) * time.Second,
	}, metrics.BreakerState, logger)

	registrySvc := registryuc.New(tenantRepo, partitionRepo, cacheRepo, logger)
	rateLimiter := limiter.New(cfg.RateLimit.PerTenantRPS, cfg.RateLimit.Burst)
	ingestSvc := ingestuc.New(registrySvc, partitionRepo, tenantRepo, cacheRepo, logger)

	// Pass nil interface (not typed nil pointer!) when no provider configured.
	var queryEmbedder queryuc.Embedder
	var embeddingChecker healthuc.EmbeddingChecker
	if embedder != nil {
		queryEmbedder = embedder
		embeddingChecker = embedder
	}

	querySvc := queryuc.New(
		registrySvc, vectorRepo, keywordRepo, cacheRepo,
		breakers, rateLimiter, queryEmbedder,
		queryuc.Config{
			TotalBudget:  time.Duration(cfg.Search.TotalBudgetMs) * time.Millisecond,
			CacheEnabled: cfg.CacheEnabled(),
		},
		logger,
	)

	healthSvc := healthuc.New(store, embeddingChecker, breakers)

	server := chiTransport.NewServer(querySvc, ingestSvc, registrySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// Returns nil when no provider is configured; the engine then requires query
// embeddings from callers or falls back to keyword-only search.
func buildEmbedder(cfg config.EmbeddingConfig, store db.Store, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	if cfg.Provider == "" {
		logger.Info("No embedding provider configured; text-only queries run keyword-only")
		return nil
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	logger.Info("Query embedder created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
	)

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)
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
