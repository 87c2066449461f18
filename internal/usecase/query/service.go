// Package query orchestrates hybrid search: validation, rate limiting,
// tenant resolution, cache lookup, breaker-planned parallel fan-out to the
// vector and keyword backends, rank fusion, and write-through caching.
//
// The failure policy has three tiers: both backends ok (fused, mode "none"),
// one backend down (single-source results), both down (stale cache hit or an
// empty degraded response). A degraded answer is still an answer; the
// orchestrator never turns backend trouble into a 5xx.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/domain/search/filter"
	domquery "github.com/kailas-cloud/retriever/internal/domain/search/query"
	"github.com/kailas-cloud/retriever/internal/domain/search/result"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
	"github.com/kailas-cloud/retriever/internal/metrics"
	"github.com/kailas-cloud/retriever/internal/usecase/breaker"
	"github.com/kailas-cloud/retriever/internal/usecase/fusion"
)

// Config holds orchestrator settings.
type Config struct {
	// TotalBudget bounds the whole backend fan-out (default 200ms).
	TotalBudget time.Duration
	// CacheEnabled toggles the result cache.
	CacheEnabled bool
}

// Params is an incoming search request, pre-validation.
type Params struct {
	Text      string
	Embedding []float32
	DocTypes  []string
	DateFrom  time.Time
	DateTo    time.Time
	K         int
}

// Response is the search outcome. Degraded responses carry whatever the
// engine could produce; they are successes at the transport level.
type Response struct {
	Results      []result.Result
	FallbackMode breaker.Mode
	Degraded     bool
	CacheHit     bool
	Stale        bool
}

// Service implements the query orchestrator.
type Service struct {
	registry Resolver
	vector   Backend
	keyword  Backend
	cache    ResultCache
	breakers Breakers
	limiter  RateLimiter
	embedder Embedder // nil when no provider configured
	cfg      Config
	logger   *zap.Logger
}

// New creates the orchestrator.
func New(
	registry Resolver,
	vector, keyword Backend,
	cache ResultCache,
	breakers Breakers,
	limiter RateLimiter,
	embedder Embedder,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry: registry,
		vector:   vector,
		keyword:  keyword,
		cache:    cache,
		breakers: breakers,
		limiter:  limiter,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs one hybrid query for a tenant.
func (s *Service) Search(ctx context.Context, tenantID string, params Params) (Response, error) {
	start := time.Now()

	filters, err := filter.New(params.DocTypes, params.DateFrom, params.DateTo)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	q, err := domquery.New(params.Text, params.Embedding, filters, params.K)
	if err != nil {
		return Response{}, err
	}

	if err := s.limiter.Allow(tenantID); err != nil {
		return Response{}, err
	}

	p, weights, err := s.registry.Resolve(ctx, tenantID)
	if err != nil {
		return Response{}, err
	}

	// Fresh cache hit short-circuits the backends entirely. A stale hit is
	// remembered for the degraded path.
	var stale *result.Cached
	if s.cfg.CacheEnabled {
		if hit := s.cacheGet(ctx, p, q); hit != nil {
			if hit.Fresh {
				metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
				resp := Response{Results: hit.Results, FallbackMode: breaker.ModeNone, CacheHit: true}
				s.observe(resp, start)
				return resp, nil
			}
			stale = hit
		}
	}

	resp := s.fanOut(ctx, p, q, weights, stale)
	s.observe(resp, start)
	return resp, nil
}

// fanOut plans, runs and fuses the backend calls.
func (s *Service) fanOut(
	ctx context.Context,
	p tenant.Partition, q domquery.Query,
	weights tenant.Weights, stale *result.Cached,
) Response {
	// Capability first, admission second: asking the breaker may claim a
	// HALF_OPEN probe slot, so only backends the query can actually use ask.
	useKeyword := q.Text() != "" && s.breakers.Allow(breaker.BackendKeyword)

	canVector := len(q.Embedding()) > 0 || (s.embedder != nil && q.Text() != "")
	useVector := canVector && s.breakers.Allow(breaker.BackendVector)

	if useVector && len(q.Embedding()) == 0 {
		// Provider trouble never fails the request; the query degrades to
		// whatever the keyword backend yields.
		emb, err := s.embedder.Embed(ctx, q.Text())
		if err != nil {
			s.logger.Warn("Query embedding failed, degrading to keyword-only",
				zap.String("tenant", p.TenantID()), zap.Error(err))
			s.breakers.Release(breaker.BackendVector)
			useVector = false
		} else {
			q = q.WithEmbedding(emb.Embedding)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TotalBudget)
	defer cancel()

	var vecResults, kwResults []result.Result
	var vecOK, kwOK bool

	g, gctx := errgroup.WithContext(ctx)
	if useVector {
		g.Go(func() error {
			vecResults, vecOK = s.callBackend(gctx, s.vector, breaker.BackendVector, p, q)
			return nil
		})
	}
	if useKeyword {
		g.Go(func() error {
			kwResults, kwOK = s.callBackend(gctx, s.keyword, breaker.BackendKeyword, p, q)
			return nil
		})
	}
	_ = g.Wait() // goroutines report outcomes, never errors

	if !useVector {
		metrics.BackendRequestsTotal.WithLabelValues(string(breaker.BackendVector), "skipped").Inc()
	}
	if !useKeyword {
		metrics.BackendRequestsTotal.WithLabelValues(string(breaker.BackendKeyword), "skipped").Inc()
	}

	switch {
	case vecOK && kwOK:
		fused := fusion.Fuse(vecResults, kwResults, weights, q.K())
		s.cachePut(ctx, p, q, fused)
		return Response{Results: fused, FallbackMode: breaker.ModeNone}
	case vecOK:
		return Response{
			Results:      fusion.Fuse(vecResults, nil, weights, q.K()),
			FallbackMode: breaker.ModeVectorOnly,
		}
	case kwOK:
		return Response{
			Results:      fusion.Fuse(nil, kwResults, weights, q.K()),
			FallbackMode: breaker.ModeKeywordOnly,
		}
	}

	// Terminal tier: both backends unavailable. A stale cache entry beats an
	// empty answer.
	if stale != nil {
		metrics.ResultCacheTotal.WithLabelValues("stale").Inc()
		return Response{
			Results:      stale.Results,
			FallbackMode: breaker.ModeCacheOnly,
			Degraded:     true,
			CacheHit:     true,
			Stale:        true,
		}
	}
	return Response{FallbackMode: breaker.ModeCacheOnly, Degraded: true}
}

// callBackend runs one backend call and feeds the outcome to its breaker.
func (s *Service) callBackend(
	ctx context.Context, backend Backend, name breaker.Backend,
	p tenant.Partition, q domquery.Query,
) ([]result.Result, bool) {
	results, err := backend.Search(ctx, p, q)
	if err == nil {
		s.breakers.ReportSuccess(name)
		metrics.BackendRequestsTotal.WithLabelValues(string(name), "ok").Inc()
		return results, true
	}

	// A caller disconnect cancels the fan-out context; the repos surface that
	// as backend unavailability, but it says nothing about backend health.
	// Return the admission unused instead of charging the breaker. Deadline
	// expiry (per-call or total budget) still counts: that IS backend health.
	if errors.Is(ctx.Err(), context.Canceled) {
		s.breakers.Release(name)
		metrics.BackendRequestsTotal.WithLabelValues(string(name), "canceled").Inc()
		return nil, false
	}

	status := "error"
	if errors.Is(err, domain.ErrBackendTimeout) || errors.Is(err, context.DeadlineExceeded) {
		status = "timeout"
	}
	metrics.BackendRequestsTotal.WithLabelValues(string(name), status).Inc()
	s.breakers.ReportFailure(name)
	s.logger.Warn("Backend search failed",
		zap.String("backend", string(name)),
		zap.String("tenant", p.TenantID()),
		zap.Error(err))
	return nil, false
}

func (s *Service) cacheGet(ctx context.Context, p tenant.Partition, q domquery.Query) *result.Cached {
	hit, err := s.cache.Get(ctx, p, q)
	if err != nil {
		// Cache errors are misses, never failures.
		s.logger.Warn("Result cache read failed", zap.String("tenant", p.TenantID()), zap.Error(err))
		return nil
	}
	if hit == nil {
		metrics.ResultCacheTotal.WithLabelValues("miss").Inc()
	}
	return hit
}

// cachePut writes through on full hybrid results only: a partial ranking
// must never be served later as a fresh complete one.
func (s *Service) cachePut(ctx context.Context, p tenant.Partition, q domquery.Query, results []result.Result) {
	if !s.cfg.CacheEnabled {
		return
	}
	if err := s.cache.Put(ctx, p, q, results); err != nil {
		s.logger.Warn("Result cache write failed", zap.String("tenant", p.TenantID()), zap.Error(err))
	}
}

func (s *Service) observe(resp Response, start time.Time) {
	mode := string(resp.FallbackMode)
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	degraded := "false"
	if resp.Degraded {
		degraded = "true"
	}
	metrics.SearchesTotal.WithLabelValues(mode, degraded).Inc()
}
