// Package chi implements the HTTP API: tenant-scoped search, ingestion and
// tenant lifecycle event hooks, health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
	logpkg "github.com/kailas-cloud/retriever/internal/logger"
	healthuc "github.com/kailas-cloud/retriever/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	search        SearchService
	ingest        IngestService
	tenants       TenantService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search SearchService,
	ingest IngestService,
	tenants TenantService,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		ingest:  ingest,
		tenants: tenants,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrTenantNotFound, http.StatusNotFound, CodeTenantNotFound),
		sentinelHandler(domain.ErrTenantInactive, http.StatusForbidden, CodeTenantInactive),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	}
	return s
}

// Routes mounts all API endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/tenants/{tenant}/search", s.SearchTenant)
	r.Put("/v1/tenants/{tenant}", s.UpsertTenant)
	r.Delete("/v1/tenants/{tenant}", s.DeleteTenant)
	r.Post("/v1/events/documents", s.DocumentEvent)
	r.Post("/v1/events/tenants", s.TenantEvent)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchTenant handles POST /v1/tenants/{tenant}/search. Degraded responses
// are 200s: a fallback answer is still an answer.
func (s *Server) SearchTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	ctx := logpkg.WithTenant(r.Context(), tenantID)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.search.Search(ctx, tenantID, paramsFromRequest(req))
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseFromResult(resp))
}

// DocumentEvent handles POST /v1/events/documents.
func (s *Server) DocumentEvent(w http.ResponseWriter, r *http.Request) {
	var ev DocumentEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if ev.TenantID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "tenant_id is required")
		return
	}
	ctx := logpkg.WithTenant(r.Context(), ev.TenantID)

	switch ev.Event {
	case DocEventUpserted:
		if ev.Document == nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "document is required for upserted events")
			return
		}
		doc, err := documentFromPayload(ev.Document)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
			return
		}
		if err := s.ingest.Upsert(ctx, ev.TenantID, &doc); err != nil {
			s.handleDomainError(ctx, w, err)
			return
		}
	case DocEventDeleted:
		if ev.DocID == "" {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "doc_id is required for deleted events")
			return
		}
		if err := s.ingest.Delete(ctx, ev.TenantID, ev.DocID); err != nil {
			s.handleDomainError(ctx, w, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("unknown document event %q", ev.Event))
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// TenantEvent handles POST /v1/events/tenants.
func (s *Server) TenantEvent(w http.ResponseWriter, r *http.Request) {
	var ev TenantEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if ev.TenantID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "tenant_id is required")
		return
	}
	ctx := logpkg.WithTenant(r.Context(), ev.TenantID)

	var err error
	switch ev.Event {
	case TenantEventCreated:
		err = s.tenants.Create(ctx, ev.TenantID, weightsFromPayload(ev.Weights))
	case TenantEventActivated:
		err = s.tenants.Activate(ctx, ev.TenantID)
	case TenantEventDeactivated:
		err = s.tenants.Deactivate(ctx, ev.TenantID)
	case TenantEventDeleted:
		err = s.tenants.Drop(ctx, ev.TenantID)
	default:
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("unknown tenant event %q", ev.Event))
		return
	}
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// UpsertTenant handles PUT /v1/tenants/{tenant}: create-or-replace the tenant
// registration.
func (s *Server) UpsertTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	ctx := logpkg.WithTenant(r.Context(), tenantID)

	var req TenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.tenants.Create(ctx, tenantID, weightsFromPayload(req.Weights)); err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	if req.Active != nil && !*req.Active {
		if err := s.tenants.Deactivate(ctx, tenantID); err != nil {
			s.handleDomainError(ctx, w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteTenant handles DELETE /v1/tenants/{tenant}: full teardown of the
// tenant's partition, cache namespace and record.
func (s *Server) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	ctx := logpkg.WithTenant(r.Context(), tenantID)

	if err := s.tenants.Drop(ctx, tenantID); err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health. Open breakers and embedding trouble report
// "degraded" but keep 200: the engine still answers queries. Only a failing
// store is 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Checks["database"] == healthuc.CheckError {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Breakers: report.Breakers,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrTenantNotFound,
		domain.ErrTenantInactive,
		domain.ErrInvalidQuery,
		domain.ErrVectorDimMismatch,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// handleDomainError logs through the context logger so the line carries the
// request id and tenant stamped upstream.
func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logpkg.FromContext(ctx).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
