package chi

import (
	"fmt"
	"time"

	"github.com/oapi-codegen/runtime/types"

	domdoc "github.com/kailas-cloud/retriever/internal/domain/document"
	"github.com/kailas-cloud/retriever/internal/domain/search/result"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
	queryuc "github.com/kailas-cloud/retriever/internal/usecase/query"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorCode identifies the error class for API clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeTenantNotFound         ErrorCode = "tenant_not_found"
	CodeTenantInactive         ErrorCode = "tenant_inactive"
	CodeInvalidQuery           ErrorCode = "invalid_query"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeInternalError          ErrorCode = "internal_error"
)

// SearchRequest is the body of POST /v1/tenants/{tenant}/search.
// Date bounds are calendar dates; date_to is inclusive.
type SearchRequest struct {
	Text      string      `json:"text,omitempty"`
	Embedding []float32   `json:"embedding,omitempty"`
	DocTypes  []string    `json:"doc_types,omitempty"`
	DateFrom  *types.Date `json:"date_from,omitempty"`
	DateTo    *types.Date `json:"date_to,omitempty"`
	K         int         `json:"k,omitempty"`
}

// SearchResponse is the search outcome envelope.
type SearchResponse struct {
	Results      []SearchResultItem `json:"results"`
	FallbackMode string             `json:"fallback_mode"`
	Degraded     bool               `json:"degraded"`
	CacheHit     bool               `json:"cache_hit"`
	Stale        bool               `json:"stale,omitempty"`
}

// SearchResultItem is one ranked document.
type SearchResultItem struct {
	DocID     string    `json:"doc_id"`
	Score     float64   `json:"score"`
	Source    string    `json:"source"`
	Snippet   string    `json:"snippet,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document event types.
const (
	DocEventUpserted = "upserted"
	DocEventDeleted  = "deleted"
)

// DocumentEvent is the body of POST /v1/events/documents.
type DocumentEvent struct {
	Event    string           `json:"event"`
	TenantID string           `json:"tenant_id"`
	Document *DocumentPayload `json:"document,omitempty"`
	DocID    string           `json:"doc_id,omitempty"`
}

// DocumentPayload carries an ingested, pre-embedded document.
type DocumentPayload struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Type      string            `json:"type,omitempty"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Version   int               `json:"version,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

// Tenant event types.
const (
	TenantEventCreated     = "created"
	TenantEventActivated   = "activated"
	TenantEventDeactivated = "deactivated"
	TenantEventDeleted     = "deleted"
)

// TenantEvent is the body of POST /v1/events/tenants.
type TenantEvent struct {
	Event    string          `json:"event"`
	TenantID string          `json:"tenant_id"`
	Weights  *WeightsPayload `json:"weights,omitempty"`
}

// TenantRequest is the body of PUT /v1/tenants/{tenant}.
type TenantRequest struct {
	Active  *bool           `json:"active,omitempty"`
	Weights *WeightsPayload `json:"weights,omitempty"`
}

// WeightsPayload carries the fusion weights.
type WeightsPayload struct {
	Vector  float64 `json:"vector"`
	Keyword float64 `json:"keyword"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Breakers map[string]string `json:"breakers"`
}

func paramsFromRequest(req SearchRequest) queryuc.Params {
	p := queryuc.Params{
		Text:      req.Text,
		Embedding: req.Embedding,
		DocTypes:  req.DocTypes,
		K:         req.K,
	}
	if req.DateFrom != nil {
		p.DateFrom = req.DateFrom.Time
	}
	if req.DateTo != nil {
		// Inclusive calendar date: cover the whole day.
		p.DateTo = req.DateTo.Time.Add(24*time.Hour - time.Nanosecond)
	}
	return p
}

func searchResponseFromResult(resp queryuc.Response) SearchResponse {
	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = resultToItem(&resp.Results[i])
	}
	return SearchResponse{
		Results:      items,
		FallbackMode: string(resp.FallbackMode),
		Degraded:     resp.Degraded,
		CacheHit:     resp.CacheHit,
		Stale:        resp.Stale,
	}
}

func resultToItem(r *result.Result) SearchResultItem {
	return SearchResultItem{
		DocID:     r.DocID(),
		Score:     r.Score(),
		Source:    string(r.Source()),
		Snippet:   r.Snippet(),
		UpdatedAt: r.UpdatedAt().UTC(),
	}
}

func documentFromPayload(p *DocumentPayload) (domdoc.Document, error) {
	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}
	doc, err := domdoc.New(p.ID, p.Content, p.Type, p.Embedding, p.Metadata, p.Version, updatedAt)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("build document: %w", err)
	}
	return doc, nil
}

func weightsFromPayload(p *WeightsPayload) tenant.Weights {
	if p == nil {
		return tenant.DefaultWeights()
	}
	return tenant.Weights{Vector: p.Vector, Keyword: p.Keyword}
}
