package query

import (
	"context"

	"github.com/kailas-cloud/retriever/internal/domain"
	domquery "github.com/kailas-cloud/retriever/internal/domain/search/query"
	"github.com/kailas-cloud/retriever/internal/domain/search/result"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
	"github.com/kailas-cloud/retriever/internal/usecase/breaker"
)

// Resolver mints partition handles for active tenants.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string) (tenant.Partition, tenant.Weights, error)
}

// Backend is one search backend (vector or keyword).
type Backend interface {
	Search(ctx context.Context, p tenant.Partition, q domquery.Query) ([]result.Result, error)
}

// ResultCache reads and writes cached rankings.
type ResultCache interface {
	Get(ctx context.Context, p tenant.Partition, q domquery.Query) (*result.Cached, error)
	Put(ctx context.Context, p tenant.Partition, q domquery.Query, results []result.Result) error
}

// Breakers admits backend calls and consumes their outcomes.
type Breakers interface {
	Allow(b breaker.Backend) bool
	Release(b breaker.Backend)
	ReportSuccess(b breaker.Backend)
	ReportFailure(b breaker.Backend)
}

// RateLimiter applies per-tenant request limits.
type RateLimiter interface {
	Allow(tenantID string) error
}

// Embedder vectorizes query text. Optional; nil means requests must carry
// embeddings to use the vector backend.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
