package chi

import (
	"context"

	domdoc "github.com/kailas-cloud/retriever/internal/domain/document"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
	healthuc "github.com/kailas-cloud/retriever/internal/usecase/health"
	queryuc "github.com/kailas-cloud/retriever/internal/usecase/query"
)

// SearchService runs hybrid queries.
type SearchService interface {
	Search(ctx context.Context, tenantID string, params queryuc.Params) (queryuc.Response, error)
}

// IngestService consumes document lifecycle events.
type IngestService interface {
	Upsert(ctx context.Context, tenantID string, doc *domdoc.Document) error
	Delete(ctx context.Context, tenantID, docID string) error
}

// TenantService manages the tenant registry.
type TenantService interface {
	Create(ctx context.Context, tenantID string, weights tenant.Weights) error
	Activate(ctx context.Context, tenantID string) error
	Deactivate(ctx context.Context, tenantID string) error
	UpdateWeights(ctx context.Context, tenantID string, weights tenant.Weights) error
	Drop(ctx context.Context, tenantID string) error
}

// HealthService aggregates component checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
