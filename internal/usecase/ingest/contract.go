package ingest

import (
	"context"
	"time"

	domdoc "github.com/kailas-cloud/retriever/internal/domain/document"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// Resolver mints partition handles for active tenants.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string) (tenant.Partition, tenant.Weights, error)
	Refresh(tenantID string)
}

// PartitionWriter maintains the tenant partition index entries.
type PartitionWriter interface {
	Ensure(ctx context.Context, p tenant.Partition) error
	Upsert(ctx context.Context, p tenant.Partition, doc *domdoc.Document) (bool, error)
	Delete(ctx context.Context, p tenant.Partition, docID string) (bool, error)
}

// TenantCounter adjusts tenant document counts.
type TenantCounter interface {
	AddDocCount(ctx context.Context, tenantID string, delta int64, at time.Time) error
}

// CacheInvalidator clears a tenant's result cache namespace.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, p tenant.Partition) error
}
