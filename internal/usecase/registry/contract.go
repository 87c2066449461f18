package registry

import (
	"context"

	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// TenantRepository persists tenant records.
type TenantRepository interface {
	Get(ctx context.Context, tenantID string) (tenant.Tenant, error)
	Save(ctx context.Context, t tenant.Tenant) error
	Delete(ctx context.Context, tenantID string) error
}

// PartitionDropper tears down a tenant's index partition.
type PartitionDropper interface {
	Drop(ctx context.Context, p tenant.Partition) error
}

// CacheInvalidator clears a tenant's result cache namespace.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, p tenant.Partition) error
}
