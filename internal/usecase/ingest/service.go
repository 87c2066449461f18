// Package ingest consumes document lifecycle events and keeps the tenant
// partitions in sync: derived index entries, document counts, and result
// cache invalidation. The engine never originates documents; ingestion owns
// them.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/retriever/internal/domain/document"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// Service implements the index-maintenance hooks.
type Service struct {
	registry   Resolver
	partitions PartitionWriter
	tenants    TenantCounter
	cache      CacheInvalidator
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an ingest service.
func New(registry Resolver, partitions PartitionWriter, tenants TenantCounter, cache CacheInvalidator, logger *zap.Logger) *Service {
	return &Service{
		registry:   registry,
		partitions: partitions,
		tenants:    tenants,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Upsert applies a document created/updated event. The tenant's FT index is
// created on first document; the result cache namespace is invalidated so
// cached rankings never outlive the update.
func (s *Service) Upsert(ctx context.Context, tenantID string, doc *domdoc.Document) error {
	p, _, err := s.registry.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	if err := s.partitions.Ensure(ctx, p); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", tenantID, doc.ID(), err)
	}

	created, err := s.partitions.Upsert(ctx, p, doc)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", tenantID, doc.ID(), err)
	}

	var delta int64
	if created {
		delta = 1
	}
	s.bumpCounts(ctx, tenantID, delta)
	s.invalidate(ctx, p)

	s.logger.Debug("Document upserted",
		zap.String("tenant", tenantID),
		zap.String("doc", doc.ID()),
		zap.Bool("created", created))
	return nil
}

// Delete applies a document deleted event. Removing the index entry is what
// keeps deleted documents out of search results; there is no query-time
// deleted filter. Unknown documents are a no-op.
func (s *Service) Delete(ctx context.Context, tenantID, docID string) error {
	p, _, err := s.registry.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	removed, err := s.partitions.Delete(ctx, p, docID)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", tenantID, docID, err)
	}
	if !removed {
		return nil
	}

	s.bumpCounts(ctx, tenantID, -1)
	s.invalidate(ctx, p)

	s.logger.Debug("Document deleted",
		zap.String("tenant", tenantID), zap.String("doc", docID))
	return nil
}

// bumpCounts updates the tenant record. Count drift is tolerable; the index
// entry is already in place, so failures are logged, not propagated.
func (s *Service) bumpCounts(ctx context.Context, tenantID string, delta int64) {
	if err := s.tenants.AddDocCount(ctx, tenantID, delta, s.now()); err != nil {
		s.logger.Warn("Failed to update tenant doc count",
			zap.String("tenant", tenantID), zap.Error(err))
	}
	s.registry.Refresh(tenantID)
}

func (s *Service) invalidate(ctx context.Context, p tenant.Partition) {
	if err := s.cache.Invalidate(ctx, p); err != nil {
		s.logger.Warn("Failed to invalidate result cache",
			zap.String("tenant", p.TenantID()), zap.Error(err))
	}
}
