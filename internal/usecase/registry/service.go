// Package registry is the tenant index registry: the only place that mints
// tenant.Partition handles. Every search and ingestion path goes through
// Resolve, so an inactive or unknown tenant can never reach a backend.
package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// Service implements the tenant registry with a lazily warmed in-memory map
// over the tenant repository.
type Service struct {
	tenants    TenantRepository
	partitions PartitionDropper
	cache      CacheInvalidator
	logger     *zap.Logger

	mu     sync.RWMutex
	cached map[string]tenant.Tenant
}

// New creates a registry service.
func New(tenants TenantRepository, partitions PartitionDropper, cache CacheInvalidator, logger *zap.Logger) *Service {
	return &Service{
		tenants:    tenants,
		partitions: partitions,
		cache:      cache,
		logger:     logger,
		cached:     make(map[string]tenant.Tenant),
	}
}

// Resolve returns the partition handle and fusion weights for an active
// tenant. Fails with domain.ErrTenantNotFound / domain.ErrTenantInactive;
// no handle is minted in either case.
func (s *Service) Resolve(ctx context.Context, tenantID string) (tenant.Partition, tenant.Weights, error) {
	t, err := s.lookup(ctx, tenantID)
	if err != nil {
		return tenant.Partition{}, tenant.Weights{}, err
	}
	if !t.Active() {
		return tenant.Partition{}, tenant.Weights{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrTenantInactive)
	}
	return tenant.NewPartition(tenantID), t.Weights(), nil
}

// Create registers a new active tenant with the given fusion weights.
// The partition index itself is created lazily on first document.
func (s *Service) Create(ctx context.Context, tenantID string, weights tenant.Weights) error {
	t, err := tenant.New(tenantID, weights)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if err := s.tenants.Save(ctx, t); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	s.put(t)
	s.logger.Info("Tenant created", zap.String("tenant", tenantID))
	return nil
}

// Activate re-enables a tenant.
func (s *Service) Activate(ctx context.Context, tenantID string) error {
	return s.setActive(ctx, tenantID, true)
}

// Deactivate disables a tenant. In-flight queries finish; subsequent Resolve
// calls fail ErrTenantInactive.
func (s *Service) Deactivate(ctx context.Context, tenantID string) error {
	return s.setActive(ctx, tenantID, false)
}

// UpdateWeights replaces a tenant's fusion weights.
func (s *Service) UpdateWeights(ctx context.Context, tenantID string, weights tenant.Weights) error {
	if !weights.Valid() {
		return fmt.Errorf("%w: fusion weights must be in [0,1] with at least one positive", domain.ErrInvalidQuery)
	}

	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("update weights: %w", err)
	}

	updated := t.WithWeights(weights)
	if err := s.tenants.Save(ctx, updated); err != nil {
		return fmt.Errorf("update weights: %w", err)
	}

	s.put(updated)
	return nil
}

// Drop deletes a tenant: partition index and documents, cache namespace,
// record, and the in-memory entry.
func (s *Service) Drop(ctx context.Context, tenantID string) error {
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return fmt.Errorf("drop tenant: %w", err)
	}

	p := tenant.NewPartition(tenantID)
	if err := s.partitions.Drop(ctx, p); err != nil {
		return fmt.Errorf("drop tenant %s partition: %w", tenantID, err)
	}
	if err := s.cache.Invalidate(ctx, p); err != nil {
		s.logger.Warn("Failed to clear cache namespace on tenant drop",
			zap.String("tenant", tenantID), zap.Error(err))
	}
	if err := s.tenants.Delete(ctx, tenantID); err != nil {
		return fmt.Errorf("drop tenant %s record: %w", tenantID, err)
	}

	s.evict(tenantID)
	s.logger.Info("Tenant dropped", zap.String("tenant", tenantID))
	return nil
}

// Refresh evicts the in-memory entry so the next Resolve reloads it. Used by
// paths that change tenant state out of band (doc count bumps).
func (s *Service) Refresh(tenantID string) {
	s.evict(tenantID)
}

func (s *Service) setActive(ctx context.Context, tenantID string, active bool) error {
	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("set tenant active: %w", err)
	}

	updated := t.WithActive(active)
	if err := s.tenants.Save(ctx, updated); err != nil {
		return fmt.Errorf("set tenant active: %w", err)
	}

	if active {
		s.put(updated)
	} else {
		s.evict(tenantID)
	}
	s.logger.Info("Tenant state changed",
		zap.String("tenant", tenantID), zap.Bool("active", active))
	return nil
}

// lookup serves from the in-memory map, falling back to the repository.
func (s *Service) lookup(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	s.mu.RLock()
	t, ok := s.cached[tenantID]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return tenant.Tenant{}, err
	}

	s.put(t)
	return t, nil
}

func (s *Service) put(t tenant.Tenant) {
	s.mu.Lock()
	s.cached[t.ID()] = t
	s.mu.Unlock()
}

func (s *Service) evict(tenantID string) {
	s.mu.Lock()
	delete(s.cached, tenantID)
	s.mu.Unlock()
}
