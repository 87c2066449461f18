// Package tenant persists tenant records as hashes under the shared key
// prefix, outside any partition.
package tenant

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/retriever/internal/domain"
	domtenant "github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// store is the consumer interface for tenant record persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements tenant record persistence.
type Repo struct {
	store store
}

// New creates a tenant repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get loads a tenant record. Returns domain.ErrTenantNotFound for unknown IDs.
func (r *Repo) Get(ctx context.Context, tenantID string) (domtenant.Tenant, error) {
	fields, err := r.store.HGetAll(ctx, domtenant.RecordKey(tenantID))
	if err != nil {
		return domtenant.Tenant{}, fmt.Errorf("get tenant %s: %w", tenantID, err)
	}
	if len(fields) == 0 {
		return domtenant.Tenant{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrTenantNotFound)
	}
	return fromHashFields(tenantID, fields), nil
}

// Save writes the full tenant record.
func (r *Repo) Save(ctx context.Context, t domtenant.Tenant) error {
	if err := r.store.HSet(ctx, domtenant.RecordKey(t.ID()), toHashFields(t)); err != nil {
		return fmt.Errorf("save tenant %s: %w", t.ID(), err)
	}
	return nil
}

// Delete removes the tenant record. Missing records are not an error.
func (r *Repo) Delete(ctx context.Context, tenantID string) error {
	if err := r.store.Del(ctx, domtenant.RecordKey(tenantID)); err != nil {
		return fmt.Errorf("delete tenant %s: %w", tenantID, err)
	}
	return nil
}

// Exists reports whether a tenant record is present.
func (r *Repo) Exists(ctx context.Context, tenantID string) (bool, error) {
	ok, err := r.store.Exists(ctx, domtenant.RecordKey(tenantID))
	if err != nil {
		return false, fmt.Errorf("check tenant %s: %w", tenantID, err)
	}
	return ok, nil
}

// AddDocCount atomically adjusts the tenant's document count and stamps the
// last-updated time. Delta may be negative.
func (r *Repo) AddDocCount(ctx context.Context, tenantID string, delta int64, at time.Time) error {
	key := domtenant.RecordKey(tenantID)

	if err := r.store.HIncrBy(ctx, key, fieldDocCount, delta); err != nil {
		return fmt.Errorf("adjust doc count %s: %w", tenantID, err)
	}
	if err := r.store.HSet(ctx, key, map[string]string{
		fieldLastUpdated: strconv.FormatInt(at.Unix(), 10),
	}); err != nil {
		return fmt.Errorf("stamp last updated %s: %w", tenantID, err)
	}
	return nil
}

// List returns all known tenant IDs.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	prefix := domtenant.RecordKey("")
	keys, err := r.store.Scan(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(prefix):])
	}
	return ids, nil
}
