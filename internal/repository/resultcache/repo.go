// Package resultcache implements the tenant-namespaced result cache. Entries
// live under the tenant's cache namespace, keyed by a digest of the
// normalized query, so one tenant can never read another tenant's cached
// results.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/retriever/internal/db"
	"github.com/kailas-cloud/retriever/internal/domain/search/query"
	"github.com/kailas-cloud/retriever/internal/domain/search/result"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// store is the consumer interface for cache operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// Repo implements the result cache. Entries are kept physically for
// ttl*staleFactor so an all-backends-down query can still serve a stale hit.
type Repo struct {
	store       store
	ttl         time.Duration
	staleFactor int
	now         func() time.Time
}

// New creates a result cache repository.
func New(s store, ttl time.Duration, staleFactor int) *Repo {
	if staleFactor < 1 {
		staleFactor = 1
	}
	return &Repo{store: s, ttl: ttl, staleFactor: staleFactor, now: time.Now}
}

// Get looks up cached results for the query. Returns nil on miss.
func (r *Repo) Get(ctx context.Context, p tenant.Partition, q query.Query) (*result.Cached, error) {
	raw, err := r.store.Get(ctx, r.key(p, q))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", p.TenantID(), err)
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		// Corrupt entry: treat as a miss rather than failing the query.
		return nil, nil
	}

	age := r.now().Sub(entry.createdAt)
	return &result.Cached{
		Results: entry.results,
		Fresh:   age <= r.ttl,
		Age:     age,
	}, nil
}

// Put stores fused results for the query under the tenant's namespace.
func (r *Repo) Put(ctx context.Context, p tenant.Partition, q query.Query, results []result.Result) error {
	raw, err := encodeEntry(results, r.now())
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	physicalTTL := r.ttl * time.Duration(r.staleFactor)
	if err := r.store.SetWithTTL(ctx, r.key(p, q), raw, physicalTTL); err != nil {
		return fmt.Errorf("cache put %s: %w", p.TenantID(), err)
	}
	return nil
}

// Invalidate drops every cached entry in the tenant's namespace. Called on
// document ingestion so stale results never outlive an update by more than
// the in-flight queries.
func (r *Repo) Invalidate(ctx context.Context, p tenant.Partition) error {
	keys, err := r.store.Scan(ctx, p.CacheNamespace()+"*")
	if err != nil {
		return fmt.Errorf("cache scan %s: %w", p.TenantID(), err)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", p.TenantID(), err)
	}
	return nil
}

// key derives the cache key: tenant namespace plus a digest of the normalized
// query text, the canonical filter representation and K. Queries differing in
// any of those never share an entry.
func (r *Repo) key(p tenant.Partition, q query.Query) string {
	h := sha256.Sum256([]byte(q.Normalized() + "|" + q.Filters().Canonical() + "|" + strconv.Itoa(q.K())))
	return p.CacheNamespace() + hex.EncodeToString(h[:])
}
