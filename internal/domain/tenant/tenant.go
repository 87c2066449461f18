package tenant

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/retriever/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxIDLength is the maximum tenant identifier length.
const MaxIDLength = 128

// Weights holds the per-tenant fusion weights for combining vector and
// keyword scores. They do not have to sum to 1.
type Weights struct {
	Vector  float64
	Keyword float64
}

// DefaultWeights is the fusion weighting used when a tenant has no override.
func DefaultWeights() Weights {
	return Weights{Vector: 0.5, Keyword: 0.5}
}

// Valid reports whether both weights are in [0,1] and at least one is positive.
func (w Weights) Valid() bool {
	inRange := func(v float64) bool { return v >= 0 && v <= 1 }
	return inRange(w.Vector) && inRange(w.Keyword) && (w.Vector > 0 || w.Keyword > 0)
}

// Tenant is the tenant aggregate (immutable value object).
type Tenant struct {
	id          string
	active      bool
	weights     Weights
	docCount    int64
	lastUpdated time.Time
}

// New validates and creates an active Tenant.
// ID: ^[a-zA-Z0-9_-]+$, 1-128 chars.
func New(id string, weights Weights) (Tenant, error) {
	if id == "" {
		return Tenant{}, fmt.Errorf("tenant ID is required")
	}
	if len(id) > MaxIDLength {
		return Tenant{}, fmt.Errorf("tenant ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return Tenant{}, fmt.Errorf("tenant ID must be alphanumeric with underscores and hyphens")
	}
	if !weights.Valid() {
		return Tenant{}, fmt.Errorf("fusion weights must be in [0,1] with at least one positive")
	}
	return Tenant{id: id, active: true, weights: weights}, nil
}

// Reconstruct creates a Tenant without validation (storage hydration).
func Reconstruct(id string, active bool, weights Weights, docCount int64, lastUpdated time.Time) Tenant {
	return Tenant{id: id, active: active, weights: weights, docCount: docCount, lastUpdated: lastUpdated}
}

// ID returns the tenant identifier.
func (t *Tenant) ID() string { return t.id }

// Active reports whether the tenant may issue searches.
func (t *Tenant) Active() bool { return t.active }

// WithActive returns a copy with the active flag set.
func (t *Tenant) WithActive(active bool) Tenant {
	out := *t
	out.active = active
	return out
}

// Weights returns the tenant's fusion weights.
func (t *Tenant) Weights() Weights { return t.weights }

// WithWeights returns a copy carrying new fusion weights.
func (t *Tenant) WithWeights(w Weights) Tenant {
	out := *t
	out.weights = w
	return out
}

// DocCount returns the number of documents in the tenant's partition.
func (t *Tenant) DocCount() int64 { return t.docCount }

// LastUpdated returns the time of the last ingestion event for the tenant.
func (t *Tenant) LastUpdated() time.Time { return t.lastUpdated }

// Partition is the tenant-scoped index handle. Every index name, document key
// and cache key is derived from the tenant ID held inside the handle, so a
// backend call made through a Partition cannot reach another tenant's data.
// Handles are minted by the registry after the active-tenant check; the zero
// value is unusable.
type Partition struct {
	tenantID string
}

// NewPartition derives the partition handle for a tenant.
// Callers outside the registry should obtain handles via registry.Resolve.
func NewPartition(tenantID string) Partition {
	return Partition{tenantID: tenantID}
}

// IsZero reports whether the handle was never initialized.
func (p Partition) IsZero() bool { return p.tenantID == "" }

// TenantID returns the owning tenant.
func (p Partition) TenantID() string { return p.tenantID }

// IndexName returns the tenant's FT index name.
func (p Partition) IndexName() string {
	return fmt.Sprintf("%st:%s:idx", domain.KeyPrefix, p.tenantID)
}

// DocPrefix returns the key prefix for the tenant's document hashes.
func (p Partition) DocPrefix() string {
	return fmt.Sprintf("%st:%s:doc:", domain.KeyPrefix, p.tenantID)
}

// DocKey returns the storage key for one of the tenant's documents.
func (p Partition) DocKey(docID string) string {
	return p.DocPrefix() + docID
}

// DocID extracts the document ID from one of the tenant's document keys.
func (p Partition) DocID(key string) string {
	return strings.TrimPrefix(key, p.DocPrefix())
}

// CacheNamespace returns the key prefix for the tenant's result cache.
func (p Partition) CacheNamespace() string {
	return fmt.Sprintf("%st:%s:rcache:", domain.KeyPrefix, p.tenantID)
}

// RecordKey returns the storage key of the tenant's own record.
func RecordKey(tenantID string) string {
	return fmt.Sprintf("%stenant:%s", domain.KeyPrefix, tenantID)
}
