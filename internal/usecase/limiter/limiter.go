// Package limiter applies per-tenant request rate limits so one tenant's
// query storm cannot starve the shared backends.
package limiter

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// Limiter holds one token bucket per tenant. Zero RPS disables limiting.
type Limiter struct {
	rps   float64
	burst int

	mu      sync.Mutex
	tenants map[string]*rate.Limiter
}

// New creates a per-tenant rate limiter.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		rps:     rps,
		burst:   burst,
		tenants: make(map[string]*rate.Limiter),
	}
}

// Allow consumes one token from the tenant's bucket. Fails with
// domain.ErrRateLimited when the bucket is empty.
func (l *Limiter) Allow(tenantID string) error {
	if l.rps <= 0 {
		return nil
	}

	l.mu.Lock()
	lim, ok := l.tenants[tenantID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.tenants[tenantID] = lim
	}
	l.mu.Unlock()

	if !lim.Allow() {
		return fmt.Errorf("tenant %s: %w", tenantID, domain.ErrRateLimited)
	}
	return nil
}

// Forget drops a tenant's bucket (tenant deletion).
func (l *Limiter) Forget(tenantID string) {
	l.mu.Lock()
	delete(l.tenants, tenantID)
	l.mu.Unlock()
}
