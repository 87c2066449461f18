package domain

import "errors"

var (
	// ErrTenantNotFound signals an unknown tenant.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantInactive signals a deactivated tenant.
	ErrTenantInactive = errors.New("tenant inactive")
	// ErrPartitionNotFound signals a tenant without an index partition yet.
	ErrPartitionNotFound = errors.New("partition not found")
	// ErrInvalidQuery signals a query with neither text nor embedding.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a query embedding dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a tenant over its request budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrBackendUnavailable signals a search backend error; recovered via the
	// fallback controller, never surfaced to callers directly.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendTimeout signals a search backend deadline hit.
	ErrBackendTimeout = errors.New("backend timeout")
	// ErrServiceDegraded signals that both backends are open and no cached
	// answer exists. Transport maps it to a degraded response, not a 5xx.
	ErrServiceDegraded = errors.New("service degraded")

	// ErrEmbeddingProviderError signals a query embedder failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
