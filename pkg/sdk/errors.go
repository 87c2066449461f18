package retriever

import (
	"fmt"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrTenantNotFound         = domain.ErrTenantNotFound
	ErrTenantInactive         = domain.ErrTenantInactive
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	sentinel   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("retriever: %s (%d %s)", e.Message, e.StatusCode, e.Code)
}

// Unwrap exposes the mapped sentinel for errors.Is.
func (e *APIError) Unwrap() error { return e.sentinel }

var codeSentinels = map[string]error{
	"tenant_not_found":         ErrTenantNotFound,
	"tenant_inactive":          ErrTenantInactive,
	"invalid_query":            ErrInvalidQuery,
	"vector_dim_mismatch":      ErrVectorDimMismatch,
	"rate_limited":             ErrRateLimited,
	"embedding_provider_error": ErrEmbeddingProviderError,
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{
		StatusCode: status,
		Code:       code,
		Message:    message,
		sentinel:   codeSentinels[code],
	}
}
