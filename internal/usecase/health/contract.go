package health

import (
	"context"

	"github.com/kailas-cloud/retriever/internal/usecase/breaker"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// BreakerReader snapshots backend breaker states.
type BreakerReader interface {
	State(b breaker.Backend) breaker.State
}
