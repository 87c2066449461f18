// Package health aggregates component checks for the /health endpoint.
package health

import (
	"context"

	"github.com/kailas-cloud/retriever/internal/usecase/breaker"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure (searches still answer, possibly
	// in a fallback mode).
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results and the breaker snapshot.
type Report struct {
	Status   Status
	Checks   map[string]CheckResult
	Breakers map[string]string
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	breakers  BreakerReader
}

// New creates a Service. embedding can be nil.
func New(db DBPinger, embedding EmbeddingChecker, breakers BreakerReader) *Service {
	return &Service{db: db, embedding: embedding, breakers: breakers}
}

// Check runs health checks against all components. Open breakers degrade the
// status: the engine still answers, just not with full hybrid search.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	breakers := map[string]string{
		"vector":  s.breakers.State(breaker.BackendVector).String(),
		"keyword": s.breakers.State(breaker.BackendKeyword).String(),
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	for _, st := range breakers {
		if st != "closed" {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Breakers: breakers}
}
