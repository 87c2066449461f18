package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
	domquery "github.com/kailas-cloud/retriever/internal/domain/search/query"
	"github.com/kailas-cloud/retriever/internal/domain/search/result"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
	"github.com/kailas-cloud/retriever/internal/usecase/breaker"
)

type mockResolver struct {
	weights  tenant.Weights
	err      error
	resolved []string
}

func (m *mockResolver) Resolve(_ context.Context, tenantID string) (tenant.Partition, tenant.Weights, error) {
	if m.err != nil {
		return tenant.Partition{}, tenant.Weights{}, m.err
	}
	m.resolved = append(m.resolved, tenantID)
	w := m.weights
	if w == (tenant.Weights{}) {
		w = tenant.DefaultWeights()
	}
	return tenant.NewPartition(tenantID), w, nil
}

type mockBackend struct {
	results []result.Result
	err     error
	fn      func(ctx context.Context) ([]result.Result, error)
	calls   int
}

func (m *mockBackend) Search(ctx context.Context, _ tenant.Partition, _ domquery.Query) ([]result.Result, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(ctx)
	}
	return m.results, m.err
}

type mockCache struct {
	hit      *result.Cached
	getErr   error
	puts     [][]result.Result
	getCalls int
}

func (m *mockCache) Get(_ context.Context, _ tenant.Partition, _ domquery.Query) (*result.Cached, error) {
	m.getCalls++
	return m.hit, m.getErr
}

func (m *mockCache) Put(_ context.Context, _ tenant.Partition, _ domquery.Query, results []result.Result) error {
	m.puts = append(m.puts, results)
	return nil
}

type mockLimiter struct {
	err error
}

func (m *mockLimiter) Allow(string) error { return m.err }

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 7}, nil
}

// fixture wires the orchestrator with a real breaker controller.
type fixture struct {
	svc      *Service
	resolver *mockResolver
	vec      *mockBackend
	kw       *mockBackend
	cache    *mockCache
	breakers *breaker.Controller
	embedder *mockEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		resolver: &mockResolver{},
		vec:      &mockBackend{},
		kw:       &mockBackend{},
		cache:    &mockCache{},
		embedder: &mockEmbedder{vec: []float32{0.1, 0.2}},
		breakers: breaker.New(breaker.Config{
			FailureThreshold: 5,
			Window:           30 * time.Second,
			Cooldown:         15 * time.Second,
		}, nil, zap.NewNop()),
	}
	f.svc = New(
		f.resolver, f.vec, f.kw, f.cache, f.breakers, &mockLimiter{}, f.embedder,
		Config{TotalBudget: 200 * time.Millisecond, CacheEnabled: true},
		zap.NewNop(),
	)
	return f
}

func res(docID string, score float64, source result.Source) result.Result {
	return result.New(docID, score, source, "", time.Unix(1700000000, 0))
}

func backendDown() error {
	return fmt.Errorf("backend: %w", domain.ErrBackendTimeout)
}

func searchParams() Params {
	return Params{Text: "hybrid retrieval", Embedding: []float32{0.3, 0.4}, K: 10}
}
