package vector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/retriever/internal/db"
	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/domain/search/filter"
	"github.com/kailas-cloud/retriever/internal/domain/search/query"
	"github.com/kailas-cloud/retriever/internal/domain/search/result"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

type fakeStore struct {
	gotQuery *db.KNNQuery
	result   *db.SearchResult
	err      error
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.gotQuery = q
	return f.result, f.err
}

func testQuery(t *testing.T, k int) query.Query {
	t.Helper()
	q, err := query.New("hybrid retrieval", []float32{0.1, 0.2, 0.3}, filter.Filters{}, k)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func TestSearch_BuildsTenantScopedQuery(t *testing.T) {
	store := &fakeStore{result: &db.SearchResult{}}
	repo := New(store, 150*time.Millisecond)
	p := tenant.NewPartition("acme")

	if _, err := repo.Search(context.Background(), p, testQuery(t, 5)); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if store.gotQuery.IndexName != p.IndexName() {
		t.Errorf("index = %q, want %q", store.gotQuery.IndexName, p.IndexName())
	}
	if store.gotQuery.K != 5 {
		t.Errorf("k = %d, want 5", store.gotQuery.K)
	}
}

func TestSearch_RequiresEmbedding(t *testing.T) {
	repo := New(&fakeStore{}, 150*time.Millisecond)

	q, err := query.New("text only", nil, filter.Filters{}, 10)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}

	_, err = repo.Search(context.Background(), tenant.NewPartition("acme"), q)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearch_MapsDeadlineToBackendTimeout(t *testing.T) {
	store := &fakeStore{err: context.DeadlineExceeded}
	repo := New(store, 150*time.Millisecond)

	_, err := repo.Search(context.Background(), tenant.NewPartition("acme"), testQuery(t, 10))
	if !errors.Is(err, domain.ErrBackendTimeout) {
		t.Fatalf("expected ErrBackendTimeout, got %v", err)
	}
}

func TestSearch_MapsStoreErrorToUnavailable(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	repo := New(store, 150*time.Millisecond)

	_, err := repo.Search(context.Background(), tenant.NewPartition("acme"), testQuery(t, 10))
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSearch_ParsesEntries(t *testing.T) {
	p := tenant.NewPartition("acme")
	store := &fakeStore{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{
				Key:   p.DocKey("d1"),
				Score: 0.92,
				Fields: map[string]string{
					"__content":  "retrieval augmented generation",
					"updated_at": "1700000000",
				},
			},
			{Key: p.DocKey("d2"), Score: 0.41, Fields: map[string]string{}},
		},
	}}
	repo := New(store, 150*time.Millisecond)

	results, err := repo.Search(context.Background(), p, testQuery(t, 10))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0]
	if first.DocID() != "d1" {
		t.Errorf("docID = %q, want d1 (tenant prefix must be stripped)", first.DocID())
	}
	if first.Score() != 0.92 {
		t.Errorf("score = %g, want 0.92", first.Score())
	}
	if first.Source() != result.SourceVector {
		t.Errorf("source = %q, want vector", first.Source())
	}
	if first.Snippet() != "retrieval augmented generation" {
		t.Errorf("snippet = %q", first.Snippet())
	}
	if !first.UpdatedAt().Equal(time.Unix(1700000000, 0)) {
		t.Errorf("updatedAt = %v", first.UpdatedAt())
	}
}

func TestSearch_SnippetKeepsRunesIntact(t *testing.T) {
	p := tenant.NewPartition("acme")
	// "é" is 2 bytes; 199 ASCII bytes put the snippet boundary inside it.
	content := strings.Repeat("a", snippetLen-1) + "é" + strings.Repeat("b", 50)
	store := &fakeStore{result: &db.SearchResult{
		Total: 1,
		Entries: []db.SearchEntry{
			{Key: p.DocKey("d1"), Score: 0.8, Fields: map[string]string{"__content": content}},
		},
	}}
	repo := New(store, 150*time.Millisecond)

	results, err := repo.Search(context.Background(), p, testQuery(t, 10))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	snippet := results[0].Snippet()
	if !utf8.ValidString(snippet) {
		t.Errorf("snippet contains a split rune: %q", snippet)
	}
	if len(snippet) > snippetLen {
		t.Errorf("snippet length = %d, want <= %d", len(snippet), snippetLen)
	}
	if snippet != strings.Repeat("a", snippetLen-1) {
		t.Errorf("snippet = %q, want the rune at the boundary dropped whole", snippet)
	}
}
