// Package vector implements the vector (ANN) search backend over the db
// store's KNN search.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/retriever/internal/db"
	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/domain/search/query"
	"github.com/kailas-cloud/retriever/internal/domain/search/result"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// store is the consumer interface for vector search (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

const snippetLen = 200

// Repo implements the vector search backend. Every call is bounded by the
// configured per-call timeout; a deadline hit surfaces as
// domain.ErrBackendTimeout, anything else as domain.ErrBackendUnavailable,
// so the caller's breaker can tell the two apart.
type Repo struct {
	store   store
	timeout time.Duration
}

// New creates a vector search repository.
func New(s store, timeout time.Duration) *Repo {
	return &Repo{store: s, timeout: timeout}
}

// Search performs a KNN search on the tenant's partition. Results carry
// similarity scores in [0,1], descending.
func (r *Repo) Search(ctx context.Context, p tenant.Partition, q query.Query) ([]result.Result, error) {
	if len(q.Embedding()) == 0 {
		return nil, fmt.Errorf("%w: vector search requires a query embedding", domain.ErrInvalidQuery)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    p.IndexName(),
		Filters:      q.Filters(),
		Vector:       q.Embedding(),
		K:            q.K(),
		ReturnFields: []string{"__content", "updated_at"},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search %s: %w", p.TenantID(), domain.ErrBackendTimeout)
		}
		return nil, fmt.Errorf("vector search %s: %w (%v)", p.TenantID(), domain.ErrBackendUnavailable, err)
	}

	return parseResults(sr, p), nil
}

// parseResults converts db.SearchResult into []result.Result.
func parseResults(sr *db.SearchResult, p tenant.Partition) []result.Result {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docID := p.DocID(entry.Key)

		var snippet string
		if content := entry.Fields["__content"]; content != "" {
			snippet = truncate(content, snippetLen)
		}

		var updatedAt time.Time
		if v, err := strconv.ParseInt(entry.Fields["updated_at"], 10, 64); err == nil {
			updatedAt = time.Unix(v, 0)
		}

		results = append(results, result.New(docID, entry.Score, result.SourceVector, snippet, updatedAt))
	}

	return results
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
