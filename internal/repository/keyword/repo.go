// Package keyword implements the keyword (BM25) search backend over the db
// store's full-text search.
package keyword

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

// store is the consumer interface for keyword search (ISP).
type store interface {
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

const snippetLen = 200

// Repo implements the keyword search backend with the same timeout and error
// taxonomy as the vector backend: deadline hits map to
// domain.ErrBackendTimeout, everything else to domain.ErrBackendUnavailable.
type Repo struct {
	store   store
	timeout time.Duration
}

// New creates a keyword search repository.
func New(s store, timeout time.Duration) *Repo {
	return &Repo{store: s, timeout: timeout}
}

// Search performs a BM25 search on the tenant's partition. BM25 relevance
// scores are unbounded; rank normalization happens at fusion time.
func (r *Repo) Search(ctx context.Context, p tenant.Partition, q query.Query) ([]result.Result, error) {
	if q.Text() == "" {
		return nil, fmt.Errorf("%w: keyword search requires query text", domain.ErrInvalidQuery)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    p.IndexName(),
		Query:        q.Text(),
		Filters:      q.Filters(),
		TopK:         q.K(),
		ReturnFields: []string{"__content", "updated_at"},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("keyword search %s: %w", p.TenantID(), domain.ErrBackendTimeout)
		}
		return nil, fmt.Errorf("keyword search %s: %w (%v)", p.TenantID(), domain.ErrBackendUnavailable, err)
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

		results = append(results, result.New(docID, entry.Score, result.SourceKeyword, snippet, updatedAt))
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
