package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxTextLength is the maximum allowed query text length.
	MaxTextLength = 4096
	DefaultK      = 10
	MaxK          = 100
)

// Query is a validated search query. At least one of text and embedding is
// present; K is defaulted and clamped.
type Query struct {
	text      string
	embedding []float32
	filters   filter.Filters
	k         int
}

// New validates and normalizes search parameters.
// Fails with domain.ErrInvalidQuery when both text and embedding are absent.
func New(text string, embedding []float32, filters filter.Filters, k int) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(embedding) == 0 {
		return Query{}, fmt.Errorf("%w: query text and embedding are both empty", domain.ErrInvalidQuery)
	}
	if len(text) > MaxTextLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxTextLength)
	}
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	return Query{text: text, embedding: embedding, filters: filters, k: k}, nil
}

// Text returns the query text ("" for embedding-only queries).
func (q *Query) Text() string { return q.text }

// Embedding returns the query embedding (nil until embedded).
func (q *Query) Embedding() []float32 { return q.embedding }

// WithEmbedding returns a copy of the query carrying the given embedding.
func (q *Query) WithEmbedding(vec []float32) Query {
	out := *q
	out.embedding = vec
	return out
}

// Filters returns the filter predicates.
func (q *Query) Filters() filter.Filters { return q.filters }

// K returns the requested result count.
func (q *Query) K() int { return q.k }

// Normalized returns the canonical query text used for cache keys:
// lower-cased, whitespace-collapsed.
func (q *Query) Normalized() string {
	return strings.Join(strings.Fields(strings.ToLower(q.text)), " ")
}
