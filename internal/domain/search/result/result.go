package result

import "time"

// Source identifies which backend(s) produced a result.
type Source string

// Result source constants.
const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
	// SourceBoth marks a document returned by both backends before fusion.
	SourceBoth Source = "both"
)

// Result is a single search hit. Ephemeral: produced per query, never stored
// beyond the result cache.
type Result struct {
	docID     string
	score     float64
	source    Source
	snippet   string
	updatedAt time.Time
}

// New creates a search result.
func New(docID string, score float64, source Source, snippet string, updatedAt time.Time) Result {
	return Result{docID: docID, score: score, source: source, snippet: snippet, updatedAt: updatedAt}
}

// DocID returns the document identifier.
func (r *Result) DocID() string { return r.docID }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Source returns which backend(s) produced the hit.
func (r *Result) Source() Source { return r.source }

// Snippet returns the content excerpt.
func (r *Result) Snippet() string { return r.snippet }

// UpdatedAt returns the document's last modification time (recency tie-breaks).
func (r *Result) UpdatedAt() time.Time { return r.updatedAt }

// Cached is a ranking read back from the result cache. Fresh entries are
// inside the logical TTL; stale ones are past it but retained for degraded
// serving.
type Cached struct {
	Results []Result
	Fresh   bool
	Age     time.Duration
}

// WithScore returns a copy carrying a new score and source (fusion rescoring).
func (r *Result) WithScore(score float64, source Source) Result {
	out := *r
	out.score = score
	out.source = source
	return out
}
