package retriever

import (
	"encoding/json"
	"time"
)

// date marshals as a calendar date (YYYY-MM-DD).
type date struct {
	time.Time
}

func (d date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

// SearchRequest is a hybrid search query. At least one of Text and Embedding
// must be set. DateTo is inclusive.
type SearchRequest struct {
	Text      string
	Embedding []float32
	DocTypes  []string
	DateFrom  time.Time
	DateTo    time.Time
	K         int
}

type wireSearchRequest struct {
	Text      string    `json:"text,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	DocTypes  []string  `json:"doc_types,omitempty"`
	DateFrom  *date     `json:"date_from,omitempty"`
	DateTo    *date     `json:"date_to,omitempty"`
	K         int       `json:"k,omitempty"`
}

func (r SearchRequest) wire() wireSearchRequest {
	w := wireSearchRequest{
		Text:      r.Text,
		Embedding: r.Embedding,
		DocTypes:  r.DocTypes,
		K:         r.K,
	}
	if !r.DateFrom.IsZero() {
		w.DateFrom = &date{r.DateFrom}
	}
	if !r.DateTo.IsZero() {
		w.DateTo = &date{r.DateTo}
	}
	return w
}

// SearchResponse is the search outcome. FallbackMode is one of "none",
// "vector_only", "keyword_only", "cache_only".
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	FallbackMode string         `json:"fallback_mode"`
	Degraded     bool           `json:"degraded"`
	CacheHit     bool           `json:"cache_hit"`
	Stale        bool           `json:"stale"`
}

// SearchResult is one ranked document.
type SearchResult struct {
	DocID     string    `json:"doc_id"`
	Score     float64   `json:"score"`
	Source    string    `json:"source"`
	Snippet   string    `json:"snippet"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is a pre-embedded document to index.
type Document struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Type      string            `json:"type,omitempty"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Version   int               `json:"version,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

// Weights holds the per-tenant fusion weights.
type Weights struct {
	Vector  float64 `json:"vector"`
	Keyword float64 `json:"keyword"`
}

// Health is the service health report.
type Health struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Breakers map[string]string `json:"breakers"`
}

type wireDocumentEvent struct {
	Event    string    `json:"event"`
	TenantID string    `json:"tenant_id"`
	Document *Document `json:"document,omitempty"`
	DocID    string    `json:"doc_id,omitempty"`
}

type wireTenantEvent struct {
	Event    string   `json:"event"`
	TenantID string   `json:"tenant_id"`
	Weights  *Weights `json:"weights,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
