package breaker

// Mode labels how far a query degraded from full hybrid search.
type Mode string

// Fallback modes, from none (full hybrid) to cache_only (both backends down).
const (
	ModeNone        Mode = "none"
	ModeVectorOnly  Mode = "vector_only"
	ModeKeywordOnly Mode = "keyword_only"
	ModeCacheOnly   Mode = "cache_only"
)
