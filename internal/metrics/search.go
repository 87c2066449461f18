package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and fallback Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retriever",
			Name:      "search_duration_seconds",
			Help:      "End-to-end hybrid search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1, 2},
		},
		[]string{"fallback_mode"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "searches_total",
			Help:      "Total number of search requests",
		},
		[]string{"fallback_mode", "degraded"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "result_cache_total",
			Help:      "Result cache hits, stale hits and misses",
		},
		[]string{"result"}, // "hit" / "stale" / "miss"
	)

	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "backend_requests_total",
			Help:      "Per-backend search calls",
		},
		[]string{"backend", "status"}, // backend: "vector"/"keyword", status: "ok"/"timeout"/"error"/"skipped"
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "retriever",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per backend (0=closed, 1=half_open, 2=open)",
		},
		[]string{"backend"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "embedding_requests_total",
			Help:      "Total query embedding requests",
		},
		[]string{"provider", "model", "status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BreakerState)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	searchMetricsRegistered = true
}
