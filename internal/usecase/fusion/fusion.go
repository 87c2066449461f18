// Package fusion merges vector and keyword result lists into one ranking.
//
// Backend scores are not comparable (cosine similarity in [0,1] vs unbounded
// BM25), so fusion is rank-based: within each list a document's normalized
// score is 1 - rank/len, and the combined score is the weighted sum across
// lists. The operation is commutative in its inputs and fully deterministic.
package fusion

import (
	"sort"

	"github.com/kailas-cloud/retriever/internal/domain/search/result"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// Fuse merges the two backend rankings under the tenant's weights and returns
// the top K. Either list may be nil (degraded single-backend queries).
// Ties break by updatedAt descending, then docID ascending.
func Fuse(vec, kw []result.Result, weights tenant.Weights, topK int) []result.Result {
	type scored struct {
		res   result.Result
		score float64
		both  bool
	}

	merged := make(map[string]*scored, len(vec)+len(kw))

	for rank := range vec {
		r := &vec[rank]
		merged[r.DocID()] = &scored{
			res:   *r,
			score: weights.Vector * normalize(rank, len(vec)),
		}
	}

	for rank := range kw {
		r := &kw[rank]
		s := weights.Keyword * normalize(rank, len(kw))
		if existing, ok := merged[r.DocID()]; ok {
			existing.score += s
			existing.both = true
			// Prefer whichever backend returned a snippet.
			if existing.res.Snippet() == "" && r.Snippet() != "" {
				existing.res = *r
			}
			continue
		}
		merged[r.DocID()] = &scored{res: *r, score: s}
	}

	results := make([]result.Result, 0, len(merged))
	for _, s := range merged {
		source := s.res.Source()
		if s.both {
			source = result.SourceBoth
		}
		results = append(results, s.res.WithScore(s.score, source))
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if !a.UpdatedAt().Equal(b.UpdatedAt()) {
			return a.UpdatedAt().After(b.UpdatedAt())
		}
		return a.DocID() < b.DocID()
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// normalize maps a 0-based rank in a list of n to (0,1], best rank first.
func normalize(rank, n int) float64 {
	return 1 - float64(rank)/float64(n)
}
