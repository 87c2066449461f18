package resultcache

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/retriever/internal/domain/search/result"
)

// cachedEntry is the stored representation of a cache entry.
type cachedEntry struct {
	CreatedAt int64          `json:"created_at"`
	Results   []cachedResult `json:"results"`
}

type cachedResult struct {
	DocID     string  `json:"doc_id"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`
	Snippet   string  `json:"snippet,omitempty"`
	UpdatedAt int64   `json:"updated_at,omitempty"`
}

type entry struct {
	results   []result.Result
	createdAt time.Time
}

func encodeEntry(results []result.Result, createdAt time.Time) ([]byte, error) {
	dto := cachedEntry{
		CreatedAt: createdAt.Unix(),
		Results:   make([]cachedResult, 0, len(results)),
	}
	for i := range results {
		res := &results[i]
		dto.Results = append(dto.Results, cachedResult{
			DocID:     res.DocID(),
			Score:     res.Score(),
			Source:    string(res.Source()),
			Snippet:   res.Snippet(),
			UpdatedAt: res.UpdatedAt().Unix(),
		})
	}

	return json.Marshal(dto)
}

func decodeEntry(raw []byte) (entry, error) {
	var dto cachedEntry
	if err := json.Unmarshal(raw, &dto); err != nil {
		return entry{}, err
	}

	results := make([]result.Result, 0, len(dto.Results))
	for _, cr := range dto.Results {
		results = append(results, result.New(
			cr.DocID, cr.Score, result.Source(cr.Source), cr.Snippet, time.Unix(cr.UpdatedAt, 0)))
	}

	return entry{results: results, createdAt: time.Unix(dto.CreatedAt, 0)}, nil
}
