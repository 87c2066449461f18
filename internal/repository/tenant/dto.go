package tenant

import (
	"strconv"
	"time"

	domtenant "github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// Tenant record hash fields.
const (
	fieldActive        = "active"
	fieldVectorWeight  = "vector_weight"
	fieldKeywordWeight = "keyword_weight"
	fieldDocCount      = "doc_count"
	fieldLastUpdated   = "last_updated"
)

func toHashFields(t domtenant.Tenant) map[string]string {
	active := "0"
	if t.Active() {
		active = "1"
	}

	fields := map[string]string{
		fieldActive:        active,
		fieldVectorWeight:  strconv.FormatFloat(t.Weights().Vector, 'f', -1, 64),
		fieldKeywordWeight: strconv.FormatFloat(t.Weights().Keyword, 'f', -1, 64),
		fieldDocCount:      strconv.FormatInt(t.DocCount(), 10),
	}
	if !t.LastUpdated().IsZero() {
		fields[fieldLastUpdated] = strconv.FormatInt(t.LastUpdated().Unix(), 10)
	}
	return fields
}

func fromHashFields(tenantID string, fields map[string]string) domtenant.Tenant {
	weights := domtenant.DefaultWeights()
	if v, err := strconv.ParseFloat(fields[fieldVectorWeight], 64); err == nil {
		weights.Vector = v
	}
	if v, err := strconv.ParseFloat(fields[fieldKeywordWeight], 64); err == nil {
		weights.Keyword = v
	}

	docCount, _ := strconv.ParseInt(fields[fieldDocCount], 10, 64)

	var lastUpdated time.Time
	if v, err := strconv.ParseInt(fields[fieldLastUpdated], 10, 64); err == nil {
		lastUpdated = time.Unix(v, 0)
	}

	return domtenant.Reconstruct(tenantID, fields[fieldActive] == "1", weights, docCount, lastUpdated)
}
