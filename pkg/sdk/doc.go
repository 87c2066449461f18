// Package retriever provides a Go client for the retriever hybrid search
// service.
//
// The engine answers tenant-scoped hybrid queries (vector KNN fused with
// keyword BM25) and consumes document/tenant lifecycle events from the
// ingestion pipeline:
//
//	client, _ := retriever.New("http://localhost:8080",
//	    retriever.WithAPIKey("secret"),
//	)
//	_ = client.CreateTenant(ctx, "acme", nil)
//	_ = client.UpsertDocument(ctx, "acme", retriever.Document{
//	    ID:        "doc-1",
//	    Content:   "hello world",
//	    Embedding: vec,
//	})
//	resp, _ := client.Search(ctx, "acme", retriever.SearchRequest{Text: "hello"})
//
// Responses can be degraded: when both backends are unavailable the engine
// serves a stale cached ranking or an empty result set with Degraded set,
// never an error.
package retriever
