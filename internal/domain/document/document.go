package document

import (
	"fmt"
	"regexp"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// Document is an ingested, already-embedded document (immutable value object).
// The ingestion pipeline owns it; this engine only derives index entries.
type Document struct {
	id        string
	content   string
	docType   string
	vector    []float32
	metadata  map[string]string
	version   int
	updatedAt time.Time
	deleted   bool
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Content: non-empty, max 160KB.
// Vector: non-empty (documents arrive pre-embedded).
func New(
	id, content, docType string,
	vector []float32,
	metadata map[string]string,
	version int,
	updatedAt time.Time,
) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	if len(vector) == 0 {
		return Document{}, fmt.Errorf("embedding vector is required")
	}
	if version <= 0 {
		version = 1
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return Document{
		id:        id,
		content:   content,
		docType:   docType,
		vector:    vector,
		metadata:  cloneMap(metadata),
		version:   version,
		updatedAt: updatedAt,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, content, docType string,
	vector []float32,
	metadata map[string]string,
	version int,
	updatedAt time.Time,
	deleted bool,
) Document {
	return Document{
		id: id, content: content, docType: docType,
		vector: vector, metadata: cloneMap(metadata),
		version: version, updatedAt: updatedAt, deleted: deleted,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text.
func (d *Document) Content() string { return d.content }

// Type returns the document type tag ("" if untyped).
func (d *Document) Type() string { return d.docType }

// Vector returns the document embedding.
func (d *Document) Vector() []float32 { return d.vector }

// Metadata returns the document's string metadata.
func (d *Document) Metadata() map[string]string { return d.metadata }

// Version returns the ingestion version counter.
func (d *Document) Version() int { return d.version }

// UpdatedAt returns the last modification time.
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }

// Deleted reports whether the document is tombstoned. Deleted documents must
// never appear in search results.
func (d *Document) Deleted() bool { return d.deleted }

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
