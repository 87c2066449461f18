// Package partition maintains the per-tenant index partitions: FT index
// lifecycle and the derived document entries the search backends read.
// All keys and index names come from a tenant.Partition handle, so writes
// cannot land in another tenant's keyspace.
package partition

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/retriever/internal/db"
	"github.com/kailas-cloud/retriever/internal/domain"
	domdoc "github.com/kailas-cloud/retriever/internal/domain/document"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

// store is the consumer interface for partition maintenance (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds HNSW tuning for tenant partition indexes.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements partition maintenance over the db store.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a partition repository.
func New(s store, vectorDim int) *Repo {
	return &Repo{store: s, vectorDim: vectorDim}
}

// WithHNSW overrides HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// Ensure creates the tenant's FT index if it does not exist yet.
// Partitions come into being with the tenant's first document.
func (r *Repo) Ensure(ctx context.Context, p tenant.Partition) error {
	exists, err := r.store.IndexExists(ctx, p.IndexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", p.IndexName(), err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(p, r.vectorDim, r.hnsw)
	if err != nil {
		return err
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// Concurrent first-ingest: someone else created it between the probe
		// and the FT.CREATE.
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", p.IndexName(), err)
	}
	return nil
}

// Drop removes the tenant's FT index and every document entry under its
// prefix. Called on tenant deletion.
func (r *Repo) Drop(ctx context.Context, p tenant.Partition) error {
	if err := r.store.DropIndex(ctx, p.IndexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", p.IndexName(), err)
	}

	keys, err := r.store.Scan(ctx, p.DocPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan partition %s: %w", p.TenantID(), err)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete partition docs %s: %w", p.TenantID(), err)
	}
	return nil
}

// Upsert writes the derived index entry for a document. Returns true if the
// document was created (vs. updated). A versioned upsert carrying an older
// version than the stored entry is dropped: events can replay and arrive out
// of order, and the newest document must win.
func (r *Repo) Upsert(ctx context.Context, p tenant.Partition, doc *domdoc.Document) (bool, error) {
	if len(doc.Vector()) != r.vectorDim {
		return false, fmt.Errorf("%w: document %s has dim %d, index expects %d",
			domain.ErrVectorDimMismatch, doc.ID(), len(doc.Vector()), r.vectorDim)
	}

	key := p.DocKey(doc.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if exists {
		stored, err := r.storedVersion(ctx, key)
		if err != nil {
			return false, err
		}
		if stored > doc.Version() {
			return false, nil
		}
	}

	if err := r.store.HSet(ctx, key, buildHashFields(doc)); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	return !exists, nil
}

// storedVersion reads the version field of an existing entry; 0 when the
// entry carries none.
func (r *Repo) storedVersion(ctx context.Context, key string) (int, error) {
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	v, err := strconv.Atoi(fields[fieldVersion])
	if err != nil {
		return 0, nil
	}
	return v, nil
}

// Delete removes a document's index entry. Removing the hash drops the
// document from the FT index, so deleted documents can never surface in
// results. Returns true if an entry existed.
func (r *Repo) Delete(ctx context.Context, p tenant.Partition, docID string) (bool, error) {
	key := p.DocKey(docID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return false, nil
	}

	if err := r.store.Del(ctx, key); err != nil {
		return false, fmt.Errorf("del %s: %w", key, err)
	}
	return true, nil
}

// Count returns the number of documents in the tenant's partition.
func (r *Repo) Count(ctx context.Context, p tenant.Partition) (int, error) {
	n, err := r.store.SearchCount(ctx, p.IndexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count partition %s: %w", p.TenantID(), err)
	}
	return n, nil
}

// buildIndex creates the FT definition for a tenant partition: BM25 text over
// __content, HNSW cosine vector over __vector, plus the filterable type tag
// and updated_at numeric.
func buildIndex(p tenant.Partition, vectorDim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(p.IndexName()).
		Prefix(p.DocPrefix()).
		Text("__content").
		Tag("type").
		Numeric("updated_at").
		Numeric("version").
		Vector("__vector", vectorDim, db.VectorHNSW, db.DistanceCosine).
		HNSW(hnsw.M, hnsw.EFConstruct).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", p.IndexName(), err)
	}
	return def, nil
}
