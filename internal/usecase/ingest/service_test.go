package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
	domdoc "github.com/kailas-cloud/retriever/internal/domain/document"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

type mockResolver struct {
	inactive map[string]bool
	unknown  map[string]bool
}

func (m *mockResolver) Resolve(_ context.Context, tenantID string) (tenant.Partition, tenant.Weights, error) {
	if m.unknown[tenantID] {
		return tenant.Partition{}, tenant.Weights{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrTenantNotFound)
	}
	if m.inactive[tenantID] {
		return tenant.Partition{}, tenant.Weights{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrTenantInactive)
	}
	return tenant.NewPartition(tenantID), tenant.DefaultWeights(), nil
}

func (m *mockResolver) Refresh(string) {}

type mockPartitions struct {
	ensured  []string
	upserts  []string
	deletes  []string
	existing map[string]bool
	upsertFn func() (bool, error)
}

func (m *mockPartitions) Ensure(_ context.Context, p tenant.Partition) error {
	m.ensured = append(m.ensured, p.TenantID())
	return nil
}

func (m *mockPartitions) Upsert(_ context.Context, p tenant.Partition, doc *domdoc.Document) (bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn()
	}
	m.upserts = append(m.upserts, p.DocKey(doc.ID()))
	created := !m.existing[doc.ID()]
	if m.existing == nil {
		m.existing = make(map[string]bool)
	}
	m.existing[doc.ID()] = true
	return created, nil
}

func (m *mockPartitions) Delete(_ context.Context, p tenant.Partition, docID string) (bool, error) {
	m.deletes = append(m.deletes, p.DocKey(docID))
	if !m.existing[docID] {
		return false, nil
	}
	delete(m.existing, docID)
	return true, nil
}

type mockCounter struct {
	deltas []int64
}

func (m *mockCounter) AddDocCount(_ context.Context, _ string, delta int64, _ time.Time) error {
	m.deltas = append(m.deltas, delta)
	return nil
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) Invalidate(_ context.Context, p tenant.Partition) error {
	m.invalidated = append(m.invalidated, p.TenantID())
	return nil
}

func newTestService(t *testing.T) (*Service, *mockResolver, *mockPartitions, *mockCounter, *mockInvalidator) {
	t.Helper()
	resolver := &mockResolver{inactive: map[string]bool{}, unknown: map[string]bool{}}
	parts := &mockPartitions{existing: map[string]bool{}}
	counter := &mockCounter{}
	inv := &mockInvalidator{}
	return New(resolver, parts, counter, inv, zap.NewNop()), resolver, parts, counter, inv
}

func testDoc(t *testing.T, id string) *domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, "content body", "note", []float32{0.1, 0.2}, nil, 1, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return &doc
}

func TestUpsert_FirstDocumentCreatesPartition(t *testing.T) {
	svc, _, parts, counter, inv := newTestService(t)

	if err := svc.Upsert(context.Background(), "acme", testDoc(t, "d1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if len(parts.ensured) != 1 || parts.ensured[0] != "acme" {
		t.Errorf("ensured = %v, want [acme]", parts.ensured)
	}
	if len(counter.deltas) != 1 || counter.deltas[0] != 1 {
		t.Errorf("deltas = %v, want [1]", counter.deltas)
	}
	if len(inv.invalidated) != 1 {
		t.Errorf("cache invalidations = %v, want one", inv.invalidated)
	}
}

func TestUpsert_UpdateDoesNotBumpCount(t *testing.T) {
	svc, _, _, counter, _ := newTestService(t)

	if err := svc.Upsert(context.Background(), "acme", testDoc(t, "d1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := svc.Upsert(context.Background(), "acme", testDoc(t, "d1")); err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}

	if len(counter.deltas) != 2 || counter.deltas[1] != 0 {
		t.Errorf("deltas = %v, want second delta 0", counter.deltas)
	}
}

func TestUpsert_RejectsUnknownAndInactiveTenants(t *testing.T) {
	svc, resolver, parts, _, _ := newTestService(t)
	resolver.unknown["ghost"] = true
	resolver.inactive["sleepy"] = true

	if err := svc.Upsert(context.Background(), "ghost", testDoc(t, "d1")); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	if err := svc.Upsert(context.Background(), "sleepy", testDoc(t, "d1")); !errors.Is(err, domain.ErrTenantInactive) {
		t.Fatalf("expected ErrTenantInactive, got %v", err)
	}
	if len(parts.upserts) != 0 {
		t.Error("no partition writes may happen for rejected tenants")
	}
}

func TestUpsert_PropagatesDimMismatch(t *testing.T) {
	svc, _, parts, _, _ := newTestService(t)
	parts.upsertFn = func() (bool, error) {
		return false, fmt.Errorf("bad dim: %w", domain.ErrVectorDimMismatch)
	}

	err := svc.Upsert(context.Background(), "acme", testDoc(t, "d1"))
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestDelete_RemovesAndDecrements(t *testing.T) {
	svc, _, _, counter, inv := newTestService(t)

	if err := svc.Upsert(context.Background(), "acme", testDoc(t, "d1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := svc.Delete(context.Background(), "acme", "d1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(counter.deltas) != 2 || counter.deltas[1] != -1 {
		t.Errorf("deltas = %v, want [1 -1]", counter.deltas)
	}
	if len(inv.invalidated) != 2 {
		t.Errorf("cache invalidations = %d, want 2", len(inv.invalidated))
	}
}

func TestDelete_UnknownDocumentIsNoop(t *testing.T) {
	svc, _, _, counter, inv := newTestService(t)

	if err := svc.Delete(context.Background(), "acme", "ghost-doc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(counter.deltas) != 0 {
		t.Errorf("deltas = %v, want none for a missing doc", counter.deltas)
	}
	if len(inv.invalidated) != 0 {
		t.Errorf("invalidations = %v, want none for a missing doc", inv.invalidated)
	}
}
