package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
	"github.com/kailas-cloud/retriever/internal/domain/tenant"
)

type mockTenantRepo struct {
	records  map[string]tenant.Tenant
	getCalls int
}

func newMockTenantRepo() *mockTenantRepo {
	return &mockTenantRepo{records: make(map[string]tenant.Tenant)}
}

func (m *mockTenantRepo) Get(_ context.Context, tenantID string) (tenant.Tenant, error) {
	m.getCalls++
	t, ok := m.records[tenantID]
	if !ok {
		return tenant.Tenant{}, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrTenantNotFound)
	}
	return t, nil
}

func (m *mockTenantRepo) Save(_ context.Context, t tenant.Tenant) error {
	m.records[t.ID()] = t
	return nil
}

func (m *mockTenantRepo) Delete(_ context.Context, tenantID string) error {
	delete(m.records, tenantID)
	return nil
}

type mockDropper struct {
	dropped []string
	err     error
}

func (m *mockDropper) Drop(_ context.Context, p tenant.Partition) error {
	m.dropped = append(m.dropped, p.TenantID())
	return m.err
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) Invalidate(_ context.Context, p tenant.Partition) error {
	m.invalidated = append(m.invalidated, p.TenantID())
	return nil
}

func newTestService(t *testing.T) (*Service, *mockTenantRepo, *mockDropper, *mockInvalidator) {
	t.Helper()
	repo := newMockTenantRepo()
	dropper := &mockDropper{}
	inv := &mockInvalidator{}
	return New(repo, dropper, inv, zap.NewNop()), repo, dropper, inv
}

func TestResolve_ActiveTenant(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	tn, _ := tenant.New("acme", tenant.Weights{Vector: 0.7, Keyword: 0.3})
	repo.records["acme"] = tn

	p, w, err := svc.Resolve(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.TenantID() != "acme" {
		t.Errorf("partition tenant = %q", p.TenantID())
	}
	if w.Vector != 0.7 || w.Keyword != 0.3 {
		t.Errorf("weights = %+v", w)
	}
}

func TestResolve_UnknownTenant(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	p, _, err := svc.Resolve(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	if !p.IsZero() {
		t.Error("no handle may be minted for an unknown tenant")
	}
}

func TestResolve_InactiveTenant(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	tn, _ := tenant.New("acme", tenant.DefaultWeights())
	repo.records["acme"] = tn.WithActive(false)

	p, _, err := svc.Resolve(context.Background(), "acme")
	if !errors.Is(err, domain.ErrTenantInactive) {
		t.Fatalf("expected ErrTenantInactive, got %v", err)
	}
	if !p.IsZero() {
		t.Error("no handle may be minted for an inactive tenant")
	}
}

func TestResolve_CachesRecord(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	tn, _ := tenant.New("acme", tenant.DefaultWeights())
	repo.records["acme"] = tn

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Resolve(context.Background(), "acme"); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if repo.getCalls != 1 {
		t.Errorf("repo Get called %d times, want 1 (in-memory map)", repo.getCalls)
	}
}

func TestCreateThenResolve(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if err := svc.Create(context.Background(), "acme", tenant.DefaultWeights()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := svc.Resolve(context.Background(), "acme"); err != nil {
		t.Fatalf("Resolve after Create: %v", err)
	}
}

func TestCreate_InvalidID(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.Create(context.Background(), "bad id!", tenant.DefaultWeights())
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestDeactivate_TakesEffectDespiteCache(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	tn, _ := tenant.New("acme", tenant.DefaultWeights())
	repo.records["acme"] = tn

	// Warm the in-memory map.
	if _, _, err := svc.Resolve(context.Background(), "acme"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if err := svc.Deactivate(context.Background(), "acme"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, _, err := svc.Resolve(context.Background(), "acme"); !errors.Is(err, domain.ErrTenantInactive) {
		t.Fatalf("expected ErrTenantInactive after deactivation, got %v", err)
	}

	if err := svc.Activate(context.Background(), "acme"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if _, _, err := svc.Resolve(context.Background(), "acme"); err != nil {
		t.Fatalf("Resolve after reactivation: %v", err)
	}
}

func TestUpdateWeights(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	tn, _ := tenant.New("acme", tenant.DefaultWeights())
	repo.records["acme"] = tn

	if err := svc.UpdateWeights(context.Background(), "acme", tenant.Weights{Vector: 0.9, Keyword: 0.1}); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	_, w, err := svc.Resolve(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if w.Vector != 0.9 || w.Keyword != 0.1 {
		t.Errorf("weights = %+v", w)
	}

	if err := svc.UpdateWeights(context.Background(), "acme", tenant.Weights{Vector: 2}); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for out-of-range weights, got %v", err)
	}
}

func TestDrop_TearsDownEverything(t *testing.T) {
	svc, repo, dropper, inv := newTestService(t)
	tn, _ := tenant.New("acme", tenant.DefaultWeights())
	repo.records["acme"] = tn

	if err := svc.Drop(context.Background(), "acme"); err != nil {
		t.Fatalf("Drop: %v", err)
	}

	if len(dropper.dropped) != 1 || dropper.dropped[0] != "acme" {
		t.Errorf("partition drops = %v", dropper.dropped)
	}
	if len(inv.invalidated) != 1 || inv.invalidated[0] != "acme" {
		t.Errorf("cache invalidations = %v", inv.invalidated)
	}
	if _, _, err := svc.Resolve(context.Background(), "acme"); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound after drop, got %v", err)
	}
}

func TestDrop_UnknownTenant(t *testing.T) {
	svc, _, dropper, _ := newTestService(t)

	if err := svc.Drop(context.Background(), "ghost"); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	if len(dropper.dropped) != 0 {
		t.Error("nothing may be dropped for an unknown tenant")
	}
}
