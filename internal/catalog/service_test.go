package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestListExcludesInactiveProducts(t *testing.T) {
	svc := newTestService(t)
	for _, p := range svc.List(Filter{}) {
		if !p.IsActive {
			t.Fatalf("inactive product %q leaked into listing", p.ID)
		}
	}
}

func TestListFiltersByCategoryAndFlags(t *testing.T) {
	svc := newTestService(t)

	accessories := svc.List(Filter{Category: "accesorios"})
	if len(accessories) == 0 {
		t.Fatalf("expected accessories in catalog")
	}
	for _, p := range accessories {
		if p.Category != "accesorios" {
			t.Fatalf("category filter leaked %q", p.Category)
		}
	}

	for _, p := range svc.List(Filter{Featured: true}) {
		if !p.IsFeatured {
			t.Fatalf("featured filter leaked %q", p.ID)
		}
	}

	for _, p := range svc.List(Filter{New: true}) {
		if !p.IsNew {
			t.Fatalf("new filter leaked %q", p.ID)
		}
	}
}

func TestListQueryMatchesNameCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	results := svc.List(Filter{Query: "REMERA"})
	if len(results) < 2 {
		t.Fatalf("expected at least two remeras, got %d", len(results))
	}
}

func TestGetKnownAndUnknownProduct(t *testing.T) {
	svc := newTestService(t)

	p, err := svc.Get("gorra-trucker")
	if err != nil {
		t.Fatalf("get known product: %v", err)
	}
	if p.HasSizes() {
		t.Fatalf("gorra should not require a size")
	}

	if _, err := svc.Get("no-such-product"); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestAllowsSize(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.Get("remera-basica-negra")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !p.AllowsSize("M") {
		t.Fatalf("expected size M to be allowed")
	}
	if p.AllowsSize("XS") {
		t.Fatalf("size XS should not be allowed")
	}
}

func TestFixturePathOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	fixture := `[{"id":"solo","name":"Solo","category":"otros","price_cents":100,"images":[],"stock":1,"is_active":true}]`
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	svc, err := NewService(ServiceParams{FixturePath: path})
	if err != nil {
		t.Fatalf("new service with fixture: %v", err)
	}
	if got := svc.List(Filter{}); len(got) != 1 || got[0].ID != "solo" {
		t.Fatalf("unexpected listing from fixture: %+v", got)
	}
}

func TestNewServiceRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	fixture := `[
		{"id":"dup","name":"A","category":"otros","price_cents":100,"images":[],"stock":1,"is_active":true},
		{"id":"dup","name":"B","category":"otros","price_cents":100,"images":[],"stock":1,"is_active":true}
	]`
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := NewService(ServiceParams{FixturePath: path}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
