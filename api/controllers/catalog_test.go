package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nahuelcoria/tienda-backend/internal/catalog"
)

func newTestCatalog(t *testing.T) catalog.Service {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceParams{})
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	return svc
}

func TestCatalogListAppliesLimit(t *testing.T) {
	handler := CatalogList(newTestCatalog(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=2", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data []catalog.Product `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 products, got %d", len(envelope.Data))
	}
}

func TestCatalogListRejectsBadBool(t *testing.T) {
	handler := CatalogList(newTestCatalog(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?featured=maybe", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCatalogDetailUnknownProduct(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/products/{productId}", CatalogDetail(newTestCatalog(t), nil))

	req := httptest.NewRequest(http.MethodGet, "/products/no-existe", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCatalogCategories(t *testing.T) {
	handler := CatalogCategories(newTestCatalog(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/categories", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data []string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) == 0 {
		t.Fatal("expected categories")
	}
}
