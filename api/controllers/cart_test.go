package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nahuelcoria/tienda-backend/api/middleware"
	"github.com/nahuelcoria/tienda-backend/internal/cart"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
)

type stubCartService struct {
	snapshot cart.Snapshot
	err      error

	lastSession string
	lastProduct string
	lastSize    string
	lastQty     int
	cleared     bool
}

func (s *stubCartService) Get(ctx context.Context, cartID string) (cart.Snapshot, error) {
	s.lastSession = cartID
	return s.snapshot, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, cartID, productID, size string) (cart.Snapshot, error) {
	s.lastSession = cartID
	s.lastProduct = productID
	s.lastSize = size
	return s.snapshot, s.err
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, cartID, productID, size string, quantity int) (cart.Snapshot, error) {
	s.lastSession = cartID
	s.lastProduct = productID
	s.lastSize = size
	s.lastQty = quantity
	return s.snapshot, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, cartID, productID, size string) (cart.Snapshot, error) {
	s.lastSession = cartID
	s.lastProduct = productID
	s.lastSize = size
	return s.snapshot, s.err
}

func (s *stubCartService) Clear(ctx context.Context, cartID string) error {
	s.lastSession = cartID
	s.cleared = true
	return s.err
}

func withSession(req *http.Request, sessionID string) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
}

func TestCartAddItemUsesSessionScope(t *testing.T) {
	svc := &stubCartService{snapshot: cart.Snapshot{ItemCount: 1, SubtotalCents: 620000}}
	handler := CartAddItem(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte(`{"product_id":"remera-basica-negra","size":"M"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, withSession(req, "session-1"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastSession != "session-1" {
		t.Fatalf("expected session scope, got %q", svc.lastSession)
	}
	if svc.lastProduct != "remera-basica-negra" || svc.lastSize != "M" {
		t.Fatalf("unexpected add args: %q %q", svc.lastProduct, svc.lastSize)
	}

	var envelope struct {
		Data cart.Snapshot `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.SubtotalCents != 620000 {
		t.Fatalf("unexpected subtotal %d", envelope.Data.SubtotalCents)
	}
}

func TestCartAddItemRequiresProduct(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte(`{"size":"M"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, withSession(req, "session-1"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddItemWithoutSessionFails(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte(`{"product_id":"remera-basica-negra"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestCartUpdateItemPassesQuantity(t *testing.T) {
	svc := &stubCartService{}
	handler := CartUpdateItem(svc, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items", bytes.NewReader([]byte(`{"product_id":"buzo-canguro-gris","size":"L","quantity":3}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, withSession(req, "session-2"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastQty != 3 {
		t.Fatalf("expected quantity 3, got %d", svc.lastQty)
	}
}

func TestCartFetchPropagatesNotFound(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")}
	handler := CartFetch(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, withSession(req, "session-3"))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartClear(t *testing.T) {
	svc := &stubCartService{}
	handler := CartClear(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, withSession(req, "session-4"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.cleared {
		t.Fatal("expected clear call")
	}
}
