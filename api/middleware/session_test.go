package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestSessionMintsIdentifier(t *testing.T) {
	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == "" {
		t.Fatal("expected session id in context")
	}
	if _, err := uuid.Parse(captured); err != nil {
		t.Fatalf("expected uuid session id, got %q", captured)
	}
	if rec.Header().Get("X-Session-Id") != captured {
		t.Fatalf("expected session header %q, got %q", captured, rec.Header().Get("X-Session-Id"))
	}

	found := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "tienda_session" && cookie.Value == captured {
			found = true
		}
	}
	if !found {
		t.Fatal("expected session cookie to be set")
	}
}

func TestSessionReusesHeaderIdentifier(t *testing.T) {
	existing := uuid.NewString()

	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", existing)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured != existing {
		t.Fatalf("expected session %q, got %q", existing, captured)
	}
}

func TestSessionReusesCookieIdentifier(t *testing.T) {
	existing := uuid.NewString()

	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "tienda_session", Value: existing})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured != existing {
		t.Fatalf("expected session %q, got %q", existing, captured)
	}
}

func TestSessionRejectsMalformedIdentifier(t *testing.T) {
	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", "not-a-uuid")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured == "not-a-uuid" {
		t.Fatal("expected malformed session id to be replaced")
	}
	if _, err := uuid.Parse(captured); err != nil {
		t.Fatalf("expected fresh uuid, got %q", captured)
	}
}
