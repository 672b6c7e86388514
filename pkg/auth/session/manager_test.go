package session

import (
	"context"
	"testing"
	"time"

	"github.com/nahuelcoria/tienda-backend/pkg/config"
	"github.com/nahuelcoria/tienda-backend/pkg/kv"
)

type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	val, ok := m.values[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return val, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "secret",
		Issuer:                 "tienda",
		ExpirationMinutes:      30,
		RefreshTokenTTLMinutes: 60,
	}
}

func TestGenerateAndHasSession(t *testing.T) {
	store := newMemStore()
	mgr, err := NewManager(store, testJWTConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	accessID := NewAccessID()
	token, err := mgr.Generate(context.Background(), accessID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" {
		t.Fatalf("expected refresh token")
	}

	ok, err := mgr.HasSession(context.Background(), accessID)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if !ok {
		t.Fatalf("expected session to exist")
	}
}

func TestRotateInvalidatesOldSession(t *testing.T) {
	store := newMemStore()
	mgr, err := NewManager(store, testJWTConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	accessID := NewAccessID()
	token, err := mgr.Generate(context.Background(), accessID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	newID, newToken, err := mgr.Rotate(context.Background(), accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newID == accessID || newToken == token {
		t.Fatalf("expected fresh session pair")
	}

	ok, err := mgr.HasSession(context.Background(), accessID)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatalf("expected old session to be revoked")
	}
}

func TestRotateRejectsWrongToken(t *testing.T) {
	store := newMemStore()
	mgr, err := NewManager(store, testJWTConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	accessID := NewAccessID()
	if _, err := mgr.Generate(context.Background(), accessID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, _, err := mgr.Rotate(context.Background(), accessID, "forged"); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	store := newMemStore()
	mgr, err := NewManager(store, testJWTConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	accessID := NewAccessID()
	if _, err := mgr.Generate(context.Background(), accessID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := mgr.Revoke(context.Background(), accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err := mgr.HasSession(context.Background(), accessID)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatalf("expected revoked session to be gone")
	}
}

func TestNewManagerValidatesTTL(t *testing.T) {
	cfg := testJWTConfig()
	cfg.RefreshTokenTTLMinutes = 10 // below the 30m access TTL
	if _, err := NewManager(newMemStore(), cfg); err == nil {
		t.Fatalf("expected ttl validation error")
	}
}
