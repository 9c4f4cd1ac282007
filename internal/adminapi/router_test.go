package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/duraqio/duraq/internal/adminapi/auth"
	"github.com/duraqio/duraq/internal/queue"
	"github.com/duraqio/duraq/internal/session"
	"github.com/duraqio/duraq/internal/storage"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newTestRouter(t *testing.T) (http.Handler, *auth.JWTService, *session.Handler) {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "journal"), storage.Config{Mode: storage.ModeNever})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	coll := queue.NewMemoryCollection(st)
	registry := session.NewRegistry()
	sess := registry.Create("admin-api")
	gate := session.NewAvailabilityGate(registry.Count(), session.AlwaysAvailable, nil)
	cmd := session.NewHandler(sess, session.Config{
		Collection:   coll,
		Gate:         gate,
		Registry:     registry,
		MaxOpenReads: 1,
	})

	jwtService, err := auth.NewJWTService(auth.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}

	return NewRouter(cmd, jwtService), jwtService, cmd
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHealthLiveness(t *testing.T) {
	router, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestListQueues_Empty(t *testing.T) {
	router, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/queues", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", resp["status"])
	}
}

func TestFlush_RequiresAuth(t *testing.T) {
	router, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/queues/orders/flush", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestFlush_WithValidToken(t *testing.T) {
	router, jwtService, cmd := newTestRouter(t)
	_ = cmd

	token, _, err := jwtService.MintToken("ops")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/queues/orders/flush", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestFlushAll_WithValidToken(t *testing.T) {
	router, jwtService, _ := newTestRouter(t)
	token, _, _ := jwtService.MintToken("ops")

	req := httptest.NewRequest(http.MethodPost, "/flush_all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
