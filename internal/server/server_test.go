package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/infinityai/tradebot/internal/server/handler"
)

func newTestServer(apiKey string) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := Handlers{
		Health: handler.NewHealthHandler(logger),
	}
	return NewServer(Config{Port: 0, APIKey: apiKey}, handlers, nil, nil, logger)
}

// The liveness endpoint must answer without credentials even when an API key
// is configured, or orchestrator health checks fail as soon as auth is on.
func TestHealthzBypassesAuth(t *testing.T) {
	srv := newTestServer("secret-key")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAPIRoutesRequireKey(t *testing.T) {
	srv := newTestServer("secret-key")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated GET /api/v1/status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// A valid key clears auth; an unregistered path then falls through to
	// the router rather than the auth check.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/does-not-exist", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("authenticated GET on unknown path = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
