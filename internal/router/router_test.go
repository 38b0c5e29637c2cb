package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenxcards-backend/internal/handlers"
	"tenxcards-backend/internal/middleware"
)

type noopUpserter struct{}

func (noopUpserter) Upsert(ctx context.Context, id uuid.UUID, email string) error { return nil }

type failingCounter struct{}

func (failingCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errors.New("no redis in tests")
}

func newTestRouter() (http.Handler, *middleware.JWTAuth) {
	jwtAuth := middleware.NewJWTAuth("secret")
	h := New(
		zap.NewNop(),
		jwtAuth,
		middleware.NewUserSync(noopUpserter{}, zap.NewNop()),
		middleware.NewRateLimiter(failingCounter{}, "generate", 10, time.Minute, zap.NewNop()),
		&handlers.GenerationHandler{},
		&handlers.FlashcardHandler{},
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
		"http://localhost:5173",
	)
	return h, jwtAuth
}

func TestRouter_PublicEndpoints(t *testing.T) {
	h, _ := newTestRouter()

	for _, path := range []string{"/health", "/metrics"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestRouter_APIRequiresToken(t *testing.T) {
	h, _ := newTestRouter()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/generations"},
		{http.MethodGet, "/api/v1/generations"},
		{http.MethodGet, "/api/v1/generations/1"},
		{http.MethodPost, "/api/v1/generations/accept"},
		{http.MethodPost, "/api/v1/generations/1/proposals/2/accept"},
		{http.MethodPost, "/api/v1/generations/1/proposals/2/reject"},
		{http.MethodGet, "/api/v1/flashcards"},
		{http.MethodPost, "/api/v1/flashcards"},
		{http.MethodGet, "/api/v1/flashcards/1"},
		{http.MethodPut, "/api/v1/flashcards/1"},
		{http.MethodDelete, "/api/v1/flashcards/1"},
	}

	for _, tc := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestRouter_WebSocketRouteIsPublic(t *testing.T) {
	h, jwtAuth := newTestRouter()
	tok, _ := jwtAuth.GenerateAccessToken(uuid.New(), "", time.Hour)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+tok, nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected ws handler to be reached, got %d", rr.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/flashcards", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}
