package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenxcards-backend/internal/middleware"
)

func TestChannel(t *testing.T) {
	id := uuid.MustParse("7b0f5c3e-6f0a-4a51-9d0e-0d7c3f1d2a10")
	if got := Channel(id); got != "user_updates:7b0f5c3e-6f0a-4a51-9d0e-0d7c3f1d2a10" {
		t.Fatalf("unexpected channel %q", got)
	}
}

func TestHandleWebSocket_RejectsBadTokens(t *testing.T) {
	auth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, auth, zap.NewNop())
	expired, _ := auth.GenerateAccessToken(uuid.New(), "", -time.Minute)

	tests := []struct {
		name  string
		query string
	}{
		{"missing token", ""},
		{"garbage token", "?token=abc"},
		{"expired token", "?token=" + expired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws"+tc.query, nil))
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}
