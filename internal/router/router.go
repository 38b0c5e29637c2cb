package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tenxcards-backend/internal/handlers"
	"tenxcards-backend/internal/middleware"
)

func New(
	log *zap.Logger,
	jwtAuth *middleware.JWTAuth,
	userSync *middleware.UserSync,
	generationLimiter *middleware.RateLimiter,
	generationHandler *handlers.GenerationHandler,
	flashcardHandler *handlers.FlashcardHandler,
	wsHandler http.HandlerFunc,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Generation & Review Routes ────
		r.Route("/generations", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(userSync.Middleware)
			r.With(generationLimiter.Middleware).Post("/", generationHandler.Generate)
			r.Get("/", generationHandler.List)
			r.Post("/accept", generationHandler.AcceptDecision)
			r.Get("/{sessionID}", generationHandler.Get)
			r.Post("/{sessionID}/proposals/{proposalID}/accept", generationHandler.Accept)
			r.Post("/{sessionID}/proposals/{proposalID}/reject", generationHandler.Reject)
		})

		// ──── Flashcard Routes ────
		r.Route("/flashcards", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(userSync.Middleware)
			r.Get("/", flashcardHandler.List)
			r.Post("/", flashcardHandler.Create)
			r.Get("/{id}", flashcardHandler.Get)
			r.Put("/{id}", flashcardHandler.Update)
			r.Delete("/{id}", flashcardHandler.Delete)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHandler)
	})

	return r
}
